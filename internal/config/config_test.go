package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	argoErrors "github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

const minimalConfig = `
engine:
  symbol: EUR
  currency: USD
  account: DU123
  account_currency: USD
strategy:
  url: http://localhost:9000
`

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *ConfigTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (suite *ConfigTestSuite) load(content string) (*Config, error) {
	return Load(suite.write("config.yaml", content), Options{EnvFile: filepath.Join(suite.dir, "missing.env")})
}

func (suite *ConfigTestSuite) TestDefaults() {
	cfg, err := suite.load(minimalConfig)
	suite.Require().NoError(err)

	suite.Equal("15min", cfg.Engine.DataFrequency)
	suite.Equal("UTC", cfg.Engine.TradingTimezone)
	suite.Equal(22, cfg.Engine.TradingStartHour)
	suite.Equal(23, cfg.Engine.RestartHour)
	suite.Equal(45, cfg.Engine.RestartMinute)
	suite.InDelta(1.0, cfg.Engine.Leverage, 1e-12)
	suite.Equal(3*time.Second, cfg.Engine.SettleInterval)
	suite.Equal(30*time.Minute, cfg.Engine.CloseMargin)
	suite.Equal(5*time.Minute, cfg.Engine.RestartSafetyMargin)
	suite.Equal(time.Second, cfg.Engine.MonitorInterval)

	suite.Equal(BrokerPaper, cfg.Broker.Kind)
	suite.Equal(7497, cfg.Broker.Port)
	suite.Equal("EUR", cfg.Broker.Paper.Symbol)
	suite.Equal("USD", cfg.Broker.Paper.Currency)
	suite.Equal("DU123", cfg.Broker.Paper.Account)

	suite.Equal(60*time.Second, cfg.Strategy.Timeout)
	suite.True(cfg.Strategy.CheckVersion)
	suite.Equal(NotifierLog, cfg.Notifier.Kind)
	suite.Equal("info", cfg.LogLevel)
}

func (suite *ConfigTestSuite) TestExplicitZeroHourIsKept() {
	cfg, err := suite.load(`
engine:
  symbol: EUR
  currency: USD
  account: DU123
  account_currency: USD
  trading_start_hour: 0
  settle_interval: 500ms
strategy:
  url: http://localhost:9000
`)
	suite.Require().NoError(err)
	suite.Equal(0, cfg.Engine.TradingStartHour)
	suite.Equal(500*time.Millisecond, cfg.Engine.SettleInterval)
}

func (suite *ConfigTestSuite) TestEnvironmentOverrides() {
	suite.T().Setenv("ARGOFX_QUOTES_POLYGON_API_KEY", "pk-env")
	suite.T().Setenv("ARGOFX_STRATEGY_TOKEN", "secret")
	suite.T().Setenv("ARGOFX_BROKER_PORT", "4002")

	cfg, err := suite.load(minimalConfig)
	suite.Require().NoError(err)
	suite.Equal("pk-env", cfg.Quotes.PolygonAPIKey)
	suite.Equal("secret", cfg.Strategy.Token)
	suite.Equal(4002, cfg.Broker.Port)
}

func (suite *ConfigTestSuite) TestDotEnvFile() {
	envFile := suite.write("test.env", "ARGOFX_NOTIFIER_SMTP_PASSWORD=from-dotenv\n")

	suite.T().Cleanup(func() { _ = os.Unsetenv("ARGOFX_NOTIFIER_SMTP_PASSWORD") })

	cfg, err := Load(suite.write("config.yaml", minimalConfig), Options{EnvFile: envFile})
	suite.Require().NoError(err)
	suite.Equal("from-dotenv", cfg.Notifier.SMTPPassword)
}

func (suite *ConfigTestSuite) TestStrategyPassthrough() {
	cfg, err := suite.load(minimalConfig + `  purge_window: 4
  embargo_period: 2
  features:
    lookback: 20
`)
	suite.Require().NoError(err)

	engineConfig := cfg.SessionEngine()
	suite.Equal(4, engineConfig.PurgeWindow)
	suite.Equal(2, engineConfig.EmbargoPeriod)
	suite.Equal(20, engineConfig.Features["lookback"])
}

func (suite *ConfigTestSuite) TestValidation() {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing strategy url",
			content: `
engine:
  symbol: EUR
  currency: USD
  account: DU123
  account_currency: USD
`,
		},
		{
			name:    "bad symbol",
			content: "engine:\n  symbol: EURO\n  currency: USD\n  account: DU1\n  account_currency: USD\nstrategy:\n  url: http://x\n",
		},
		{
			name:    "unknown broker",
			content: minimalConfig + "broker:\n  kind: ib\n",
		},
		{
			name:    "smtp without recipients",
			content: minimalConfig + "notifier:\n  kind: smtp\n  smtp_host: mail\n  from: a@b.c\n",
		},
		{
			name:    "restart hour out of range",
			content: "engine:\n  symbol: EUR\n  currency: USD\n  account: DU1\n  account_currency: USD\n  restart_hour: 24\nstrategy:\n  url: http://x\n",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.load(tt.content)
			suite.Require().Error(err)
			suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidConfiguration))
		})
	}
}

func (suite *ConfigTestSuite) TestMissingFile() {
	_, err := Load(filepath.Join(suite.dir, "nope.yaml"), Options{EnvFile: ""})
	suite.Require().Error(err)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestSchema() {
	schema, err := Schema()
	suite.Require().NoError(err)
	suite.True(gjson.Valid(schema))
	suite.True(gjson.Get(schema, "properties.engine.properties.symbol").Exists())
	suite.Equal("string", gjson.Get(schema, "properties.engine.properties.settle_interval.type").String())
	suite.True(gjson.Get(schema, "properties.notifier.properties.smtp_host").Exists())
}

package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	argoErrors "github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/spf13/viper"
)

// defaults are registered on viper so every key is known to AutomaticEnv.
var defaults = map[string]any{
	"log_level":                 "info",
	"data_output_path":          "",
	"engine.trading_timezone":   "UTC",
	"engine.trading_start_hour": 22,
	"engine.restart_hour":       23,
	"engine.restart_minute":     45,
	"engine.data_frequency":     "15min",
	"engine.account":            "",
	"broker.kind":               BrokerPaper,
	"broker.host":               "127.0.0.1",
	"broker.port":               7497,
	"broker.client_id":          1,
	"broker.paper.start_price":  1.0,
	"broker.paper.volatility":   0.0002,
	"broker.paper.cash":         100000.0,
	"strategy.url":              "",
	"strategy.token":            "",
	"strategy.timeout":          "60s",
	"strategy.check_version":    true,
	"quotes.polygon_api_key":    "",
	"notifier.kind":             NotifierLog,
	"notifier.smtp_host":        "",
	"notifier.smtp_port":        587,
	"notifier.smtp_user":        "",
	"notifier.smtp_password":    "",
	"notifier.from":             "",
	"server.listen":             "",
}

// Options tune Load.
type Options struct {
	// EnvFile is read into the process environment before the config is
	// decoded. A missing file is not an error. Empty means ".env".
	EnvFile string
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string, opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, argoErrors.Wrapf(argoErrors.ErrCodeInvalidConfiguration, err, "failed to read %s", envFile)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, argoErrors.Wrapf(argoErrors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, argoErrors.Wrap(argoErrors.ErrCodeInvalidConfiguration, "failed to decode config", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Engine.ApplyDefaults()

	if c.Broker.Kind == BrokerPaper {
		p := &c.Broker.Paper
		if p.Symbol == "" {
			p.Symbol = c.Engine.Symbol
		}

		if p.Currency == "" {
			p.Currency = c.Engine.Currency
		}

		if p.Account == "" {
			p.Account = c.Engine.Account
		}
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return argoErrors.Wrap(argoErrors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if c.Broker.Kind == BrokerPaper {
		if err := validate.Struct(c.Broker.Paper); err != nil {
			return argoErrors.Wrap(argoErrors.ErrCodeInvalidConfiguration, "invalid paper broker config", err)
		}
	}

	return nil
}

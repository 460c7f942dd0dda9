// Package config loads the engine configuration from YAML, the environment
// and an optional .env file.
package config

import (
	"time"

	"github.com/rxtech-lab/argo-fx/internal/broker/paper"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine"
)

// EnvPrefix prefixes every environment override, e.g.
// ARGOFX_QUOTES_POLYGON_API_KEY overrides quotes.polygon_api_key.
const EnvPrefix = "ARGOFX"

// Broker kinds.
const (
	BrokerPaper = "paper"
)

// Notifier kinds.
const (
	NotifierLog  = "log"
	NotifierSMTP = "smtp"
)

// Config is the whole configuration file.
type Config struct {
	Engine   engine.SessionEngineConfig `json:"engine" yaml:"engine" jsonschema:"title=Engine,description=Session engine settings"`
	Broker   BrokerConfig               `json:"broker" yaml:"broker" jsonschema:"title=Broker"`
	Strategy StrategyConfig             `json:"strategy" yaml:"strategy" jsonschema:"title=Strategy"`
	Quotes   QuotesConfig               `json:"quotes" yaml:"quotes" jsonschema:"title=Quotes"`
	Notifier NotifierConfig             `json:"notifier" yaml:"notifier" jsonschema:"title=Notifier"`
	Server   ServerConfig               `json:"server" yaml:"server" jsonschema:"title=Server"`

	LogLevel       string `json:"log_level" yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
	DataOutputPath string `json:"data_output_path" yaml:"data_output_path" jsonschema:"description=Directory for run folders; empty disables persistence"`
}

// BrokerConfig selects and configures the gateway.
type BrokerConfig struct {
	Kind     string `json:"kind" yaml:"kind" jsonschema:"enum=paper,default=paper" validate:"required,oneof=paper"`
	Host     string `json:"host" yaml:"host" jsonschema:"default=127.0.0.1"`
	Port     int    `json:"port" yaml:"port" jsonschema:"default=7497" validate:"gte=0,lte=65535"`
	ClientID int    `json:"client_id" yaml:"client_id"`

	// Paper is validated separately, and only when Kind is paper.
	Paper paper.Config `json:"paper" yaml:"paper" validate:"-"`
}

// StrategyConfig locates the signal service and what it is sent.
type StrategyConfig struct {
	URL          string        `json:"url" yaml:"url" jsonschema:"description=Base URL of the signal service" validate:"required,url"`
	Token        string        `json:"token" yaml:"token" jsonschema:"description=Bearer token, prefer ARGOFX_STRATEGY_TOKEN"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" jsonschema:"type=string,default=60s"`
	CheckVersion bool          `json:"check_version" yaml:"check_version" jsonschema:"description=Check the service version at startup,default=true"`

	Features      map[string]any `json:"features" yaml:"features"`
	PurgeWindow   int            `json:"purge_window" yaml:"purge_window" validate:"gte=0"`
	EmbargoPeriod int            `json:"embargo_period" yaml:"embargo_period" validate:"gte=0"`
}

// QuotesConfig configures the FX quote fallback.
type QuotesConfig struct {
	PolygonAPIKey string `json:"polygon_api_key" yaml:"polygon_api_key" jsonschema:"description=Polygon API key, prefer ARGOFX_QUOTES_POLYGON_API_KEY"`
}

// NotifierConfig selects where period statuses go.
type NotifierConfig struct {
	Kind         string   `json:"kind" yaml:"kind" jsonschema:"enum=log,enum=smtp,default=log" validate:"required,oneof=log smtp"`
	SMTPHost     string   `json:"smtp_host" yaml:"smtp_host" validate:"required_if=Kind smtp"`
	SMTPPort     int      `json:"smtp_port" yaml:"smtp_port" jsonschema:"default=587" validate:"gte=0,lte=65535"`
	SMTPUser     string   `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string   `json:"smtp_password" yaml:"smtp_password" jsonschema:"description=Prefer ARGOFX_NOTIFIER_SMTP_PASSWORD"`
	From         string   `json:"from" yaml:"from" validate:"required_if=Kind smtp"`
	To           []string `json:"to" yaml:"to" validate:"required_if=Kind smtp"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Listen string `json:"listen" yaml:"listen" jsonschema:"description=Listen address; empty disables the server,example=:8080"`
}

// SessionEngine returns the engine configuration with the strategy
// passthrough fields filled in.
func (c *Config) SessionEngine() engine.SessionEngineConfig {
	out := c.Engine
	out.Features = c.Strategy.Features
	out.PurgeWindow = c.Strategy.PurgeWindow
	out.EmbargoPeriod = c.Strategy.EmbargoPeriod

	return out
}

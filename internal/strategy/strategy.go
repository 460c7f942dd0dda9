// Package strategy is the contract between the session engine and the
// external signal service. The engine never looks inside the strategy: it
// sends the resampled bars and gets back the side to hold.
package strategy

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/types"
)

// SignalRequest is everything the strategy receives for one decision period.
type SignalRequest struct {
	Symbol     string              `json:"symbol"`
	Period     time.Time           `json:"period"`
	MarketOpen time.Time           `json:"market_open"`
	Frequency  string              `json:"frequency"`
	Bars       []types.DecisionBar `json:"bars"`
	Features   map[string]any      `json:"features,omitempty"`
	// PurgeWindow and EmbargoPeriod are passed through to the strategy's
	// cross-validation.
	PurgeWindow   int `json:"purge_window"`
	EmbargoPeriod int `json:"embargo_period"`
}

// Signal is the strategy's answer.
type Signal struct {
	// Value is -1, 0 or +1.
	Value int
	// RiskTarget overrides the configured bracket distance when set.
	RiskTarget optional.Option[float64]
}

// SignalProvider produces the signal for a period.
type SignalProvider interface {
	GetSignal(ctx context.Context, req SignalRequest) (Signal, error)
}

// VersionChecker is implemented by providers that can report whether the
// remote service speaks the engine's protocol version.
type VersionChecker interface {
	CheckVersion(ctx context.Context) error
}

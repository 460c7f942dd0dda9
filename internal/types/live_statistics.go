package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineStatus represents the current state of the session engine.
type EngineStatus string

const (
	// EngineStatusWaiting indicates the engine is idle until the next period or trading week.
	EngineStatusWaiting EngineStatus = "waiting"

	// EngineStatusConnecting indicates the engine is opening a gateway session.
	EngineStatusConnecting EngineStatus = "connecting"

	// EngineStatusTrading indicates a decision period is in progress.
	EngineStatusTrading EngineStatus = "trading"

	// EngineStatusClosingDay indicates the day-close sequence is in progress.
	EngineStatusClosingDay EngineStatus = "closing_day"

	// EngineStatusStopped indicates the engine has stopped.
	EngineStatusStopped EngineStatus = "stopped"
)

// LegStats counts placements and rejections for one order leg.
type LegStats struct {
	Placed    int `yaml:"placed" json:"placed"`
	Rejected  int `yaml:"rejected" json:"rejected"`
	Nudges    int `yaml:"nudges" json:"nudges"`
	GaveUp    int `yaml:"gave_up" json:"gave_up"`
	Cancelled int `yaml:"cancelled" json:"cancelled"`
}

// SessionStats contains statistics for one trading day of the engine.
type SessionStats struct {
	// ID is the run folder name (e.g. "run_1").
	ID string `yaml:"id" json:"id"`

	// Date is the trading date in YYYY-MM-DD format.
	Date string `yaml:"date" json:"date"`

	// SessionStart is when the engine started.
	SessionStart time.Time `yaml:"session_start" json:"session_start"`

	// LastUpdated is when these statistics were last written.
	LastUpdated time.Time `yaml:"last_updated" json:"last_updated"`

	// Pair is the traded currency pair.
	Pair string `yaml:"pair" json:"pair"`

	// Periods lists every decision period handled today.
	Periods []PeriodRecord `yaml:"periods" json:"periods"`

	// PeriodsTraded counts periods with TradeDone set.
	PeriodsTraded int `yaml:"periods_traded" json:"periods_traded"`

	// DegradedPeriods counts periods that finished with errors.
	DegradedPeriods int `yaml:"degraded_periods" json:"degraded_periods"`

	// LastTimeSpent is the wall-clock seconds the last period took.
	LastTimeSpent float64 `yaml:"last_time_spent" json:"last_time_spent"`

	// Legs holds per-leg order counters keyed by leg name.
	Legs map[Leg]LegStats `yaml:"legs" json:"legs"`

	// Teardowns counts session teardowns keyed by reason.
	Teardowns map[string]int `yaml:"teardowns" json:"teardowns"`

	// SnapshotPath is the run folder holding the parquet snapshot.
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`
}

// WriteSessionStats writes session statistics to a YAML file.
func WriteSessionStats(path string, stats SessionStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal session stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session stats to file: %w", err)
	}

	return nil
}

// ReadSessionStats reads session statistics from a YAML file.
func ReadSessionStats(path string) (SessionStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionStats{}, fmt.Errorf("failed to read session stats file: %w", err)
	}

	var stats SessionStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return SessionStats{}, fmt.Errorf("failed to unmarshal session stats: %w", err)
	}

	return stats, nil
}

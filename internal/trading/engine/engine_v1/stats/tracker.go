// Package stats tracks what the engine did during a trading day and writes
// it to stats.yaml.
package stats

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"go.uber.org/zap"
)

// Tracker accumulates per-day statistics. It is safe for concurrent use
// since leg hooks fire from the executor's goroutines.
type Tracker struct {
	pair         string
	runID        string
	sessionStart time.Time
	currentDate  string

	periods       []types.PeriodRecord
	degraded      int
	lastTimeSpent time.Duration
	legs          map[types.Leg]types.LegStats
	teardowns     map[string]int

	snapshotPath    string
	statsOutputPath string

	mu     sync.Mutex
	logger *logger.Logger
}

// NewTracker creates a Tracker.
func NewTracker(log *logger.Logger) *Tracker {
	return &Tracker{
		pair:            "",
		runID:           "",
		sessionStart:    time.Time{},
		currentDate:     "",
		periods:         nil,
		degraded:        0,
		lastTimeSpent:   0,
		legs:            make(map[types.Leg]types.LegStats),
		teardowns:       make(map[string]int),
		snapshotPath:    "",
		statsOutputPath: "",
		mu:              sync.Mutex{},
		logger:          log,
	}
}

// Initialize sets the run identity.
func (s *Tracker) Initialize(pair, runID string, sessionStart time.Time, date string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = pair
	s.runID = runID
	s.sessionStart = sessionStart
	s.currentDate = date

	s.logger.Info("Stats tracker initialized",
		zap.String("run_id", runID),
		zap.String("pair", pair),
		zap.String("date", date),
	)
}

// SetPaths sets the run folder and the stats.yaml path.
func (s *Tracker) SetPaths(snapshotPath, statsPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshotPath = snapshotPath
	s.statsOutputPath = statsPath
}

// RecordPeriod upserts a period by trade time and records how long it took.
func (s *Tracker) RecordPeriod(rec types.PeriodRecord, degraded bool, spent time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.periods, func(p types.PeriodRecord) bool { return p.TradeTime.Equal(rec.TradeTime) })
	if i >= 0 {
		s.periods[i] = rec
	} else {
		s.periods = append(s.periods, rec)
	}

	if degraded {
		s.degraded++
	}

	s.lastTimeSpent = spent
}

func (s *Tracker) updateLeg(leg types.Leg, update func(*types.LegStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.legs[leg]
	update(&st)
	s.legs[leg] = st
}

// RecordPlaced counts an accepted order.
func (s *Tracker) RecordPlaced(leg types.Leg) {
	s.updateLeg(leg, func(st *types.LegStats) { st.Placed++ })
}

// RecordRejected counts a rejection, which is followed by a nudge.
func (s *Tracker) RecordRejected(leg types.Leg) {
	s.updateLeg(leg, func(st *types.LegStats) {
		st.Rejected++
		st.Nudges++
	})
}

// RecordGaveUp counts a leg abandoned after the nudge limit.
func (s *Tracker) RecordGaveUp(leg types.Leg) {
	s.updateLeg(leg, func(st *types.LegStats) { st.GaveUp++ })
}

// RecordCancelled counts a stale leg cancelled.
func (s *Tracker) RecordCancelled(leg types.Leg) {
	s.updateLeg(leg, func(st *types.LegStats) { st.Cancelled++ })
}

// RecordTeardown counts a session teardown.
func (s *Tracker) RecordTeardown(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardowns[reason]++
}

// HandleDateBoundary starts a new trading day, resetting every counter.
func (s *Tracker) HandleDateBoundary(newDate string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldDate := s.currentDate
	s.currentDate = newDate
	s.periods = nil
	s.degraded = 0
	s.lastTimeSpent = 0
	s.legs = make(map[types.Leg]types.LegStats)
	s.teardowns = make(map[string]int)

	s.logger.Info("Trading date rolled over, stats reset",
		zap.String("old_date", oldDate),
		zap.String("new_date", newDate),
	)
}

// Stats returns the current statistics.
func (s *Tracker) Stats() types.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.build()
}

//nolint:funcorder // helper used by Stats and WriteStatsYAML
func (s *Tracker) build() types.SessionStats {
	traded := 0

	for _, p := range s.periods {
		if p.TradeDone {
			traded++
		}
	}

	return types.SessionStats{
		ID:              s.runID,
		Date:            s.currentDate,
		SessionStart:    s.sessionStart,
		LastUpdated:     time.Now(),
		Pair:            s.pair,
		Periods:         slices.Clone(s.periods),
		PeriodsTraded:   traded,
		DegradedPeriods: s.degraded,
		LastTimeSpent:   s.lastTimeSpent.Seconds(),
		Legs:            maps.Clone(s.legs),
		Teardowns:       maps.Clone(s.teardowns),
		SnapshotPath:    s.snapshotPath,
	}
}

// WriteStatsYAML writes the statistics to the stats path. It does nothing
// when no path is set.
func (s *Tracker) WriteStatsYAML() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.statsOutputPath == "" {
		return nil
	}

	return types.WriteSessionStats(s.statsOutputPath, s.build())
}

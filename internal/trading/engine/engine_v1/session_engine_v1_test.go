package engine_v1

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-fx/internal/broker"
	"github.com/rxtech-lab/argo-fx/internal/broker/paper"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/metrics"
	"github.com/rxtech-lab/argo-fx/internal/notifier"
	"github.com/rxtech-lab/argo-fx/internal/strategy"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine"
	"github.com/rxtech-lab/argo-fx/internal/trading/engine/engine_v1/writers"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/mocks"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// SessionEngineV1TestSuite is the test suite for SessionEngineV1.
type SessionEngineV1TestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
}

// TestSessionEngineV1 runs the test suite.
func TestSessionEngineV1(t *testing.T) {
	suite.Run(t, new(SessionEngineV1TestSuite))
}

// SetupTest runs before each test.
func (s *SessionEngineV1TestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
}

// TearDownTest runs after each test.
func (s *SessionEngineV1TestSuite) TearDownTest() {
	s.ctrl.Finish()
}

// testClock is a settable clock shared by the engine and the paper broker.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{mu: sync.Mutex{}, t: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = t
}

// The trading week of 2024-03-06 with a 22:00 UTC start runs from Sunday
// 2024-03-03 22:00 to Friday 2024-03-08 22:00.
var (
	testWeek = ledger.WeekTag{
		MarketOpen:  time.Date(2024, 3, 3, 22, 0, 0, 0, time.UTC),
		MarketClose: time.Date(2024, 3, 8, 22, 0, 0, 0, time.UTC),
	}
	wednesday = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
)

func testConfig() engine.SessionEngineConfig {
	return engine.SessionEngineConfig{
		Symbol:               "EUR",
		Currency:             "USD",
		Account:              "DU1234567",
		AccountCurrency:      "USD",
		DataFrequency:        "15min",
		TradingTimezone:      "UTC",
		TradingStartHour:     22,
		RestartHour:          23,
		RestartMinute:        45,
		Leverage:             1,
		RiskTarget:           0.003,
		StopLossMultiplier:   1,
		TakeProfitMultiplier: 1,
		MaxNudges:            3,
		SettleInterval:       time.Millisecond,
		CancelSettleInterval: time.Millisecond,
		RequestTimeout:       2 * time.Second,
		CloseMargin:          30 * time.Minute,
		RestartSafetyMargin:  5 * time.Minute,
		MonitorInterval:      5 * time.Millisecond,
		TickWait:             5 * time.Millisecond,
		MaxStaleTicks:        50,
		HistoryDuration:      "1 D",
		Features:             map[string]any{"window": 20},
		PurgeWindow:          2,
		EmbargoPeriod:        1,
	}
}

func newPaperBroker(clock *testClock, rates map[string]float64) *paper.Broker {
	return paper.New(paper.Config{
		Symbol:            "EUR",
		Currency:          "USD",
		Account:           "DU1234567",
		StartPrice:        1.1,
		Volatility:        0,
		Spread:            0.00002,
		Cash:              100000,
		ExchangeRates:     rates,
		CommissionPerUnit: 0,
		Seed:              7,
	}).WithClock(clock.Now)
}

// newTestEngine returns an initialized engine wired to a paper broker.
func (s *SessionEngineV1TestSuite) newTestEngine(clock *testClock, pb *paper.Broker, provider strategy.SignalProvider) *SessionEngineV1 {
	e := NewSessionEngineV1WithLogger(logger.NewNopLogger()).WithClock(clock.Now)
	s.Require().NoError(e.Initialize(testConfig()))
	s.Require().NoError(e.SetBrokerFactory(pb.Factory()))
	s.Require().NoError(e.SetSignalProvider(provider))

	return e
}

func periodsAt(current time.Time) types.PeriodTuple {
	return types.PeriodTuple{
		Previous: current.Add(-15 * time.Minute),
		Current:  current,
		Next:     current.Add(15 * time.Minute),
	}
}

func signalOf(value int, riskTarget optional.Option[float64]) strategy.Signal {
	return strategy.Signal{Value: value, RiskTarget: riskTarget}
}

// ============================================================================
// Constructor Tests
// ============================================================================

func (s *SessionEngineV1TestSuite) TestNewSessionEngineV1() {
	e, err := NewSessionEngineV1()
	s.Require().NoError(err)
	s.NotNil(e)
}

func (s *SessionEngineV1TestSuite) TestNewSessionEngineV1WithLogger() {
	e := NewSessionEngineV1WithLogger(logger.NewNopLogger())
	s.NotNil(e.Ledger())
	s.NotNil(e.statsTracker)
	s.False(e.initialized)
	s.Equal(DefaultReconnectDelay, e.reconnectDelay)
}

// ============================================================================
// Initialize Tests
// ============================================================================

func (s *SessionEngineV1TestSuite) TestInitialize() {
	tests := []struct {
		name      string
		mutate    func(c *engine.SessionEngineConfig)
		expectErr bool
		errCode   errors.ErrorCode
	}{
		{
			name:      "valid configuration",
			mutate:    func(*engine.SessionEngineConfig) {},
			expectErr: false,
		},
		{
			name: "defaults fill zero fields",
			mutate: func(c *engine.SessionEngineConfig) {
				c.DataFrequency = ""
				c.TradingTimezone = ""
				c.Leverage = 0
			},
			expectErr: false,
		},
		{
			name:      "missing account",
			mutate:    func(c *engine.SessionEngineConfig) { c.Account = "" },
			expectErr: true,
			errCode:   errors.ErrCodeEngineConfigError,
		},
		{
			name:      "symbol is not a currency code",
			mutate:    func(c *engine.SessionEngineConfig) { c.Symbol = "EURO" },
			expectErr: true,
			errCode:   errors.ErrCodeEngineConfigError,
		},
		{
			name:      "restart hour out of range",
			mutate:    func(c *engine.SessionEngineConfig) { c.RestartHour = 24 },
			expectErr: true,
			errCode:   errors.ErrCodeEngineConfigError,
		},
		{
			name:      "negative monitor interval",
			mutate:    func(c *engine.SessionEngineConfig) { c.MonitorInterval = -time.Second },
			expectErr: true,
			errCode:   errors.ErrCodeEngineConfigError,
		},
		{
			name:      "negative tick wait",
			mutate:    func(c *engine.SessionEngineConfig) { c.TickWait = -time.Millisecond },
			expectErr: true,
			errCode:   errors.ErrCodeEngineConfigError,
		},
		{
			name:      "unsupported frequency",
			mutate:    func(c *engine.SessionEngineConfig) { c.DataFrequency = "7min" },
			expectErr: true,
			errCode:   errors.ErrCodeInvalidFrequency,
		},
		{
			name:      "unknown timezone",
			mutate:    func(c *engine.SessionEngineConfig) { c.TradingTimezone = "Mars/Olympus" },
			expectErr: true,
			errCode:   errors.ErrCodeInvalidTimezone,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			e := NewSessionEngineV1WithLogger(logger.NewNopLogger())
			cfg := testConfig()
			tc.mutate(&cfg)

			err := e.Initialize(cfg)
			if tc.expectErr {
				s.Require().Error(err)
				s.True(errors.HasCode(err, tc.errCode), "unexpected error: %v", err)
				s.False(e.initialized)

				return
			}

			s.Require().NoError(err)
			s.True(e.initialized)
			s.Equal("EURUSD", e.contract.Pair())
			s.Equal(15*time.Minute, e.frequency.Duration())
		})
	}
}

// ============================================================================
// Pre-run Check Tests
// ============================================================================

func (s *SessionEngineV1TestSuite) TestPreRunCheck() {
	clock := newTestClock(wednesday)
	pb := newPaperBroker(clock, nil)

	e := NewSessionEngineV1WithLogger(logger.NewNopLogger())
	s.True(errors.HasCode(e.preRunCheck(), errors.ErrCodeEngineInitFailed))

	s.Require().NoError(e.Initialize(testConfig()))
	s.True(errors.HasCode(e.preRunCheck(), errors.ErrCodeEngineNoBroker))

	s.Require().NoError(e.SetBrokerFactory(pb.Factory()))
	s.True(errors.HasCode(e.preRunCheck(), errors.ErrCodeEngineNoStrategy))

	s.Require().NoError(e.SetSignalProvider(mocks.NewMockSignalProvider(s.ctrl)))
	s.NoError(e.preRunCheck())
}

// ============================================================================
// Run Tests
// ============================================================================

func (s *SessionEngineV1TestSuite) TestRunWithoutInitializeCallsOnEngineStop() {
	e := NewSessionEngineV1WithLogger(logger.NewNopLogger())

	var stopErr error

	stopped := false
	onStop := engine.OnEngineStopCallback(func(err error) {
		stopped = true
		stopErr = err
	})

	err := e.Run(context.Background(), engine.SessionCallbacks{OnEngineStop: &onStop})
	s.Require().Error(err)
	s.True(stopped)
	s.True(errors.HasCode(stopErr, errors.ErrCodeEngineInitFailed))
}

// versionedProvider is a signal provider that also reports its version.
type versionedProvider struct {
	*mocks.MockSignalProvider
	err error
}

func (p versionedProvider) CheckVersion(context.Context) error {
	return p.err
}

func (s *SessionEngineV1TestSuite) TestRunRejectsIncompatibleStrategy() {
	clock := newTestClock(wednesday)
	pb := newPaperBroker(clock, nil)
	provider := versionedProvider{
		MockSignalProvider: mocks.NewMockSignalProvider(s.ctrl),
		err:                errors.New(errors.ErrCodeVersionMismatch, "signal service speaks v2"),
	}

	e := s.newTestEngine(clock, pb, provider)

	err := e.Run(context.Background(), engine.SessionCallbacks{})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
}

func (s *SessionEngineV1TestSuite) TestRunWaitsForTheWeekOpen() {
	// Saturday: the next week opens on Sunday 2024-03-10 22:00 UTC.
	clock := newTestClock(time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	pb := newPaperBroker(clock, nil)
	provider := mocks.NewMockSignalProvider(s.ctrl)

	e := s.newTestEngine(clock, pb, provider)

	factoryCalls := 0
	s.Require().NoError(e.SetBrokerFactory(func() (broker.Client, error) {
		factoryCalls++

		return pb, nil
	}))

	var (
		statuses    []types.EngineStatus
		startedPair string
		startedFreq string
		stopErr     error
	)

	onStart := engine.OnEngineStartCallback(func(pair, frequency, _ string) error {
		startedPair = pair
		startedFreq = frequency

		return nil
	})
	onStop := engine.OnEngineStopCallback(func(err error) { stopErr = err })
	onStatus := engine.OnStatusUpdateCallback(func(status types.EngineStatus) error {
		statuses = append(statuses, status)

		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := e.Run(ctx, engine.SessionCallbacks{
		OnEngineStart:  &onStart,
		OnEngineStop:   &onStop,
		OnStatusUpdate: &onStatus,
	})

	s.Require().ErrorIs(err, context.DeadlineExceeded)
	s.ErrorIs(stopErr, context.DeadlineExceeded)
	s.Equal("EURUSD", startedPair)
	s.Equal("15min", startedFreq)
	s.Equal([]types.EngineStatus{types.EngineStatusWaiting, types.EngineStatusStopped}, statuses)
	s.Zero(factoryCalls)
}

func (s *SessionEngineV1TestSuite) TestRunAbortsWhenOnEngineStartFails() {
	clock := newTestClock(wednesday)
	pb := newPaperBroker(clock, nil)

	e := s.newTestEngine(clock, pb, mocks.NewMockSignalProvider(s.ctrl))

	onStart := engine.OnEngineStartCallback(func(string, string, string) error {
		return errors.New(errors.ErrCodeCallbackFailed, "dashboard unavailable")
	})

	err := e.Run(context.Background(), engine.SessionCallbacks{OnEngineStart: &onStart})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeCallbackFailed))
}

// ============================================================================
// Step Tests
// ============================================================================

func (s *SessionEngineV1TestSuite) TestStepSkipsWithoutOpeningASession() {
	tests := []struct {
		name     string
		now      time.Time
		traded   optional.Option[time.Time]
		expected time.Time
	}{
		{
			name:     "weekend waits for the week open",
			now:      time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
			traded:   optional.None[time.Time](),
			expected: time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC),
		},
		{
			name:     "already traded period waits for the next one",
			now:      wednesday.Add(5 * time.Minute),
			traded:   optional.Some(wednesday),
			expected: wednesday.Add(15 * time.Minute),
		},
		{
			name:     "after the close-out the day start is awaited",
			now:      time.Date(2024, 3, 6, 21, 50, 0, 0, time.UTC),
			traded:   optional.Some(time.Date(2024, 3, 6, 21, 30, 0, 0, time.UTC)),
			expected: time.Date(2024, 3, 6, 22, 0, 0, 0, time.UTC),
		},
		{
			name:     "maintenance window waits for the restart start",
			now:      time.Date(2024, 3, 7, 4, 47, 0, 0, time.UTC),
			traded:   optional.None[time.Time](),
			expected: time.Date(2024, 3, 7, 5, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			clock := newTestClock(tc.now)
			e := s.newTestEngine(clock, newPaperBroker(clock, nil), mocks.NewMockSignalProvider(s.ctrl))

			s.Require().NoError(e.SetBrokerFactory(func() (broker.Client, error) {
				s.Fail("no session should be opened")

				return nil, errors.New(errors.ErrCodeNotConnected, "unexpected")
			}))

			if tc.traded.IsSome() {
				e.ledger.MarkPeriod(types.PeriodRecord{
					TradeTime:   tc.traded.Unwrap(),
					TradeDone:   true,
					MarketOpen:  testWeek.MarketOpen,
					MarketClose: testWeek.MarketClose,
				})
			}

			until, err := e.step(context.Background())
			s.Require().NoError(err)
			s.True(tc.expected.Equal(until), "expected %s, got %s", tc.expected, until)
		})
	}
}

func (s *SessionEngineV1TestSuite) TestStepRetriesAfterLostConnection() {
	clock := newTestClock(wednesday.Add(time.Minute))
	e := s.newTestEngine(clock, newPaperBroker(clock, nil), mocks.NewMockSignalProvider(s.ctrl))
	e.reconnectDelay = 30 * time.Second

	s.Require().NoError(e.SetBrokerFactory(func() (broker.Client, error) {
		return nil, errors.New(errors.ErrCodeNotConnected, "gateway down")
	}))

	until, err := e.step(context.Background())
	s.Require().NoError(err)
	s.True(clock.Now().Add(30 * time.Second).Equal(until))
	s.False(e.periodTraded(wednesday))
}

func (s *SessionEngineV1TestSuite) TestFailedConnectReleasesTheClient() {
	clock := newTestClock(wednesday.Add(time.Minute))
	e := s.newTestEngine(clock, newPaperBroker(clock, nil), mocks.NewMockSignalProvider(s.ctrl))

	client := mocks.NewMockClient(s.ctrl)
	client.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(errors.New(errors.ErrCodeNotConnected, "handshake refused"))
	client.EXPECT().Disconnect().Return(nil).Times(1)

	s.Require().NoError(e.SetBrokerFactory(func() (broker.Client, error) {
		return client, nil
	}))

	gw, err := e.openGateway(context.Background())
	s.Nil(gw)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNotConnected))
}

func (s *SessionEngineV1TestSuite) TestStepClosesTheDayOffTheGrid() {
	closeOut := time.Date(2024, 3, 6, 21, 30, 0, 0, time.UTC)
	clock := newTestClock(closeOut.Add(5 * time.Second))
	pb := newPaperBroker(clock, map[string]float64{"EUR": 1.1})

	cfg := testConfig()
	cfg.DataFrequency = "1h"

	e := NewSessionEngineV1WithLogger(logger.NewNopLogger()).WithClock(clock.Now)
	s.Require().NoError(e.Initialize(cfg))
	s.Require().NoError(e.SetBrokerFactory(pb.Factory()))
	s.Require().NoError(e.SetSignalProvider(mocks.NewMockSignalProvider(s.ctrl)))

	var (
		kinds  []types.PeriodKind
		tuples []types.PeriodTuple
	)

	onPeriodStart := engine.OnPeriodStartCallback(func(kind types.PeriodKind, periods types.PeriodTuple) error {
		kinds = append(kinds, kind)
		tuples = append(tuples, periods)

		return nil
	})

	e.callbacks = engine.SessionCallbacks{
		OnEngineStart:  nil,
		OnEngineStop:   nil,
		OnPeriodStart:  &onPeriodStart,
		OnOrderPlaced:  nil,
		OnLegFailed:    nil,
		OnPeriodEnd:    nil,
		OnError:        nil,
		OnStatusUpdate: nil,
	}

	until, err := e.step(context.Background())
	s.Require().NoError(err)
	s.True(time.Date(2024, 3, 6, 22, 0, 0, 0, time.UTC).Equal(until), "got %s", until)

	s.Require().Len(kinds, 1)
	s.Equal(types.PeriodKindDayClose, kinds[0])
	s.True(closeOut.Equal(tuples[0].Current))
	s.True(time.Date(2024, 3, 6, 21, 0, 0, 0, time.UTC).Equal(tuples[0].Previous))
	s.True(e.periodTraded(closeOut))

	// the next look before the day start does not close twice
	clock.Set(closeOut.Add(10 * time.Minute))

	until, err = e.step(context.Background())
	s.Require().NoError(err)
	s.True(time.Date(2024, 3, 6, 22, 0, 0, 0, time.UTC).Equal(until))
	s.Len(kinds, 1)
}

// ============================================================================
// Period Tests
// ============================================================================

func (s *SessionEngineV1TestSuite) TestDecisionPeriodOpensPositionWithBracket() {
	clock := newTestClock(wednesday.Add(5 * time.Second))
	pb := newPaperBroker(clock, map[string]float64{"EUR": 1.1})
	provider := mocks.NewMockSignalProvider(s.ctrl)
	sender := mocks.NewMockTextNotifier(s.ctrl)
	collectors := metrics.New()

	e := s.newTestEngine(clock, pb, provider)
	s.Require().NoError(e.SetNotifier(sender))
	s.Require().NoError(e.SetMetrics(collectors))

	provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req strategy.SignalRequest) (strategy.Signal, error) {
			s.Equal("EURUSD", req.Symbol)
			s.True(wednesday.Equal(req.Period))
			s.True(testWeek.MarketOpen.Equal(req.MarketOpen))
			s.Equal("15min", req.Frequency)
			s.NotEmpty(req.Bars)
			s.False(req.Bars[len(req.Bars)-1].Time.After(wednesday))
			s.Equal(2, req.PurgeWindow)

			return signalOf(1, optional.None[float64]()), nil
		})

	var body string

	sender.EXPECT().SendText(notifier.DefaultSubject, gomock.Any()).DoAndReturn(func(_, b string) error {
		body = b

		return nil
	})

	var legs []types.Leg

	onPlaced := engine.OnOrderPlacedCallback(func(leg types.Leg, _ types.Order) error {
		legs = append(legs, leg)

		return nil
	})
	e.callbacks = engine.SessionCallbacks{OnOrderPlaced: &onPlaced}

	report, err := e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(wednesday), testWeek)
	s.Require().NoError(err)

	// 100000 USD at 1.1 USD per EUR
	s.InDelta(90909, report.TargetQuantity, 0)
	s.InDelta(0, report.PreviousQuantity, 0)
	s.Equal(1, report.Signal)
	s.False(report.Degraded)
	s.NotEmpty(report.ID)

	s.InDelta(90909, pb.Position(), 0)
	s.Len(pb.Resting(), 2)
	s.True(e.periodTraded(wednesday))
	s.ElementsMatch([]types.Leg{types.LegMarket, types.LegStopLoss, types.LegTakeProfit}, legs)

	s.Contains(body, "- The period 2024-03-06 10:00:00 was successfully traded")
	s.Contains(body, "- The signal is 1")
	s.Contains(body, "- The cash balance value is 100000.00 USD")
	s.Contains(body, "- The current position quantity is 90909 EUR")
	s.Contains(body, "- The stop-loss price is 1.097")
	s.Contains(body, "- The market price is 1.1")
	s.Contains(body, "- The take-profit price is 1.103")

	s.InDelta(1, testutil.ToFloat64(collectors.Periods.WithLabelValues("decision", "ok")), 0)
	s.InDelta(1, testutil.ToFloat64(collectors.Orders.WithLabelValues("market", "BUY")), 0)
	s.InDelta(90909, testutil.ToFloat64(collectors.Capital), 0.5)

	stats := e.statsTracker.Stats()
	s.Equal(1, stats.PeriodsTraded)
	s.Equal(1, stats.Legs[types.LegMarket].Placed)
	s.Equal(1, stats.Teardowns[broker.ReasonStrategyEnd])
}

func (s *SessionEngineV1TestSuite) TestDecisionPeriodReversesWithSignalRiskTarget() {
	clock := newTestClock(wednesday.Add(5 * time.Second))
	pb := newPaperBroker(clock, map[string]float64{"EUR": 1.1})
	provider := mocks.NewMockSignalProvider(s.ctrl)
	sender := mocks.NewMockTextNotifier(s.ctrl)

	e := s.newTestEngine(clock, pb, provider)
	s.Require().NoError(e.SetNotifier(sender))

	gomock.InOrder(
		provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).Return(signalOf(1, optional.None[float64]()), nil),
		provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).Return(signalOf(-1, optional.Some(0.002)), nil),
	)

	var body string

	sender.EXPECT().SendText(notifier.DefaultSubject, gomock.Any()).DoAndReturn(func(_, b string) error {
		body = b

		return nil
	}).Times(2)

	_, err := e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(wednesday), testWeek)
	s.Require().NoError(err)

	next := wednesday.Add(15 * time.Minute)
	clock.Set(next.Add(5 * time.Second))

	report, err := e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(next), testWeek)
	s.Require().NoError(err)

	s.InDelta(90909, report.PreviousQuantity, 0)
	s.Equal(-1, report.Signal)
	s.InDelta(-90909, pb.Position(), 0)
	s.Len(pb.Resting(), 2)

	s.Contains(body, "- The signal is -1")
	s.Contains(body, "- The current position quantity is -90909 EUR")
	s.Contains(body, "- The stop-loss price is 1.102")
	s.Contains(body, "- The take-profit price is 1.098")
}

func (s *SessionEngineV1TestSuite) TestDayCloseFlattensAndCancelsBracket() {
	clock := newTestClock(wednesday.Add(5 * time.Second))
	pb := newPaperBroker(clock, map[string]float64{"EUR": 1.1})
	provider := mocks.NewMockSignalProvider(s.ctrl)
	sender := mocks.NewMockTextNotifier(s.ctrl)

	e := s.newTestEngine(clock, pb, provider)
	s.Require().NoError(e.SetNotifier(sender))

	provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).Return(signalOf(1, optional.None[float64]()), nil)

	var body string

	sender.EXPECT().SendText(notifier.DefaultSubject, gomock.Any()).DoAndReturn(func(_, b string) error {
		body = b

		return nil
	}).Times(2)

	_, err := e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(wednesday), testWeek)
	s.Require().NoError(err)
	s.Len(pb.Resting(), 2)

	closeOut := time.Date(2024, 3, 6, 21, 30, 0, 0, time.UTC)
	clock.Set(closeOut.Add(5 * time.Second))

	report, err := e.runPeriod(context.Background(), types.PeriodKindDayClose, periodsAt(closeOut), testWeek)
	s.Require().NoError(err)

	s.Equal(types.PeriodKindDayClose, report.Kind)
	s.Equal(0, report.Signal)
	s.InDelta(90909, report.PreviousQuantity, 0)
	s.InDelta(0, pb.Position(), 0)
	s.Empty(pb.Resting())
	s.True(e.periodTraded(closeOut))
	s.InDelta(0, e.ledger.PositionQuantity("EUR", "USD"), 0)

	// no bracket after the close-out, so only the headline is sent
	s.Equal("- The period 2024-03-06 21:30:00 was successfully traded", body)
}

func (s *SessionEngineV1TestSuite) TestSignalFailureDegradesThePeriod() {
	clock := newTestClock(wednesday.Add(5 * time.Second))
	pb := newPaperBroker(clock, map[string]float64{"EUR": 1.1})
	provider := mocks.NewMockSignalProvider(s.ctrl)
	sender := mocks.NewMockTextNotifier(s.ctrl)
	collectors := metrics.New()

	e := s.newTestEngine(clock, pb, provider)
	s.Require().NoError(e.SetNotifier(sender))
	s.Require().NoError(e.SetMetrics(collectors))

	provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).
		Return(strategy.Signal{}, errors.New(errors.ErrCodeStrategyRuntimeError, "model not loaded"))

	sender.EXPECT().SendText(notifier.DefaultSubject, "- The period 2024-03-06 10:00:00 was successfully traded").Return(nil)

	var (
		mu       sync.Mutex
		reported []error
	)

	onError := engine.OnErrorCallback(func(err error) {
		mu.Lock()
		defer mu.Unlock()

		reported = append(reported, err)
	})
	e.callbacks = engine.SessionCallbacks{OnError: &onError}

	report, err := e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(wednesday), testWeek)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyRuntimeError))

	s.True(report.Degraded)
	s.NotEmpty(report.Errors)
	s.False(e.periodTraded(wednesday))
	s.Len(e.ledger.Periods(), 1)
	s.InDelta(0, pb.Position(), 0)
	s.InDelta(1, testutil.ToFloat64(collectors.Periods.WithLabelValues("decision", "failed")), 0)

	mu.Lock()
	defer mu.Unlock()
	s.Len(reported, 1)
}

func (s *SessionEngineV1TestSuite) TestMissingExchangeRateStopsBeforeTrading() {
	clock := newTestClock(wednesday.Add(5 * time.Second))
	pb := newPaperBroker(clock, nil)
	provider := mocks.NewMockSignalProvider(s.ctrl)

	e := s.newTestEngine(clock, pb, provider)

	provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).Return(signalOf(1, optional.None[float64]()), nil)

	report, err := e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(wednesday), testWeek)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeCurrencyResolution))
	s.Equal(1, report.Signal)
	s.InDelta(0, pb.Position(), 0)
	s.Empty(pb.Resting())
}

func (s *SessionEngineV1TestSuite) TestAccountInBaseCurrencyUsesCashAsCapital() {
	clock := newTestClock(wednesday.Add(5 * time.Second))
	pb := newPaperBroker(clock, nil)
	provider := mocks.NewMockSignalProvider(s.ctrl)

	e := NewSessionEngineV1WithLogger(logger.NewNopLogger()).WithClock(clock.Now)
	cfg := testConfig()
	cfg.AccountCurrency = "EUR"
	cfg.Leverage = 2
	s.Require().NoError(e.Initialize(cfg))
	s.Require().NoError(e.SetBrokerFactory(pb.Factory()))
	s.Require().NoError(e.SetSignalProvider(provider))

	provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).Return(signalOf(-1, optional.None[float64]()), nil)

	report, err := e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(wednesday), testWeek)
	s.Require().NoError(err)
	s.InDelta(200000, report.TargetQuantity, 0)
	s.InDelta(-200000, pb.Position(), 0)
}

// ============================================================================
// Persistence Tests
// ============================================================================

func (s *SessionEngineV1TestSuite) TestPeriodIsPersistedAndRestored() {
	dir := s.T().TempDir()
	clock := newTestClock(wednesday.Add(5 * time.Second))
	pb := newPaperBroker(clock, map[string]float64{"EUR": 1.1})
	provider := mocks.NewMockSignalProvider(s.ctrl)

	e := s.newTestEngine(clock, pb, provider)
	s.Require().NoError(e.SetDataOutputPath(dir))

	provider.EXPECT().GetSignal(gomock.Any(), gomock.Any()).Return(signalOf(1, optional.None[float64]()), nil)

	tradingDate, err := e.tradingDate(clock.Now())
	s.Require().NoError(err)
	s.Require().NoError(e.initializePersistence(tradingDate))

	_, err = e.runPeriod(context.Background(), types.PeriodKindDecision, periodsAt(wednesday), testWeek)
	s.Require().NoError(err)

	s.Require().NoError(e.ledgerWriter.Flush())
	s.Require().NoError(e.statsTracker.WriteStatsYAML())

	runPath := e.sessionManager.RunPath()
	s.True(strings.HasPrefix(runPath, dir))

	for _, table := range []string{writers.TableExecutions, writers.TablePeriods, writers.TableHistorical, writers.TableCashBalance} {
		_, statErr := os.Stat(writers.ParquetPath(runPath, table))
		s.NoError(statErr, table)
	}

	_, err = os.Stat(e.sessionManager.FilePath(statsFileName))
	s.NoError(err)

	s.Require().NoError(e.ledgerWriter.Close())

	// a second engine started later in the day picks the rows up
	restarted := s.newTestEngine(clock, pb, provider)
	s.Require().NoError(restarted.SetDataOutputPath(dir))
	s.Require().NoError(restarted.initializePersistence(tradingDate))

	defer func() { s.NoError(restarted.ledgerWriter.Close()) }()

	restoredFrom := restarted.restoreLedger(testWeek)
	s.Equal(runPath, restoredFrom)
	s.True(restarted.periodTraded(wednesday))
	s.InDelta(90909, restarted.ledger.PositionQuantity("EUR", "USD"), 0)
	s.False(restarted.ledger.FirstTradeOfWeek(testWeek.MarketOpen))
}

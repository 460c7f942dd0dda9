package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/bridge"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/types"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// stubClient is a connection that only tracks its connected flag.
type stubClient struct {
	mu          sync.Mutex
	connected   bool
	disconnects int
}

func (c *stubClient) Connect(_ context.Context, _ Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = true

	return nil
}

func (c *stubClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.disconnects++

	return nil
}

func (c *stubClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

func (c *stubClient) ReqIDs() error                                     { return nil }
func (c *stubClient) ReqPositions() error                               { return nil }
func (c *stubClient) ReqOpenOrders() error                              { return nil }
func (c *stubClient) ReqAccountUpdates(bool, string) error              { return nil }
func (c *stubClient) ReqExecutions(int64, types.ExecutionFilter) error  { return nil }
func (c *stubClient) ReqHistoricalData(HistoricalRequest) error         { return nil }
func (c *stubClient) ReqTickByTickMidpoint(int64, types.Contract) error { return nil }
func (c *stubClient) CancelTickByTick(int64) error                      { return nil }
func (c *stubClient) PlaceOrder(types.Contract, types.Order) error      { return nil }
func (c *stubClient) CancelOrder(int64) error                           { return nil }

type BrokerTestSuite struct {
	suite.Suite
	log     *logger.Logger
	client  *stubClient
	bridge  *bridge.Bridge
	session *Session
	buffer  *ledger.Buffer
	router  *Router
	now     time.Time
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerTestSuite))
}

func (suite *BrokerTestSuite) SetupSuite() {
	suite.log = logger.NewNopLogger()
}

func (suite *BrokerTestSuite) SetupTest() {
	suite.client = &stubClient{}
	suite.Require().NoError(suite.client.Connect(context.Background(), nil))

	suite.bridge = bridge.NewBridge(suite.log)
	suite.session = NewSession(suite.client, suite.bridge, suite.log)
	suite.session.MarkConnected()
	suite.bridge.Attach(suite.session)

	suite.now = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	suite.buffer = ledger.NewBuffer()
	suite.router = NewRouter(suite.session, suite.buffer, suite.bridge, suite.log).
		WithClock(func() time.Time { return suite.now })
}

func (suite *BrokerTestSuite) TestClassifyPrefersDisconnect() {
	reg := NewErrorRegistry()
	suite.Equal(ClassNone, reg.Classify().Kind)

	reg.Record(ErrorEvent{Code: CodeInvalidPrice})
	suite.Equal(Classification{Kind: ClassReject, Code: CodeInvalidPrice}, reg.Classify())

	reg.Record(ErrorEvent{Code: CodeNotConnected})
	suite.Equal(Classification{Kind: ClassDisconnect, Code: CodeNotConnected}, reg.Classify())

	reg.Clear(CodeNotConnected, CodeInvalidPrice)
	suite.Equal(ClassNone, reg.Classify().Kind)
}

func (suite *BrokerTestSuite) TestRegistryClearAndSnapshot() {
	reg := NewErrorRegistry()
	for _, c := range []int{CodeCancelRejectedState, CodeOrderCancelled, CodeInvalidField} {
		reg.Record(ErrorEvent{Code: c})
	}

	snap := reg.Snapshot()
	suite.Require().Len(snap, 3)
	suite.Equal(CodeOrderCancelled, snap[0].Code)
	suite.Equal(CodeCancelRejectedState, snap[2].Code)

	reg.Clear(CancelAckCodes...)
	suite.True(reg.Has(CodeInvalidField))
	suite.False(reg.HasAny(CancelAckCodes...))

	reg.ClearAll()
	suite.Empty(reg.Snapshot())
}

func (suite *BrokerTestSuite) TestOrderIDAllocation() {
	suite.session.SetNextOrderID(100)
	suite.session.SetNextOrderID(50)

	suite.Equal(int64(100), suite.session.NextOrderID())
	suite.Equal(int64(101), suite.session.NextOrderID())
	suite.Equal(int64(102), suite.session.PeekOrderID())
}

func (suite *BrokerTestSuite) TestTearDownIsIdempotent() {
	suite.True(suite.session.TearDown("first"))
	suite.False(suite.session.TearDown("second"))

	suite.Equal("first", suite.session.TeardownCause())
	suite.Equal(1, suite.client.disconnects)
	suite.False(suite.session.IsConnected())

	select {
	case <-suite.session.Done():
	default:
		suite.Fail("done channel should be closed")
	}

	suite.session.MarkConnected()
	suite.False(suite.session.IsConnected())
}

func (suite *BrokerTestSuite) TestTearDownReleasesBridgeWaiters() {
	result := make(chan bridge.Outcome, 1)

	go func() {
		out, _ := suite.bridge.Await(context.Background(), bridge.KeyPositions, 0, func() error { return nil })
		result <- out
	}()

	suite.Eventually(func() bool { return suite.bridge.Pending(bridge.KeyPositions) }, time.Second, time.Millisecond)
	suite.session.TearDown(ReasonDisconnected)

	select {
	case out := <-result:
		suite.Equal(bridge.OutcomeNotConnected, out)
	case <-time.After(time.Second):
		suite.Fail("waiter was not released")
	}
}

func (suite *BrokerTestSuite) TestMonitorTriggers() {
	cases := []struct {
		name   string
		setup  func(s *Session)
		reason string
	}{
		{"healthy", func(*Session) {}, ""},
		{"broken connection", func(s *Session) { s.Errors().Record(ErrorEvent{Code: CodeBrokenConnection}) }, "error_502"},
		{"connectivity lost", func(s *Session) { s.Errors().Record(ErrorEvent{Code: CodeConnectivityLost}) }, "error_1100"},
		{"not connected alone aborts legs but keeps the session", func(s *Session) { s.Errors().Record(ErrorEvent{Code: CodeNotConnected}) }, ""},
		{"stale ticks", func(s *Session) {
			for range 3 {
				s.MissTick()
			}
		}, ReasonStaleTicks},
		{"strategy end", func(s *Session) { s.EndStrategy() }, ReasonStrategyEnd},
		{"client dropped", func(s *Session) { _ = s.Client().Disconnect() }, ReasonDisconnected},
	}

	for _, tc := range cases {
		suite.Run(tc.name, func() {
			client := &stubClient{connected: true}
			session := NewSession(client, nil, suite.log)
			session.MarkConnected()
			tc.setup(session)

			m := NewMonitor(session, time.Millisecond, 3, nil, suite.log)
			suite.Equal(tc.reason, m.Check())
		})
	}
}

func (suite *BrokerTestSuite) TestMonitorWatchTearsDown() {
	var reasons []string

	m := NewMonitor(suite.session, time.Millisecond, 50, func(r string) { reasons = append(reasons, r) }, suite.log)
	suite.session.EndStrategy()

	done := make(chan struct{})
	go func() {
		m.Watch(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		suite.Fail("monitor did not return")
	}

	suite.Equal([]string{ReasonStrategyEnd}, reasons)
	suite.Equal(ReasonStrategyEnd, suite.session.TeardownCause())
}

func (suite *BrokerTestSuite) TestMonitorStopsOnContext() {
	m := NewMonitor(suite.session, time.Hour, 50, nil, suite.log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Watch(ctx)

	suite.Equal(ReasonContextDone, suite.session.TeardownCause())
}

func (suite *BrokerTestSuite) TestMonitorFallsBackToDefaultInterval() {
	m := NewMonitor(suite.session, -time.Second, 50, nil, suite.log)
	suite.Equal(DefaultMonitorInterval, m.interval)

	suite.session.EndStrategy()

	done := make(chan struct{})
	go func() {
		m.Watch(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * DefaultMonitorInterval):
		suite.Fail("monitor did not return")
	}
}

func (suite *BrokerTestSuite) TestRegistryErrForRequest() {
	reg := NewErrorRegistry()
	suite.NoError(reg.Err(CodeInvalidPrice))

	reg.Record(ErrorEvent{Code: CodeHistoricalData, Message: "HMDS query returned no data", ReqID: 1, At: suite.now})

	suite.NoError(reg.ErrForRequest(0, CodeHistoricalData))

	err := reg.ErrForRequest(1, CodeHistoricalData)
	suite.Require().Error(err)
	suite.Equal(CodeHistoricalData, errors.BrokerCode(err))
	suite.Equal(CodeHistoricalData, errors.BrokerCode(reg.Err(CodeHistoricalData)))
}

func (suite *BrokerTestSuite) TestHistoricalReportsGatewayError() {
	syncer := NewSync(suite.session, suite.bridge, suite.buffer, ledger.New(), 5*time.Second, suite.log)
	started := time.Now()

	go func() {
		for !suite.bridge.Pending(bridge.HistoricalKey(int64(types.SideAsk))) {
			time.Sleep(time.Millisecond)
		}

		suite.router.Error(int64(types.SideAsk), CodeHistoricalData, "HMDS query returned no data")
	}()

	bars, err := syncer.Historical(context.Background(), HistoricalRequest{
		ReqID:    0,
		Contract: types.ForexContract("EUR", "USD"),
		End:      suite.now,
		Duration: "1 D",
		BarSize:  "1 min",
		Side:     types.SideAsk,
	})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeHistoricalDataFailed))
	suite.Equal(CodeHistoricalData, errors.BrokerCode(err))
	suite.Empty(bars)
	// the error released the waiter long before the request timeout
	suite.Less(time.Since(started), 5*time.Second)
}

func (suite *BrokerTestSuite) TestHistoricalTimeoutWithoutGatewayError() {
	syncer := NewSync(suite.session, suite.bridge, suite.buffer, ledger.New(), 10*time.Millisecond, suite.log)

	_, err := syncer.Historical(context.Background(), HistoricalRequest{
		ReqID:    0,
		Contract: types.ForexContract("EUR", "USD"),
		End:      suite.now,
		Duration: "1 D",
		BarSize:  "1 min",
		Side:     types.SideBid,
	})
	suite.True(errors.HasCode(err, errors.ErrCodeRequestTimeout))
}

func (suite *BrokerTestSuite) TestRouterStampsAndSanitizes() {
	suite.router.CommissionReport(types.CommissionRow{
		ExecID:      "e1",
		Commission:  2,
		Currency:    "USD",
		RealizedPnL: types.SanitizePnL(12.5),
	})
	suite.router.CommissionReport(types.CommissionRow{
		ExecID:      "e2",
		Commission:  2,
		Currency:    "USD",
		RealizedPnL: optionalUnset(),
	})
	suite.router.Position(types.PositionRow{Symbol: "EUR", Currency: "USD", Position: 100})

	batch := suite.buffer.Drain()
	suite.Require().Len(batch.Commissions, 2)
	suite.Equal(suite.now, batch.Commissions[0].Time)
	suite.True(batch.Commissions[0].RealizedPnL.IsSome())
	suite.True(batch.Commissions[1].RealizedPnL.IsNone())
	suite.Require().Len(batch.Positions, 1)
	suite.Equal(suite.now, batch.Positions[0].Time)
}

func (suite *BrokerTestSuite) TestRouterHistoricalSides() {
	bar := types.Bar{Time: suite.now, Open: 1, High: 1, Low: 1, Close: 1}
	suite.router.HistoricalData(0, bar)
	suite.router.HistoricalData(1, bar)
	suite.router.HistoricalData(1, bar)

	suite.Len(suite.buffer.DrainBars(types.SideBid), 1)
	suite.Len(suite.buffer.DrainBars(types.SideAsk), 2)
}

func (suite *BrokerTestSuite) TestRouterCompletesKeys() {
	outcome, err := suite.bridge.Await(context.Background(), bridge.HistoricalKey(1), time.Second, func() error {
		go suite.router.HistoricalDataEnd(1)

		return nil
	})
	suite.Require().NoError(err)
	suite.Equal(bridge.OutcomeCompleted, outcome)

	outcome, err = suite.bridge.Await(context.Background(), bridge.KeyNextID, time.Second, func() error {
		go suite.router.NextValidID(42)

		return nil
	})
	suite.Require().NoError(err)
	suite.Equal(bridge.OutcomeCompleted, outcome)
	suite.Equal(int64(42), suite.session.PeekOrderID())
}

func (suite *BrokerTestSuite) TestRouterErrorsAndTicks() {
	suite.router.Error(7, CodeInvalidPrice, "price does not conform")
	suite.True(suite.session.Errors().Has(CodeInvalidPrice))

	suite.session.MissTick()
	suite.router.TickByTickMidpoint(9, time.Time{}, 1.0842)

	mid, at := suite.session.LastMid()
	suite.Equal(1.0842, mid)
	suite.Equal(suite.now, at)
	suite.Equal(0, suite.session.StaleTicks())

	suite.router.ConnectionClosed()
	suite.False(suite.session.IsConnected())
}

func optionalUnset() optional.Option[float64] {
	return optional.Some(types.UnsetDouble)
}

package broker

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// Gateway error codes the engine reacts to.
const (
	CodeOrderCancelled      = 202
	CodeCancelRejectedOrder = 10147
	CodeCancelRejectedState = 10148

	CodeInvalidField   = 321
	CodeInvalidPrice   = 110
	CodeInvalidOrderID = 463

	CodeNotConnected     = 504
	CodeBrokenConnection = 502
	CodeConnectivityLost = 1100

	CodeHistoricalData = 162
)

// CancelAckCodes are informational codes the gateway sends when a cancel
// lands. They are cleared around cancellations and never treated as failures.
var CancelAckCodes = []int{CodeOrderCancelled, CodeCancelRejectedOrder, CodeCancelRejectedState}

// RejectCodes mean the order was refused and may be retried with a new price.
var RejectCodes = []int{CodeInvalidField, CodeInvalidPrice, CodeInvalidOrderID}

// LegAbortCodes abort leg placement immediately.
var LegAbortCodes = []int{CodeNotConnected, CodeBrokenConnection}

// TeardownCodes make the connection monitor end the session.
var TeardownCodes = []int{CodeBrokenConnection, CodeConnectivityLost}

// ErrorEvent is the last error the gateway reported for a code.
type ErrorEvent struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	ReqID   int64     `json:"req_id"`
	At      time.Time `json:"at"`
}

// ErrorRegistry collects gateway error callbacks keyed by code.
type ErrorRegistry struct {
	mu     sync.RWMutex
	events map[int]ErrorEvent
}

// NewErrorRegistry creates an empty registry.
func NewErrorRegistry() *ErrorRegistry {
	return &ErrorRegistry{
		mu:     sync.RWMutex{},
		events: make(map[int]ErrorEvent),
	}
}

// Record stores an error, replacing any previous event with the same code.
func (r *ErrorRegistry) Record(ev ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[ev.Code] = ev
}

// Has reports whether code is present.
func (r *ErrorRegistry) Has(code int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.events[code]

	return ok
}

// HasAny reports whether any of codes is present.
func (r *ErrorRegistry) HasAny(codes ...int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range codes {
		if _, ok := r.events[c]; ok {
			return true
		}
	}

	return false
}

// Clear removes the given codes.
func (r *ErrorRegistry) Clear(codes ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range codes {
		delete(r.events, c)
	}
}

// ClearAll removes every recorded code.
func (r *ErrorRegistry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.events)
}

// Err returns the event recorded for code as a *errors.BrokerError, or nil.
func (r *ErrorRegistry) Err(code int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[code]
	if !ok {
		return nil
	}

	return errors.NewBrokerError(ev.Code, ev.ReqID, ev.Message)
}

// ErrForRequest returns the first of codes recorded against reqID as a
// *errors.BrokerError, or nil.
func (r *ErrorRegistry) ErrForRequest(reqID int64, codes ...int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range codes {
		if ev, ok := r.events[c]; ok && ev.ReqID == reqID {
			return errors.NewBrokerError(ev.Code, ev.ReqID, ev.Message)
		}
	}

	return nil
}

// Snapshot returns the recorded events ordered by code.
func (r *ErrorRegistry) Snapshot() []ErrorEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := slices.Sorted(maps.Keys(r.events))
	out := make([]ErrorEvent, 0, len(codes))

	for _, c := range codes {
		out = append(out, r.events[c])
	}

	return out
}

// ClassificationKind is the outcome of inspecting the registry after an
// order was sent.
type ClassificationKind int

const (
	ClassNone ClassificationKind = iota
	ClassReject
	ClassDisconnect
)

// Classification is a typed view of the registry after a placement.
type Classification struct {
	Kind ClassificationKind
	Code int
}

// Classify inspects the registry after a placement. Connection loss takes
// precedence over a rejection.
func (r *ErrorRegistry) Classify() Classification {
	for _, c := range LegAbortCodes {
		if r.Has(c) {
			return Classification{Kind: ClassDisconnect, Code: c}
		}
	}

	for _, c := range RejectCodes {
		if r.Has(c) {
			return Classification{Kind: ClassReject, Code: c}
		}
	}

	return Classification{Kind: ClassNone, Code: 0}
}

// Package metrics holds the Prometheus collectors of the session engine.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors are registered on their own registry so several engines (and
// tests) never collide on the default one.
type Collectors struct {
	registry *prometheus.Registry

	Orders     *prometheus.CounterVec
	Rejections *prometheus.CounterVec
	Periods    *prometheus.CounterVec
	Teardowns  *prometheus.CounterVec
	Capital    prometheus.Gauge
	Signal     prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argofx_orders_total",
				Help: "Orders accepted by the gateway, by leg and side.",
			},
			[]string{"leg", "side"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argofx_order_rejections_total",
				Help: "Order rejections, by leg and gateway code.",
			},
			[]string{"leg", "code"},
		),
		Periods: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argofx_periods_total",
				Help: "Completed periods, by kind and result.",
			},
			[]string{"kind", "result"},
		),
		Teardowns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argofx_session_teardowns_total",
				Help: "Session teardowns, by reason.",
			},
			[]string{"reason"},
		),
		Capital: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "argofx_capital",
				Help: "Capital in the contract's base currency used for the last sizing.",
			},
		),
		Signal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "argofx_signal",
				Help: "Last signal returned by the strategy.",
			},
		),
	}

	c.registry.MustRegister(c.Orders, c.Rejections, c.Periods, c.Teardowns, c.Capital, c.Signal)

	return c
}

// Registry returns the registry the collectors live on.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// OrderPlaced counts an accepted order.
func (c *Collectors) OrderPlaced(leg, side string) {
	if c == nil {
		return
	}

	c.Orders.WithLabelValues(leg, side).Inc()
}

// OrderRejected counts a rejection.
func (c *Collectors) OrderRejected(leg string, code int) {
	if c == nil {
		return
	}

	c.Rejections.WithLabelValues(leg, strconv.Itoa(code)).Inc()
}

// PeriodDone counts a completed period. result is "ok", "degraded" or "failed".
func (c *Collectors) PeriodDone(kind, result string) {
	if c == nil {
		return
	}

	c.Periods.WithLabelValues(kind, result).Inc()
}

// SessionTornDown counts a teardown.
func (c *Collectors) SessionTornDown(reason string) {
	if c == nil {
		return
	}

	c.Teardowns.WithLabelValues(reason).Inc()
}

// SetCapital records the capital of the last sizing.
func (c *Collectors) SetCapital(v float64) {
	if c == nil {
		return
	}

	c.Capital.Set(v)
}

// SetSignal records the last signal.
func (c *Collectors) SetSignal(v int) {
	if c == nil {
		return
	}

	c.Signal.Set(float64(v))
}

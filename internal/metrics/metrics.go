package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	orders       *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec
	tickErrors   *prometheus.CounterVec
	queueLength  prometheus.Gauge

	simAverageWait *prometheus.GaugeVec
	simComplaints  *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffee_orders_total",
				Help: "Order status transitions made by the dispatcher",
			},
			[]string{"status"},
		),
		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coffee_tick_duration_seconds",
				Help:    "Duration of dispatcher ticks",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"tick"},
		),
		tickErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffee_tick_errors_total",
				Help: "Dispatcher ticks rolled back on error",
			},
			[]string{"tick"},
		),
		queueLength: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coffee_pending_orders",
				Help: "Pending orders left after the last assignment tick",
			},
		),
		simAverageWait: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coffee_simulation_average_wait_minutes",
				Help: "Average wait of served orders per simulation trial",
			},
			[]string{"trial"},
		),
		simComplaints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coffee_simulation_complaints",
				Help: "Complaints per simulation trial",
			},
			[]string{"trial"},
		),
	}

	registry.MustRegister(
		m.orders,
		m.tickDuration,
		m.tickErrors,
		m.queueLength,
		m.simAverageWait,
		m.simComplaints,
	)
	return m
}

func (m *Metrics) OrderTransitions(status string, n int) {
	if n > 0 {
		m.orders.WithLabelValues(status).Add(float64(n))
	}
}

func (m *Metrics) Tick(tick string, started time.Time, err error) {
	m.tickDuration.WithLabelValues(tick).Observe(time.Since(started).Seconds())
	if err != nil {
		m.tickErrors.WithLabelValues(tick).Inc()
	}
}

func (m *Metrics) QueueLength(n int) {
	m.queueLength.Set(float64(n))
}

func (m *Metrics) SimulationTrial(trial int, averageWait float64, complaints int) {
	label := strconv.Itoa(trial)
	m.simAverageWait.WithLabelValues(label).Set(averageWait)
	m.simComplaints.WithLabelValues(label).Set(float64(complaints))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

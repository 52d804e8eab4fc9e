package api

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronLay10/verifypanel/internal/events"
	"github.com/AaronLay10/verifypanel/internal/sequencer"
	"github.com/AaronLay10/verifypanel/internal/version"
)

// Metrics exposes the panel's counters on /metrics. It is a
// sequencer.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	stages   *prometheus.CounterVec
	triggers *prometheus.CounterVec
	duration prometheus.Histogram
	running  prometheus.Gauge
}

// NewMetrics registers the panel metrics on a private registry. bus may be
// nil in tests that only exercise the run counters.
func NewMetrics(panelID string, bus *events.Bus, started time.Time) *Metrics {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	labels := prometheus.Labels{
		"panel":    panelID,
		"instance": hostname,
		"version":  version.Version,
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "verifypanel_runs_total",
			Help:        "Finished verification runs by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "verifypanel_stage_results_total",
			Help:        "Resolved stage indicators by stage key and kind.",
			ConstLabels: labels,
		}, []string{"stage", "kind"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "verifypanel_triggers_total",
			Help:        "Check triggers by source and whether a run started.",
			ConstLabels: labels,
		}, []string{"source", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "verifypanel_run_duration_seconds",
			Help:        "Wall time of a verification run.",
			ConstLabels: labels,
			Buckets:     []float64{0.5, 1, 2, 2.5, 3, 4, 6, 10},
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "verifypanel_run_active",
			Help:        "Whether a verification run is in progress (1) or not (0).",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(m.runs, m.stages, m.triggers, m.duration, m.running)
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "verifypanel_uptime_seconds",
		Help:        "Seconds since the panel service started.",
		ConstLabels: labels,
	}, func() float64 { return time.Since(started).Seconds() }))

	if bus != nil {
		m.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name:        "verifypanel_events_total",
				Help:        "Events emitted on the panel bus since startup.",
				ConstLabels: labels,
			}, func() float64 { return float64(bus.Total()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "verifypanel_ws_clients",
				Help:        "Active websocket event subscribers.",
				ConstLabels: labels,
			}, func() float64 { return float64(bus.SubscriberCount()) }),
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Trigger counts a start request from source ("http", "mqtt").
func (m *Metrics) Trigger(source string, started bool) {
	result := "started"
	if !started {
		result = "ignored"
	}
	m.triggers.WithLabelValues(source, result).Inc()
}

func (m *Metrics) RunStarted(string) {
	m.running.Set(1)
}

func (m *Metrics) StageCompleted(_ string, st sequencer.Stage, kind sequencer.Kind) {
	m.stages.WithLabelValues(string(st.Key), string(kind)).Inc()
}

func (m *Metrics) RunFinished(res sequencer.Result) {
	m.runs.WithLabelValues(string(res.Outcome)).Inc()
	m.duration.Observe(res.Duration.Seconds())
	m.running.Set(0)
}

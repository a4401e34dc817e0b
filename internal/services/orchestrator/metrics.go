package orchestrator

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports run and farm counters on a dedicated registry.
type Metrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	farms       *prometheus.CounterVec
	alerts      prometheus.Counter
	running     prometheus.Gauge
	runDuration prometheus.Histogram
	farmLatency *prometheus.HistogramVec
	lastRate    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropwatch",
			Name:      "runs_total",
			Help:      "Analysis runs by final state.",
		}, []string{"state"}),
		farms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cropwatch",
			Name:      "farms_processed_total",
			Help:      "Farm tasks by outcome.",
		}, []string{"outcome"}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropwatch",
			Name:      "alerts_generated_total",
			Help:      "Alerts produced by successful farm analyses.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cropwatch",
			Name:      "run_in_progress",
			Help:      "1 while a run is executing.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cropwatch",
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed runs.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		}),
		farmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cropwatch",
			Name:      "farm_task_seconds",
			Help:      "Per-farm pipeline latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"outcome"}),
		lastRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cropwatch",
			Name:      "last_run_success_rate_percent",
			Help:      "Success rate of the last completed run.",
		}),
	}
	m.registry.MustRegister(m.runs, m.farms, m.alerts, m.running, m.runDuration, m.farmLatency, m.lastRate)
	return m
}

// Hooks feeds the metrics from orchestrator events.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnRunStart: func(context.Context, RunEvent) {
			m.running.Set(1)
		},
		OnRunFinish: func(_ context.Context, ev RunEvent) {
			m.running.Set(0)
			m.runs.WithLabelValues(ev.State.String()).Inc()
			if ev.Report != nil {
				m.runDuration.Observe(float64(ev.Report.ExecutionTimeMs) / 1000)
				m.lastRate.Set(ev.Report.SuccessRatePercent)
			}
		},
		OnFarmDone: func(_ context.Context, ev FarmEvent) {
			m.farms.WithLabelValues(string(ev.Outcome)).Inc()
			m.farmLatency.WithLabelValues(string(ev.Outcome)).Observe(ev.Duration.Seconds())
			if ev.Outcome == OutcomeSucceeded {
				m.alerts.Add(float64(ev.Alerts))
			}
		},
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

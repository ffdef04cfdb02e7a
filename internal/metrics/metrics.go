// Package metrics records the outcome of a single run and pushes it to a
// Prometheus Pushgateway, the usual path for short-lived batch jobs.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "vastdeploy"

// Outcome labels for RunsTotal
const (
	OutcomeReady   = "ready"
	OutcomeTimeout = "timeout"
	OutcomeFailed  = "failed"
)

// Recorder holds the per-run metrics on a private registry
type Recorder struct {
	registry *prometheus.Registry

	OffersFound     prometheus.Gauge
	SelectedCost    prometheus.Gauge
	PollAttempts    prometheus.Gauge
	ReadySeconds    prometheus.Gauge
	RunsTotal       *prometheus.CounterVec
	LastCompletedAt prometheus.Gauge
}

// New creates a recorder with all collectors registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		OffersFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offers_found",
			Help:      "Offers returned by the last marketplace search",
		}),
		SelectedCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "selected_window_cost_dollars",
			Help:      "Estimated window cost of the deployed offer",
		}),
		PollAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readiness_poll_attempts",
			Help:      "Status queries issued before the instance became ready",
		}),
		ReadySeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readiness_wait_seconds",
			Help:      "Time between instance creation and readiness",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Deployment runs by outcome",
		}, []string{"outcome"}),
		LastCompletedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}

	r.registry.MustRegister(
		r.OffersFound,
		r.SelectedCost,
		r.PollAttempts,
		r.ReadySeconds,
		r.RunsTotal,
		r.LastCompletedAt,
	)

	return r
}

func (r *Recorder) ObserveSearch(offers int) {
	r.OffersFound.Set(float64(offers))
}

func (r *Recorder) ObserveSelection(windowCost float64) {
	r.SelectedCost.Set(windowCost)
}

func (r *Recorder) ObserveReady(attempts int, elapsed time.Duration) {
	r.PollAttempts.Set(float64(attempts))
	r.ReadySeconds.Set(elapsed.Seconds())
}

// ObserveOutcome counts the run and stamps its completion time
func (r *Recorder) ObserveOutcome(outcome string, at time.Time) {
	r.RunsTotal.WithLabelValues(outcome).Inc()
	r.LastCompletedAt.Set(float64(at.Unix()))
}

// Push replaces the job's metrics on the gateway at url
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

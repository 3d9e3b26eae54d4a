package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	backtestDuration *prometheus.HistogramVec
	bankruptRuns     *prometheus.CounterVec
	trialDuration    *prometheus.HistogramVec
	trialFailures    *prometheus.CounterVec
	bestScore        *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		backtestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsim_backtest_duration_seconds",
				Help:    "Duration of full backtest runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		bankruptRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsim_backtest_bankrupt_runs_total",
				Help: "Backtest runs whose equity fell to the bankruptcy floor",
			},
			[]string{"symbol"},
		),
		trialDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsim_optimizer_trial_duration_seconds",
				Help:    "Duration of single optimizer trials in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"policy"},
		),
		trialFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsim_optimizer_trial_failures_total",
				Help: "Optimizer trials that failed to produce a score",
			},
			[]string{"policy"},
		),
		bestScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finsim_optimizer_best_score",
				Help: "Best score seen so far in the current search",
			},
			[]string{"policy"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsim_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordBacktest records the duration of a completed backtest.
func (r *Recorder) RecordBacktest(symbol string, seconds float64) {
	r.backtestDuration.WithLabelValues(symbol).Observe(seconds)
}

// RecordBankruptRun counts a run that hit the bankruptcy floor.
func (r *Recorder) RecordBankruptRun(symbol string) {
	r.bankruptRuns.WithLabelValues(symbol).Inc()
}

// RecordTrial records the duration of one optimizer trial.
func (r *Recorder) RecordTrial(policy string, seconds float64) {
	r.trialDuration.WithLabelValues(policy).Observe(seconds)
}

// RecordTrialFailure counts a failed optimizer trial.
func (r *Recorder) RecordTrialFailure(policy string) {
	r.trialFailures.WithLabelValues(policy).Inc()
}

// RecordBestScore publishes the running best score of a search.
func (r *Recorder) RecordBestScore(policy string, score float64) {
	r.bestScore.WithLabelValues(policy).Set(score)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

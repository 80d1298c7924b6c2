// Package metrics exposes Prometheus collectors for the analysis pipeline.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "visibility"

type Recorder struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	providerRetries  *prometheus.CounterVec
	analysisRuns     *prometheus.CounterVec
	contextOutcomes  *prometheus.CounterVec
	visibilityScore  prometheus.Histogram
	tokens           *prometheus.CounterVec
	cost             prometheus.Counter
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Text generation calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of single text generation attempts.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"provider"}),
		providerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Retries scheduled after transient provider failures.",
		}, []string{"provider"}),
		analysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Analysis runs by final status.",
		}, []string{"status"}),
		contextOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_contexts_total",
			Help:      "Evaluated region/persona contexts by outcome.",
		}, []string{"outcome"}),
		visibilityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_visibility_score",
			Help:      "Visibility score of each successful context.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens consumed by analysis runs.",
		}, []string{"direction"}),
		cost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Estimated spend of analysis runs in USD.",
		}),
	}

	reg.MustRegister(
		r.providerRequests,
		r.providerLatency,
		r.providerRetries,
		r.analysisRuns,
		r.contextOutcomes,
		r.visibilityScore,
		r.tokens,
		r.cost,
	)
	return r
}

func (r *Recorder) ObserveProviderCall(provider, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
	r.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (r *Recorder) IncProviderRetry(provider string) {
	if r == nil {
		return
	}
	r.providerRetries.WithLabelValues(provider).Inc()
}

func (r *Recorder) ObserveAnalysis(status string) {
	if r == nil {
		return
	}
	r.analysisRuns.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveContext(outcome string) {
	if r == nil {
		return
	}
	r.contextOutcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveScore(score int) {
	if r == nil {
		return
	}
	r.visibilityScore.Observe(float64(score))
}

func (r *Recorder) AddUsage(inputTokens, outputTokens int, costUSD float64) {
	if r == nil {
		return
	}
	r.tokens.WithLabelValues("input").Add(float64(inputTokens))
	r.tokens.WithLabelValues("output").Add(float64(outputTokens))
	if costUSD > 0 {
		r.cost.Add(costUSD)
	}
}

package rewrite

import (
	"time"

	"github.com/eiz/chatgpt-wd/pkg/llm"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of chatgptwd_tasks_total
const (
	OutcomeSuccess         = "success"
	OutcomeCompletionError = "completion_error"
	OutcomeMutationError   = "mutation_error"
)

// Metrics holds the Prometheus collectors updated by a Dispatcher. A nil
// *Metrics records nothing.
type Metrics struct {
	tasks              *prometheus.CounterVec
	inFlight           prometheus.Gauge
	completionDuration prometheus.Histogram
	mutationDuration   prometheus.Histogram
	tokens             *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgptwd_tasks_total",
			Help: "Rewrite tasks by final outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatgptwd_completions_in_flight",
			Help: "Completion requests currently awaiting a reply.",
		}),
		completionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatgptwd_completion_duration_seconds",
			Help:    "Latency of completion requests.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		mutationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatgptwd_mutation_duration_seconds",
			Help:    "Latency of element mutation commands.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatgptwd_tokens_total",
			Help: "Tokens reported by the completion service.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{m.tasks, m.inFlight, m.completionDuration, m.mutationDuration, m.tokens} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// Expose zero counts for every outcome
	for _, o := range []string{OutcomeSuccess, OutcomeCompletionError, OutcomeMutationError} {
		m.tasks.WithLabelValues(o)
	}
	return m, nil
}

func (m *Metrics) completionStarted() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func() {
		m.inFlight.Dec()
		m.completionDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) observeMutation(d time.Duration) {
	if m == nil {
		return
	}
	m.mutationDuration.Observe(d.Seconds())
}

func (m *Metrics) observeUsage(u llm.Usage) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues("prompt").Add(float64(u.PromptTokens))
	m.tokens.WithLabelValues("completion").Add(float64(u.CompletionTokens))
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(outcome).Inc()
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics carries the process-level prometheus instruments. One instance is
// shared through fx; the server exposes the registry on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	PaymentsExecuted *prometheus.CounterVec // result: success | failed | rejected
	PaymentVolume    prometheus.Counter
	FeesCollected    prometheus.Counter
	TierTransitions  *prometheus.CounterVec // tier: community | suspended
	ReviewsAccepted  prometheus.Counter
	EventsRecorded   *prometheus.CounterVec // type
	JobRuns          *prometheus.CounterVec // job, result
	HTTPRequests     *prometheus.CounterVec // method, path, status
	HTTPDuration     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		PaymentsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pullpay_payments_executed_total",
			Help: "Payment execution attempts by result.",
		}, []string{"result"}),
		PaymentVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pullpay_payment_volume_total",
			Help: "Sum of successfully moved payment amounts in minor units.",
		}),
		FeesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pullpay_fees_collected_total",
			Help: "Sum of collected platform fees in minor units.",
		}),
		TierTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pullpay_merchant_tier_transitions_total",
			Help: "Automatic merchant tier transitions.",
		}, []string{"tier"}),
		ReviewsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pullpay_reviews_accepted_total",
			Help: "Reviews that passed the eligibility gate.",
		}),
		EventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pullpay_events_total",
			Help: "Recorded domain events by type.",
		}, []string{"type"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pullpay_scheduler_job_runs_total",
			Help: "Scheduler job executions by job and result.",
		}, []string{"job", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pullpay_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pullpay_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.PaymentsExecuted,
		m.PaymentVolume,
		m.FeesCollected,
		m.TierTransitions,
		m.ReviewsAccepted,
		m.EventsRecorded,
		m.JobRuns,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	obserrors "github.com/unevent/unevent-api/internal/observability/errors"
)

const namespace = "unevent"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	hookResults    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	jobTransitions *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	mailSends      *prometheus.CounterVec
	reaperDeleted  *prometheus.CounterVec
	revalidations  *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	actorCacheHits *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	defaultM    *Metrics
)

// Default returns the metrics registered with the global registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultM = MustNew(prometheus.DefaultRegisterer)
	})
	return defaultM
}

// MustNew creates and registers the collectors with reg and panics on a
// conflicting registration. Already registered collectors are reused.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		hookResults: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "results_total",
			Help:      "Listing afterChange hook outcomes.",
		}, []string{"hook", "status"})),
		notifications: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueued_total",
			Help:      "Notification jobs enqueued, by event and result.",
		}, []string{"event", "result"})),
		jobTransitions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "transitions_total",
			Help:      "Job lifecycle transitions.",
		}, []string{"job_type", "transition", "result", "error_class"})),
		jobDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Time spent processing a job.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job_type", "transition"})),
		mailSends: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mailer",
			Name:      "sends_total",
			Help:      "Mail API send attempts by result and HTTP status.",
		}, []string{"result", "status"})),
		reaperDeleted: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "rows_total",
			Help:      "Rows removed or failed by reaper step.",
		}, []string{"step"})),
		revalidations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revalidations_total",
			Help:      "Frontend revalidation calls by result.",
		}, []string{"result"})),
		httpDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"})),
		actorCacheHits: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "actor_cache_lookups_total",
			Help:      "Actor cache lookups by outcome.",
		}, []string{"outcome"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// HookResult counts one afterChange hook outcome.
func (m *Metrics) HookResult(hook, status string) {
	if m == nil {
		return
	}
	m.hookResults.WithLabelValues(hook, status).Inc()
}

// NotificationEnqueued counts an enqueue attempt.
func (m *Metrics) NotificationEnqueued(event string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, resultOf(err)).Inc()
}

// JobMetric describes one job lifecycle transition.
type JobMetric struct {
	JobType    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// JobLifecycle records a job transition and, when set, its duration.
func (m *Metrics) JobLifecycle(in JobMetric) {
	if m == nil {
		return
	}
	class := ""
	if in.Result == ResultError {
		class = obserrors.Classify(in.Err)
	}
	m.jobTransitions.WithLabelValues(in.JobType, in.Transition, in.Result, class).Inc()
	if in.Duration > 0 {
		m.jobDuration.WithLabelValues(in.JobType, in.Transition).Observe(in.Duration.Seconds())
	}
}

// MailSend counts a mail API attempt. status is the HTTP status, 0 for transport errors.
func (m *Metrics) MailSend(status int, err error) {
	if m == nil {
		return
	}
	m.mailSends.WithLabelValues(resultOf(err), strconv.Itoa(status)).Inc()
}

// ReaperRows adds n rows for a reaper step.
func (m *Metrics) ReaperRows(step string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.reaperDeleted.WithLabelValues(step).Add(float64(n))
}

// Revalidation counts a revalidation call outcome.
func (m *Metrics) Revalidation(result string) {
	if m == nil {
		return
	}
	m.revalidations.WithLabelValues(result).Inc()
}

// HTTPRequest observes a served request.
func (m *Metrics) HTTPRequest(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, strconv.Itoa(code)).Observe(d.Seconds())
}

// ActorCache counts an actor cache lookup; outcome is "hit" or "miss".
func (m *Metrics) ActorCache(outcome string) {
	if m == nil {
		return
	}
	m.actorCacheHits.WithLabelValues(outcome).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.HookResult("retainMedia", "failed")
	m.HookResult("retainMedia", "failed")
	m.NotificationEnqueued("listing.approved", nil)
	m.NotificationEnqueued("listing.approved", errors.New("down"))
	m.ReaperRows("purge_listings", 3)
	m.ReaperRows("purge_listings", 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.hookResults.WithLabelValues("retainMedia", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.notifications.WithLabelValues("listing.approved", ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.notifications.WithLabelValues("listing.approved", ResultError)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.reaperDeleted.WithLabelValues("purge_listings")), 0)
}

func TestMetrics_JobLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.JobLifecycle(JobMetric{JobType: "notification", Transition: "failed", Result: ResultError, Err: errors.New("x"), Duration: time.Second})
	assert.InDelta(t, 1, testutil.ToFloat64(m.jobTransitions.WithLabelValues("notification", "failed", ResultError, "unknown")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.jobDuration))
}

func TestMustNew_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := MustNew(reg)
	b := MustNew(reg)
	a.Revalidation(ResultSuccess)
	assert.InDelta(t, 1, testutil.ToFloat64(b.revalidations.WithLabelValues(ResultSuccess)), 0)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.HookResult("h", "ok")
		m.JobLifecycle(JobMetric{})
		m.MailSend(200, nil)
		m.HTTPRequest("GET", 200, time.Millisecond)
	})
}

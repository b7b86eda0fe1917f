package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/sla"
)

func TestMetrics_SLAObserver(t *testing.T) {
	m := NewMetrics()

	before := testutil.ToFloat64(slaEvaluations.WithLabelValues("at_risk", "rule"))
	m.ObserveOutcome(sla.StatusAtRisk, sla.TierRule)
	m.ObserveOutcome(sla.StatusAtRisk, sla.TierRule)
	assert.Equal(t, before+2, testutil.ToFloat64(slaEvaluations.WithLabelValues("at_risk", "rule")))

	failuresBefore := testutil.ToFloat64(slaFailures.WithLabelValues(sla.SourceRules))
	m.ObserveFailure(sla.SourceRules)
	assert.Equal(t, failuresBefore+1, testutil.ToFloat64(slaFailures.WithLabelValues(sla.SourceRules)))
}

func TestMetrics_SetOpenTickets(t *testing.T) {
	m := NewMetrics()
	m.SetOpenTickets(map[sla.Status]int{sla.StatusViolated: 3, sla.StatusMet: 7})

	assert.Equal(t, 7.0, testutil.ToFloat64(slaOpenTickets.WithLabelValues("met")))
	assert.Equal(t, 0.0, testutil.ToFloat64(slaOpenTickets.WithLabelValues("at_risk")))
	assert.Equal(t, 3.0, testutil.ToFloat64(slaOpenTickets.WithLabelValues("violated")))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/health/live", "GET", 200, time.Millisecond)
		m.ObserveOutcome(sla.StatusMet, sla.TierDefault)
		m.SetOpenTickets(nil)
	})
}

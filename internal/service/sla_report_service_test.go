package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

var supervisorIT = &domain.StaffMember{ID: "sup-1", Role: domain.StaffRoleSupervisor, DepartmentID: ptr("it"), Active: true}

func newReportFixture(batch int, tickets ...domain.Ticket) (*SLAReportService, *stubEvaluator) {
	evaluator := &stubEvaluator{}
	svc := NewSLAReportService(SLAReportDependencies{
		TicketRepo: newMemTickets(tickets...),
		Evaluator:  evaluator,
		Clock:      fixedClock(),
		BatchSize:  batch,
	})
	return svc, evaluator
}

func TestGenerateReport(t *testing.T) {
	resolved := openTicket("t4", "it")
	resolved.Status = domain.TicketStatusResolved
	resolved.ResolvedAt = ptr(testNow)
	critical := openTicket("t3", "it")
	critical.Priority = domain.PriorityCritical

	svc, evaluator := newReportFixture(2,
		openTicket("t1", "it"), openTicket("t2", "it"), critical, resolved, openTicket("t5", "hr"))
	evaluator.byTicket = map[string]sla.Status{"t2": sla.StatusAtRisk, "t3": sla.StatusViolated}

	report, err := svc.Generate(context.Background(), supervisorIT, SLAReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, testNow, report.GeneratedAt)
	assert.Equal(t, 3, report.TotalTickets, "open tickets of the supervisor's department")
	assert.Equal(t, 1, report.ByStatus[sla.StatusMet])
	assert.Equal(t, 1, report.ByStatus[sla.StatusAtRisk])
	assert.Equal(t, 1, report.ByStatus[sla.StatusViolated])
	assert.Equal(t, 3, report.ByTier[sla.TierDefault])
	assert.Equal(t, 1, report.ByPriority[domain.PriorityCritical][sla.StatusViolated])
	assert.InDelta(t, 33.33, report.CompliancePercent, 0.01)
	assert.False(t, report.Truncated)
	assert.Equal(t, 2, evaluator.calls, "one evaluation per page")

	withResolved, err := svc.Generate(context.Background(), supervisorIT, SLAReportFilter{IncludeResolved: true})
	require.NoError(t, err)
	assert.Equal(t, 4, withResolved.TotalTickets)

	all, err := svc.Generate(context.Background(), admin, SLAReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalTickets)
}

func TestGenerateReport_EmptyIsFullyCompliant(t *testing.T) {
	svc, _ := newReportFixture(10)
	report, err := svc.Generate(context.Background(), admin, SLAReportFilter{})
	require.NoError(t, err)
	assert.Zero(t, report.TotalTickets)
	assert.Equal(t, 100.0, report.CompliancePercent)
}

func TestGenerateReport_Errors(t *testing.T) {
	svc, evaluator := newReportFixture(10, openTicket("t1", "it"))

	_, err := svc.Generate(context.Background(), techIT, SLAReportFilter{})
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))

	evaluator.err = &sla.ConfigurationUnavailableError{Source: sla.SourcePriorities, Err: errors.New("down")}
	_, err = svc.Generate(context.Background(), admin, SLAReportFilter{})
	assert.Equal(t, "SLA_UNAVAILABLE", domainCode(t, err))
}

func TestGenerateReport_Truncates(t *testing.T) {
	tickets := make([]domain.Ticket, 0, maxReportTickets+5)
	for i := 0; i < maxReportTickets+5; i++ {
		tickets = append(tickets, openTicket(fmt.Sprintf("t%d", i), "it"))
	}
	svc, _ := newReportFixture(1000, tickets...)

	report, err := svc.Generate(context.Background(), admin, SLAReportFilter{})
	require.NoError(t, err)
	assert.True(t, report.Truncated)
	assert.Equal(t, maxReportTickets, report.TotalTickets)
}

func TestExportXLSX(t *testing.T) {
	ticket := openTicket("t1", "it")
	ticket.ExternalKey = "TCK-0000ABCD"
	svc, evaluator := newReportFixture(10, ticket)
	evaluator.byTicket = map[string]sla.Status{"t1": sla.StatusAtRisk}

	data, filename, err := svc.ExportXLSX(context.Background(), admin, SLAReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "sla-report-20240304-120000.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("SLA")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportColumns, rows[0])
	assert.Equal(t, "TCK-0000ABCD", rows[1][0])
	assert.Equal(t, "high", rows[1][2])
	assert.Equal(t, "at_risk", rows[1][4])
	assert.Equal(t, "default (4h)", rows[1][5])
	assert.Equal(t, ticket.CreatedAt.Add(4*time.Hour).Format("2006-01-02 15:04:05"), rows[1][9])
}

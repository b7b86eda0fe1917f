package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestBuildTicketQuery_Empty(t *testing.T) {
	query, args := buildTicketQuery(TicketFilter{})
	assert.Contains(t, query, "FROM tickets ORDER BY updated_at DESC LIMIT 20 OFFSET 0")
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestBuildTicketQuery_AllFilters(t *testing.T) {
	dept := "dept-1"
	search := "  VPN "
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildTicketQuery(TicketFilter{
		DepartmentID: &dept,
		Statuses:     []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusOnHold},
		Priorities:   []domain.Priority{domain.PriorityCritical},
		OpenOnly:     true,
		CreatedFrom:  &from,
		SearchTerm:   &search,
		Limit:        500,
		Offset:       1000,
		OldestFirst:  true,
	})

	assert.Contains(t, query, "WHERE department_id = $1 AND status IN ($2, $3) AND priority IN ($4)")
	assert.Contains(t, query, "resolved_at IS NULL AND status NOT IN ($5, $6)")
	assert.Contains(t, query, "created_at >= $7")
	assert.Contains(t, query, "(LOWER(title) LIKE $8 OR LOWER(description) LIKE $9)")
	assert.Contains(t, query, "ORDER BY created_at ASC, id ASC LIMIT 500 OFFSET 1000")
	assert.Equal(t, []any{
		"dept-1",
		domain.TicketStatusOpen, domain.TicketStatusOnHold,
		domain.PriorityCritical,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
		from,
		"%vpn%", "%vpn%",
	}, args)
}

func TestBuildTicketQuery_BlankSearchIgnored(t *testing.T) {
	blank := "   "
	query, args := buildTicketQuery(TicketFilter{SearchTerm: &blank, Offset: -3})
	assert.NotContains(t, query, "LIKE")
	assert.Contains(t, query, "OFFSET 0")
	assert.Empty(t, args)
}

func TestBuildStaffQuery(t *testing.T) {
	role := domain.StaffRoleSupervisor
	active := true
	query, args := buildStaffQuery(StaffFilter{Role: &role, Active: &active})
	assert.Contains(t, query, "FROM staff_members WHERE role = $1 AND active_flag = $2 ORDER BY created_at DESC LIMIT 50 OFFSET 0")
	assert.Equal(t, []any{domain.StaffRoleSupervisor, true}, args)
}

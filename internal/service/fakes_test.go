package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

var testNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func fixedClock() sla.Clock {
	return sla.ClockFunc(func() time.Time { return testNow })
}

type memTickets struct {
	mu      sync.Mutex
	order   []string
	byID    map[string]domain.Ticket
	updates int
	listErr error
}

func newMemTickets(tickets ...domain.Ticket) *memTickets {
	m := &memTickets{byID: map[string]domain.Ticket{}}
	for _, t := range tickets {
		m.order = append(m.order, t.ID)
		m.byID[t.ID] = t
	}
	return m
}

func (m *memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket.ID = fmt.Sprintf("ticket-%d", len(m.order)+1)
	ticket.CreatedAt = testNow
	ticket.UpdatedAt = testNow
	m.order = append(m.order, ticket.ID)
	m.byID[ticket.ID] = *ticket
	return nil
}

func (m *memTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.updates++
	m.byID[ticket.ID] = *ticket
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var matched []domain.Ticket
	for _, id := range m.order {
		t := m.byID[id]
		if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.DepartmentID != nil && (t.DepartmentID == nil || *t.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.OpenOnly && (t.ResolvedAt != nil || t.Status.IsTerminal()) {
			continue
		}
		matched = append(matched, t)
	}
	if filter.Offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

type memDepartments struct {
	byID map[string]domain.Department
}

func (m *memDepartments) Create(_ context.Context, dept *domain.Department) error {
	dept.ID = fmt.Sprintf("dept-%d", len(m.byID)+1)
	m.byID[dept.ID] = *dept
	return nil
}

func (m *memDepartments) Update(_ context.Context, dept *domain.Department) error {
	m.byID[dept.ID] = *dept
	return nil
}

func (m *memDepartments) GetByID(_ context.Context, id string) (*domain.Department, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &d, nil
}

func (m *memDepartments) List(_ context.Context, _ bool) ([]domain.Department, error) {
	out := make([]domain.Department, 0, len(m.byID))
	for _, d := range m.byID {
		out = append(out, d)
	}
	return out, nil
}

type memCategories struct {
	byID map[string]domain.Category
}

func (m *memCategories) Create(_ context.Context, category *domain.Category) error {
	category.ID = fmt.Sprintf("cat-%d", len(m.byID)+1)
	m.byID[category.ID] = *category
	return nil
}

func (m *memCategories) Update(_ context.Context, category *domain.Category) error {
	m.byID[category.ID] = *category
	return nil
}

func (m *memCategories) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	c, err := m.FindByID(ctx, id)
	if err == nil && c == nil {
		return nil, pgx.ErrNoRows
	}
	return c, err
}

func (m *memCategories) FindByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memCategories) List(_ context.Context) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}

type memPriorities struct {
	byCode map[domain.Priority]domain.PriorityConfig
}

func defaultPriorities() *memPriorities {
	m := &memPriorities{byCode: map[domain.Priority]domain.PriorityConfig{}}
	for i, p := range []domain.Priority{domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		m.byCode[p] = domain.PriorityConfig{Code: p, SortOrder: i}
	}
	return m
}

func (m *memPriorities) Upsert(_ context.Context, cfg *domain.PriorityConfig) error {
	cfg.UpdatedAt = testNow
	m.byCode[cfg.Code] = *cfg
	return nil
}

func (m *memPriorities) FindByCode(_ context.Context, code domain.Priority) (*domain.PriorityConfig, error) {
	p, ok := m.byCode[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPriorities) List(_ context.Context) ([]domain.PriorityConfig, error) {
	out := make([]domain.PriorityConfig, 0, len(m.byCode))
	for _, p := range m.byCode {
		out = append(out, p)
	}
	return out, nil
}

type memStaff struct {
	byID map[string]domain.StaffMember
}

func (m *memStaff) Create(_ context.Context, staff *domain.StaffMember) error {
	staff.ID = fmt.Sprintf("staff-%d", len(m.byID)+1)
	m.byID[staff.ID] = *staff
	return nil
}

func (m *memStaff) Update(_ context.Context, staff *domain.StaffMember) error {
	m.byID[staff.ID] = *staff
	return nil
}

func (m *memStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m *memStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, s := range m.byID {
		if s.Email == email {
			return &s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStaff) List(_ context.Context, _ repository.StaffFilter) ([]domain.StaffMember, error) {
	out := make([]domain.StaffMember, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	return out, nil
}

type memHistory struct {
	entries []domain.TicketHistory
}

func (m *memHistory) Create(_ context.Context, history *domain.TicketHistory) error {
	history.ID = fmt.Sprintf("hist-%d", len(m.entries)+1)
	history.CreatedAt = testNow
	m.entries = append(m.entries, *history)
	return nil
}

func (m *memHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, e := range m.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memRules struct {
	rules []domain.SLARule
	seq   int
	// afterWrite is returned once a write has been stored.
	afterWrite error
}

func (m *memRules) Create(_ context.Context, rule *domain.SLARule) error {
	m.seq++
	rule.ID = fmt.Sprintf("rule-%d", m.seq)
	m.rules = append(m.rules, *rule)
	return m.afterWrite
}

func (m *memRules) Update(_ context.Context, rule *domain.SLARule) error {
	for i := range m.rules {
		if m.rules[i].ID == rule.ID {
			m.rules[i] = *rule
			return m.afterWrite
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) Delete(_ context.Context, id string) error {
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) GetByID(_ context.Context, id string) (*domain.SLARule, error) {
	for _, r := range m.rules {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memRules) List(_ context.Context) ([]domain.SLARule, error) {
	return append([]domain.SLARule(nil), m.rules...), nil
}

func (m *memRules) ListActiveRules(ctx context.Context) ([]domain.SLARule, error) {
	var out []domain.SLARule
	for _, r := range m.rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

// stubEvaluator classifies tickets by a fixed status unless err is set.
type stubEvaluator struct {
	status   sla.Status
	byTicket map[string]sla.Status
	err      error
	calls    int
}

func (s *stubEvaluator) outcome(ticket *domain.Ticket) sla.Outcome {
	status := s.status
	if status == "" {
		status = sla.StatusMet
	}
	if pinned, ok := s.byTicket[ticket.ID]; ok {
		status = pinned
	}
	due := ticket.CreatedAt.Add(4 * time.Hour)
	return sla.Outcome{
		TicketID:      ticket.ID,
		SLAHoursTotal: 4,
		SLASource:     "default (4h)",
		Tier:          sla.TierDefault,
		Status:        status,
		DueAt:         &due,
		EvaluatedAt:   testNow,
	}
}

func (s *stubEvaluator) Evaluate(_ context.Context, ticket *domain.Ticket) (sla.Outcome, error) {
	s.calls++
	if s.err != nil {
		return sla.Outcome{}, s.err
	}
	return s.outcome(ticket), nil
}

func (s *stubEvaluator) EvaluateAll(_ context.Context, tickets []domain.Ticket) ([]sla.Outcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]sla.Outcome, len(tickets))
	for i := range tickets {
		out[i] = s.outcome(&tickets[i])
	}
	return out, nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	out := make([]events.EventType, len(d.published))
	for i, e := range d.published {
		out[i] = e.Type
	}
	return out
}

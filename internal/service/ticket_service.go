package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SLAEvaluator is the subset of *sla.Evaluator used by services.
type SLAEvaluator interface {
	Evaluate(ctx context.Context, ticket *domain.Ticket) (sla.Outcome, error)
	EvaluateAll(ctx context.Context, tickets []domain.Ticket) ([]sla.Outcome, error)
}

// TicketView pairs a ticket with its evaluated SLA. SLA is nil when the
// configuration could not be read.
type TicketView struct {
	Ticket domain.Ticket
	SLA    *sla.Outcome
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	departments repository.DepartmentRepository
	categories  repository.CategoryRepository
	priorities  repository.PriorityRepository
	staff       repository.StaffRepository
	history     repository.TicketHistoryRepository
	evaluator   SLAEvaluator
	dispatcher  events.Dispatcher
	clock       sla.Clock
	scanBatch   int
	logger      *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	DepartmentRepo repository.DepartmentRepository
	CategoryRepo   repository.CategoryRepository
	PriorityRepo   repository.PriorityRepository
	StaffRepo      repository.StaffRepository
	HistoryRepo    repository.TicketHistoryRepository
	Evaluator      SLAEvaluator
	Dispatcher     events.Dispatcher
	Clock          sla.Clock
	// ScanBatchSize is the page size used when filtering by SLA status.
	ScanBatchSize  int
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	DepartmentID *string
	CategoryID   *string
	Title        string
	Description  string
	Priority     string
}

// TicketUserFilter describes end-user listing filters.
type TicketUserFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.Priority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketStaffFilter describes staff listing filters.
type TicketStaffFilter struct {
	DepartmentID *string
	CategoryID   *string
	AssigneeID   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.Priority
	SLAStatuses  []sla.Status
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock{}
	}
	scanBatch := deps.ScanBatchSize
	if scanBatch <= 0 {
		scanBatch = 500
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		departments: deps.DepartmentRepo,
		categories:  deps.CategoryRepo,
		priorities:  deps.PriorityRepo,
		staff:       deps.StaffRepo,
		history:     deps.HistoryRepo,
		evaluator:   deps.Evaluator,
		dispatcher:  deps.Dispatcher,
		clock:       clock,
		scanBatch:   scanBatch,
		logger:      logger,
	}
}

// CreateTicket creates a ticket for a user. The requester's department is
// used when none is given.
func (s *TicketService) CreateTicket(ctx context.Context, user *domain.User, input TicketCreateInput) (*TicketView, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}

	priority := domain.PriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		p, err := s.validatePriority(ctx, input.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}

	departmentID := input.DepartmentID
	if departmentID == nil {
		departmentID = user.DepartmentID
	}
	if departmentID != nil {
		dept, err := s.departments.GetByID(ctx, *departmentID)
		if err != nil {
			return nil, err
		}
		if !dept.IsActive {
			return nil, apperrors.NewValidationError("department inactive", map[string]any{"department_id": dept.ID})
		}
	}
	if input.CategoryID != nil {
		if err := s.validateCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		ExternalKey:  generateTicketKey(),
		RequesterID:  user.ID,
		DepartmentID: departmentID,
		CategoryID:   input.CategoryID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.TicketStatusOpen,
		Priority:     priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventTicketCreated, ticket.ID, userActor(user.ID), events.TicketCreatedPayload{
		DepartmentID: ticket.DepartmentID,
		CategoryID:   ticket.CategoryID,
		Priority:     ticket.Priority,
		Title:        ticket.Title,
	})
	return s.view(ctx, ticket), nil
}

// ListUserTickets returns paginated tickets for a requester.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, filter TicketUserFilter) ([]TicketView, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		RequesterID: &userID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, err
	}
	views, _ := s.views(ctx, tickets)
	return views, nil
}

// GetTicketForUser fetches a ticket ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID, ticketID string) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.view(ctx, ticket), nil
}

// ListStaffTickets returns tickets accessible to staff. Filtering by SLA
// status requires the SLA configuration to be readable.
func (s *TicketService) ListStaffTickets(ctx context.Context, staff *domain.StaffMember, filter TicketStaffFilter) ([]TicketView, error) {
	if staff == nil {
		return nil, apperrors.NewForbidden("staff required")
	}
	repoFilter := repository.TicketFilter{
		DepartmentID: filter.DepartmentID,
		CategoryID:   filter.CategoryID,
		AssigneeID:   filter.AssigneeID,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		SearchTerm:   filter.SearchTerm,
		CreatedFrom:  filter.CreatedFrom,
		CreatedTo:    filter.CreatedTo,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	if !s.applyStaffScope(&repoFilter, staff) {
		return []TicketView{}, nil
	}
	if len(filter.SLAStatuses) > 0 {
		return s.listBySLAStatus(ctx, repoFilter, filter.SLAStatuses)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	views, _ := s.views(ctx, tickets)
	return views, nil
}

// listBySLAStatus walks the scoped tickets in batches and pages over the
// matches, since SLA status is computed and cannot be pushed into SQL.
func (s *TicketService) listBySLAStatus(ctx context.Context, repoFilter repository.TicketFilter, statuses []sla.Status) ([]TicketView, error) {
	wanted := make(map[sla.Status]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}
	limit := repoFilter.Limit
	if limit <= 0 {
		limit = defaultStaffTicketLimit
	}
	skip := max(repoFilter.Offset, 0)

	matches := make([]TicketView, 0, limit)
	for offset := 0; offset < maxSLAFilterScan; offset += s.scanBatch {
		repoFilter.Limit = s.scanBatch
		repoFilter.Offset = offset
		page, err := s.tickets.ListWithFilter(ctx, repoFilter)
		if err != nil {
			return nil, err
		}
		views, err := s.views(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			if _, ok := wanted[v.SLA.Status]; !ok {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			matches = append(matches, v)
			if len(matches) == limit {
				return matches, nil
			}
		}
		if len(page) < s.scanBatch {
			return matches, nil
		}
	}
	return nil, apperrors.NewValidationError("too many tickets to filter by sla_status, narrow the filter", map[string]any{
		"max_scanned": maxSLAFilterScan,
	})
}

// GetTicketForStaff fetches ticket ensuring staff access.
func (s *TicketService) GetTicketForStaff(ctx context.Context, staff *domain.StaffMember, ticketID string) (*TicketView, error) {
	ticket, err := s.loadForStaff(ctx, staff, ticketID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, ticket), nil
}

// UpdateStatus moves a ticket through its lifecycle. Entering a terminal
// status stamps ResolvedAt once; reopening clears it.
func (s *TicketService) UpdateStatus(ctx context.Context, staff *domain.StaffMember, ticketID, rawStatus, comment string) (*TicketView, error) {
	newStatus, err := domain.ParseTicketStatus(rawStatus)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "status"})
	}
	ticket, err := s.loadForStaff(ctx, staff, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus.IsTerminal() {
		if ticket.ResolvedAt == nil {
			now := s.clock.Now()
			ticket.ResolvedAt = &now
		}
	} else {
		ticket.ResolvedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordChange(ctx, staff.ID, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus, "comment": comment},
	); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventTicketStatusChanged, ticket.ID, staffActor(staff.ID), events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   comment,
	})
	return s.view(ctx, ticket), nil
}

// UpdatePriority changes ticket priority by staff.
func (s *TicketService) UpdatePriority(ctx context.Context, staff *domain.StaffMember, ticketID, rawPriority string) (*TicketView, error) {
	newPriority, err := s.validatePriority(ctx, rawPriority)
	if err != nil {
		return nil, err
	}
	ticket, err := s.loadForStaff(ctx, staff, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	if oldPriority == newPriority {
		return s.view(ctx, ticket), nil
	}
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordChange(ctx, staff.ID, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority},
	); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventTicketPriorityChanged, ticket.ID, staffActor(staff.ID), events.TicketPriorityChangedPayload{
		OldPriority: oldPriority,
		NewPriority: newPriority,
	})
	return s.view(ctx, ticket), nil
}

// UpdateCategory sets or clears the ticket category.
func (s *TicketService) UpdateCategory(ctx context.Context, staff *domain.StaffMember, ticketID string, categoryID *string) (*TicketView, error) {
	if categoryID != nil {
		if err := s.validateCategory(ctx, *categoryID); err != nil {
			return nil, err
		}
	}
	ticket, err := s.loadForStaff(ctx, staff, ticketID)
	if err != nil {
		return nil, err
	}
	oldCategory := ticket.CategoryID
	if equalOptional(oldCategory, categoryID) {
		return s.view(ctx, ticket), nil
	}
	ticket.CategoryID = categoryID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordChange(ctx, staff.ID, ticket.ID, domain.ChangeTypeCategory,
		map[string]any{"category_id": oldCategory},
		map[string]any{"category_id": categoryID},
	); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventTicketCategoryChanged, ticket.ID, staffActor(staff.ID), events.TicketCategoryChangedPayload{
		OldCategoryID: oldCategory,
		NewCategoryID: categoryID,
	})
	return s.view(ctx, ticket), nil
}

// AssignTicket sets or clears the assignee. Technicians may only assign
// tickets to themselves.
func (s *TicketService) AssignTicket(ctx context.Context, staff *domain.StaffMember, ticketID string, assigneeID *string) (*TicketView, error) {
	ticket, err := s.loadForStaff(ctx, staff, ticketID)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if staff.Role == domain.StaffRoleTechnician && *assigneeID != staff.ID {
			return nil, apperrors.NewForbidden("technicians can only assign themselves")
		}
		assignee, err := s.staff.GetByID(ctx, *assigneeID)
		if err != nil {
			return nil, err
		}
		if !assignee.Active {
			return nil, apperrors.NewValidationError("assignee inactive", map[string]any{"assignee_staff_id": assignee.ID})
		}
		if !assignee.CoversDepartment(ticket.DepartmentID) {
			return nil, apperrors.NewValidationError("assignee not part of ticket department", map[string]any{"assignee_staff_id": assignee.ID})
		}
	} else if staff.Role == domain.StaffRoleTechnician && (ticket.AssigneeID == nil || *ticket.AssigneeID != staff.ID) {
		return nil, apperrors.NewForbidden("technicians can only unassign themselves")
	}

	oldAssignee := ticket.AssigneeID
	if equalOptional(oldAssignee, assigneeID) {
		return s.view(ctx, ticket), nil
	}
	ticket.AssigneeID = assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordChange(ctx, staff.ID, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assignee_staff_id": oldAssignee},
		map[string]any{"assignee_staff_id": assigneeID},
	); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventTicketAssigned, ticket.ID, staffActor(staff.ID), events.TicketAssignedPayload{
		AssigneeStaffID: assigneeID,
	})
	return s.view(ctx, ticket), nil
}

// ListHistoryForStaff returns history entries for staff.
func (s *TicketService) ListHistoryForStaff(ctx context.Context, staff *domain.StaffMember, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.loadForStaff(ctx, staff, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	return s.history.ListByTicket(ctx, ticketID)
}

// Evaluate computes the SLA of an ad-hoc ticket snapshot.
func (s *TicketService) Evaluate(ctx context.Context, ticket *domain.Ticket) (sla.Outcome, error) {
	if s.evaluator == nil {
		return sla.Outcome{}, apperrors.NewSLAUnavailable(errors.New("evaluator not configured"))
	}
	return s.evaluator.Evaluate(ctx, ticket)
}

func (s *TicketService) loadForStaff(ctx context.Context, staff *domain.StaffMember, ticketID string) (*domain.Ticket, error) {
	if staff == nil {
		return nil, apperrors.NewForbidden("staff required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !staffCanAccessTicket(staff, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func (s *TicketService) view(ctx context.Context, ticket *domain.Ticket) *TicketView {
	v := &TicketView{Ticket: *ticket}
	if s.evaluator == nil {
		return v
	}
	outcome, err := s.evaluator.Evaluate(ctx, ticket)
	if err != nil {
		s.logger.Warn("rendering ticket without sla", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return v
	}
	v.SLA = &outcome
	return v
}

// views evaluates a page of tickets; on failure the views are returned
// without SLA together with the error.
func (s *TicketService) views(ctx context.Context, tickets []domain.Ticket) ([]TicketView, error) {
	result := make([]TicketView, len(tickets))
	for i := range tickets {
		result[i].Ticket = tickets[i]
	}
	if s.evaluator == nil || len(tickets) == 0 {
		if s.evaluator == nil && len(tickets) > 0 {
			return result, apperrors.NewSLAUnavailable(errors.New("evaluator not configured"))
		}
		return result, nil
	}
	outcomes, err := s.evaluator.EvaluateAll(ctx, tickets)
	if err != nil {
		s.logger.Warn("rendering tickets without sla", zap.Int("count", len(tickets)), zap.Error(err))
		return result, err
	}
	for i := range outcomes {
		result[i].SLA = &outcomes[i]
	}
	return result, nil
}

func (s *TicketService) validatePriority(ctx context.Context, raw string) (domain.Priority, error) {
	p, err := domain.ParsePriority(raw)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error(), map[string]any{"field": "priority"})
	}
	if s.priorities == nil {
		return p, nil
	}
	cfg, err := s.priorities.FindByCode(ctx, p)
	if err != nil {
		return "", err
	}
	if cfg == nil {
		return "", apperrors.NewValidationError("unknown priority", map[string]any{"priority": p})
	}
	return p, nil
}

func (s *TicketService) validateCategory(ctx context.Context, id string) error {
	if s.categories == nil {
		return nil
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return apperrors.NewValidationError("unknown category", map[string]any{"category_id": id})
	}
	if !category.IsActive {
		return apperrors.NewValidationError("category inactive", map[string]any{"category_id": id})
	}
	return nil
}

// applyStaffScope restricts non-admins to their department. It returns false
// when the staff member can see nothing.
func (s *TicketService) applyStaffScope(filter *repository.TicketFilter, staff *domain.StaffMember) bool {
	if staff.IsAdmin() {
		return true
	}
	if staff.DepartmentID == nil {
		return false
	}
	if filter.DepartmentID != nil && !staff.CoversDepartment(filter.DepartmentID) {
		return false
	}
	filter.DepartmentID = staff.DepartmentID
	return true
}

func staffCanAccessTicket(staff *domain.StaffMember, ticket *domain.Ticket) bool {
	if staff == nil {
		return false
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID == staff.ID {
		return true
	}
	return staff.CoversDepartment(ticket.DepartmentID)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, ticketID string, actor events.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, ticketID, actor, s.clock.Now(), payload))
}

func (s *TicketService) recordChange(ctx context.Context, staffID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.ActorTypeStaff,
		ChangedByID:   &staffID,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	return s.history.Create(ctx, entry)
}

func userActor(userID string) events.Actor {
	return events.Actor{
		Type:   domain.ActorTypeUser,
		UserID: &userID,
	}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{
		Type:    domain.ActorTypeStaff,
		StaffID: &staffID,
	}
}

const (
	defaultStaffTicketLimit = 20
	maxSLAFilterScan        = 10000
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusOnHold:     {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress, domain.TicketStatusOpen},
	domain.TicketStatusClosed:     {},
}

// isValidTransition consults the built-in table. Custom status codes are
// treated as working states reachable from any non-terminal status.
func isValidTransition(current, next domain.TicketStatus) bool {
	if current == next {
		return false
	}
	allowed, known := allowedTransitions[current]
	if !known {
		return true
	}
	if _, nextKnown := allowedTransitions[next]; !nextKnown {
		return !current.IsTerminal()
	}
	for _, candidate := range allowed {
		if candidate == next {
			return true
		}
	}
	return false
}

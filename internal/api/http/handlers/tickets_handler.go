package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler serves end-user ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// CreateTicket handles POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.CreateTicketRequest](c)
	if err != nil {
		return err
	}
	view, err := h.tickets.CreateTicket(c.UserContext(), user, service.TicketCreateInput{
		DepartmentID: req.DepartmentID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(view)})
}

// ListTickets handles GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	views, err := h.tickets.ListUserTickets(c.UserContext(), user.ID, parseUserTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(views)})
}

// GetTicket handles GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	view, err := h.tickets.GetTicketForUser(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

func parseUserTicketQuery(c *fiber.Ctx) service.TicketUserFilter {
	filter := service.TicketUserFilter{
		Statuses:    parseStatuses(c.Query("status")),
		Priorities:  parsePriorities(c.Query("priority")),
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
	}
	filter.Offset, filter.Limit = pageWindow(c, defaultTicketPageSize)
	return filter
}

func ticketSummary(view *service.TicketView) dto.TicketSummary {
	t := view.Ticket
	return dto.TicketSummary{
		ID:           t.ID,
		ExternalKey:  t.ExternalKey,
		DepartmentID: t.DepartmentID,
		CategoryID:   t.CategoryID,
		AssigneeID:   t.AssigneeID,
		Title:        t.Title,
		Status:       t.Status,
		Priority:     t.Priority,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ResolvedAt:   t.ResolvedAt,
		SLA:          dto.NewSLAResponse(view.SLA),
	}
}

func ticketSummaries(views []service.TicketView) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(views))
	for i := range views {
		items = append(items, ticketSummary(&views[i]))
	}
	return items
}

func ticketDetail(view *service.TicketView) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(view),
		RequesterID:   view.Ticket.RequesterID,
		Description:   view.Ticket.Description,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

func ptr[T any](v T) *T { return &v }

type stubUsers struct{ users map[string]domain.User }

func (s *stubUsers) Create(context.Context, *domain.User) error { return nil }
func (s *stubUsers) Update(context.Context, *domain.User) error { return nil }
func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}
func (s *stubUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

type stubStaff struct{ staff map[string]domain.StaffMember }

func (s *stubStaff) Create(context.Context, *domain.StaffMember) error { return nil }
func (s *stubStaff) Update(context.Context, *domain.StaffMember) error { return nil }
func (s *stubStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	m, ok := s.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}
func (s *stubStaff) GetByEmail(context.Context, string) (*domain.StaffMember, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubStaff) List(context.Context, repository.StaffFilter) ([]domain.StaffMember, error) {
	return nil, nil
}

type stubTickets struct{ tickets []domain.Ticket }

func (s *stubTickets) Create(context.Context, *domain.Ticket) error { return nil }
func (s *stubTickets) Update(context.Context, *domain.Ticket) error { return nil }
func (s *stubTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	for _, t := range s.tickets {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}
func (s *stubTickets) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets, nil
}

type switchableRules struct {
	rules []domain.SLARule
	err   error
}

func (s *switchableRules) ListActiveRules(context.Context) ([]domain.SLARule, error) {
	return s.rules, s.err
}

type testServer struct {
	app    *fiber.App
	rules  *switchableRules
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	authCfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}
	users := &stubUsers{users: map[string]domain.User{"user-1": {ID: "user-1", Name: "Ada", Status: domain.UserStatusActive}}}
	staff := &stubStaff{staff: map[string]domain.StaffMember{
		"tech-1": {ID: "tech-1", Role: domain.StaffRoleTechnician, DepartmentID: ptr("it"), Active: true},
	}}
	tickets := &stubTickets{tickets: []domain.Ticket{{
		ID:           "t1",
		ExternalKey:  "TCK-00000001",
		RequesterID:  "user-1",
		DepartmentID: ptr("it"),
		Title:        "Laptop will not boot",
		Status:       domain.TicketStatusOpen,
		Priority:     domain.PriorityCritical,
		CreatedAt:    time.Now().Add(-time.Hour),
	}}}
	rules := &switchableRules{rules: []domain.SLARule{
		{ID: "r1", Name: "Critical", IsActive: true, Priority: ptr(domain.PriorityCritical), TimeHours: 4},
	}}

	evaluator := sla.NewEvaluator(sla.Dependencies{Rules: rules}, sla.Options{DefaultHours: 4, AtRiskRatio: 0.2})
	authService := service.NewAuthService(authCfg, service.AuthDependencies{UserRepo: users, StaffRepo: staff})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		StaffRepo:  staff,
		Evaluator:  evaluator,
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:       handlers.NewHealthHandler("helpdesk-service", "test", nil),
		Users:        handlers.NewUsersHandler(authService),
		Staff:        handlers.NewStaffHandler(authService, service.NewStaffService(authCfg, service.OrgDependencies{StaffRepo: staff})),
		Tickets:      handlers.NewTicketsHandler(ticketService),
		StaffTickets: handlers.NewStaffTicketsHandler(ticketService),
		SLA:          handlers.NewSLAHandler(service.NewSLAConfigService(service.SLAConfigDependencies{}), ticketService),
		Reports: handlers.NewReportsHandler(service.NewSLAReportService(service.SLAReportDependencies{
			TicketRepo: tickets,
			Evaluator:  evaluator,
		})),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users, staff),
	})
	return &testServer{app: app, rules: rules, tokens: authService.TokenManager()}
}

func (s *testServer) token(t *testing.T, subjectID string, subject domain.SubjectType) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(subjectID, subject, nil)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, "GET", "/health/live", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
}

func TestTicketView_EmbedsSLA(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "user-1", domain.SubjectTypeUser)

	status, body := srv.do(t, "GET", "/tickets/t1", token, "")
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	slaBody := data["sla"].(map[string]any)
	assert.Equal(t, true, slaBody["available"])
	assert.Equal(t, "rule: Critical", slaBody["sla_source"])
	assert.Equal(t, "met", slaBody["status"])
}

func TestTicketView_SLAUnavailable(t *testing.T) {
	srv := newTestServer(t)
	srv.rules.err = errors.New("connection reset")
	token := srv.token(t, "user-1", domain.SubjectTypeUser)

	status, body := srv.do(t, "GET", "/tickets/t1", token, "")
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, map[string]any{"available": false}, data["sla"])

	staffToken := srv.token(t, "tech-1", domain.SubjectTypeStaff)
	status, body = srv.do(t, "GET", "/staff/tickets?sla_status=violated", staffToken, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "SLA_UNAVAILABLE", errorCode(body))

	status, body = srv.do(t, "GET", "/staff/tickets", staffToken, "")
	require.Equal(t, fiber.StatusOK, status)
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"available": false}, rows[0].(map[string]any)["sla"])
}

func TestAuthorizationErrors(t *testing.T) {
	srv := newTestServer(t)
	userToken := srv.token(t, "user-1", domain.SubjectTypeUser)
	staffToken := srv.token(t, "tech-1", domain.SubjectTypeStaff)

	status, body := srv.do(t, "GET", "/tickets/t1", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = srv.do(t, "GET", "/tickets/t1", "not-a-jwt", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = srv.do(t, "GET", "/staff/tickets", userToken, "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.do(t, "GET", "/admin/sla/rules", staffToken, "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.do(t, "GET", "/staff/reports/sla", staffToken, "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}

func TestEvaluatePreview(t *testing.T) {
	srv := newTestServer(t)
	staffToken := srv.token(t, "tech-1", domain.SubjectTypeStaff)
	createdAt := time.Now().Add(-198 * time.Minute).UTC().Format(time.RFC3339Nano)

	status, body := srv.do(t, "POST", "/staff/sla/evaluate", staffToken,
		`{"priority":"critical","created_at":"`+createdAt+`"}`)
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "rule: Critical", data["sla_source"])
	assert.Equal(t, "at_risk", data["status"])
	assert.InDelta(t, 0.7, data["hours_remaining"], 0.011)

	status, body = srv.do(t, "POST", "/staff/sla/evaluate", staffToken, `{"priority":"critical"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = srv.do(t, "POST", "/staff/sla/evaluate", staffToken,
		`{"priority":"critical","category_id":"not-a-uuid","created_at":"`+createdAt+`"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestUnknownRouteRendersErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, "GET", "/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

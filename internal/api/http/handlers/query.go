package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultTicketPageSize = 20
	defaultStaffPageSize  = 50
	maxPageSize           = 200
)

// pageWindow reads page and page_size (1-based) into an offset and limit.
// Non-positive values fall back to the defaults; page_size is capped.
func pageWindow(c *fiber.Ctx, defaultSize int) (offset, limit int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("page_size", defaultSize)
	if limit < 1 {
		limit = defaultSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return (page - 1) * limit, limit
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseStatuses drops unknown values.
func parseStatuses(raw string) []domain.TicketStatus {
	var out []domain.TicketStatus
	for _, part := range splitList(raw) {
		if st, err := domain.ParseTicketStatus(part); err == nil {
			out = append(out, st)
		}
	}
	return out
}

func parsePriorities(raw string) []domain.Priority {
	var out []domain.Priority
	for _, part := range splitList(raw) {
		if p, err := domain.ParsePriority(part); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// parseTime accepts RFC 3339 timestamps or plain dates (UTC midnight).
func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, val); err == nil {
			return &t
		}
	}
	return nil
}

// optionalID trims an optional identifier and rejects anything that is not a
// UUID. Blank values mean unset.
func optionalID(raw *string, field string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+field, map[string]any{"field": field})
	}
	value := id.String()
	return &value, nil
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestPageWindow(t *testing.T) {
	cases := []struct {
		query      string
		wantOffset int
		wantLimit  int
	}{
		{"", 0, 20},
		{"?page=3&page_size=10", 20, 10},
		{"?page=0&page_size=-5", 0, 20},
		{"?page=2&page_size=1000", 200, 200},
		{"?page=abc", 0, 20},
	}
	for _, tc := range cases {
		app := fiber.New()
		var offset, limit int
		app.Get("/", func(c *fiber.Ctx) error {
			offset, limit = pageWindow(c, defaultTicketPageSize)
			return nil
		})
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tc.query, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.wantOffset, offset, tc.query)
		assert.Equal(t, tc.wantLimit, limit, tc.query)
	}
}

func TestParseQueryLists(t *testing.T) {
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusResolved},
		parseStatuses("open, bogus ,resolved,"))
	assert.Equal(t, []domain.Priority{domain.PriorityCritical}, parsePriorities("CRITICAL,not valid"))
	assert.Nil(t, splitList(" , "))
}

func TestParseTime(t *testing.T) {
	assert.Nil(t, parseTime(""))
	assert.Nil(t, parseTime("yesterday"))

	day := parseTime("2024-03-04")
	require.NotNil(t, day)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), *day)

	stamp := parseTime("2024-03-04T10:30:00Z")
	require.NotNil(t, stamp)
	assert.Equal(t, 10, stamp.Hour())
}

func TestOptionalID(t *testing.T) {
	id, err := optionalID(nil, "category_id")
	require.NoError(t, err)
	assert.Nil(t, id)

	blank := "  "
	id, err = optionalID(&blank, "category_id")
	require.NoError(t, err)
	assert.Nil(t, id)

	raw := " 6F9619FF-8B86-D011-B42D-00C04FC964FF "
	id, err = optionalID(&raw, "category_id")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", *id)

	bad := "hardware"
	_, err = optionalID(&bad, "category_id")
	require.Error(t, err)
	mapped := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", mapped.Code)
	assert.Equal(t, map[string]any{"field": "category_id"}, mapped.Details)
}

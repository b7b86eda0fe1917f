package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves SLA reports.
type ReportsHandler struct {
	reports *service.SLAReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.SLAReportService) *ReportsHandler {
	return &ReportsHandler{reports: reportService}
}

// SLAReport GET /staff/reports/sla.
func (h *ReportsHandler) SLAReport(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	report, err := h.reports.Generate(c.UserContext(), staff, parseReportFilter(c))
	if err != nil {
		return err
	}

	resp := dto.SLAReportResponse{
		GeneratedAt:       report.GeneratedAt,
		TotalTickets:      report.TotalTickets,
		CompliancePercent: dto.Round2(report.CompliancePercent),
		ByStatus:          map[string]int{},
		ByTier:            map[string]int{},
		ByPriority:        map[string]map[string]int{},
		Truncated:         report.Truncated,
	}
	for st, n := range report.ByStatus {
		resp.ByStatus[string(st)] = n
	}
	for tier, n := range report.ByTier {
		resp.ByTier[string(tier)] = n
	}
	for p, counts := range report.ByPriority {
		inner := make(map[string]int, len(counts))
		for st, n := range counts {
			inner[string(st)] = n
		}
		resp.ByPriority[string(p)] = inner
	}
	return c.JSON(fiber.Map{"data": resp})
}

// ExportSLAReport GET /staff/reports/sla/export.
func (h *ReportsHandler) ExportSLAReport(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	data, filename, err := h.reports.ExportXLSX(c.UserContext(), staff, parseReportFilter(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

func parseReportFilter(c *fiber.Ctx) service.SLAReportFilter {
	filter := service.SLAReportFilter{
		CreatedFrom:     parseTime(c.Query("created_from")),
		CreatedTo:       parseTime(c.Query("created_to")),
		IncludeResolved: c.QueryBool("include_resolved"),
	}
	if deptID := c.Query("department_id"); deptID != "" {
		filter.DepartmentID = &deptID
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	return filter
}

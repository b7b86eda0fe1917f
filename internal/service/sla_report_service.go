package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const maxReportTickets = 10000

// SLAReportFilter scopes a report.
type SLAReportFilter struct {
	DepartmentID    *string
	CategoryID      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	IncludeResolved bool
}

// SLAReportRow is one evaluated ticket.
type SLAReportRow struct {
	Ticket  domain.Ticket
	Outcome sla.Outcome
}

// SLAReport aggregates evaluated outcomes.
type SLAReport struct {
	GeneratedAt       time.Time
	TotalTickets      int
	ByStatus          map[sla.Status]int
	ByTier            map[sla.Tier]int
	ByPriority        map[domain.Priority]map[sla.Status]int
	CompliancePercent float64
	Truncated         bool
	Rows              []SLAReportRow
}

// SLAReportService builds compliance reports and spreadsheet exports.
type SLAReportService struct {
	tickets   repository.TicketRepository
	evaluator SLAEvaluator
	clock     sla.Clock
	batchSize int
	logger    *zap.Logger
}

// SLAReportDependencies bundles collaborators for reporting.
type SLAReportDependencies struct {
	TicketRepo repository.TicketRepository
	Evaluator  SLAEvaluator
	Clock      sla.Clock
	BatchSize  int
	Logger     *zap.Logger
}

// NewSLAReportService constructs the service.
func NewSLAReportService(deps SLAReportDependencies) *SLAReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = sla.SystemClock{}
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &SLAReportService{
		tickets:   deps.TicketRepo,
		evaluator: deps.Evaluator,
		clock:     clock,
		batchSize: batch,
		logger:    logger,
	}
}

// Generate evaluates every ticket in scope. Non-admin staff are limited to
// their department.
func (s *SLAReportService) Generate(ctx context.Context, staff *domain.StaffMember, filter SLAReportFilter) (*SLAReport, error) {
	if staff == nil {
		return nil, apperrors.NewForbidden("staff required")
	}
	if staff.Role == domain.StaffRoleTechnician {
		return nil, apperrors.NewForbidden("supervisor or admin role required")
	}
	repoFilter := repository.TicketFilter{
		CategoryID:  filter.CategoryID,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		OpenOnly:    !filter.IncludeResolved,
		OldestFirst: true,
	}
	repoFilter.DepartmentID = filter.DepartmentID
	if !staff.IsAdmin() {
		if staff.DepartmentID == nil {
			return nil, apperrors.NewForbidden("staff has no department")
		}
		repoFilter.DepartmentID = staff.DepartmentID
	}

	report := &SLAReport{
		GeneratedAt: s.clock.Now(),
		ByStatus:    map[sla.Status]int{},
		ByTier:      map[sla.Tier]int{},
		ByPriority:  map[domain.Priority]map[sla.Status]int{},
	}

	for offset := 0; ; offset += s.batchSize {
		repoFilter.Limit = s.batchSize
		repoFilter.Offset = offset
		page, err := s.tickets.ListWithFilter(ctx, repoFilter)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		outcomes, err := s.evaluator.EvaluateAll(ctx, page)
		if err != nil {
			return nil, err
		}
		for i := range page {
			report.add(page[i], outcomes[i])
		}
		if len(report.Rows) >= maxReportTickets {
			report.Truncated = true
			break
		}
		if len(page) < s.batchSize {
			break
		}
	}

	report.CompliancePercent = 100
	if report.TotalTickets > 0 {
		report.CompliancePercent = float64(report.ByStatus[sla.StatusMet]) / float64(report.TotalTickets) * 100
	}
	s.logger.Debug("sla report generated",
		zap.Int("tickets", report.TotalTickets),
		zap.Bool("truncated", report.Truncated),
	)
	return report, nil
}

func (r *SLAReport) add(ticket domain.Ticket, outcome sla.Outcome) {
	r.TotalTickets++
	r.ByStatus[outcome.Status]++
	if outcome.Tier != "" {
		r.ByTier[outcome.Tier]++
	}
	perPriority, ok := r.ByPriority[ticket.Priority]
	if !ok {
		perPriority = map[sla.Status]int{}
		r.ByPriority[ticket.Priority] = perPriority
	}
	perPriority[outcome.Status]++
	r.Rows = append(r.Rows, SLAReportRow{Ticket: ticket, Outcome: outcome})
}

var exportColumns = []string{
	"Ticket", "Title", "Priority", "Status", "SLA Status", "SLA Source",
	"SLA Hours", "Elapsed Hours", "Remaining Hours", "Due At", "Created At",
}

// ExportXLSX renders the report rows as a spreadsheet.
func (s *SLAReportService) ExportXLSX(ctx context.Context, staff *domain.StaffMember, filter SLAReportFilter) ([]byte, string, error) {
	report, err := s.Generate(ctx, staff, filter)
	if err != nil {
		return nil, "", err
	}
	data, err := renderReportXLSX(report)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	filename := fmt.Sprintf("sla-report-%s.xlsx", report.GeneratedAt.UTC().Format("20060102-150405"))
	return data, filename, nil
}

func renderReportXLSX(report *SLAReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "SLA"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	hoursStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, err
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for r, row := range report.Rows {
		due := ""
		if row.Outcome.DueAt != nil {
			due = row.Outcome.DueAt.UTC().Format("2006-01-02 15:04:05")
		}
		values := []any{
			row.Ticket.ExternalKey,
			row.Ticket.Title,
			string(row.Ticket.Priority),
			string(row.Ticket.Status),
			string(row.Outcome.Status),
			row.Outcome.SLASource,
			row.Outcome.SLAHoursTotal,
			row.Outcome.ElapsedHours,
			row.Outcome.HoursRemaining,
			due,
			row.Ticket.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	if n := len(report.Rows); n > 0 {
		from, _ := excelize.CoordinatesToCellName(7, 2)
		to, _ := excelize.CoordinatesToCellName(9, n+1)
		f.SetCellStyle(sheet, from, to, hoursStyle)
	}

	for i := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 16)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

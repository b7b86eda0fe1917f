package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// BatchEvaluator evaluates a page of tickets.
type BatchEvaluator interface {
	EvaluateAll(ctx context.Context, tickets []domain.Ticket) ([]sla.Outcome, error)
}

// OpenTicketGauge receives the per-status counts of a completed sweep.
type OpenTicketGauge interface {
	SetOpenTickets(counts map[sla.Status]int)
}

// SLAMonitorConfig tunes the sweep.
type SLAMonitorConfig struct {
	Schedule  string
	BatchSize int
	Timeout   time.Duration
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Evaluated int
	Counts    map[sla.Status]int
	Published int
}

// SLAMonitor periodically evaluates open tickets and raises at-risk and
// violated alerts once per ticket, status and due time.
type SLAMonitor struct {
	tickets    repository.TicketRepository
	evaluator  BatchEvaluator
	dispatcher events.Dispatcher
	deduper    AlertDeduper
	gauge      OpenTicketGauge
	cfg        SLAMonitorConfig
	logger     *zap.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
}

// SLAMonitorDependencies bundles collaborators of the monitor.
type SLAMonitorDependencies struct {
	TicketRepo repository.TicketRepository
	Evaluator  BatchEvaluator
	Dispatcher events.Dispatcher
	Deduper    AlertDeduper
	Gauge      OpenTicketGauge
	Logger     *zap.Logger
}

// NewSLAMonitor builds the monitor. A nil deduper keeps alert keys in memory
// for 24 hours.
func NewSLAMonitor(deps SLAMonitorDependencies, cfg SLAMonitorConfig) *SLAMonitor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	deduper := deps.Deduper
	if deduper == nil {
		deduper = NewMemoryAlertDeduper(24 * time.Hour)
	}
	return &SLAMonitor{
		tickets:    deps.TicketRepo,
		evaluator:  deps.Evaluator,
		dispatcher: deps.Dispatcher,
		deduper:    deduper,
		gauge:      deps.Gauge,
		cfg:        cfg,
		logger:     logger.Named("sla_monitor"),
	}
}

// Start schedules the sweep. Overlapping runs are skipped.
func (m *SLAMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler != nil {
		return nil
	}
	log := cronLogger{m.logger.Sugar()}
	scheduler := cron.New(cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)))
	if _, err := scheduler.AddFunc(m.cfg.Schedule, m.runScheduled); err != nil {
		return fmt.Errorf("invalid sla sweep schedule %q: %w", m.cfg.Schedule, err)
	}
	scheduler.Start()
	m.scheduler = scheduler
	m.logger.Info("sla monitor started", zap.String("schedule", m.cfg.Schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep.
func (m *SLAMonitor) Stop(ctx context.Context) {
	m.mu.Lock()
	scheduler := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()
	if scheduler == nil {
		return
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		m.logger.Warn("sla monitor stop timed out")
	}
}

func (m *SLAMonitor) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()
	result, err := m.Sweep(ctx)
	if err != nil {
		m.logger.Error("sla sweep failed", zap.Error(err))
		return
	}
	m.logger.Info("sla sweep completed",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("at_risk", result.Counts[sla.StatusAtRisk]),
		zap.Int("violated", result.Counts[sla.StatusViolated]),
		zap.Int("alerts", result.Published),
	)
}

// Sweep evaluates every open ticket once. The gauge is only updated when
// the whole sweep succeeds.
func (m *SLAMonitor) Sweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{Counts: map[sla.Status]int{
		sla.StatusMet:      0,
		sla.StatusAtRisk:   0,
		sla.StatusViolated: 0,
	}}

	for offset := 0; ; offset += m.cfg.BatchSize {
		page, err := m.tickets.ListWithFilter(ctx, repository.TicketFilter{
			OpenOnly:    true,
			OldestFirst: true,
			Limit:       m.cfg.BatchSize,
			Offset:      offset,
		})
		if err != nil {
			return result, err
		}
		if len(page) == 0 {
			break
		}
		outcomes, err := m.evaluator.EvaluateAll(ctx, page)
		if err != nil {
			return result, err
		}
		for i := range page {
			outcome := outcomes[i]
			result.Evaluated++
			result.Counts[outcome.Status]++
			published, err := m.alert(ctx, &page[i], outcome)
			if err != nil {
				return result, err
			}
			if published {
				result.Published++
			}
		}
		if len(page) < m.cfg.BatchSize {
			break
		}
	}

	if m.gauge != nil {
		m.gauge.SetOpenTickets(result.Counts)
	}
	return result, nil
}

func (m *SLAMonitor) alert(ctx context.Context, ticket *domain.Ticket, outcome sla.Outcome) (bool, error) {
	var eventType events.EventType
	switch outcome.Status {
	case sla.StatusAtRisk:
		eventType = events.EventTicketSLAAtRisk
	case sla.StatusViolated:
		eventType = events.EventTicketSLAViolated
	default:
		return false, nil
	}
	if outcome.DueAt == nil {
		return false, nil
	}

	if m.dispatcher == nil {
		return false, nil
	}

	key := fmt.Sprintf("%s:%s:%d", ticket.ID, outcome.Status, outcome.DueAt.Unix())
	first, err := m.deduper.FirstSeen(ctx, key)
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}

	payload := events.TicketSLAPayload{
		Status:         string(outcome.Status),
		SLASource:      outcome.SLASource,
		SLAHoursTotal:  outcome.SLAHoursTotal,
		HoursRemaining: outcome.HoursRemaining,
		DueAt:          *outcome.DueAt,
		AssigneeID:     ticket.AssigneeID,
	}
	if err := m.dispatcher.Publish(ctx, events.New(eventType, ticket.ID, events.SystemActor, outcome.EvaluatedAt, payload)); err != nil {
		if forgetErr := m.deduper.Forget(context.WithoutCancel(ctx), key); forgetErr != nil {
			m.logger.Warn("could not release sla alert key", zap.String("key", key), zap.Error(forgetErr))
		}
		return false, err
	}
	return true, nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

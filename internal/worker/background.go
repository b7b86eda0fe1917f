package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// BackgroundDependencies wires the asynchronous side of the service.
type BackgroundDependencies struct {
	Notifications *service.NotificationService
	TicketRepo    repository.TicketRepository
	Evaluator     BatchEvaluator
	Dispatcher    events.Dispatcher
	Gauge         OpenTicketGauge
	Redis         *redis.Client
	Logger        *zap.Logger
}

// BackgroundConfig controls the SLA sweep.
type BackgroundConfig struct {
	Schedule    string
	BatchSize   int
	DedupeAfter time.Duration
}

// Background owns the notification handlers and the SLA monitor.
type Background struct {
	Monitor *SLAMonitor
}

// StartBackground registers notification handlers before starting the
// monitor so the first sweep's alerts are delivered.
func StartBackground(deps BackgroundDependencies, cfg BackgroundConfig) (*Background, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Notifications != nil {
		deps.Notifications.RegisterHandlers()
	}

	monitor := NewSLAMonitor(SLAMonitorDependencies{
		TicketRepo: deps.TicketRepo,
		Evaluator:  deps.Evaluator,
		Dispatcher: deps.Dispatcher,
		Deduper:    newDeduper(deps.Redis, cfg.DedupeAfter, logger),
		Gauge:      deps.Gauge,
		Logger:     logger,
	}, SLAMonitorConfig{
		Schedule:  cfg.Schedule,
		BatchSize: cfg.BatchSize,
	})
	if err := monitor.Start(); err != nil {
		return nil, err
	}
	return &Background{Monitor: monitor}, nil
}

// Stop waits for an in-flight sweep or until ctx expires.
func (b *Background) Stop(ctx context.Context) {
	if b == nil || b.Monitor == nil {
		return
	}
	b.Monitor.Stop(ctx)
}

func newDeduper(client *redis.Client, window time.Duration, logger *zap.Logger) AlertDeduper {
	if client == nil {
		logger.Info("sla alert de-duplication is in-memory")
		return NewMemoryAlertDeduper(window)
	}
	return NewRedisAlertDeduper(client, window, logger)
}

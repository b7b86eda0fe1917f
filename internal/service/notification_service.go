package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationChannel delivers an event to one outbound medium.
type NotificationChannel interface {
	Name() string
	Notify(ctx context.Context, event events.Event) error
}

// NotificationService routes ticket and SLA events to the configured
// channels. Delivery is stubbed: channels only log what they would send.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	email      NotificationChannel
	webhook    NotificationChannel
}

// NewNotificationService enables the email and webhook channels whose
// settings are present.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NotificationService{dispatcher: dispatcher, logger: logger}
	if from := strings.TrimSpace(cfg.EmailFrom); from != "" {
		n.email = emailStub{from: from, logger: logger}
	}
	if url := strings.TrimSpace(cfg.WebhookURL); url != "" {
		n.webhook = webhookStub{url: url, logger: logger}
	}
	return n
}

// RegisterHandlers subscribes to ticket and SLA events. Requester-facing
// events go to email and webhook; staff-side updates only to the webhook.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	for _, t := range []events.EventType{
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketCategoryChanged,
		events.EventTicketAssigned,
	} {
		n.dispatcher.Subscribe(t, n.handleTicketUpdated)
	}
	n.dispatcher.Subscribe(events.EventTicketSLAAtRisk, n.handleSLAAlert)
	n.dispatcher.Subscribe(events.EventTicketSLAViolated, n.handleSLAAlert)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket created", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.deliver(ctx, event, n.email, n.webhook)
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket updated",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))
	n.deliver(ctx, event, n.webhook)
	return nil
}

func (n *NotificationService) handleSLAAlert(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
	}
	if payload, ok := event.Payload.(events.TicketSLAPayload); ok {
		fields = append(fields,
			zap.String("sla_source", payload.SLASource),
			zap.Float64("hours_remaining", payload.HoursRemaining),
			zap.Time("due_at", payload.DueAt),
		)
	}
	if event.Type == events.EventTicketSLAViolated {
		n.logger.Warn("ticket sla violated", fields...)
	} else {
		n.logger.Info("ticket sla at risk", fields...)
	}
	n.deliver(ctx, event, n.email, n.webhook)
	return nil
}

// deliver fans out to the enabled channels. A channel failure is logged and
// never fails the publisher.
func (n *NotificationService) deliver(ctx context.Context, event events.Event, channels ...NotificationChannel) {
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		if err := ch.Notify(ctx, event); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

type emailStub struct {
	from   string
	logger *zap.Logger
}

func (e emailStub) Name() string { return "email" }

func (e emailStub) Notify(_ context.Context, event events.Event) error {
	e.logger.Debug("email notification queued",
		zap.String("from", e.from),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	return nil
}

type webhookStub struct {
	url    string
	logger *zap.Logger
}

func (w webhookStub) Name() string { return "webhook" }

func (w webhookStub) Notify(_ context.Context, event events.Event) error {
	w.logger.Debug("webhook notification queued",
		zap.String("url", w.url),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	return nil
}

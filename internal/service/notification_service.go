package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/streamhub/internal/config"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/mq"
)

// NoticeKind names a viewer-facing notice.
type NoticeKind string

const (
	NoticeAccessGranted NoticeKind = "access_granted"
	NoticeAccessExpired NoticeKind = "access_expired"
)

// Notice is the message an outbound mailer consumes from the notice queue.
type Notice struct {
	Kind            NoticeKind `json:"kind"`
	From            string     `json:"from"`
	To              string     `json:"to"`
	UserID          string     `json:"user_id"`
	EventID         string     `json:"event_id"`
	AccessStartDate *time.Time `json:"access_start_date,omitempty"`
	AccessEndDate   *time.Time `json:"access_end_date,omitempty"`
	SentAt          time.Time  `json:"sent_at"`
}

// NotificationService fans domain events out to the broker and queues viewer
// notices for approvals and expiries.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  mq.Publisher
	queue      string
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil publisher disables
// broker fan-out.
func NewNotificationService(dispatcher events.Dispatcher, publisher mq.Publisher, broker config.BrokerConfig, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if publisher == nil {
		publisher = mq.Noop{}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		queue:      broker.Queue,
		logger:     loggerOrNop(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.SubscribeAll(n.forward)
	n.dispatcher.Subscribe(events.EventRegistrationApproved, n.handleRegistrationApproved)
	n.dispatcher.Subscribe(events.EventEntitlementExpired, n.handleEntitlementExpired)
}

// forward publishes the event as JSON to the entitlement queue.
func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = n.publisher.Publish(ctx, n.queue, body, map[string]string{
		"event_type": string(event.Type),
		"subject_id": event.SubjectID,
	})
	return err
}

func (n *NotificationService) handleRegistrationApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RegistrationApprovedPayload)
	if !ok {
		return nil
	}
	start, end := payload.AccessStartDate, payload.AccessEndDate
	return n.sendNotice(ctx, event, Notice{
		Kind:            NoticeAccessGranted,
		To:              payload.Email,
		UserID:          payload.UserID,
		AccessStartDate: &start,
		AccessEndDate:   &end,
	})
}

func (n *NotificationService) handleEntitlementExpired(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EntitlementExpiredPayload)
	if !ok {
		return nil
	}
	return n.sendNotice(ctx, event, Notice{
		Kind:          NoticeAccessExpired,
		To:            payload.Email,
		UserID:        event.SubjectID,
		AccessEndDate: payload.AccessEndDate,
	})
}

// sendNotice publishes notice to the notice queue. Notices without a sender
// or recipient are dropped.
func (n *NotificationService) sendNotice(ctx context.Context, event events.Event, notice Notice) error {
	from := strings.TrimSpace(n.cfg.EmailFrom)
	if from == "" || notice.To == "" || n.cfg.Queue == "" {
		return nil
	}
	notice.From = from
	notice.EventID = event.ID
	notice.SentAt = event.Timestamp

	body, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	if _, err := n.publisher.Publish(ctx, n.cfg.Queue, body, map[string]string{
		"notice_kind": string(notice.Kind),
		"event_id":    event.ID,
	}); err != nil {
		return err
	}
	n.logger.Debug("notice queued",
		zap.String("kind", string(notice.Kind)),
		zap.String("user_id", notice.UserID),
		zap.String("event_id", event.ID))
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/logging"
	"github.com/septivank/civic-kiosk/internal/mq"
	"go.uber.org/zap"
)

// AuditStore persists the reading audit trail
type AuditStore interface {
	InsertReadingEvent(ctx context.Context, event *db.ReadingEvent) (bool, error)
}

// AuditService records reading lifecycle events consumed from RabbitMQ
type AuditService struct {
	store  AuditStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore, logger *zap.Logger) *AuditService {
	return &AuditService{store: store, logger: logger, now: time.Now}
}

// ProcessMessage decodes one reading event and appends it to the audit trail.
// A returned error dead-letters the message.
func (s *AuditService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg mq.ReadingEvent
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	logger := logging.WithRequestID(s.logger, msg.EventID)

	event, err := toAuditRow(msg)
	if err != nil {
		logger.Warn("discarding malformed reading event", zap.Error(err))
		return err
	}
	event.RecordedAt = s.now()

	inserted, err := s.store.InsertReadingEvent(ctx, event)
	if err != nil {
		logger.Error("failed to record reading event", zap.Error(err))
		return fmt.Errorf("failed to record reading event: %w", err)
	}

	if !inserted {
		logger.Info("duplicate reading event ignored", zap.String("reading_id", msg.ReadingID))
		return nil
	}

	logger.Info("reading event recorded",
		zap.String("reading_id", msg.ReadingID),
		zap.String("event_type", msg.EventType),
		zap.String("status", msg.Status),
	)
	return nil
}

func toAuditRow(msg mq.ReadingEvent) (*db.ReadingEvent, error) {
	switch msg.EventType {
	case mq.EventReadingSubmitted, mq.EventReadingVerified, mq.EventReadingRejected:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.EventType)
	}

	status, ok := db.ParseReadingStatus(msg.Status)
	if !ok {
		return nil, fmt.Errorf("unknown reading status %q", msg.Status)
	}

	ids := make([]uuid.UUID, 4)
	for i, raw := range []string{msg.EventID, msg.ReadingID, msg.ConnectionID, msg.ActorID} {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", raw, err)
		}
		ids[i] = id
	}

	if msg.OccurredAt.IsZero() {
		return nil, fmt.Errorf("missing occurred_at")
	}

	return &db.ReadingEvent{
		ID:           ids[0],
		ReadingID:    ids[1],
		ConnectionID: ids[2],
		ActorID:      ids[3],
		EventType:    msg.EventType,
		Status:       status,
		Consumption:  msg.Consumption,
		OccurredAt:   msg.OccurredAt,
	}, nil
}

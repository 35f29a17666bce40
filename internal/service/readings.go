package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/internal/anomaly"
	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/config"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/mq"
	"github.com/septivank/civic-kiosk/internal/repository"
	"github.com/septivank/civic-kiosk/internal/validator"
	"go.uber.org/zap"
)

const (
	notesVerified = "Meter reading verified by utility staff"
	notesRejected = "Meter reading rejected by utility staff"

	maxReadingList = 100
)

// ReadingStore is the persistence the reading workflow needs
type ReadingStore interface {
	GetConnection(ctx context.Context, id uuid.UUID) (*db.ServiceConnection, error)
	GetBaselineReading(ctx context.Context, connectionID uuid.UUID) (float64, bool, error)
	GetVerifiedConsumptions(ctx context.Context, connectionID uuid.UUID, limit int) ([]float64, error)
	InsertMeterReading(ctx context.Context, reading *db.MeterReading) (*db.MeterReadingDetail, error)
	TransitionReading(ctx context.Context, t repository.Transition) (*db.MeterReadingDetail, error)
	ListReadings(ctx context.Context, status *db.ReadingStatus, limit int) ([]db.MeterReadingDetail, error)
}

// EventPublisher publishes reading lifecycle events
type EventPublisher interface {
	PublishReadingEvent(ctx context.Context, event mq.ReadingEvent, routingKey string) error
}

// ReadingService implements meter reading submission and verification
type ReadingService struct {
	store     ReadingStore
	publisher EventPublisher
	detector  *anomaly.Detector
	validator *validator.Validator
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewReadingService creates a new reading service
func NewReadingService(
	store ReadingStore,
	publisher EventPublisher,
	detector *anomaly.Detector,
	validator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *ReadingService {
	return &ReadingService{
		store:     store,
		publisher: publisher,
		detector:  detector,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit records a new PENDING reading for a connection owned by the caller.
// Consumption is the reading minus the latest VERIFIED reading of the
// connection, or minus 0 when there is none.
func (s *ReadingService) Submit(ctx context.Context, caller *auth.Identity, in validator.SubmissionInput) (*db.MeterReadingDetail, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	now := s.now()
	sub, err := s.validator.ValidateSubmission(in, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	conn, err := s.store.GetConnection(ctx, sub.ConnectionID)
	if err != nil {
		return nil, classify(err)
	}
	if conn.UserID != caller.UserID {
		return nil, fmt.Errorf("%w: connection %s is not owned by caller", ErrForbidden, conn.ID)
	}

	baseline, _, err := s.store.GetBaselineReading(ctx, conn.ID)
	if err != nil {
		return nil, err
	}

	reading := &db.MeterReading{
		ConnectionID:    conn.ID,
		UserID:          caller.UserID,
		ServiceType:     conn.ServiceType,
		Reading:         sub.Reading,
		PreviousReading: baseline,
		Consumption:     sub.Reading - baseline,
		SubmittedBy:     string(caller.Role),
		PhotoURL:        sub.PhotoURL,
		Status:          db.ReadingPending,
		ReadingDate:     sub.ReadingDate,
		CreatedAt:       now,
	}
	if finding := s.checkAnomaly(ctx, conn.ID, reading.Consumption); finding != nil {
		reading.AnomalyReason = &finding.Reason
		s.logger.Warn("meter reading flagged",
			zap.String("connection_id", conn.ID.String()),
			zap.String("kind", string(finding.Kind)),
			zap.String("reason", finding.Reason),
		)
	}

	created, err := s.store.InsertMeterReading(ctx, reading)
	if err != nil {
		return nil, err
	}

	s.logger.Info("meter reading submitted",
		zap.String("reading_id", created.ID.String()),
		zap.String("connection_id", conn.ID.String()),
		zap.Float64("consumption", created.Consumption),
		zap.Bool("anomaly", created.AnomalyReason != nil),
	)
	s.publish(ctx, created, mq.EventReadingSubmitted, caller.UserID, s.cfg.RabbitMQ.SubmittedRoutingKey)

	return created, nil
}

// Verify moves a PENDING reading to VERIFIED
func (s *ReadingService) Verify(ctx context.Context, caller *auth.Identity, readingID uuid.UUID) (*db.MeterReadingDetail, error) {
	return s.transition(ctx, caller, readingID, db.ReadingVerified)
}

// Reject moves a PENDING reading to REJECTED
func (s *ReadingService) Reject(ctx context.Context, caller *auth.Identity, readingID uuid.UUID) (*db.MeterReadingDetail, error) {
	return s.transition(ctx, caller, readingID, db.ReadingRejected)
}

func (s *ReadingService) transition(ctx context.Context, caller *auth.Identity, readingID uuid.UUID, to db.ReadingStatus) (*db.MeterReadingDetail, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}

	notes, eventType, routingKey := notesVerified, mq.EventReadingVerified, s.cfg.RabbitMQ.VerifiedRoutingKey
	if to == db.ReadingRejected {
		notes, eventType, routingKey = notesRejected, mq.EventReadingRejected, s.cfg.RabbitMQ.RejectedRoutingKey
	}

	updated, err := s.store.TransitionReading(ctx, repository.Transition{
		ReadingID:  readingID,
		To:         to,
		VerifiedBy: caller.UserID,
		VerifiedAt: s.now(),
		Notes:      notes,
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("meter reading transitioned",
		zap.String("reading_id", readingID.String()),
		zap.String("status", string(to)),
		zap.String("actor_id", caller.UserID.String()),
	)
	s.publish(ctx, updated, eventType, caller.UserID, routingKey)

	return updated, nil
}

// ReadingStatusFilter selects readings by status; ReadingStatusAll matches every status
type ReadingStatusFilter string

// ReadingStatusAll disables status filtering
const ReadingStatusAll ReadingStatusFilter = "ALL"

// ParseReadingStatusFilter accepts an empty string, ALL, or a reading status
func ParseReadingStatusFilter(raw string) (ReadingStatusFilter, error) {
	if raw == "" || strings.EqualFold(raw, string(ReadingStatusAll)) {
		return ReadingStatusAll, nil
	}
	status, ok := db.ParseReadingStatus(strings.ToUpper(raw))
	if !ok {
		return "", invalidField("status", "unknown reading status")
	}
	return ReadingStatusFilter(status), nil
}

// List returns up to 100 readings ordered by reading date, newest first
func (s *ReadingService) List(ctx context.Context, caller *auth.Identity, filter ReadingStatusFilter) ([]db.MeterReadingDetail, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}

	var status *db.ReadingStatus
	if filter != "" && filter != ReadingStatusAll {
		st := db.ReadingStatus(filter)
		status = &st
	}

	return s.store.ListReadings(ctx, status, maxReadingList)
}

// checkAnomaly never fails a submission; history lookup errors only skip the history checks
func (s *ReadingService) checkAnomaly(ctx context.Context, connectionID uuid.UUID, consumption float64) *anomaly.Finding {
	if s.detector == nil {
		return nil
	}

	history, err := s.store.GetVerifiedConsumptions(ctx, connectionID, s.cfg.Anomaly.HistoryWindow)
	if err != nil {
		s.logger.Warn("failed to get verified history for anomaly detection",
			zap.Error(err),
			zap.String("connection_id", connectionID.String()),
		)
		history = nil
	}

	return s.detector.Check(consumption, history)
}

// publish is best effort: the row is already committed
func (s *ReadingService) publish(ctx context.Context, r *db.MeterReadingDetail, eventType string, actor uuid.UUID, routingKey string) {
	if s.publisher == nil {
		return
	}

	event := mq.ReadingEvent{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		ReadingID:    r.ID.String(),
		ConnectionID: r.ConnectionID.String(),
		ServiceType:  string(r.ServiceType),
		ActorID:      actor.String(),
		Status:       string(r.Status),
		Consumption:  r.Consumption,
		OccurredAt:   s.now(),
	}

	if err := s.publisher.PublishReadingEvent(ctx, event, routingKey); err != nil {
		s.logger.Error("failed to publish reading event",
			zap.Error(err),
			zap.String("reading_id", event.ReadingID),
			zap.String("event_type", eventType),
		)
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/civic-kiosk/internal/db"
)

var (
	// ErrNotFound is returned when the referenced row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrNotPending is returned when a transition targets a reading that is already final
	ErrNotPending = errors.New("reading is not pending")
)

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const readingDetailColumns = `
	mr.id, mr.connection_id, mr.user_id, mr.service_type, mr.reading,
	mr.previous_reading, mr.consumption, mr.submitted_by, mr.photo_url,
	mr.status, mr.is_verified, mr.verified_by, mr.verified_at, mr.notes,
	mr.anomaly_reason, mr.reading_date, mr.created_at,
	sc.connection_no, sc.address, u.name, u.phone
`

func scanReadingDetail(row rowScanner) (*db.MeterReadingDetail, error) {
	var d db.MeterReadingDetail
	err := row.Scan(
		&d.ID,
		&d.ConnectionID,
		&d.UserID,
		&d.ServiceType,
		&d.Reading,
		&d.PreviousReading,
		&d.Consumption,
		&d.SubmittedBy,
		&d.PhotoURL,
		&d.Status,
		&d.IsVerified,
		&d.VerifiedBy,
		&d.VerifiedAt,
		&d.Notes,
		&d.AnomalyReason,
		&d.ReadingDate,
		&d.CreatedAt,
		&d.ConnectionNo,
		&d.Address,
		&d.UserName,
		&d.UserPhone,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetConnection retrieves a service connection by id
func (r *Repository) GetConnection(ctx context.Context, id uuid.UUID) (*db.ServiceConnection, error) {
	query := `
		SELECT id, user_id, service_type, connection_no, address, status, created_at
		FROM service_connections
		WHERE id = $1
	`

	var conn db.ServiceConnection
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conn.ID,
		&conn.UserID,
		&conn.ServiceType,
		&conn.ConnectionNo,
		&conn.Address,
		&conn.Status,
		&conn.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("connection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query connection: %w", err)
	}

	return &conn, nil
}

// GetBaselineReading returns the value of the most recent VERIFIED reading
// for the connection. found is false when the connection has none.
func (r *Repository) GetBaselineReading(ctx context.Context, connectionID uuid.UUID) (value float64, found bool, err error) {
	query := `
		SELECT reading
		FROM meter_readings
		WHERE connection_id = $1 AND status = 'VERIFIED'
		ORDER BY reading_date DESC, created_at DESC
		LIMIT 1
	`

	err = r.pool.QueryRow(ctx, query, connectionID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query baseline reading: %w", err)
	}

	return value, true, nil
}

// GetVerifiedConsumptions gets recent verified consumption values for anomaly detection
func (r *Repository) GetVerifiedConsumptions(ctx context.Context, connectionID uuid.UUID, limit int) ([]float64, error) {
	query := `
		SELECT consumption
		FROM meter_readings
		WHERE connection_id = $1 AND status = 'VERIFIED'
		ORDER BY reading_date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, connectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verified consumptions: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return values, nil
}

// InsertMeterReading inserts a PENDING meter reading and returns it with
// its connection and submitter display fields
func (r *Repository) InsertMeterReading(ctx context.Context, reading *db.MeterReading) (*db.MeterReadingDetail, error) {
	query := `
		WITH inserted AS (
			INSERT INTO meter_readings (
				connection_id, user_id, service_type, reading, previous_reading,
				consumption, submitted_by, photo_url, status, is_verified,
				anomaly_reason, reading_date, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11, $12)
			RETURNING *
		)
		SELECT ` + readingDetailColumns + `
		FROM inserted mr
		JOIN service_connections sc ON sc.id = mr.connection_id
		JOIN users u ON u.id = mr.user_id
	`

	detail, err := scanReadingDetail(r.pool.QueryRow(ctx, query,
		reading.ConnectionID,
		reading.UserID,
		reading.ServiceType,
		reading.Reading,
		reading.PreviousReading,
		reading.Consumption,
		reading.SubmittedBy,
		reading.PhotoURL,
		db.ReadingPending,
		reading.AnomalyReason,
		reading.ReadingDate,
		reading.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert meter reading: %w", err)
	}

	return detail, nil
}

// Transition describes a terminal state change of a PENDING reading
type Transition struct {
	ReadingID  uuid.UUID
	To         db.ReadingStatus
	VerifiedBy uuid.UUID
	VerifiedAt time.Time
	Notes      string
}

// TransitionReading moves a PENDING reading to a terminal status in a single
// conditional update. It returns ErrNotFound for an unknown id and
// ErrNotPending when the reading was already verified or rejected.
func (r *Repository) TransitionReading(ctx context.Context, t Transition) (*db.MeterReadingDetail, error) {
	query := `
		WITH updated AS (
			UPDATE meter_readings
			SET status = $2, is_verified = $3, verified_by = $4, verified_at = $5, notes = $6
			WHERE id = $1 AND status = 'PENDING'
			RETURNING *
		)
		SELECT ` + readingDetailColumns + `
		FROM updated mr
		JOIN service_connections sc ON sc.id = mr.connection_id
		JOIN users u ON u.id = mr.user_id
	`

	detail, err := scanReadingDetail(r.pool.QueryRow(ctx, query,
		t.ReadingID,
		t.To,
		t.To == db.ReadingVerified,
		t.VerifiedBy,
		t.VerifiedAt,
		t.Notes,
	))
	if err == nil {
		return detail, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update meter reading: %w", err)
	}

	var current db.ReadingStatus
	err = r.pool.QueryRow(ctx, `SELECT status FROM meter_readings WHERE id = $1`, t.ReadingID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reading %s: %w", t.ReadingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reading status: %w", err)
	}

	if !current.IsTerminal() {
		return nil, fmt.Errorf("reading %s is still %s after conditional update", t.ReadingID, current)
	}
	return nil, fmt.Errorf("reading %s is %s: %w", t.ReadingID, current, ErrNotPending)
}

// ListReadings lists readings newest first, optionally filtered by status
func (r *Repository) ListReadings(ctx context.Context, status *db.ReadingStatus, limit int) ([]db.MeterReadingDetail, error) {
	query := `
		SELECT ` + readingDetailColumns + `
		FROM meter_readings mr
		JOIN service_connections sc ON sc.id = mr.connection_id
		JOIN users u ON u.id = mr.user_id
		WHERE ($1::text IS NULL OR mr.status = $1)
		ORDER BY mr.reading_date DESC, mr.created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, textArg(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query meter readings: %w", err)
	}
	return collectReadingDetails(rows, limit)
}

// RecentReadings lists the most recently submitted readings regardless of
// the date they were taken on
func (r *Repository) RecentReadings(ctx context.Context, limit int) ([]db.MeterReadingDetail, error) {
	query := `
		SELECT ` + readingDetailColumns + `
		FROM meter_readings mr
		JOIN service_connections sc ON sc.id = mr.connection_id
		JOIN users u ON u.id = mr.user_id
		ORDER BY mr.created_at DESC, mr.id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent meter readings: %w", err)
	}
	return collectReadingDetails(rows, limit)
}

func collectReadingDetails(rows pgx.Rows, limit int) ([]db.MeterReadingDetail, error) {
	defer rows.Close()

	readings := make([]db.MeterReadingDetail, 0, limit)
	for rows.Next() {
		detail, err := scanReadingDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meter reading: %w", err)
		}
		readings = append(readings, *detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}

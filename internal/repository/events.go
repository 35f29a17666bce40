package repository

import (
	"context"
	"fmt"

	"github.com/septivank/civic-kiosk/internal/db"
)

// InsertReadingEvent appends an event to the reading audit trail.
// Redelivered events with a known id are ignored.
func (r *Repository) InsertReadingEvent(ctx context.Context, event *db.ReadingEvent) (bool, error) {
	query := `
		INSERT INTO reading_events (
			id, reading_id, connection_id, event_type, actor_id,
			status, consumption, occurred_at, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		event.ID,
		event.ReadingID,
		event.ConnectionID,
		event.EventType,
		event.ActorID,
		event.Status,
		event.Consumption,
		event.OccurredAt,
		event.RecordedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert reading event: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

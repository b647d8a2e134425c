package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// Event repository errors.
var (
	ErrInvalidEvent = errors.New("invalid event")
)

// EventRepository handles run event persistence.
type EventRepository struct {
	db *DB
}

type eventExecer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an event to the run's log.
func (r *EventRepository) Create(ctx context.Context, event *models.RunEvent) error {
	return r.createWithExecutor(ctx, r.db, event)
}

// CreateWithTx appends an event using an existing transaction.
func (r *EventRepository) CreateWithTx(ctx context.Context, tx *sql.Tx, event *models.RunEvent) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return r.createWithExecutor(ctx, tx, event)
}

func (r *EventRepository) createWithExecutor(ctx context.Context, execer eventExecer, event *models.RunEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var payloadJSON *string
	if len(event.Payload) > 0 {
		s := string(event.Payload)
		payloadJSON = &s
	}

	_, err := execer.ExecContext(ctx, `
		INSERT INTO run_events (id, run_id, timestamp, type, payload_json)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.ID,
		event.RunID,
		formatTime(event.Timestamp),
		string(event.Type),
		payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListByRun retrieves the events of a run in the order they were recorded.
func (r *EventRepository) ListByRun(ctx context.Context, runID string, limit int) ([]*models.RunEvent, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, type, payload_json
		FROM run_events
		WHERE run_id = ?
		ORDER BY timestamp, rowid
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.RunEvent
	for rows.Next() {
		var event models.RunEvent
		var timestamp, eventType string
		var payloadJSON sql.NullString

		if err := rows.Scan(&event.ID, &event.RunID, &timestamp, &eventType, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Type = models.EventType(eventType)
		event.Timestamp = parseTime(timestamp)
		if payloadJSON.Valid {
			event.Payload = json.RawMessage(payloadJSON.String)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

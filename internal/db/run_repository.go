package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// Run repository errors.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("invalid run")
)

// RunRepository persists run summaries.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run that has just been submitted.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRun)
	}
	if run.SubmittedAt.IsZero() {
		return fmt.Errorf("%w: submitted_at is required", ErrInvalidRun)
	}
	if run.Outcome == models.OutcomeNone {
		run.Outcome = models.OutcomeInProgress
	}

	var completedAt *string
	if run.CompletedAt != nil {
		s := formatTime(*run.CompletedAt)
		completedAt = &s
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, source, channel, step_count, send_count,
			submitted_at, completed_at, sent, failed, outcome
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		nullString(run.Source),
		nullString(run.Channel),
		run.StepCount,
		run.SendCount,
		formatTime(run.SubmittedAt),
		completedAt,
		run.Sent,
		run.Failed,
		string(run.Outcome),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Complete records the final counters of a run.
func (r *RunRepository) Complete(ctx context.Context, run *models.Run) error {
	if run.CompletedAt == nil {
		return fmt.Errorf("%w: completed_at is required", ErrInvalidRun)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE runs
		SET completed_at = ?, sent = ?, failed = ?, outcome = ?
		WHERE id = ?
	`,
		formatTime(*run.CompletedAt),
		run.Sent,
		run.Failed,
		string(run.Outcome),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source, channel, step_count, send_count,
		       submitted_at, completed_at, sent, failed, outcome
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, channel, step_count, send_count,
		       submitted_at, completed_at, sent, failed, outcome
		FROM runs
		ORDER BY submitted_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var run models.Run
	var source, channel, completedAt sql.NullString
	var submittedAt, outcome string

	if err := s.Scan(
		&run.ID,
		&source,
		&channel,
		&run.StepCount,
		&run.SendCount,
		&submittedAt,
		&completedAt,
		&run.Sent,
		&run.Failed,
		&outcome,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Source = source.String
	run.Channel = channel.String
	run.SubmittedAt = parseTime(submittedAt)
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		run.CompletedAt = &t
	}
	run.Outcome = models.Outcome(outcome)
	return &run, nil
}

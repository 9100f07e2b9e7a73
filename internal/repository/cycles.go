package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"go.uber.org/zap"
)

// CycleRepository stores operating cycles.
type CycleRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewCycleRepository(db DBTX, logger *zap.Logger) *CycleRepository {
	return &CycleRepository{db: db, logger: logger}
}

// WithTx returns a copy bound to tx.
func (r *CycleRepository) WithTx(tx *sql.Tx) *CycleRepository {
	return &CycleRepository{db: tx, logger: r.logger}
}

// StartForAllPieces opens one cycle per piece at startedAt and returns how many were created.
// Pieces that already have an open cycle get another one.
func (r *CycleRepository) StartForAllPieces(ctx context.Context, startedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO operating_cycles (piece_id, started_at)
		SELECT piece_id, $1 FROM pieces
	`, startedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to start cycles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count started cycles: %w", err)
	}
	return n, nil
}

// ListOpenForUpdate returns and locks every open cycle of the fleet.
func (r *CycleRepository) ListOpenForUpdate(ctx context.Context) ([]models.Cycle, error) {
	return r.query(ctx, `
		SELECT cycle_id, piece_id, started_at, ended_at, duration_minutes
		FROM operating_cycles
		WHERE ended_at IS NULL
		ORDER BY cycle_id
		FOR UPDATE
	`)
}

// Close sets the end time and duration of one cycle.
func (r *CycleRepository) Close(ctx context.Context, cycleID int64, endedAt time.Time, durationMinutes int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE operating_cycles
		SET ended_at = $2, duration_minutes = $3
		WHERE cycle_id = $1
	`, cycleID, endedAt.UTC(), durationMinutes)
	if err != nil {
		return fmt.Errorf("failed to close cycle %d: %w", cycleID, err)
	}
	return nil
}

// ListByPiece returns all cycles of a piece ordered by start.
func (r *CycleRepository) ListByPiece(ctx context.Context, pieceID int64) ([]models.Cycle, error) {
	return r.query(ctx, `
		SELECT cycle_id, piece_id, started_at, ended_at, duration_minutes
		FROM operating_cycles
		WHERE piece_id = $1
		ORDER BY started_at, cycle_id
	`, pieceID)
}

func (r *CycleRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Cycle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.Cycle
	for rows.Next() {
		var c models.Cycle
		var endedAt sql.NullTime
		var duration sql.NullInt64
		if err := rows.Scan(&c.CycleID, &c.PieceID, &c.StartedAt, &endedAt, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		if endedAt.Valid {
			t := endedAt.Time
			c.EndedAt = &t
		}
		if duration.Valid {
			d := duration.Int64
			c.DurationMinutes = &d
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}
	return cycles, nil
}

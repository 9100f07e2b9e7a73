package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"go.uber.org/zap"
)

// FailureRepository appends failure records.
type FailureRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewFailureRepository(db DBTX, logger *zap.Logger) *FailureRepository {
	return &FailureRepository{db: db, logger: logger}
}

// WithTx returns a copy bound to tx.
func (r *FailureRepository) WithTx(tx *sql.Tx) *FailureRepository {
	return &FailureRepository{db: tx, logger: r.logger}
}

// Create inserts a failure and returns its id.
func (r *FailureRepository) Create(ctx context.Context, pieceID int64, description string, occurredAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO failures (piece_id, description, occurred_at)
		VALUES ($1, $2, $3)
		RETURNING failure_id
	`, pieceID, description, occurredAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create failure: %w", err)
	}
	return id, nil
}

// ListByPiece returns a piece's failures ascending by time.
func (r *FailureRepository) ListByPiece(ctx context.Context, pieceID int64) ([]models.Failure, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT failure_id, piece_id, description, occurred_at
		FROM failures
		WHERE piece_id = $1
		ORDER BY occurred_at, failure_id
	`, pieceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer rows.Close()

	var failures []models.Failure
	for rows.Next() {
		var f models.Failure
		if err := rows.Scan(&f.FailureID, &f.PieceID, &f.Description, &f.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failures: %w", err)
	}
	return failures, nil
}

// AlertRepository appends alert records.
type AlertRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewAlertRepository(db DBTX, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{db: db, logger: logger}
}

// WithTx returns a copy bound to tx.
func (r *AlertRepository) WithTx(tx *sql.Tx) *AlertRepository {
	return &AlertRepository{db: tx, logger: r.logger}
}

// Create inserts an alert. failureID nil makes a standalone alert.
func (r *AlertRepository) Create(ctx context.Context, failureID *int64, riskLevel string, createdAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO alerts (failure_id, risk_level, created_at)
		VALUES ($1, $2, $3)
		RETURNING alert_id
	`, failureID, riskLevel, createdAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create alert: %w", err)
	}
	return id, nil
}

// ListRecent returns the newest alerts first.
func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT alert_id, failure_id, risk_level, created_at
		FROM alerts
		ORDER BY created_at DESC, alert_id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var failureID sql.NullInt64
		if err := rows.Scan(&a.AlertID, &failureID, &a.RiskLevel, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if failureID.Valid {
			id := failureID.Int64
			a.FailureID = &id
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

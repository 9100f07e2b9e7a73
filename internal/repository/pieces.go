package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"go.uber.org/zap"
)

// PieceRepository reads and provisions equipment pieces.
type PieceRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPieceRepository(db DBTX, logger *zap.Logger) *PieceRepository {
	return &PieceRepository{db: db, logger: logger}
}

// WithTx returns a copy bound to tx.
func (r *PieceRepository) WithTx(tx *sql.Tx) *PieceRepository {
	return &PieceRepository{db: tx, logger: r.logger}
}

// List returns every piece ordered by id.
func (r *PieceRepository) List(ctx context.Context) ([]models.Piece, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT piece_id, kind, manufacturer, total_usage_minutes
		FROM pieces
		ORDER BY piece_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pieces: %w", err)
	}
	defer rows.Close()

	var pieces []models.Piece
	for rows.Next() {
		var p models.Piece
		var manufacturer sql.NullString
		if err := rows.Scan(&p.PieceID, &p.Kind, &manufacturer, &p.TotalUsageMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan piece: %w", err)
		}
		if manufacturer.Valid {
			p.Manufacturer = &manufacturer.String
		}
		pieces = append(pieces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pieces: %w", err)
	}
	return pieces, nil
}

// FindByKind returns the lowest-id piece of kind, or nil.
func (r *PieceRepository) FindByKind(ctx context.Context, kind string) (*models.Piece, error) {
	var p models.Piece
	var manufacturer sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT piece_id, kind, manufacturer, total_usage_minutes
		FROM pieces
		WHERE kind = $1
		ORDER BY piece_id
		LIMIT 1
	`, kind).Scan(&p.PieceID, &p.Kind, &manufacturer, &p.TotalUsageMinutes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find piece by kind: %w", err)
	}
	if manufacturer.Valid {
		p.Manufacturer = &manufacturer.String
	}
	return &p, nil
}

// Create inserts a piece and returns its id.
func (r *PieceRepository) Create(ctx context.Context, kind string, manufacturer *string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO pieces (kind, manufacturer, total_usage_minutes)
		VALUES ($1, $2, 0)
		RETURNING piece_id
	`, kind, manufacturer).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create piece: %w", err)
	}
	return id, nil
}

package cycles

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"go.uber.org/zap"
)

// Tracker applies fleet-wide cycle commands and reports per-piece usage.
// StartAll and EndAll always act on every piece; there is no per-piece variant.
type Tracker struct {
	db     *sql.DB
	cycles *repository.CycleRepository
	logger *zap.Logger
}

func NewTracker(db *sql.DB, logger *zap.Logger) *Tracker {
	return &Tracker{
		db:     db,
		cycles: repository.NewCycleRepository(db, logger),
		logger: logger,
	}
}

// StartAll opens a cycle at ts for every piece, even pieces with an open cycle.
func (t *Tracker) StartAll(ctx context.Context, ts time.Time) (int64, error) {
	n, err := t.cycles.StartForAllPieces(ctx, ts)
	if err != nil {
		return 0, err
	}
	t.logger.Info("Cycles started",
		zap.Int64("created", n),
		zap.Time("ts", ts),
	)
	return n, nil
}

// EndAll closes every open cycle of the fleet at ts.
func (t *Tracker) EndAll(ctx context.Context, ts time.Time) (int, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repo := t.cycles.WithTx(tx)
	open, err := repo.ListOpenForUpdate(ctx)
	if err != nil {
		return 0, err
	}

	for _, c := range open {
		duration := DurationMinutes(c.StartedAt, ts)
		if duration < 0 {
			t.logger.Warn("Cycle closed before its start",
				zap.Int64("cycle_id", c.CycleID),
				zap.Time("started_at", c.StartedAt),
				zap.Time("ended_at", ts),
			)
			duration = 0
		}
		if err := repo.Close(ctx, c.CycleID, ts, duration); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.logger.Info("Cycles closed",
		zap.Int("closed", len(open)),
		zap.Time("ts", ts),
	)
	return len(open), nil
}

// Usage returns the live usage of pieceID at now.
func (t *Tracker) Usage(ctx context.Context, pieceID int64, now time.Time) (Usage, error) {
	list, err := t.cycles.ListByPiece(ctx, pieceID)
	if err != nil {
		return Usage{}, err
	}
	u := LiveUsage(list, now)
	if u.OpenCycles > 1 {
		t.logger.Warn("Piece has several open cycles, counting only the latest",
			zap.Int64("piece_id", pieceID),
			zap.Int("open_cycles", u.OpenCycles),
		)
	}
	return u, nil
}

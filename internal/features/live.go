package features

import (
	"context"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/cycles"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// WindowReader reads recent values of a piece's sensors by kind pattern.
type WindowReader interface {
	ValuesSince(ctx context.Context, pieceID int64, kindPattern string, since time.Time) ([]float64, error)
	LatestValue(ctx context.Context, pieceID int64, kindPattern string) (*float64, error)
}

// UsageReader reports live cycle usage.
type UsageReader interface {
	Usage(ctx context.Context, pieceID int64, now time.Time) (cycles.Usage, error)
}

// Windows are the live averaging windows.
type Windows struct {
	Temperature time.Duration
	Vibration   time.Duration
}

// LiveAggregator computes a piece's feature vector at a point in time.
type LiveAggregator struct {
	readings WindowReader
	usage    UsageReader
	logger   *zap.Logger
}

func NewLiveAggregator(readings WindowReader, usage UsageReader, logger *zap.Logger) *LiveAggregator {
	return &LiveAggregator{readings: readings, usage: usage, logger: logger}
}

// Snapshot returns the features of pieceID at now.
func (a *LiveAggregator) Snapshot(ctx context.Context, pieceID int64, now time.Time, w Windows) (models.FeatureVector, error) {
	var fv models.FeatureVector

	temp, err := a.windowValue(ctx, pieceID, repository.TemperatureKindPattern, now.Add(-w.Temperature))
	if err != nil {
		return fv, err
	}
	vib, err := a.windowValue(ctx, pieceID, repository.VibrationKindPattern, now.Add(-w.Vibration))
	if err != nil {
		return fv, err
	}
	u, err := a.usage.Usage(ctx, pieceID, now)
	if err != nil {
		return fv, err
	}

	fv.Temperature = temp
	fv.Vibration = vib
	fv.UsageMinutes = u.Minutes
	fv.CycleCount = float64(u.CycleCount)
	return fv, nil
}

// windowValue is the in-window mean, else the latest value at any age, else 0.
func (a *LiveAggregator) windowValue(ctx context.Context, pieceID int64, pattern string, since time.Time) (float64, error) {
	values, err := a.readings.ValuesSince(ctx, pieceID, pattern, since)
	if err != nil {
		return 0, err
	}
	if len(values) > 0 {
		return stat.Mean(values, nil), nil
	}

	latest, err := a.readings.LatestValue(ctx, pieceID, pattern)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	a.logger.Debug("No readings in window, using latest",
		zap.Int64("piece_id", pieceID),
		zap.String("kind", pattern),
	)
	return *latest, nil
}

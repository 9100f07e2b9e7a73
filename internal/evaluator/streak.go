package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"go.uber.org/zap"
)

// ReadingSource yields a sensor's most recent readings, newest first.
type ReadingSource interface {
	Latest(ctx context.Context, sensorID int64, n int) ([]models.Reading, error)
}

// Decision is the outcome of a confirmed streak.
type Decision struct {
	Threshold   float64
	Streak      int
	Description string
}

// StreakDetector confirms sustained threshold breaches.
type StreakDetector struct {
	resolver  ThresholdResolver
	minStreak int
	window    time.Duration
	logger    *zap.Logger
}

// NewStreakDetector clamps minStreak to at least 1 and window to at least 0.
func NewStreakDetector(resolver ThresholdResolver, minStreak int, window time.Duration, logger *zap.Logger) *StreakDetector {
	if minStreak < 1 {
		minStreak = 1
	}
	if window < 0 {
		window = 0
	}
	return &StreakDetector{
		resolver:  resolver,
		minStreak: minStreak,
		window:    window,
		logger:    logger,
	}
}

// Evaluate decides whether reading completes a streak for sensor.
// reading must already be persisted so that src includes it.
// A nil Decision means no alert.
func (d *StreakDetector) Evaluate(ctx context.Context, src ReadingSource, sensor models.Sensor, reading models.Reading) (*Decision, error) {
	threshold := d.resolver.Resolve(sensor.SensorKind)
	if reading.Value < threshold {
		return nil, nil
	}

	recent, err := src.Latest(ctx, sensor.SensorID, d.minStreak)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent readings: %w", err)
	}

	if !Confirm(recent, threshold, d.minStreak, d.window) {
		d.logger.Debug("Streak not confirmed",
			zap.Int64("sensor_id", sensor.SensorID),
			zap.Int("readings", len(recent)),
			zap.Float64("threshold", threshold),
		)
		return nil, nil
	}

	return &Decision{
		Threshold:   threshold,
		Streak:      d.minStreak,
		Description: Describe(threshold, d.minStreak, sensor, reading.Value),
	}, nil
}

// Confirm checks a newest-first slice: at least minStreak readings, the first
// minStreak all >= threshold, spanning no more than window.
func Confirm(recent []models.Reading, threshold float64, minStreak int, window time.Duration) bool {
	if len(recent) < minStreak {
		return false
	}
	recent = recent[:minStreak]
	for _, r := range recent {
		if r.Value < threshold {
			return false
		}
	}
	span := recent[0].ReadAt.Sub(recent[len(recent)-1].ReadAt)
	return span <= window
}

// Describe renders the failure description.
func Describe(threshold float64, streak int, sensor models.Sensor, value float64) string {
	return fmt.Sprintf("Threshold (%g) exceeded on %d readings for sensor %d (%s). Current value=%g",
		threshold, streak, sensor.SensorID, sensor.SensorKind, value)
}

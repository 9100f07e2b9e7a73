package service

import (
	"context"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"go.uber.org/zap"
)

// Series query defaults and bounds.
const (
	DefaultSeriesMinutes = 60
	DefaultSeriesLimit   = 1000
	MaxSeriesLimit       = 10000
)

// SeriesService serves reading series and sensor listings.
type SeriesService struct {
	sensors  *repository.SensorRepository
	readings *repository.ReadingRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewSeriesService(db repository.DBTX, logger *zap.Logger) *SeriesService {
	return &SeriesService{
		sensors:  repository.NewSensorRepository(db, logger),
		readings: repository.NewReadingRepository(db, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Series returns readings of the last minutes, ascending and capped at limit.
// A missing or unknown sensor id falls back to the lowest-id sensor.
func (s *SeriesService) Series(ctx context.Context, sensorID *int64, minutes, limit int) (*models.Series, error) {
	if minutes <= 0 {
		return nil, apperr.Validation("minutes", "must be positive")
	}
	if limit <= 0 {
		return nil, apperr.Validation("limit", "must be positive")
	}
	if limit > MaxSeriesLimit {
		limit = MaxSeriesLimit
	}

	id, err := s.resolveSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	out := &models.Series{SensorID: id, X: []string{}, Y: []float64{}}
	if id == nil {
		return out, nil
	}

	since := s.now().Add(-time.Duration(minutes) * time.Minute)
	readings, err := s.readings.Series(ctx, *id, since, limit)
	if err != nil {
		return nil, apperr.Persistence("query series", err)
	}
	for _, r := range readings {
		out.X = append(out.X, r.ReadAt.UTC().Format(time.RFC3339Nano))
		out.Y = append(out.Y, r.Value)
	}
	return out, nil
}

func (s *SeriesService) resolveSensor(ctx context.Context, sensorID *int64) (*int64, error) {
	if sensorID != nil {
		sensor, err := s.sensors.Get(ctx, *sensorID)
		if err != nil {
			return nil, apperr.Persistence("get sensor", err)
		}
		if sensor != nil {
			return &sensor.SensorID, nil
		}
		s.logger.Debug("Sensor not found, falling back to first sensor", zap.Int64("sensor_id", *sensorID))
	}
	id, err := s.sensors.FirstID(ctx)
	if err != nil {
		return nil, apperr.Persistence("get first sensor", err)
	}
	return id, nil
}

// Sensors lists every sensor.
func (s *SeriesService) Sensors(ctx context.Context) ([]models.Sensor, error) {
	sensors, err := s.sensors.List(ctx)
	if err != nil {
		return nil, apperr.Persistence("list sensors", err)
	}
	if sensors == nil {
		sensors = []models.Sensor{}
	}
	return sensors, nil
}

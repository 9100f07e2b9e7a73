package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/evaluator"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/metrics"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/notify"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"go.uber.org/zap"
)

// AlertPublisher receives alerts after their transaction committed.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, ev notify.AlertEvent) error
}

// IngestRequest is one sensor reading.
type IngestRequest struct {
	SensorID  int64
	Value     float64
	Timestamp time.Time
}

// IngestResult reports the stored reading and the alert it fired, if any.
type IngestResult struct {
	ReadingID int64               `json:"reading_id"`
	Alert     *models.AlertRecord `json:"alert,omitempty"`
}

// IngestService stores readings and records streak alerts atomically with them.
type IngestService struct {
	db        *sql.DB
	sensors   *repository.SensorRepository
	readings  *repository.ReadingRepository
	failures  *repository.FailureRepository
	alerts    *repository.AlertRepository
	detector  *evaluator.StreakDetector
	publisher AlertPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewIngestService(db *sql.DB, detector *evaluator.StreakDetector, publisher AlertPublisher, m *metrics.Metrics, logger *zap.Logger) *IngestService {
	return &IngestService{
		db:        db,
		sensors:   repository.NewSensorRepository(db, logger),
		readings:  repository.NewReadingRepository(db, logger),
		failures:  repository.NewFailureRepository(db, logger),
		alerts:    repository.NewAlertRepository(db, logger),
		detector:  detector,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest runs insert, streak evaluation and alert recording in one transaction.
// The sensor row is locked first so readings of one sensor are evaluated one at a time.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	started := s.now()
	result, ev, err := s.ingestTx(ctx, req)
	if err != nil {
		s.metrics.ObserveIngest("error", s.now().Sub(started))
		return nil, err
	}
	s.metrics.ObserveIngest("ok", s.now().Sub(started))

	if ev != nil {
		s.metrics.AlertFired(ev.Source)
		s.logger.Info("Streak alert fired",
			zap.Int64("sensor_id", ev.SensorID),
			zap.Int64("piece_id", ev.PieceID),
			zap.Int64("alert_id", ev.AlertID),
			zap.Float64("value", ev.Value),
		)
		s.publish(ctx, *ev)
	}
	return result, nil
}

func (s *IngestService) ingestTx(ctx context.Context, req IngestRequest) (*IngestResult, *notify.AlertEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, apperr.Persistence("begin ingest", err)
	}
	defer tx.Rollback()

	sensor, err := s.sensors.WithTx(tx).GetForUpdate(ctx, req.SensorID)
	if err != nil {
		return nil, nil, apperr.Persistence("lock sensor", err)
	}
	if sensor == nil {
		return nil, nil, apperr.InvalidReference("sensor", req.SensorID)
	}

	readings := s.readings.WithTx(tx)
	ts := req.Timestamp.UTC()
	readingID, err := readings.Insert(ctx, sensor.SensorID, req.Value, ts)
	if err != nil {
		return nil, nil, apperr.Persistence("insert reading", err)
	}

	reading := models.Reading{ReadingID: readingID, SensorID: sensor.SensorID, Value: req.Value, ReadAt: ts}
	decision, err := s.detector.Evaluate(ctx, readings, *sensor, reading)
	if err != nil {
		return nil, nil, apperr.Persistence("evaluate streak", err)
	}

	result := &IngestResult{ReadingID: readingID}
	var ev *notify.AlertEvent
	if decision != nil {
		failureID, err := s.failures.WithTx(tx).Create(ctx, sensor.PieceID, decision.Description, ts)
		if err != nil {
			return nil, nil, apperr.Persistence("record failure", err)
		}
		alertID, err := s.alerts.WithTx(tx).Create(ctx, &failureID, models.RiskHigh, s.now())
		if err != nil {
			return nil, nil, apperr.Persistence("record alert", err)
		}
		result.Alert = &models.AlertRecord{AlertID: alertID, FailureID: &failureID, RiskLevel: models.RiskHigh}
		threshold := decision.Threshold
		ev = &notify.AlertEvent{
			Source:     "streak",
			AlertID:    alertID,
			FailureID:  &failureID,
			RiskLevel:  models.RiskHigh,
			PieceID:    sensor.PieceID,
			SensorID:   sensor.SensorID,
			SensorKind: sensor.SensorKind,
			Value:      req.Value,
			Threshold:  &threshold,
			ReadAt:     ts,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, apperr.Persistence("commit ingest", err)
	}
	return result, ev, nil
}

// publish is best effort: the alert is already committed.
func (s *IngestService) publish(ctx context.Context, ev notify.AlertEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAlert(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish alert",
			zap.Int64("alert_id", ev.AlertID),
			zap.Error(err),
		)
	}
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/metrics"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/notify"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"go.uber.org/zap"
)

// ManualAlertRequest raises a standalone alert.
type ManualAlertRequest struct {
	SensorID  int64
	RiskLevel string
	Value     float64
	Timestamp time.Time
}

// AlertService creates standalone alerts and lists recent ones.
// Standalone alerts skip streak confirmation and have no failure.
type AlertService struct {
	sensors   *repository.SensorRepository
	alerts    *repository.AlertRepository
	publisher AlertPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewAlertService(db repository.DBTX, publisher AlertPublisher, m *metrics.Metrics, logger *zap.Logger) *AlertService {
	return &AlertService{
		sensors:   repository.NewSensorRepository(db, logger),
		alerts:    repository.NewAlertRepository(db, logger),
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Raise validates the sensor and stores the alert.
func (s *AlertService) Raise(ctx context.Context, req ManualAlertRequest) (*models.AlertRecord, error) {
	sensor, err := s.sensors.Get(ctx, req.SensorID)
	if err != nil {
		return nil, apperr.Persistence("get sensor", err)
	}
	if sensor == nil {
		return nil, apperr.InvalidReference("sensor", req.SensorID)
	}

	risk := strings.ToUpper(strings.TrimSpace(req.RiskLevel))
	if risk == "" {
		risk = models.RiskHigh
	}
	ts := req.Timestamp.UTC()

	alertID, err := s.alerts.Create(ctx, nil, risk, ts)
	if err != nil {
		return nil, apperr.Persistence("create alert", err)
	}

	s.metrics.AlertFired("manual")
	s.logger.Info("Manual alert raised",
		zap.Int64("alert_id", alertID),
		zap.Int64("sensor_id", sensor.SensorID),
		zap.String("risk_level", risk),
	)
	if s.publisher != nil {
		ev := notify.AlertEvent{
			Source:     "manual",
			AlertID:    alertID,
			RiskLevel:  risk,
			PieceID:    sensor.PieceID,
			SensorID:   sensor.SensorID,
			SensorKind: sensor.SensorKind,
			Value:      req.Value,
			ReadAt:     ts,
		}
		if err := s.publisher.PublishAlert(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish alert", zap.Int64("alert_id", alertID), zap.Error(err))
		}
	}
	return &models.AlertRecord{AlertID: alertID, RiskLevel: risk}, nil
}

// Recent lists the newest alerts.
func (s *AlertService) Recent(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		return nil, apperr.Validation("limit", "must be positive")
	}
	alerts, err := s.alerts.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperr.Persistence("list alerts", err)
	}
	return alerts, nil
}

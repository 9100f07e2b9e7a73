// Package notify publishes fired alerts to a Redis stream.
package notify

import (
	"context"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/common/redis"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertEvent is the stream payload for one alert.
type AlertEvent struct {
	EventID    string    `json:"event_id"`
	Source     string    `json:"source"` // streak | manual
	AlertID    int64     `json:"alert_id"`
	FailureID  *int64    `json:"failure_id,omitempty"`
	RiskLevel  string    `json:"risk_level"`
	PieceID    int64     `json:"piece_id"`
	SensorID   int64     `json:"sensor_id"`
	SensorKind string    `json:"sensor_kind"`
	Value      float64   `json:"value"`
	Threshold  *float64  `json:"threshold,omitempty"`
	ReadAt     time.Time `json:"read_at"`
}

// StreamPublisher appends alert events to a Redis stream.
type StreamPublisher struct {
	client *goredis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

func NewStreamPublisher(client *goredis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// PublishAlert assigns an event id when missing and appends the event.
func (p *StreamPublisher) PublishAlert(ctx context.Context, ev AlertEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	id, err := redis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, ev)
	if err != nil {
		return err
	}
	p.logger.Debug("Alert published",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("event_id", ev.EventID),
		zap.Int64("alert_id", ev.AlertID),
	)
	return nil
}

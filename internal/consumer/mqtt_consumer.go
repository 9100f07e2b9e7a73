// Package consumer feeds readings published over MQTT into the ingest path.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Phaeld/fiap-enterprise-challenge/common/mqtt"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"go.uber.org/zap"
)

// Subscriber is the MQTT client surface the consumer needs.
type Subscriber interface {
	Subscribe(topic string, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// Ingester stores one reading.
type Ingester interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestResult, error)
}

// readingMessage is the MQTT payload. SensorID overrides the id in the topic.
type readingMessage struct {
	SensorID  *int64   `json:"sensor_id"`
	Value     *float64 `json:"value"`
	Timestamp string   `json:"timestamp"`
}

// MQTTConsumer subscribes to reading topics of the form fleet/sensors/{sensor_id}/readings.
type MQTTConsumer struct {
	client   Subscriber
	topic    string
	ingester Ingester
	logger   *zap.Logger
	ctx      context.Context
}

func NewMQTTConsumer(client Subscriber, topic string, ingester Ingester, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		client:   client,
		topic:    topic,
		ingester: ingester,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// Start subscribes and blocks until ctx is cancelled.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.client.Subscribe(c.topic, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to reading topic: %w", err)
	}
	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))

	<-ctx.Done()

	if err := c.client.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	var msg readingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal reading: %w", err)
	}

	sensorID, err := sensorIDFromTopic(topic)
	if msg.SensorID != nil {
		sensorID, err = *msg.SensorID, nil
	}
	if err != nil {
		return err
	}
	if msg.Value == nil {
		return apperr.Validation("value", "is required")
	}
	ts, err := models.ParseTimestamp("timestamp", msg.Timestamp)
	if err != nil {
		return err
	}

	res, err := c.ingester.Ingest(c.ctx, service.IngestRequest{SensorID: sensorID, Value: *msg.Value, Timestamp: ts})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidReference) {
			c.logger.Warn("Reading for unknown sensor dropped",
				zap.String("topic", topic),
				zap.Int64("sensor_id", sensorID),
			)
			return nil
		}
		return err
	}

	c.logger.Debug("Reading ingested from MQTT",
		zap.String("topic", topic),
		zap.Int64("reading_id", res.ReadingID),
		zap.Bool("alert", res.Alert != nil),
	)
	return nil
}

// sensorIDFromTopic takes the segment after "sensors".
func sensorIDFromTopic(topic string) (int64, error) {
	parts := strings.Split(topic, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "sensors" {
			id, err := strconv.ParseInt(parts[i+1], 10, 64)
			if err != nil {
				break
			}
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: no sensor id in topic %s", apperr.ErrInvalidRequest, topic)
}

package httpapi

import (
	"context"
	"net/http"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"go.uber.org/zap"
)

// Ingester stores one reading.
type Ingester interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestResult, error)
}

// SeriesReader serves series and sensor listings.
type SeriesReader interface {
	Series(ctx context.Context, sensorID *int64, minutes, limit int) (*models.Series, error)
	Sensors(ctx context.Context) ([]models.Sensor, error)
}

// ReadingHandler serves the reading endpoints.
type ReadingHandler struct {
	ingester Ingester
	series   SeriesReader
	logger   *zap.Logger
}

func NewReadingHandler(ingester Ingester, series SeriesReader, logger *zap.Logger) *ReadingHandler {
	return &ReadingHandler{ingester: ingester, series: series, logger: logger}
}

type readingRequest struct {
	SensorID  *int64   `json:"sensor_id"`
	Value     *float64 `json:"value"`
	Timestamp string   `json:"timestamp"`
}

type ingestResponse struct {
	OK        bool                `json:"ok"`
	ReadingID int64               `json:"reading_id"`
	Alert     *models.AlertRecord `json:"alert,omitempty"`
}

// Ingest handles POST /api/readings.
func (h *ReadingHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var body readingRequest
	if err := readBodyJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if body.SensorID == nil {
		writeError(w, h.logger, apperr.Validation("sensor_id", "is required"))
		return
	}
	if body.Value == nil {
		writeError(w, h.logger, apperr.Validation("value", "is required"))
		return
	}
	ts, err := models.ParseTimestamp("timestamp", body.Timestamp)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.ingester.Ingest(r.Context(), service.IngestRequest{
		SensorID:  *body.SensorID,
		Value:     *body.Value,
		Timestamp: ts,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingestResponse{OK: true, ReadingID: res.ReadingID, Alert: res.Alert})
}

// Series handles GET /api/readings/series.
func (h *ReadingHandler) Series(w http.ResponseWriter, r *http.Request) {
	sensorID, err := queryInt64(r, "sensor_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	minutes, err := queryInt(r, "minutes", service.DefaultSeriesMinutes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultSeriesLimit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	series, err := h.series.Series(r.Context(), sensorID, minutes, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// Sensors handles GET /api/sensors.
func (h *ReadingHandler) Sensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.series.Sensors(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sensors)
}

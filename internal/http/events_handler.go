package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"go.uber.org/zap"
)

const defaultRecentAlerts = 50

// CycleHandler applies fleet-wide cycle events.
type CycleHandler interface {
	Handle(ctx context.Context, event string, ts time.Time) (*service.CycleEventResult, error)
}

// AlertRaiser creates standalone alerts and lists recent ones.
type AlertRaiser interface {
	Raise(ctx context.Context, req service.ManualAlertRequest) (*models.AlertRecord, error)
	Recent(ctx context.Context, limit int) ([]models.Alert, error)
}

// EventHandler serves cycle events and manual alerts.
type EventHandler struct {
	cycles CycleHandler
	alerts AlertRaiser
	logger *zap.Logger
}

func NewEventHandler(cycles CycleHandler, alerts AlertRaiser, logger *zap.Logger) *EventHandler {
	return &EventHandler{cycles: cycles, alerts: alerts, logger: logger}
}

type cycleEventRequest struct {
	Event string `json:"event"`
	TS    string `json:"ts"`
}

type cycleEventResponse struct {
	OK bool `json:"ok"`
	*service.CycleEventResult
}

// CycleEvent handles POST /api/cycle-events.
func (h *EventHandler) CycleEvent(w http.ResponseWriter, r *http.Request) {
	var body cycleEventRequest
	if err := readBodyJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if body.Event == "" {
		writeError(w, h.logger, apperr.Validation("event", "is required"))
		return
	}
	ts, err := models.ParseTimestamp("ts", body.TS)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.cycles.Handle(r.Context(), body.Event, ts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cycleEventResponse{OK: true, CycleEventResult: res})
}

type manualAlertRequest struct {
	SensorID  *int64  `json:"sensor_id"`
	RiskLevel string  `json:"risk_level"`
	Value     float64 `json:"value"`
	TS        string  `json:"ts"`
}

type manualAlertResponse struct {
	OK        bool   `json:"ok"`
	AlertID   int64  `json:"alert_id"`
	RiskLevel string `json:"risk_level"`
}

// RaiseAlert handles POST /api/alerts.
func (h *EventHandler) RaiseAlert(w http.ResponseWriter, r *http.Request) {
	var body manualAlertRequest
	if err := readBodyJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if body.SensorID == nil {
		writeError(w, h.logger, apperr.Validation("sensor_id", "is required"))
		return
	}
	ts, err := models.ParseTimestamp("ts", body.TS)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rec, err := h.alerts.Raise(r.Context(), service.ManualAlertRequest{
		SensorID:  *body.SensorID,
		RiskLevel: body.RiskLevel,
		Value:     body.Value,
		Timestamp: ts,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, manualAlertResponse{OK: true, AlertID: rec.AlertID, RiskLevel: rec.RiskLevel})
}

// RecentAlerts handles GET /api/alerts.
func (h *EventHandler) RecentAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultRecentAlerts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	alerts, err := h.alerts.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

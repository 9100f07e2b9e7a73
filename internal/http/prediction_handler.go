package httpapi

import (
	"context"
	"net/http"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/prediction"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"go.uber.org/zap"
)

// Predictor answers model queries.
type Predictor interface {
	PredictState(ctx context.Context, input map[string]float64) (interface{}, error)
	PredictFailure(ctx context.Context, input map[string]float64, threshold *float64) (prediction.FailureResult, error)
	Snapshot(ctx context.Context, opts service.SnapshotOptions) ([]models.SnapshotEntry, error)
}

// PredictionHandler serves the prediction endpoints.
type PredictionHandler struct {
	predictor Predictor
	logger    *zap.Logger
}

func NewPredictionHandler(predictor Predictor, logger *zap.Logger) *PredictionHandler {
	return &PredictionHandler{predictor: predictor, logger: logger}
}

type stateResponse struct {
	State interface{} `json:"state"`
}

// State handles POST /api/predict/state.
func (h *PredictionHandler) State(w http.ResponseWriter, r *http.Request) {
	var input map[string]float64
	if err := readBodyJSON(r, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}
	label, err := h.predictor.PredictState(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: label})
}

// Failure handles POST /api/predict/failure24h.
func (h *PredictionHandler) Failure(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryFloat(r, "threshold")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var input map[string]float64
	if err := readBodyJSON(r, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.predictor.PredictFailure(r.Context(), input, threshold)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Snapshot handles GET /api/predict/snapshot.
func (h *PredictionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var opts service.SnapshotOptions
	var err error
	if opts.TempMinutes, err = queryInt(r, "temp_minutes", 0); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if opts.VibMinutes, err = queryInt(r, "vib_minutes", 0); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if opts.Threshold, err = queryFloat(r, "threshold"); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := h.predictor.Snapshot(r.Context(), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/features"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/metrics"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/prediction"

	"go.uber.org/zap"
)

// Predictor is the loaded prediction gateway.
type Predictor interface {
	PredictState(ctx context.Context, input map[string]float64) (interface{}, error)
	PredictFailure(ctx context.Context, input map[string]float64, threshold *float64) (prediction.FailureResult, error)
	DefaultThreshold() float64
}

// SnapshotAggregator computes a piece's live features.
type SnapshotAggregator interface {
	Snapshot(ctx context.Context, pieceID int64, now time.Time, w features.Windows) (models.FeatureVector, error)
}

// SnapshotOptions are the optional query parameters of a snapshot.
type SnapshotOptions struct {
	TempMinutes int
	VibMinutes  int
	Threshold   *float64
}

// PredictionService answers prediction and snapshot queries.
// When the gateway failed to load, every call returns that load error.
type PredictionService struct {
	predictor  Predictor
	loadErr    error
	pieces     features.PieceLister
	aggregator SnapshotAggregator
	defaults   SnapshotOptions
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewPredictionService(predictor Predictor, loadErr error, pieces features.PieceLister, aggregator SnapshotAggregator, defaults SnapshotOptions, m *metrics.Metrics, logger *zap.Logger) *PredictionService {
	return &PredictionService{
		predictor:  predictor,
		loadErr:    loadErr,
		pieces:     pieces,
		aggregator: aggregator,
		defaults:   defaults,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *PredictionService) ready() error {
	if s.predictor != nil {
		return nil
	}
	if s.loadErr != nil {
		return s.loadErr
	}
	return apperr.ErrModelUnavailable
}

// requireFeatures rejects request bodies lacking a base feature under every accepted name.
func requireFeatures(input map[string]float64) error {
	if missing := inputSchema.Missing(input); len(missing) > 0 {
		return apperr.Validation(strings.Join(missing, ","), "is required")
	}
	return nil
}

var inputSchema = prediction.DefaultSchema()

// PredictState returns the state label.
func (s *PredictionService) PredictState(ctx context.Context, input map[string]float64) (interface{}, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireFeatures(input); err != nil {
		return nil, err
	}
	label, err := s.predictor.PredictState(ctx, input)
	s.metrics.Prediction("state", err)
	return label, err
}

// PredictFailure returns the failure probability and flag.
func (s *PredictionService) PredictFailure(ctx context.Context, input map[string]float64, threshold *float64) (prediction.FailureResult, error) {
	if err := s.ready(); err != nil {
		return prediction.FailureResult{}, err
	}
	if err := requireFeatures(input); err != nil {
		return prediction.FailureResult{}, err
	}
	res, err := s.predictor.PredictFailure(ctx, input, threshold)
	s.metrics.Prediction("failure", err)
	return res, err
}

// Snapshot computes live features and both predictions for every piece.
func (s *PredictionService) Snapshot(ctx context.Context, opts SnapshotOptions) ([]models.SnapshotEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if opts.TempMinutes <= 0 {
		opts.TempMinutes = s.defaults.TempMinutes
	}
	if opts.VibMinutes <= 0 {
		opts.VibMinutes = s.defaults.VibMinutes
	}
	w := features.Windows{
		Temperature: time.Duration(opts.TempMinutes) * time.Minute,
		Vibration:   time.Duration(opts.VibMinutes) * time.Minute,
	}

	pieces, err := s.pieces.List(ctx)
	if err != nil {
		return nil, apperr.Persistence("list pieces", err)
	}

	now := s.now().UTC()
	entries := make([]models.SnapshotEntry, 0, len(pieces))
	for _, p := range pieces {
		fv, err := s.aggregator.Snapshot(ctx, p.PieceID, now, w)
		if err != nil {
			return nil, apperr.Persistence("compute snapshot", err)
		}
		input := fv.Map()
		state, err := s.PredictState(ctx, input)
		if err != nil {
			return nil, err
		}
		fail, err := s.PredictFailure(ctx, input, opts.Threshold)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.SnapshotEntry{
			PieceID:            p.PieceID,
			Kind:               p.Kind,
			Features:           fv,
			PredictedState:     state,
			FailureProbability: fail.Probability,
			FailureFlag:        fail.Flag,
		})
	}
	return entries, nil
}

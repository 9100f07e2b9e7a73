// Package prediction adapts feature vectors to the state and failure models.
package prediction

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/config"

	"go.uber.org/zap"
)

// FailureResult is the normalized failure prediction.
type FailureResult struct {
	Flag        int     `json:"flag"`
	Probability float64 `json:"probability"`
	Threshold   float64 `json:"threshold"`
}

// Gateway holds both loaded models and their schema bindings.
// It is built once at startup and shared; it does not retry.
type Gateway struct {
	schema           *FeatureSchema
	state            Classifier
	failure          Scorer
	stateBinding     *Binding
	failureBinding   *Binding
	defaultThreshold float64
	logger           *zap.Logger
}

// NewGateway validates both models against schema.
func NewGateway(schema *FeatureSchema, state Classifier, failure Scorer, defaultThreshold float64, logger *zap.Logger) (*Gateway, error) {
	stateBinding, err := schema.Bind(state.Columns())
	if err != nil {
		return nil, fmt.Errorf("state model: %w", err)
	}
	failureBinding, err := schema.Bind(failure.Columns())
	if err != nil {
		return nil, fmt.Errorf("failure model: %w", err)
	}
	return &Gateway{
		schema:           schema,
		state:            state,
		failure:          failure,
		stateBinding:     stateBinding,
		failureBinding:   failureBinding,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}, nil
}

// Open loads the configured backend and builds the gateway.
func Open(ctx context.Context, cfg config.PredictionConfig, logger *zap.Logger) (*Gateway, error) {
	var (
		state   Classifier
		failure Scorer
	)
	switch cfg.Backend {
	case "remote":
		s, err := NewRemoteModel(ctx, cfg.RemoteURL, cfg.StateModel, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		f, err := NewRemoteModel(ctx, cfg.RemoteURL, cfg.FailureModel, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		state, failure = s, f
	default:
		s, err := LoadLinearModel(filepath.Join(cfg.ModelDir, cfg.StateArtifact))
		if err != nil {
			return nil, err
		}
		f, err := LoadLinearModel(filepath.Join(cfg.ModelDir, cfg.FailureArtifact))
		if err != nil {
			return nil, err
		}
		state, failure = s, f
	}

	g, err := NewGateway(DefaultSchema(), state, failure, cfg.DefaultThreshold, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Prediction gateway ready",
		zap.String("backend", cfg.Backend),
		zap.String("schema", SchemaVersion),
		zap.Strings("state_columns", g.stateBinding.Columns),
		zap.Strings("failure_columns", g.failureBinding.Columns),
	)
	return g, nil
}

// DefaultThreshold is used when callers pass none.
func (g *Gateway) DefaultThreshold() float64 { return g.defaultThreshold }

// PredictState returns the state label for a feature mapping keyed by name or alias.
func (g *Gateway) PredictState(ctx context.Context, input map[string]float64) (interface{}, error) {
	x := g.stateBinding.Vector(g.schema.Normalize(input))
	label, err := g.state.Predict(ctx, x)
	if err != nil {
		return nil, fmt.Errorf("state prediction failed: %w", err)
	}
	return label, nil
}

// PredictFailure scores the failure model. threshold nil uses the default.
func (g *Gateway) PredictFailure(ctx context.Context, input map[string]float64, threshold *float64) (FailureResult, error) {
	th := g.defaultThreshold
	if threshold != nil {
		th = *threshold
	}
	x := g.failureBinding.Vector(g.schema.Normalize(input))
	p, err := g.failure.Probability(ctx, x)
	if err != nil {
		return FailureResult{}, fmt.Errorf("failure prediction failed: %w", err)
	}
	res := FailureResult{Probability: p, Threshold: th}
	if p >= th {
		res.Flag = 1
	}
	return res, nil
}

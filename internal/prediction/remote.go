package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RemoteModel calls a model server over HTTP.
type RemoteModel struct {
	name    string
	columns []string
	client  *resty.Client
	logger  *zap.Logger
}

type metadataResponse struct {
	Name         string   `json:"name"`
	FeatureNames []string `json:"feature_names"`
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions   []interface{} `json:"predictions"`
	Probabilities []float64     `json:"probabilities"`
}

// NewRemoteModel fetches the model's metadata once. Any failure is ErrModelUnavailable.
func NewRemoteModel(ctx context.Context, baseURL, name string, timeout time.Duration, logger *zap.Logger) (*RemoteModel, error) {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	var meta metadataResponse
	resp, err := client.R().
		SetContext(ctx).
		SetPathParam("name", name).
		SetResult(&meta).
		Get("/v1/models/{name}/metadata")
	if err != nil {
		return nil, fmt.Errorf("%w: metadata for %s: %w", apperr.ErrModelUnavailable, name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: metadata for %s: status %d", apperr.ErrModelUnavailable, name, resp.StatusCode())
	}

	logger.Info("Remote model ready",
		zap.String("model", name),
		zap.Strings("feature_names", meta.FeatureNames),
	)
	return &RemoteModel{
		name:    name,
		columns: meta.FeatureNames,
		client:  client,
		logger:  logger,
	}, nil
}

func (m *RemoteModel) Columns() []string { return m.columns }

func (m *RemoteModel) call(ctx context.Context, x []float64) (*predictResponse, error) {
	var out predictResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetPathParam("name", m.name).
		SetBody(predictRequest{Instances: [][]float64{x}}).
		SetResult(&out).
		Post("/v1/models/{name}:predict")
	if err != nil {
		return nil, fmt.Errorf("failed to call model %s: %w", m.name, err)
	}
	if resp.IsError() {
		m.logger.Error("Model server returned error",
			zap.String("model", m.name),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("model %s returned status %d", m.name, resp.StatusCode())
	}
	return &out, nil
}

func (m *RemoteModel) Predict(ctx context.Context, x []float64) (interface{}, error) {
	out, err := m.call(ctx, x)
	if err != nil {
		return nil, err
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("model %s returned no predictions", m.name)
	}
	return NormalizeLabel(out.Predictions[0]), nil
}

func (m *RemoteModel) Probability(ctx context.Context, x []float64) (float64, error) {
	out, err := m.call(ctx, x)
	if err != nil {
		return 0, err
	}
	if len(out.Probabilities) == 0 {
		return 0, fmt.Errorf("model %s returned no probabilities", m.name)
	}
	return out.Probabilities[0], nil
}

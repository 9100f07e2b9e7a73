package prediction

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeModel(t *testing.T, dir, name string, m LinearModel) {
	t.Helper()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o600))
}

func stateModel() LinearModel {
	// class 2 wins when temperature is high, class 0 otherwise
	return LinearModel{
		Name:         "equipment-state",
		Kind:         "softmax",
		FeatureNames: []string{"tempo_uso", "ciclos", "temperatura", "vibracao"},
		Coefficients: [][]float64{
			{0, 0, -0.1, 0},
			{0, 0, 0, 0},
			{0, 0, 0.1, 0},
		},
		Intercepts: []float64{0, 0, 0},
		Classes:    []interface{}{0.0, 1.0, 2.0},
	}
}

func failureModel() LinearModel {
	return LinearModel{
		Name:         "failure-24h",
		Kind:         "logistic",
		FeatureNames: []string{"temperature", "vibration"},
		Coefficients: [][]float64{{0.1, 0}},
		Intercepts:   []float64{-8},
	}
}

func artifactConfig(dir string) config.PredictionConfig {
	return config.PredictionConfig{
		Backend:          "artifact",
		ModelDir:         dir,
		StateArtifact:    "state_model.json",
		FailureArtifact:  "failure_model.json",
		DefaultThreshold: 0.5,
	}
}

func TestSchema_NormalizeAliases(t *testing.T) {
	s := DefaultSchema()
	got := s.Normalize(map[string]float64{
		"tempo_uso_total": 12,
		"qtd_ciclos":      3,
		"Temp":            81,
		"vibration":       2,
		"vib":             9,
		"unknown":         1,
	})
	assert.Equal(t, map[string]float64{
		"usage_minutes": 12,
		"cycle_count":   3,
		"temperature":   81,
		"vibration":     2,
	}, got)
}

func TestSchema_NormalizeConflictingAliasesIsStable(t *testing.T) {
	s := DefaultSchema()
	input := map[string]float64{"temp": 10, "temperatura": 90, "vib": 1, "vibracao": 2, "Ciclos": 5, "ciclos": 6}
	for i := 0; i < 100; i++ {
		got := s.Normalize(input)
		require.Equal(t, 90.0, got["temperature"])
		require.Equal(t, 2.0, got["vibration"])
		require.Equal(t, 5.0, got["cycle_count"])
	}

	input["temperature"] = 55
	assert.Equal(t, 55.0, s.Normalize(input)["temperature"])
}

func TestSchema_Missing(t *testing.T) {
	s := DefaultSchema()
	assert.Empty(t, s.Missing(map[string]float64{"tempo_uso": 1, "ciclos": 2, "temp": 3, "vib": 4}))
	assert.Equal(t, []string{"cycle_count", "vibration"}, s.Missing(map[string]float64{"usage": 1, "temperature": 3}))
}

func TestSchema_BindRejectsUnknownColumn(t *testing.T) {
	_, err := DefaultSchema().Bind([]string{"temperatura", "pressure"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrModelUnavailable)
}

func TestBinding_VectorSanitizes(t *testing.T) {
	b, err := DefaultSchema().Bind(nil)
	require.NoError(t, err)

	x := b.Vector(map[string]float64{
		"usage_minutes": math.NaN(),
		"temperature":   math.Inf(1),
		"vibration":     math.Inf(-1),
	})
	assert.Equal(t, []float64{0, 0, 1e9, -1e9}, x)
}

func TestOpen_MissingArtifactFailsFast(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "state_model.json", stateModel())

	_, err := Open(context.Background(), artifactConfig(dir), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrModelUnavailable)
}

func TestOpen_IncompatibleSchemaFailsFast(t *testing.T) {
	dir := t.TempDir()
	bad := failureModel()
	bad.FeatureNames = []string{"temperature", "humidity"}
	writeModel(t, dir, "state_model.json", stateModel())
	writeModel(t, dir, "failure_model.json", bad)

	_, err := Open(context.Background(), artifactConfig(dir), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "humidity")
}

func TestLoadLinearModel_Invalid(t *testing.T) {
	dir := t.TempDir()
	m := failureModel()
	m.Intercepts = nil
	writeModel(t, dir, "m.json", m)

	_, err := LoadLinearModel(filepath.Join(dir, "m.json"))
	assert.ErrorIs(t, err, apperr.ErrModelUnavailable)
}

func TestGateway_ArtifactPredictions(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "state_model.json", stateModel())
	writeModel(t, dir, "failure_model.json", failureModel())

	g, err := Open(context.Background(), artifactConfig(dir), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	label, err := g.PredictState(ctx, map[string]float64{"temperatura": 90})
	require.NoError(t, err)
	assert.Equal(t, int64(2), label)

	label, err = g.PredictState(ctx, map[string]float64{"temperature": -50})
	require.NoError(t, err)
	assert.Equal(t, int64(0), label)

	res, err := g.PredictFailure(ctx, map[string]float64{"temp": 80}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Probability, 1e-9)
	assert.Equal(t, 1, res.Flag)
	assert.Equal(t, 0.5, res.Threshold)

	th := 0.9
	res, err = g.PredictFailure(ctx, map[string]float64{"temp": 80}, &th)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Flag)
	assert.Equal(t, 0.9, res.Threshold)

	res, err = g.PredictFailure(ctx, map[string]float64{"temperature": math.NaN()}, nil)
	require.NoError(t, err)
	assert.Less(t, res.Probability, 0.01)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, int64(3), NormalizeLabel(3.0))
	assert.Equal(t, 2.5, NormalizeLabel(2.5))
	assert.Equal(t, int64(7), NormalizeLabel("7"))
	assert.Equal(t, "worn", NormalizeLabel("worn"))
}

func TestRemoteModel(t *testing.T) {
	var gotInstances [][]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models/equipment-state/metadata":
			json.NewEncoder(w).Encode(map[string]interface{}{"feature_names": []string{"ciclos", "temp"}})
		case "/v1/models/failure-24h/metadata":
			json.NewEncoder(w).Encode(map[string]interface{}{"feature_names": []string{"vib"}})
		case "/v1/models/equipment-state:predict":
			var req predictRequest
			json.NewDecoder(r.Body).Decode(&req)
			gotInstances = req.Instances
			json.NewEncoder(w).Encode(map[string]interface{}{"predictions": []interface{}{1}})
		case "/v1/models/failure-24h:predict":
			json.NewEncoder(w).Encode(map[string]interface{}{"probabilities": []float64{0.42}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.PredictionConfig{
		Backend:          "remote",
		RemoteURL:        srv.URL,
		StateModel:       "equipment-state",
		FailureModel:     "failure-24h",
		Timeout:          2 * time.Second,
		DefaultThreshold: 0.4,
	}
	g, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	label, err := g.PredictState(context.Background(), map[string]float64{"cycle_count": 4, "temperature": 70})
	require.NoError(t, err)
	assert.Equal(t, int64(1), label)
	assert.Equal(t, [][]float64{{4, 70}}, gotInstances)

	res, err := g.PredictFailure(context.Background(), map[string]float64{"vibration": 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, FailureResult{Flag: 1, Probability: 0.42, Threshold: 0.4}, res)
}

func TestRemoteModel_MetadataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemoteModel(context.Background(), srv.URL, "equipment-state", time.Second, zap.NewNop())
	assert.ErrorIs(t, err, apperr.ErrModelUnavailable)
}

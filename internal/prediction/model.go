package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
)

// Classifier predicts a state label from an ordered feature vector.
type Classifier interface {
	Columns() []string
	Predict(ctx context.Context, x []float64) (interface{}, error)
}

// Scorer predicts the probability of the positive class.
type Scorer interface {
	Columns() []string
	Probability(ctx context.Context, x []float64) (float64, error)
}

// LinearModel is a JSON model artifact.
// Kind "logistic" has one coefficient row; "softmax" has one row per class.
type LinearModel struct {
	Name         string        `json:"name"`
	Kind         string        `json:"kind"`
	FeatureNames []string      `json:"feature_names"`
	Coefficients [][]float64   `json:"coefficients"`
	Intercepts   []float64     `json:"intercepts"`
	Classes      []interface{} `json:"classes"`
}

// LoadLinearModel reads and validates an artifact. Any problem is ErrModelUnavailable.
func LoadLinearModel(path string) (*LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrModelUnavailable, err)
	}
	var m LinearModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", apperr.ErrModelUnavailable, path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrModelUnavailable, path, err)
	}
	return &m, nil
}

func (m *LinearModel) validate() error {
	rows := 1
	switch m.Kind {
	case "logistic":
		if len(m.Classes) == 0 {
			m.Classes = []interface{}{0.0, 1.0}
		}
		if len(m.Classes) != 2 {
			return fmt.Errorf("logistic model needs 2 classes, got %d", len(m.Classes))
		}
	case "softmax":
		rows = len(m.Classes)
		if rows < 2 {
			return fmt.Errorf("softmax model needs at least 2 classes, got %d", rows)
		}
	default:
		return fmt.Errorf("unknown model kind %q", m.Kind)
	}
	if len(m.Coefficients) != rows || len(m.Intercepts) != rows {
		return fmt.Errorf("expected %d coefficient rows and intercepts, got %d and %d",
			rows, len(m.Coefficients), len(m.Intercepts))
	}
	width := len(m.Coefficients[0])
	if width == 0 {
		return fmt.Errorf("empty coefficient row")
	}
	for _, row := range m.Coefficients {
		if len(row) != width {
			return fmt.Errorf("ragged coefficient rows")
		}
	}
	if len(m.FeatureNames) > 0 && len(m.FeatureNames) != width {
		return fmt.Errorf("%d feature names for %d coefficients", len(m.FeatureNames), width)
	}
	if len(m.FeatureNames) == 0 && width != len(DefaultSchema().Names) {
		return fmt.Errorf("model without feature names must take %d inputs", len(DefaultSchema().Names))
	}
	return nil
}

func (m *LinearModel) Columns() []string { return m.FeatureNames }

func (m *LinearModel) Predict(_ context.Context, x []float64) (interface{}, error) {
	if m.Kind == "logistic" {
		p := sigmoid(dot(m.Coefficients[0], x) + m.Intercepts[0])
		if p >= 0.5 {
			return NormalizeLabel(m.Classes[1]), nil
		}
		return NormalizeLabel(m.Classes[0]), nil
	}
	probs := m.softmax(x)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return NormalizeLabel(m.Classes[best]), nil
}

// Probability returns P(positive). For softmax the positive class is the last one.
func (m *LinearModel) Probability(_ context.Context, x []float64) (float64, error) {
	if m.Kind == "logistic" {
		return sigmoid(dot(m.Coefficients[0], x) + m.Intercepts[0]), nil
	}
	probs := m.softmax(x)
	return probs[len(probs)-1], nil
}

func (m *LinearModel) softmax(x []float64) []float64 {
	z := make([]float64, len(m.Coefficients))
	maxZ := math.Inf(-1)
	for i, row := range m.Coefficients {
		z[i] = dot(row, x) + m.Intercepts[i]
		maxZ = math.Max(maxZ, z[i])
	}
	var sum float64
	for i := range z {
		z[i] = math.Exp(z[i] - maxZ)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
	return z
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		if i < len(x) {
			s += w[i] * x[i]
		}
	}
	return s
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// NormalizeLabel renders integral labels as int64 and keeps others as given.
func NormalizeLabel(v interface{}) interface{} {
	switch l := v.(type) {
	case float64:
		if l == math.Trunc(l) && !math.IsInf(l, 0) {
			return int64(l)
		}
	case json.Number:
		if n, err := l.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(l, 10, 64); err == nil {
			return n
		}
	}
	return v
}

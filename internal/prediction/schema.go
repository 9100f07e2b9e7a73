package prediction

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/features"
)

// SchemaVersion identifies the feature contract models are validated against.
const SchemaVersion = "v1"

// Sanitized replacements for non-finite inputs.
const (
	PosInfValue = 1e9
	NegInfValue = -1e9
)

// FeatureSchema is the ordered set of named numeric inputs plus accepted aliases.
type FeatureSchema struct {
	Version string
	Names   []string
	aliases map[string]string

	// precedence lists, per canonical name, the accepted keys in lookup order.
	precedence map[string][]string
}

// DefaultSchema returns the v1 contract over the four base features.
func DefaultSchema() *FeatureSchema {
	s := &FeatureSchema{
		Version:    SchemaVersion,
		Names:      append([]string(nil), features.BaseNames...),
		aliases:    map[string]string{},
		precedence: map[string][]string{},
	}
	for _, n := range s.Names {
		s.aliases[n] = n
		s.precedence[n] = []string{n}
	}
	s.alias(features.UsageMinutes, "tempo_uso", "tempo_uso_total", "usage", "usage_min")
	s.alias(features.CycleCount, "ciclos", "qtd_ciclos", "cycles")
	s.alias(features.Temperature, "temperatura", "temp")
	s.alias(features.Vibration, "vibracao", "vib")
	return s
}

func (s *FeatureSchema) alias(canonical string, names ...string) {
	for _, n := range names {
		s.aliases[n] = canonical
		s.precedence[canonical] = append(s.precedence[canonical], n)
	}
}

// Canonical resolves a name or alias.
func (s *FeatureSchema) Canonical(name string) (string, bool) {
	c, ok := s.aliases[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Normalize rekeys input by canonical name. Unknown keys are ignored. When
// several accepted keys name one feature, the canonical name wins, then the
// aliases in declaration order. Keys differing only in case or surrounding
// space resolve in lexical order of the raw key.
func (s *FeatureSchema) Normalize(input map[string]float64) map[string]float64 {
	raw := make([]string, 0, len(input))
	for k := range input {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	folded := make(map[string]float64, len(input))
	for _, k := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, seen := folded[key]; !seen {
			folded[key] = input[k]
		}
	}

	out := make(map[string]float64, len(s.Names))
	for _, c := range s.Names {
		for _, name := range s.precedence[c] {
			if v, ok := folded[name]; ok {
				out[c] = v
				break
			}
		}
	}
	return out
}

// Missing lists canonical features absent from input under any name.
func (s *FeatureSchema) Missing(input map[string]float64) []string {
	normalized := s.Normalize(input)
	var missing []string
	for _, n := range s.Names {
		if _, ok := normalized[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Binding maps a model's expected columns onto canonical features.
type Binding struct {
	Columns   []string
	canonical []string
}

// Bind validates a model's column list. An empty list binds to schema order.
func (s *FeatureSchema) Bind(columns []string) (*Binding, error) {
	if len(columns) == 0 {
		columns = s.Names
	}
	b := &Binding{Columns: columns, canonical: make([]string, len(columns))}
	for i, col := range columns {
		c, ok := s.Canonical(col)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not in feature schema %s", apperr.ErrModelUnavailable, col, s.Version)
		}
		b.canonical[i] = c
	}
	return b, nil
}

// Vector orders normalized features for the model. Missing features are 0.
func (b *Binding) Vector(normalized map[string]float64) []float64 {
	x := make([]float64, len(b.canonical))
	for i, c := range b.canonical {
		x[i] = Sanitize(normalized[c])
	}
	return x
}

// Sanitize maps NaN to 0 and infinities to large finite bounds.
func Sanitize(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return PosInfValue
	case math.IsInf(v, -1):
		return NegInfValue
	default:
		return v
	}
}

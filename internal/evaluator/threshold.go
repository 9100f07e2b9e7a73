package evaluator

import (
	"math"
	"strings"
)

// ThresholdResolver maps a sensor kind to its alert threshold.
type ThresholdResolver struct {
	Temperature float64
	Vibration   float64
}

// Resolve matches kind case-insensitively by substring.
// Unknown kinds get the larger of the two thresholds.
func (r ThresholdResolver) Resolve(kind string) float64 {
	k := strings.ToLower(strings.TrimSpace(kind))
	switch {
	case strings.Contains(k, "temp"):
		return r.Temperature
	case strings.Contains(k, "vibra"):
		return r.Vibration
	default:
		return math.Max(r.Temperature, r.Vibration)
	}
}

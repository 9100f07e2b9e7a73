// Package features derives the model inputs from readings and cycles.
package features

import (
	"strings"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"
)

// Canonical base feature names shared by every mode and the prediction schema.
const (
	UsageMinutes = "usage_minutes"
	CycleCount   = "cycle_count"
	Temperature  = "temperature"
	Vibration    = "vibration"
)

// BaseNames lists the base features in schema order.
var BaseNames = []string{UsageMinutes, CycleCount, Temperature, Vibration}

type sensorClass int

const (
	classOther sensorClass = iota
	classTemperature
	classVibration
)

// classify uses the same markers as the live ILIKE patterns.
func classify(kind string) sensorClass {
	k := strings.ToLower(kind)
	switch {
	case strings.Contains(k, repository.TemperatureKindMarker):
		return classTemperature
	case strings.Contains(k, repository.VibrationKindMarker):
		return classVibration
	default:
		return classOther
	}
}

package models

import "time"

// FeatureVector carries the four base features every mode produces.
type FeatureVector struct {
	UsageMinutes float64 `json:"usage_minutes"`
	CycleCount   float64 `json:"cycle_count"`
	Temperature  float64 `json:"temperature"`
	Vibration    float64 `json:"vibration"`
}

// Map returns the vector keyed by canonical feature name.
func (v FeatureVector) Map() map[string]float64 {
	return map[string]float64{
		"usage_minutes": v.UsageMinutes,
		"cycle_count":   v.CycleCount,
		"temperature":   v.Temperature,
		"vibration":     v.Vibration,
	}
}

// DatasetRow is one backfilled observation for a piece.
type DatasetRow struct {
	PieceID      int64              `json:"piece_id"`
	Timestamp    time.Time          `json:"timestamp"`
	Features     FeatureVector      `json:"features"`
	FailureEvent bool               `json:"failure_event"`
	FailureID    *int64             `json:"failure_id,omitempty"`
	FailNextH    bool               `json:"fail_next_h"`
	Rolling      map[string]float64 `json:"rolling,omitempty"`

	// Filled by scoring.
	FailureFlag        *bool    `json:"failure_flag,omitempty"`
	FailureProbability *float64 `json:"failure_probability,omitempty"`
	RiskBucket         string   `json:"risk_bucket,omitempty"`
}

// SnapshotEntry is one piece in the live snapshot response.
type SnapshotEntry struct {
	PieceID            int64         `json:"piece_id"`
	Kind               string        `json:"kind"`
	Features           FeatureVector `json:"features"`
	PredictedState     interface{}   `json:"predicted_state"`
	FailureProbability float64       `json:"failure_probability"`
	FailureFlag        int           `json:"failure_flag"`
}

// Series is the response of the series query.
type Series struct {
	SensorID *int64    `json:"sensor_id"`
	X        []string  `json:"x"`
	Y        []float64 `json:"y"`
}

package models

import "time"

// RiskHigh is the only risk level the streak detector produces.
const RiskHigh = "HIGH"

// Piece is a monitored equipment unit.
type Piece struct {
	PieceID           int64   `json:"piece_id"`
	Kind              string  `json:"kind"`
	Manufacturer      *string `json:"manufacturer,omitempty"`
	TotalUsageMinutes float64 `json:"total_usage_minutes"` // denormalized, derived from cycles elsewhere
}

// Sensor belongs to exactly one piece.
type Sensor struct {
	SensorID   int64  `json:"sensor_id"`
	SensorKind string `json:"sensor_kind"`
	PieceID    int64  `json:"piece_id"`
}

// Reading is immutable once stored.
type Reading struct {
	ReadingID int64     `json:"reading_id"`
	SensorID  int64     `json:"sensor_id"`
	Value     float64   `json:"value"`
	ReadAt    time.Time `json:"read_at"`
}

// Cycle is an operating interval. EndedAt and DurationMinutes are nil while open.
type Cycle struct {
	CycleID         int64      `json:"cycle_id"`
	PieceID         int64      `json:"piece_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes *int64     `json:"duration_minutes,omitempty"`
}

// Open reports whether the cycle has no end time.
func (c Cycle) Open() bool {
	return c.EndedAt == nil
}

// Failure is an append-only record created by a confirmed streak.
type Failure struct {
	FailureID   int64     `json:"failure_id"`
	PieceID     int64     `json:"piece_id"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Alert optionally references a failure; standalone alerts have FailureID nil.
type Alert struct {
	AlertID   int64     `json:"alert_id"`
	FailureID *int64    `json:"failure_id,omitempty"`
	RiskLevel string    `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertRecord is what ingest surfaces to the caller when an alert fired.
type AlertRecord struct {
	AlertID   int64  `json:"alert_id"`
	FailureID *int64 `json:"failure_id,omitempty"`
	RiskLevel string `json:"risk_level"`
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"go.uber.org/zap"
)

// Sensor kind markers. Live queries match them with ILIKE, the backfill
// with a case-insensitive substring test.
const (
	TemperatureKindMarker = "temper"
	VibrationKindMarker   = "vibra"

	TemperatureKindPattern = "%" + TemperatureKindMarker + "%"
	VibrationKindPattern   = "%" + VibrationKindMarker + "%"
)

// KindReading is a reading annotated with its sensor kind.
type KindReading struct {
	models.Reading
	SensorKind string
}

// ReadingRepository stores and queries sensor readings.
type ReadingRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewReadingRepository(db DBTX, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{db: db, logger: logger}
}

// WithTx returns a copy bound to tx.
func (r *ReadingRepository) WithTx(tx *sql.Tx) *ReadingRepository {
	return &ReadingRepository{db: tx, logger: r.logger}
}

// Insert stores a reading and returns its id.
func (r *ReadingRepository) Insert(ctx context.Context, sensorID int64, value float64, readAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sensor_readings (sensor_id, value, read_at)
		VALUES ($1, $2, $3)
		RETURNING reading_id
	`, sensorID, value, readAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reading: %w", err)
	}
	return id, nil
}

// Latest returns up to n readings of the sensor, newest first.
// Equal timestamps are ordered by insertion, newest insertion first.
func (r *ReadingRepository) Latest(ctx context.Context, sensorID int64, n int) ([]models.Reading, error) {
	return r.query(ctx, `
		SELECT reading_id, sensor_id, value, read_at
		FROM sensor_readings
		WHERE sensor_id = $1
		ORDER BY read_at DESC, reading_id DESC
		LIMIT $2
	`, sensorID, n)
}

// Series returns readings of the sensor since the given time, ascending, capped at limit.
func (r *ReadingRepository) Series(ctx context.Context, sensorID int64, since time.Time, limit int) ([]models.Reading, error) {
	return r.query(ctx, `
		SELECT reading_id, sensor_id, value, read_at
		FROM sensor_readings
		WHERE sensor_id = $1 AND read_at >= $2
		ORDER BY read_at ASC, reading_id ASC
		LIMIT $3
	`, sensorID, since.UTC(), limit)
}

func (r *ReadingRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var rd models.Reading
		if err := rows.Scan(&rd.ReadingID, &rd.SensorID, &rd.Value, &rd.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}

// ValuesSince returns values of the piece's sensors whose kind matches pattern, read at or after since.
func (r *ReadingRepository) ValuesSince(ctx context.Context, pieceID int64, kindPattern string, since time.Time) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sr.value
		FROM sensor_readings sr
		JOIN sensors s ON s.sensor_id = sr.sensor_id
		WHERE s.piece_id = $1 AND s.sensor_kind ILIKE $2 AND sr.read_at >= $3
	`, pieceID, kindPattern, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query window values: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan window value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate window values: %w", err)
	}
	return values, nil
}

// LatestValue returns the most recent value of the piece's sensors matching pattern, or nil.
func (r *ReadingRepository) LatestValue(ctx context.Context, pieceID int64, kindPattern string) (*float64, error) {
	var v float64
	err := r.db.QueryRowContext(ctx, `
		SELECT sr.value
		FROM sensor_readings sr
		JOIN sensors s ON s.sensor_id = sr.sensor_id
		WHERE s.piece_id = $1 AND s.sensor_kind ILIKE $2
		ORDER BY sr.read_at DESC, sr.reading_id DESC
		LIMIT 1
	`, pieceID, kindPattern).Scan(&v)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest value: %w", err)
	}
	return &v, nil
}

// ListByPiece returns the full reading history of a piece, ascending by time then insertion.
func (r *ReadingRepository) ListByPiece(ctx context.Context, pieceID int64) ([]KindReading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sr.reading_id, sr.sensor_id, sr.value, sr.read_at, s.sensor_kind
		FROM sensor_readings sr
		JOIN sensors s ON s.sensor_id = sr.sensor_id
		WHERE s.piece_id = $1
		ORDER BY sr.read_at ASC, sr.reading_id ASC
	`, pieceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list piece readings: %w", err)
	}
	defer rows.Close()

	var readings []KindReading
	for rows.Next() {
		var kr KindReading
		if err := rows.Scan(&kr.ReadingID, &kr.SensorID, &kr.Value, &kr.ReadAt, &kr.SensorKind); err != nil {
			return nil, fmt.Errorf("failed to scan piece reading: %w", err)
		}
		readings = append(readings, kr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate piece readings: %w", err)
	}
	return readings, nil
}

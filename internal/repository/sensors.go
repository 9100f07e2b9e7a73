package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"go.uber.org/zap"
)

// SensorRepository reads and provisions sensors.
type SensorRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewSensorRepository(db DBTX, logger *zap.Logger) *SensorRepository {
	return &SensorRepository{db: db, logger: logger}
}

// WithTx returns a copy bound to tx.
func (r *SensorRepository) WithTx(tx *sql.Tx) *SensorRepository {
	return &SensorRepository{db: tx, logger: r.logger}
}

const sensorColumns = `sensor_id, sensor_kind, piece_id`

// Get returns the sensor or nil when it does not exist.
func (r *SensorRepository) Get(ctx context.Context, sensorID int64) (*models.Sensor, error) {
	return r.get(ctx, `SELECT `+sensorColumns+` FROM sensors WHERE sensor_id = $1`, sensorID)
}

// GetForUpdate locks the sensor row until the surrounding transaction ends.
// Concurrent ingests for the same sensor queue here.
func (r *SensorRepository) GetForUpdate(ctx context.Context, sensorID int64) (*models.Sensor, error) {
	return r.get(ctx, `SELECT `+sensorColumns+` FROM sensors WHERE sensor_id = $1 FOR UPDATE`, sensorID)
}

func (r *SensorRepository) get(ctx context.Context, query string, sensorID int64) (*models.Sensor, error) {
	var s models.Sensor
	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(&s.SensorID, &s.SensorKind, &s.PieceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}
	return &s, nil
}

// List returns every sensor ordered by id.
func (r *SensorRepository) List(ctx context.Context) ([]models.Sensor, error) {
	return r.list(ctx, `SELECT `+sensorColumns+` FROM sensors ORDER BY sensor_id`)
}

// ListByPiece returns the sensors of one piece ordered by id.
func (r *SensorRepository) ListByPiece(ctx context.Context, pieceID int64) ([]models.Sensor, error) {
	return r.list(ctx, `SELECT `+sensorColumns+` FROM sensors WHERE piece_id = $1 ORDER BY sensor_id`, pieceID)
}

func (r *SensorRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.SensorID, &s.SensorKind, &s.PieceID); err != nil {
			return nil, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensors: %w", err)
	}
	return sensors, nil
}

// FirstID returns the lowest sensor id, or nil when there are no sensors.
func (r *SensorRepository) FirstID(ctx context.Context) (*int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT sensor_id FROM sensors ORDER BY sensor_id LIMIT 1`).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get first sensor: %w", err)
	}
	return &id, nil
}

// Create inserts a sensor for pieceID.
func (r *SensorRepository) Create(ctx context.Context, pieceID int64, kind string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sensors (sensor_kind, piece_id)
		VALUES ($1, $2)
		RETURNING sensor_id
	`, kind, pieceID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create sensor: %w", err)
	}
	return id, nil
}

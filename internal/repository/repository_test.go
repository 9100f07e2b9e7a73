package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestEnsureSchema(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS pieces`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSensorRepository_GetForUpdate_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSensorRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT sensor_id, sensor_kind, piece_id FROM sensors WHERE sensor_id = \$1 FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	sensor, err := repo.GetForUpdate(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, sensor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSensorRepository_FirstID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSensorRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT sensor_id FROM sensors ORDER BY sensor_id LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"sensor_id"}).AddRow(int64(3)))

	id, err := repo.FirstID(context.Background())
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(3), *id)
}

func TestReadingRepository_Latest_OrdersNewestFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingRepository(db, zap.NewNop())

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"reading_id", "sensor_id", "value", "read_at"}).
		AddRow(int64(12), int64(1), 82.0, t0.Add(60*time.Second)).
		AddRow(int64(11), int64(1), 90.0, t0.Add(30*time.Second)).
		AddRow(int64(10), int64(1), 85.0, t0)

	mock.ExpectQuery(`ORDER BY read_at DESC, reading_id DESC\s+LIMIT \$2`).
		WithArgs(int64(1), 3).
		WillReturnRows(rows)

	readings, err := repo.Latest(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, int64(12), readings[0].ReadingID)
	assert.Equal(t, 85.0, readings[2].Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingRepository_LatestValue_None(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT sr.value`).
		WithArgs(int64(7), VibrationKindPattern).
		WillReturnError(sql.ErrNoRows)

	v, err := repo.LatestValue(context.Background(), 7, VibrationKindPattern)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCycleRepository_StartForAllPieces(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCycleRepository(db, zap.NewNop())

	ts := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO operating_cycles \(piece_id, started_at\)\s+SELECT piece_id, \$1 FROM pieces`).
		WithArgs(ts).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.StartForAllPieces(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCycleRepository_ListByPiece_NullableColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCycleRepository(db, zap.NewNop())

	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)
	rows := sqlmock.NewRows([]string{"cycle_id", "piece_id", "started_at", "ended_at", "duration_minutes"}).
		AddRow(int64(1), int64(5), start, end, int64(10)).
		AddRow(int64(2), int64(5), end.Add(time.Minute), nil, nil)

	mock.ExpectQuery(`FROM operating_cycles\s+WHERE piece_id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	cycles, err := repo.ListByPiece(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.False(t, cycles[0].Open())
	assert.Equal(t, int64(10), *cycles[0].DurationMinutes)
	assert.True(t, cycles[1].Open())
	assert.Nil(t, cycles[1].DurationMinutes)
}

func TestAlertRepository_CreateStandalone(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAlertRepository(db, zap.NewNop())

	ts := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO alerts`).
		WithArgs(nil, "HIGH", ts).
		WillReturnRows(sqlmock.NewRows([]string{"alert_id"}).AddRow(int64(9)))

	id, err := repo.Create(context.Background(), nil, "HIGH", ts)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureRepository_Create_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFailureRepository(db, zap.NewNop())

	mock.ExpectQuery(`INSERT INTO failures`).WillReturnError(sql.ErrConnDone)

	_, err := repo.Create(context.Background(), 1, "x", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "failed to create failure")
}

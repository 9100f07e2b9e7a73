package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource serves readings stored in insertion order.
type fakeSource struct {
	readings []models.Reading
	calls    int
	err      error
}

func (f *fakeSource) add(value float64, at time.Time) models.Reading {
	r := models.Reading{
		ReadingID: int64(len(f.readings) + 1),
		SensorID:  1,
		Value:     value,
		ReadAt:    at,
	}
	f.readings = append(f.readings, r)
	return r
}

func (f *fakeSource) Latest(_ context.Context, _ int64, n int) ([]models.Reading, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	sorted := make([]models.Reading, len(f.readings))
	copy(sorted, f.readings)
	// newest first by time, then by insertion
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			a, b := sorted[j-1], sorted[j]
			if b.ReadAt.After(a.ReadAt) || (b.ReadAt.Equal(a.ReadAt) && b.ReadingID > a.ReadingID) {
				sorted[j-1], sorted[j] = b, a
			}
		}
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

var (
	t0          = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tempSensor  = models.Sensor{SensorID: 1, SensorKind: "temperatura", PieceID: 7}
	defaultRule = ThresholdResolver{Temperature: 80, Vibration: 80}
)

func newDetector() *StreakDetector {
	return NewStreakDetector(defaultRule, 3, 120*time.Second, zap.NewNop())
}

func TestThresholdResolver_Resolve(t *testing.T) {
	r := ThresholdResolver{Temperature: 70, Vibration: 90}

	assert.Equal(t, 70.0, r.Resolve("Temperatura"))
	assert.Equal(t, 70.0, r.Resolve("  TEMP_probe "))
	assert.Equal(t, 90.0, r.Resolve("vibracao"))
	assert.Equal(t, 90.0, r.Resolve("Vibration"))
	assert.Equal(t, 90.0, r.Resolve("pressure"))
	assert.Equal(t, 90.0, r.Resolve(""))
}

func TestEvaluate_FiresWithinWindow(t *testing.T) {
	src := &fakeSource{}
	d := newDetector()
	ctx := context.Background()

	var decision *Decision
	for i, v := range []float64{85, 90, 82} {
		r := src.add(v, t0.Add(time.Duration(i*30)*time.Second))
		var err error
		decision, err = d.Evaluate(ctx, src, tempSensor, r)
		require.NoError(t, err)
		if i < 2 {
			assert.Nil(t, decision, "reading %d should not fire", i)
		}
	}

	require.NotNil(t, decision)
	assert.Equal(t, 80.0, decision.Threshold)
	assert.Equal(t, 3, decision.Streak)
	assert.Contains(t, decision.Description, "(80)")
	assert.Contains(t, decision.Description, "3 readings")
	assert.Contains(t, decision.Description, "sensor 1 (temperatura)")
	assert.Contains(t, decision.Description, "Current value=82")
}

func TestEvaluate_WindowExceeded(t *testing.T) {
	src := &fakeSource{}
	d := newDetector()

	src.add(85, t0)
	src.add(90, t0.Add(70*time.Second))
	last := src.add(82, t0.Add(140*time.Second))

	decision, err := d.Evaluate(context.Background(), src, tempSensor, last)
	require.NoError(t, err)
	assert.Nil(t, decision)
}

func TestEvaluate_WindowBoundaryInclusive(t *testing.T) {
	src := &fakeSource{}
	d := newDetector()

	src.add(85, t0)
	src.add(90, t0.Add(60*time.Second))
	last := src.add(82, t0.Add(120*time.Second))

	decision, err := d.Evaluate(context.Background(), src, tempSensor, last)
	require.NoError(t, err)
	assert.NotNil(t, decision)
}

func TestEvaluate_BelowThresholdBreaksStreak(t *testing.T) {
	src := &fakeSource{}
	d := newDetector()

	src.add(85, t0)
	src.add(79, t0.Add(30*time.Second))
	last := src.add(90, t0.Add(60*time.Second))

	decision, err := d.Evaluate(context.Background(), src, tempSensor, last)
	require.NoError(t, err)
	assert.Nil(t, decision)
}

func TestEvaluate_FastRejectSkipsHistory(t *testing.T) {
	src := &fakeSource{err: errors.New("must not be called")}
	d := newDetector()

	for i := 0; i < 10; i++ {
		r := models.Reading{SensorID: 1, Value: 79.99, ReadAt: t0.Add(time.Duration(i) * time.Second)}
		decision, err := d.Evaluate(context.Background(), src, tempSensor, r)
		require.NoError(t, err)
		assert.Nil(t, decision)
	}
	assert.Zero(t, src.calls)
}

func TestEvaluate_InsufficientHistory(t *testing.T) {
	src := &fakeSource{}
	d := newDetector()

	src.add(95, t0)
	last := src.add(95, t0.Add(time.Second))

	decision, err := d.Evaluate(context.Background(), src, tempSensor, last)
	require.NoError(t, err)
	assert.Nil(t, decision)
}

func TestEvaluate_RefiresOnEveryQualifyingReading(t *testing.T) {
	src := &fakeSource{}
	d := newDetector()

	fired := 0
	for i := 0; i < 5; i++ {
		r := src.add(90, t0.Add(time.Duration(i*10)*time.Second))
		decision, err := d.Evaluate(context.Background(), src, tempSensor, r)
		require.NoError(t, err)
		if decision != nil {
			fired++
		}
	}
	assert.Equal(t, 3, fired)
}

func TestEvaluate_TiesBrokenByInsertionOrder(t *testing.T) {
	src := &fakeSource{}
	d := NewStreakDetector(defaultRule, 2, 0, zap.NewNop())

	// Same timestamp: the earlier insertion is below threshold and must be
	// the one pushed out of the window by the later insertions.
	src.add(50, t0)
	src.add(85, t0)
	last := src.add(86, t0)

	decision, err := d.Evaluate(context.Background(), src, tempSensor, last)
	require.NoError(t, err)
	assert.NotNil(t, decision)
}

func TestEvaluate_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("connection reset")}
	d := newDetector()

	_, err := d.Evaluate(context.Background(), src, tempSensor, models.Reading{Value: 99, ReadAt: t0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestConfirm_UsesOnlyFirstMinStreak(t *testing.T) {
	recent := []models.Reading{
		{Value: 90, ReadAt: t0.Add(20 * time.Second)},
		{Value: 90, ReadAt: t0.Add(10 * time.Second)},
		{Value: 10, ReadAt: t0},
	}
	assert.True(t, Confirm(recent, 80, 2, time.Minute))
	assert.False(t, Confirm(recent, 80, 3, time.Minute))
}

func TestNewStreakDetector_ClampsConfig(t *testing.T) {
	d := NewStreakDetector(defaultRule, 0, -time.Second, zap.NewNop())
	assert.Equal(t, 1, d.minStreak)
	assert.Equal(t, time.Duration(0), d.window)
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/metrics"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/prediction"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIngester struct {
	last service.IngestRequest
	res  *service.IngestResult
	err  error
}

func (f *fakeIngester) Ingest(_ context.Context, req service.IngestRequest) (*service.IngestResult, error) {
	f.last = req
	return f.res, f.err
}

type fakeSeries struct {
	sensorID       *int64
	minutes, limit int
}

func (f *fakeSeries) Series(_ context.Context, sensorID *int64, minutes, limit int) (*models.Series, error) {
	f.sensorID, f.minutes, f.limit = sensorID, minutes, limit
	id := int64(1)
	return &models.Series{SensorID: &id, X: []string{"2025-03-01T10:00:00Z"}, Y: []float64{1.5}}, nil
}

func (f *fakeSeries) Sensors(context.Context) ([]models.Sensor, error) {
	return []models.Sensor{{SensorID: 1, SensorKind: "temperatura", PieceID: 1}}, nil
}

type fakeCycles struct {
	event string
	ts    time.Time
}

func (f *fakeCycles) Handle(_ context.Context, event string, ts time.Time) (*service.CycleEventResult, error) {
	f.event, f.ts = event, ts
	if event != service.EventStartAll {
		return nil, apperr.ErrInvalidRequest
	}
	n := int64(3)
	return &service.CycleEventResult{Event: event, Created: &n}, nil
}

type fakeAlerts struct {
	last service.ManualAlertRequest
	err  error
}

func (f *fakeAlerts) Raise(_ context.Context, req service.ManualAlertRequest) (*models.AlertRecord, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.AlertRecord{AlertID: 4, RiskLevel: "HIGH"}, nil
}

func (f *fakeAlerts) Recent(context.Context, int) ([]models.Alert, error) { return nil, nil }

type fakePredictor struct {
	err       error
	threshold *float64
	opts      service.SnapshotOptions
}

func (f *fakePredictor) PredictState(context.Context, map[string]float64) (interface{}, error) {
	return int64(2), f.err
}

func (f *fakePredictor) PredictFailure(_ context.Context, _ map[string]float64, threshold *float64) (prediction.FailureResult, error) {
	f.threshold = threshold
	return prediction.FailureResult{Flag: 1, Probability: 0.8, Threshold: 0.5}, f.err
}

func (f *fakePredictor) Snapshot(_ context.Context, opts service.SnapshotOptions) ([]models.SnapshotEntry, error) {
	f.opts = opts
	return []models.SnapshotEntry{{PieceID: 1, Kind: "Conjunto A", PredictedState: int64(0)}}, f.err
}

type fixture struct {
	router    *Router
	ingester  *fakeIngester
	series    *fakeSeries
	cycles    *fakeCycles
	alerts    *fakeAlerts
	predictor *fakePredictor
}

func newFixture() *fixture {
	f := &fixture{
		ingester:  &fakeIngester{res: &service.IngestResult{ReadingID: 10}},
		series:    &fakeSeries{},
		cycles:    &fakeCycles{},
		alerts:    &fakeAlerts{},
		predictor: &fakePredictor{},
	}
	logger := zap.NewNop()
	f.router = NewRouter(logger)
	f.router.RegisterReadingRoutes(NewReadingHandler(f.ingester, f.series, logger))
	f.router.RegisterEventRoutes(NewEventHandler(f.cycles, f.alerts, logger))
	f.router.RegisterPredictionRoutes(NewPredictionHandler(f.predictor, logger))
	f.router.RegisterOpsRoutes(metrics.New().Handler())
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestIngest_Created(t *testing.T) {
	f := newFixture()
	failureID := int64(5)
	f.ingester.res.Alert = &models.AlertRecord{AlertID: 9, FailureID: &failureID, RiskLevel: "HIGH"}

	rec := f.do(http.MethodPost, "/api/readings", `{"sensor_id": 1, "value": 85, "timestamp": "2025-03-01T10:00:00-03:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, 10.0, body["reading_id"])
	alert := body["alert"].(map[string]interface{})
	assert.Equal(t, 9.0, alert["alert_id"])

	assert.Equal(t, time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC), f.ingester.last.Timestamp)
}

func TestIngest_ValidationErrors(t *testing.T) {
	f := newFixture()

	cases := map[string]string{
		"empty":         ``,
		"malformed":     `{"sensor_id":`,
		"no sensor":     `{"value": 1, "timestamp": "2025-03-01T10:00:00Z"}`,
		"no value":      `{"sensor_id": 1, "timestamp": "2025-03-01T10:00:00Z"}`,
		"bad timestamp": `{"sensor_id": 1, "value": 1, "timestamp": "yesterday"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/readings", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestIngest_UnknownSensor(t *testing.T) {
	f := newFixture()
	f.ingester.err = apperr.InvalidReference("sensor", 99)

	rec := f.do(http.MethodPost, "/api/readings", `{"sensor_id": 99, "value": 1, "timestamp": "2025-03-01T10:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_reference", decode(t, rec)["error"])
}

func TestIngest_InternalErrorHidesDetails(t *testing.T) {
	f := newFixture()
	f.ingester.err = apperr.Persistence("commit ingest", errors.New("connection reset"))

	rec := f.do(http.MethodPost, "/api/readings", `{"sensor_id": 1, "value": 1, "timestamp": "2025-03-01T10:00:00Z"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodGet, "/api/readings", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodPost, "/api/sensors", "").Code)
}

func TestSeries_QueryParameters(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/readings/series?sensor_id=7&minutes=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), *f.series.sensorID)
	assert.Equal(t, 30, f.series.minutes)
	assert.Equal(t, service.DefaultSeriesLimit, f.series.limit)

	rec = f.do(http.MethodGet, "/api/readings/series", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, f.series.sensorID)
	assert.Equal(t, service.DefaultSeriesMinutes, f.series.minutes)

	rec = f.do(http.MethodGet, "/api/readings/series?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSensors(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/sensors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sensor_kind":"temperatura"`)
}

func TestCycleEvent(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/cycle-events", `{"event": "start_all", "ts": "2025-03-01T08:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 3.0, body["created"])
	assert.Equal(t, true, body["ok"])
	assert.NotContains(t, body, "closed")

	rec = f.do(http.MethodPost, "/api/cycle-events", `{"event": "pause", "ts": "2025-03-01T08:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/api/cycle-events", `{"event": "start_all"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRaiseAlert(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/alerts", `{"sensor_id": 2, "value": 3.5, "ts": "2025-03-01T08:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 4.0, decode(t, rec)["alert_id"])
	assert.Equal(t, int64(2), f.alerts.last.SensorID)
	assert.Equal(t, 3.5, f.alerts.last.Value)

	rec = f.do(http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPredictState(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/predict/state", `{"tempo_uso": 10, "ciclos": 1, "temperatura": 70, "vibracao": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state": 2}`, rec.Body.String())
}

func TestPredictFailure_Threshold(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/predict/failure24h?threshold=0.3", `{"usage_minutes": 1, "cycle_count": 1, "temperature": 1, "vibration": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.predictor.threshold)
	assert.Equal(t, 0.3, *f.predictor.threshold)
	assert.Equal(t, 1.0, decode(t, rec)["flag"])

	rec = f.do(http.MethodPost, "/api/predict/failure24h?threshold=high", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredict_ModelUnavailable(t *testing.T) {
	f := newFixture()
	f.predictor.err = apperr.ErrModelUnavailable

	rec := f.do(http.MethodPost, "/api/predict/state", `{"tempo_uso": 1}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "model_unavailable", decode(t, rec)["error"])

	rec = f.do(http.MethodGet, "/api/predict/snapshot", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshot_Options(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/predict/snapshot?temp_minutes=30&vib_minutes=2&threshold=0.7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, f.predictor.opts.TempMinutes)
	assert.Equal(t, 2, f.predictor.opts.VibMinutes)
	assert.Equal(t, 0.7, *f.predictor.opts.Threshold)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// Package app assembles the fleet-monitor components from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/common/database"
	"github.com/Phaeld/fiap-enterprise-challenge/common/mqtt"
	commonredis "github.com/Phaeld/fiap-enterprise-challenge/common/redis"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/config"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/consumer"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/cycles"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/evaluator"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/features"
	httpapi "github.com/Phaeld/fiap-enterprise-challenge/internal/http"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/metrics"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/notify"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/prediction"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/service"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// FleetService runs the HTTP API and the optional MQTT consumer.
type FleetService struct {
	config  *config.Config
	db      *sql.DB
	redis   *goredis.Client
	mqtt    *mqtt.Client
	metrics *metrics.Metrics
	logger  *zap.Logger

	server   *http.Server
	consumer *consumer.MQTTConsumer
}

// NewFleetService connects to the store, loads the models once and builds
// the HTTP handler. A model load failure does not abort startup; prediction
// endpoints then answer model_unavailable.
func NewFleetService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*FleetService, error) {
	db, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &FleetService{
		config:  cfg,
		db:      db,
		metrics: metrics.New(),
		logger:  logger,
	}

	publisher := s.openPublisher(ctx)

	predictor, loadErr := OpenPredictor(ctx, cfg, logger)

	detector := evaluator.NewStreakDetector(
		evaluator.ThresholdResolver{Temperature: cfg.Alert.TempThreshold, Vibration: cfg.Alert.VibThreshold},
		cfg.Alert.MinStreak,
		time.Duration(cfg.Alert.WindowSeconds)*time.Second,
		logger,
	)
	ingest := service.NewIngestService(db, detector, publisher, s.metrics, logger)
	alerts := service.NewAlertService(db, publisher, s.metrics, logger)
	tracker := cycles.NewTracker(db, logger)
	cycleSvc := service.NewCycleService(tracker, s.metrics)
	series := service.NewSeriesService(db, logger)

	aggregator := features.NewLiveAggregator(repository.NewReadingRepository(db, logger), tracker, logger)
	predictions := service.NewPredictionService(
		predictor,
		loadErr,
		repository.NewPieceRepository(db, logger),
		aggregator,
		service.SnapshotOptions{TempMinutes: cfg.Features.TempWindowMinutes, VibMinutes: cfg.Features.VibWindowMinutes},
		s.metrics,
		logger,
	)

	router := httpapi.NewRouter(logger)
	router.RegisterReadingRoutes(httpapi.NewReadingHandler(ingest, series, logger))
	router.RegisterEventRoutes(httpapi.NewEventHandler(cycleSvc, alerts, logger))
	router.RegisterPredictionRoutes(httpapi.NewPredictionHandler(predictions, logger))
	router.RegisterOpsRoutes(s.metrics.Handler())

	s.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	if cfg.MQTT.Enabled {
		mqttCfg := cfg.MQTT.MQTTConfig
		if mqttCfg.ClientID == "" {
			mqttCfg.ClientID = "fleet-monitor-" + uuid.NewString()
		}
		client, err := mqtt.NewClient(&mqttCfg, logger)
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.mqtt = client
		s.consumer = consumer.NewMQTTConsumer(client, cfg.MQTT.Topic, ingest, logger)
	}

	return s, nil
}

// openPublisher returns nil when notifications are disabled or Redis is unreachable.
func (s *FleetService) openPublisher(ctx context.Context) service.AlertPublisher {
	if !s.config.Notify.Enabled {
		return nil
	}
	client := commonredis.NewRedisClient(&s.config.Redis)
	if err := commonredis.Ping(ctx, client); err != nil {
		s.logger.Warn("Redis unavailable, alert notifications disabled", zap.Error(err))
		client.Close()
		return nil
	}
	s.redis = client
	return notify.NewStreamPublisher(client, s.config.Notify.Stream, s.config.Notify.MaxLen, s.logger)
}

// Start serves until ctx is cancelled or the listener fails.
func (s *FleetService) Start(ctx context.Context) error {
	s.logger.Info("Starting fleet service",
		zap.String("addr", s.config.HTTP.Addr),
		zap.Bool("mqtt", s.consumer != nil),
		zap.Bool("notify", s.redis != nil),
	)

	errCh := make(chan error, 2)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
	}()
	if s.consumer != nil {
		go func() {
			if err := s.consumer.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop drains HTTP requests and releases connections.
func (s *FleetService) Stop() {
	s.logger.Info("Stopping fleet service")

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		}
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
}

// OpenDatabase opens the pool and waits for the database to answer.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.WaitForDB(ctx, db, cfg.Seed.WaitAttempts, cfg.Seed.WaitDelay, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenPredictor loads the prediction gateway. On failure the predictor is nil
// and the error is returned for callers that degrade instead of exiting.
func OpenPredictor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Predictor, error) {
	gw, err := prediction.Open(ctx, cfg.Prediction, logger)
	if err != nil {
		logger.Warn("Prediction models unavailable", zap.Error(err))
		return nil, err
	}
	return gw, nil
}

// NewDatasetService wires the historical builder over the store.
func NewDatasetService(db *sql.DB, cfg *config.Config, predictor service.Predictor, logger *zap.Logger) *service.DatasetService {
	builder := features.NewDatasetBuilder(
		repository.NewPieceRepository(db, logger),
		repository.NewReadingRepository(db, logger),
		repository.NewCycleRepository(db, logger),
		repository.NewFailureRepository(db, logger),
		features.DatasetOptions{
			FailureTolerance: cfg.Features.FailureTolerance,
			HorizonHours:     cfg.Features.HorizonHours,
			RollingWindows:   cfg.Features.RollingWindows,
		},
		logger,
	)
	return service.NewDatasetService(builder, predictor, service.RiskThresholds{
		High:   cfg.Features.RiskHigh,
		Medium: cfg.Features.RiskMedium,
	}, logger)
}

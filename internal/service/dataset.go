package service

import (
	"context"
	"math"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/features"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"go.uber.org/zap"
)

// DatasetSource builds the raw historical rows.
type DatasetSource interface {
	Build(ctx context.Context) ([]models.DatasetRow, error)
}

// RiskThresholds bucket failure probabilities.
type RiskThresholds struct {
	High   float64
	Medium float64
}

// DatasetService builds the historical dataset and optionally scores it.
type DatasetService struct {
	source    DatasetSource
	predictor Predictor
	risk      RiskThresholds
	logger    *zap.Logger
}

// NewDatasetService accepts a nil predictor; rows are then left unscored.
func NewDatasetService(source DatasetSource, predictor Predictor, risk RiskThresholds, logger *zap.Logger) *DatasetService {
	return &DatasetService{source: source, predictor: predictor, risk: risk, logger: logger}
}

// Build returns the dataset rows, scored when a predictor is available.
func (s *DatasetService) Build(ctx context.Context) ([]models.DatasetRow, error) {
	rows, err := s.source.Build(ctx)
	if err != nil {
		return nil, apperr.Persistence("build dataset", err)
	}
	if s.predictor == nil {
		return rows, nil
	}

	threshold := s.predictor.DefaultThreshold()
	for i := range rows {
		res, err := s.predictor.PredictFailure(ctx, rows[i].Features.Map(), &threshold)
		if err != nil {
			return nil, err
		}
		flag := res.Flag == 1
		prob := math.Round(res.Probability*1000) / 1000
		rows[i].FailureFlag = &flag
		rows[i].FailureProbability = &prob
		rows[i].RiskBucket = features.RiskBucket(res.Probability, s.risk.High, s.risk.Medium)
	}
	s.logger.Info("Dataset scored", zap.Int("rows", len(rows)))
	return rows, nil
}

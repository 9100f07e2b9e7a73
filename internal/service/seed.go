package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"go.uber.org/zap"
)

// PieceSeed describes a piece to provision.
type PieceSeed struct {
	Kind         string
	Manufacturer string
}

// DefaultFleet is provisioned by the seed command.
var DefaultFleet = []PieceSeed{
	{Kind: "Conjunto A", Manufacturer: "Hermes"},
	{Kind: "Conjunto B", Manufacturer: "Hermes"},
	{Kind: "Conjunto C", Manufacturer: "Hermes"},
}

// DefaultSensorKinds are the sensors every piece should carry.
var DefaultSensorKinds = []string{"vibracao", "temperatura"}

// SeedResult counts what a seed run created.
type SeedResult struct {
	PiecesCreated  int `json:"pieces_created"`
	SensorsCreated int `json:"sensors_created"`
}

// Seeder provisions pieces and sensors without duplicating existing ones.
type Seeder struct {
	db     *sql.DB
	pieces *repository.PieceRepository
	sensor *repository.SensorRepository
	logger *zap.Logger
}

func NewSeeder(db *sql.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		pieces: repository.NewPieceRepository(db, logger),
		sensor: repository.NewSensorRepository(db, logger),
		logger: logger,
	}
}

// EnsureSeed creates missing fleet pieces, then gives every piece the sensor
// kinds it lacks. Kinds are compared case-insensitively.
func (s *Seeder) EnsureSeed(ctx context.Context, fleet []PieceSeed, kinds []string) (SeedResult, error) {
	var res SeedResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, apperr.Persistence("begin seed", err)
	}
	defer tx.Rollback()

	pieces := s.pieces.WithTx(tx)
	sensors := s.sensor.WithTx(tx)

	for _, want := range fleet {
		existing, err := pieces.FindByKind(ctx, want.Kind)
		if err != nil {
			return res, apperr.Persistence("find piece", err)
		}
		if existing != nil {
			continue
		}
		manufacturer := want.Manufacturer
		if _, err := pieces.Create(ctx, want.Kind, &manufacturer); err != nil {
			return res, apperr.Persistence("create piece", err)
		}
		res.PiecesCreated++
	}

	all, err := pieces.List(ctx)
	if err != nil {
		return res, apperr.Persistence("list pieces", err)
	}
	for _, p := range all {
		have, err := sensors.ListByPiece(ctx, p.PieceID)
		if err != nil {
			return res, apperr.Persistence("list sensors", err)
		}
		present := make(map[string]bool, len(have))
		for _, sn := range have {
			present[strings.ToLower(sn.SensorKind)] = true
		}
		for _, kind := range kinds {
			if present[strings.ToLower(kind)] {
				continue
			}
			if _, err := sensors.Create(ctx, p.PieceID, kind); err != nil {
				return res, apperr.Persistence("create sensor", err)
			}
			res.SensorsCreated++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, apperr.Persistence("commit seed", err)
	}
	s.logger.Info("Seed complete",
		zap.Int("pieces_created", res.PiecesCreated),
		zap.Int("sensors_created", res.SensorsCreated),
	)
	return res, nil
}

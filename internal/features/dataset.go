package features

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/cycles"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/repository"

	"go.uber.org/zap"
)

// PieceLister lists the fleet.
type PieceLister interface {
	List(ctx context.Context) ([]models.Piece, error)
}

// PieceReadings returns a piece's reading history ascending.
type PieceReadings interface {
	ListByPiece(ctx context.Context, pieceID int64) ([]repository.KindReading, error)
}

// PieceCycles returns a piece's cycles.
type PieceCycles interface {
	ListByPiece(ctx context.Context, pieceID int64) ([]models.Cycle, error)
}

// PieceFailures returns a piece's failures.
type PieceFailures interface {
	ListByPiece(ctx context.Context, pieceID int64) ([]models.Failure, error)
}

// DatasetOptions controls backfill.
type DatasetOptions struct {
	FailureTolerance time.Duration
	HorizonHours     int
	RollingWindows   []int
}

// DatasetBuilder reconstructs historical feature rows for the whole fleet.
type DatasetBuilder struct {
	pieces   PieceLister
	readings PieceReadings
	cycles   PieceCycles
	failures PieceFailures
	opts     DatasetOptions
	logger   *zap.Logger
}

func NewDatasetBuilder(pieces PieceLister, readings PieceReadings, cycleSrc PieceCycles, failures PieceFailures, opts DatasetOptions, logger *zap.Logger) *DatasetBuilder {
	return &DatasetBuilder{
		pieces:   pieces,
		readings: readings,
		cycles:   cycleSrc,
		failures: failures,
		opts:     opts,
		logger:   logger,
	}
}

// row holds a base row while missing values are NaN.
type row struct {
	pieceID   int64
	ts        time.Time
	usage     float64
	count     float64
	temp      float64
	vib       float64
	failure   bool
	failureID *int64
}

// Build returns one row per base reading across the fleet, ordered by piece then time.
// Store errors abort; an unusable cycle history only zeroes that piece's usage.
func (b *DatasetBuilder) Build(ctx context.Context) ([]models.DatasetRow, error) {
	pieces, err := b.pieces.List(ctx)
	if err != nil {
		return nil, err
	}

	var all [][]row
	for _, p := range pieces {
		readings, err := b.readings.ListByPiece(ctx, p.PieceID)
		if err != nil {
			return nil, err
		}
		cycleList, err := b.cycles.ListByPiece(ctx, p.PieceID)
		if err != nil {
			return nil, err
		}
		failures, err := b.failures.ListByPiece(ctx, p.PieceID)
		if err != nil {
			return nil, err
		}

		rows := baseRows(p.PieceID, readings)
		if err := attachUsage(rows, cycleList); err != nil {
			b.logger.Warn("Cycle history unusable, usage set to zero",
				zap.Int64("piece_id", p.PieceID),
				zap.Error(err),
			)
		}
		labelFailures(rows, failures, b.opts.FailureTolerance)
		fillPiece(rows)
		all = append(all, rows)
	}

	fillGlobal(all)

	var out []models.DatasetRow
	for _, rows := range all {
		out = append(out, finish(rows, b.opts)...)
	}
	b.logger.Info("Dataset built",
		zap.Int("pieces", len(pieces)),
		zap.Int("rows", len(out)),
	)
	return out, nil
}

// baseRows picks temperature readings as the base, or vibration readings when
// the piece has none, and as-of joins the other series.
func baseRows(pieceID int64, readings []repository.KindReading) []row {
	var temps, vibs []repository.KindReading
	for _, r := range readings {
		switch classify(r.SensorKind) {
		case classTemperature:
			temps = append(temps, r)
		case classVibration:
			vibs = append(vibs, r)
		}
	}

	base, other, baseIsTemp := temps, vibs, true
	if len(temps) == 0 {
		base, other, baseIsTemp = vibs, temps, false
	}

	rows := make([]row, 0, len(base))
	j := -1
	for _, r := range base {
		for j+1 < len(other) && !other[j+1].ReadAt.After(r.ReadAt) {
			j++
		}
		joined := math.NaN()
		if j >= 0 {
			joined = other[j].Value
		}
		rw := row{pieceID: pieceID, ts: r.ReadAt}
		if baseIsTemp {
			rw.temp, rw.vib = r.Value, joined
		} else {
			rw.temp, rw.vib = joined, r.Value
		}
		rows = append(rows, rw)
	}
	return rows
}

func attachUsage(rows []row, cycleList []models.Cycle) error {
	for i := range rows {
		usage, err := cycles.UsageAsOf(cycleList, rows[i].ts)
		if err == nil {
			var n int
			n, err = cycles.CountAsOf(cycleList, rows[i].ts)
			rows[i].count = float64(n)
		}
		if err != nil {
			for k := range rows {
				rows[k].usage, rows[k].count = 0, 0
			}
			return err
		}
		rows[i].usage = usage
	}
	return nil
}

// labelFailures marks rows with a failure within tolerance, picking the nearest one.
func labelFailures(rows []row, failures []models.Failure, tolerance time.Duration) {
	if len(failures) == 0 {
		return
	}
	sorted := make([]models.Failure, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OccurredAt.Before(sorted[j].OccurredAt) })

	for i := range rows {
		ts := rows[i].ts
		k := sort.Search(len(sorted), func(n int) bool { return !sorted[n].OccurredAt.Before(ts) })

		best := -1
		var bestGap time.Duration
		for _, c := range []int{k - 1, k} {
			if c < 0 || c >= len(sorted) {
				continue
			}
			gap := absDuration(sorted[c].OccurredAt.Sub(ts))
			if gap <= tolerance && (best < 0 || gap < bestGap) {
				best, bestGap = c, gap
			}
		}
		if best >= 0 {
			id := sorted[best].FailureID
			rows[i].failure = true
			rows[i].failureID = &id
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// fillPiece forward-fills then backward-fills temperature and vibration.
func fillPiece(rows []row) {
	fill := func(get func(*row) *float64) {
		last := math.NaN()
		for i := range rows {
			v := get(&rows[i])
			if math.IsNaN(*v) {
				*v = last
			} else {
				last = *v
			}
		}
		next := math.NaN()
		for i := len(rows) - 1; i >= 0; i-- {
			v := get(&rows[i])
			if math.IsNaN(*v) {
				*v = next
			} else {
				next = *v
			}
		}
	}
	fill(func(r *row) *float64 { return &r.temp })
	fill(func(r *row) *float64 { return &r.vib })
}

// fillGlobal replaces remaining gaps with the fleet-wide median, or 0.
func fillGlobal(all [][]row) {
	var temps, vibs []float64
	for _, rows := range all {
		for _, r := range rows {
			if !math.IsNaN(r.temp) {
				temps = append(temps, r.temp)
			}
			if !math.IsNaN(r.vib) {
				vibs = append(vibs, r.vib)
			}
		}
	}
	tempMedian, vibMedian := median(temps), median(vibs)
	for _, rows := range all {
		for i := range rows {
			if math.IsNaN(rows[i].temp) {
				rows[i].temp = tempMedian
			}
			if math.IsNaN(rows[i].vib) {
				rows[i].vib = vibMedian
			}
		}
	}
}

// median averages the two middle values for even counts; empty input yields 0.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func finish(rows []row, opts DatasetOptions) []models.DatasetRow {
	out := make([]models.DatasetRow, len(rows))
	for i, r := range rows {
		out[i] = models.DatasetRow{
			PieceID:   r.pieceID,
			Timestamp: r.ts,
			Features: models.FeatureVector{
				UsageMinutes: round(r.usage, 2),
				CycleCount:   r.count,
				Temperature:  round(r.temp, 2),
				Vibration:    round(r.vib, 2),
			},
			FailureEvent: r.failure,
			FailureID:    r.failureID,
		}
	}
	ApplyRolling(out, opts.RollingWindows)
	LabelHorizon(out, opts.HorizonHours)
	return out
}

package features

import (
	"fmt"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"

	"gonum.org/v1/gonum/stat"
)

// RollingNames returns the rolling feature names for the given windows, in order.
func RollingNames(windows []int) []string {
	names := make([]string, 0, len(windows)*6)
	for _, w := range windows {
		names = append(names,
			fmt.Sprintf("temp_mean_%d", w),
			fmt.Sprintf("vib_mean_%d", w),
			fmt.Sprintf("temp_std_%d", w),
			fmt.Sprintf("vib_std_%d", w),
			fmt.Sprintf("cycles_delta_%d", w),
			fmt.Sprintf("usage_delta_%d", w),
		)
	}
	return names
}

// ApplyRolling fills Rolling on rows of a single piece, ordered by time.
// Means and sample standard deviations use up to w trailing rows; a window of
// one row has std 0. Deltas compare with the row w positions back, 0 when absent.
func ApplyRolling(rows []models.DatasetRow, windows []int) {
	if len(windows) == 0 {
		return
	}
	temps := make([]float64, len(rows))
	vibs := make([]float64, len(rows))
	for i, r := range rows {
		temps[i] = r.Features.Temperature
		vibs[i] = r.Features.Vibration
	}

	for i := range rows {
		if rows[i].Rolling == nil {
			rows[i].Rolling = make(map[string]float64, len(windows)*6)
		}
		for _, w := range windows {
			lo := i - w + 1
			if lo < 0 {
				lo = 0
			}
			tw, vw := temps[lo:i+1], vibs[lo:i+1]

			rows[i].Rolling[fmt.Sprintf("temp_mean_%d", w)] = stat.Mean(tw, nil)
			rows[i].Rolling[fmt.Sprintf("vib_mean_%d", w)] = stat.Mean(vw, nil)
			rows[i].Rolling[fmt.Sprintf("temp_std_%d", w)] = sampleStd(tw)
			rows[i].Rolling[fmt.Sprintf("vib_std_%d", w)] = sampleStd(vw)

			var dc, du float64
			if i >= w {
				dc = rows[i].Features.CycleCount - rows[i-w].Features.CycleCount
				du = rows[i].Features.UsageMinutes - rows[i-w].Features.UsageMinutes
			}
			rows[i].Rolling[fmt.Sprintf("cycles_delta_%d", w)] = dc
			rows[i].Rolling[fmt.Sprintf("usage_delta_%d", w)] = du
		}
	}
}

func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// LabelHorizon sets FailNextH when a later failure-event row of the same piece
// falls between 1 and horizonHours whole hours ahead. rows must be ordered by
// piece then time.
func LabelHorizon(rows []models.DatasetRow, horizonHours int) {
	for i := range rows {
		rows[i].FailNextH = false
		for j := i + 1; j < len(rows) && rows[j].PieceID == rows[i].PieceID; j++ {
			if !rows[j].FailureEvent {
				continue
			}
			hours := int(rows[j].Timestamp.Sub(rows[i].Timestamp) / time.Hour)
			if hours > horizonHours {
				break
			}
			if hours >= 1 {
				rows[i].FailNextH = true
				break
			}
		}
	}
}

// RiskBucket maps a failure probability to low, medium or high.
func RiskBucket(probability, high, medium float64) string {
	switch {
	case probability >= high:
		return "high"
	case probability >= medium:
		return "medium"
	default:
		return "low"
	}
}

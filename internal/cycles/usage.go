package cycles

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/models"
)

// ErrMalformedCycle marks a cycle the as-of computations cannot interpret.
var ErrMalformedCycle = errors.New("malformed cycle")

// DurationMinutes is floor((end - start) seconds / 60).
func DurationMinutes(start, end time.Time) int64 {
	return int64(math.Floor(end.Sub(start).Seconds() / 60))
}

// Usage is the live usage of one piece.
type Usage struct {
	Minutes    float64
	CycleCount int
	OpenCycles int
}

// LiveUsage sums closed durations and adds the whole minutes elapsed since
// the start of the most recently started open cycle. Older open cycles are ignored.
func LiveUsage(cycles []models.Cycle, now time.Time) Usage {
	u := Usage{CycleCount: len(cycles)}

	var latestOpen *models.Cycle
	for i := range cycles {
		c := &cycles[i]
		if c.Open() {
			u.OpenCycles++
			if latestOpen == nil || c.StartedAt.After(latestOpen.StartedAt) {
				latestOpen = c
			}
			continue
		}
		u.Minutes += float64(closedMinutes(*c))
	}
	if latestOpen != nil {
		u.Minutes += float64(DurationMinutes(latestOpen.StartedAt, now))
	}
	return u
}

func closedMinutes(c models.Cycle) int64 {
	if c.DurationMinutes != nil {
		return *c.DurationMinutes
	}
	return DurationMinutes(c.StartedAt, *c.EndedAt)
}

// UsageAsOf returns the usage minutes accumulated up to t. Cycles closed at or
// before t count their full duration; cycles started at or before t that are
// still open or end after t contribute fractional minutes up to t.
func UsageAsOf(cycles []models.Cycle, t time.Time) (float64, error) {
	var total float64
	for _, c := range cycles {
		if err := validate(c); err != nil {
			return 0, err
		}
		if c.StartedAt.After(t) {
			continue
		}
		if c.EndedAt != nil && !c.EndedAt.After(t) {
			if c.DurationMinutes != nil {
				total += float64(*c.DurationMinutes)
			} else {
				total += c.EndedAt.Sub(c.StartedAt).Minutes()
			}
			continue
		}
		total += t.Sub(c.StartedAt).Minutes()
	}
	return total, nil
}

// CountAsOf returns the number of cycles started at or before t.
func CountAsOf(cycles []models.Cycle, t time.Time) (int, error) {
	n := 0
	for _, c := range cycles {
		if err := validate(c); err != nil {
			return 0, err
		}
		if !c.StartedAt.After(t) {
			n++
		}
	}
	return n, nil
}

func validate(c models.Cycle) error {
	if c.StartedAt.IsZero() {
		return fmt.Errorf("%w: cycle %d has no start", ErrMalformedCycle, c.CycleID)
	}
	if c.EndedAt != nil && c.EndedAt.Before(c.StartedAt) {
		return fmt.Errorf("%w: cycle %d ends before it starts", ErrMalformedCycle, c.CycleID)
	}
	return nil
}

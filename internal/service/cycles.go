package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/metrics"
)

// Fleet-wide cycle commands.
const (
	EventStartAll = "start_all"
	EventEndAll   = "end_all"
)

// CycleCommander is the fleet-wide cycle tracker.
type CycleCommander interface {
	StartAll(ctx context.Context, ts time.Time) (int64, error)
	EndAll(ctx context.Context, ts time.Time) (int, error)
}

// CycleEventResult carries Created for start_all and Closed for end_all.
type CycleEventResult struct {
	Event   string `json:"event"`
	Created *int64 `json:"created,omitempty"`
	Closed  *int   `json:"closed,omitempty"`
}

// CycleService dispatches named cycle events.
type CycleService struct {
	tracker CycleCommander
	metrics *metrics.Metrics
}

func NewCycleService(tracker CycleCommander, m *metrics.Metrics) *CycleService {
	return &CycleService{tracker: tracker, metrics: m}
}

// Handle applies event at ts. Unknown events are ErrInvalidRequest.
func (s *CycleService) Handle(ctx context.Context, event string, ts time.Time) (*CycleEventResult, error) {
	name := strings.ToLower(strings.TrimSpace(event))
	switch name {
	case EventStartAll:
		n, err := s.tracker.StartAll(ctx, ts.UTC())
		if err != nil {
			return nil, apperr.Persistence("start cycles", err)
		}
		s.metrics.Cycles("started", int(n))
		return &CycleEventResult{Event: name, Created: &n}, nil
	case EventEndAll:
		n, err := s.tracker.EndAll(ctx, ts.UTC())
		if err != nil {
			return nil, apperr.Persistence("end cycles", err)
		}
		s.metrics.Cycles("closed", n)
		return &CycleEventResult{Event: name, Closed: &n}, nil
	default:
		return nil, fmt.Errorf("%w: unknown cycle event %q", apperr.ErrInvalidRequest, event)
	}
}

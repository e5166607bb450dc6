package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/hokuto/run-telemetry-go/internal/models"
	"github.com/hokuto/run-telemetry-go/internal/spatial"
)

// ErrPermissionDenied is returned by a FixSource whose underlying provider
// lacks location access. Fatal to the start call; the caller must resolve the
// permission before retrying.
var ErrPermissionDenied = errors.New("location permission not granted")

// ErrNotSampling is returned when a fix is pushed while no subscription is
// active.
var ErrNotSampling = errors.New("no active sampling subscription")

// SamplingOptions carries the acquisition cadence configuration: baseline
// interval, fastest accepted interval, and minimum displacement filter.
// These are configuration inputs, not policy hardcoded in the controller.
type SamplingOptions struct {
	IntervalMs            int64
	FastestIntervalMs     int64
	MinDisplacementMeters float64
}

// FixSource abstracts fix acquisition. Subscribe starts delivery and returns
// a channel that is closed when the context is cancelled. Implementations
// return ErrPermissionDenied when location access is missing.
type FixSource interface {
	Subscribe(ctx context.Context, opts SamplingOptions) (<-chan models.Fix, error)
}

// PushSource is a FixSource fed by an external producer (the fix-ingestion
// API handler). It applies the fastest-interval and minimum-displacement
// filters before forwarding, mirroring what a platform location provider
// would do on-device. The baseline interval cannot be enforced here: a push
// source does not schedule acquisition, so it advertises the cadence via
// Cadence for producers to pace themselves, and only the floor filters are
// applied to what arrives.
type PushSource struct {
	mu           sync.Mutex
	ch           chan models.Fix
	opts         SamplingOptions
	lastAccepted *models.Fix
}

// NewPushSource creates an idle push source.
func NewPushSource() *PushSource {
	return &PushSource{}
}

// Subscribe starts a single delivery stream. The stream closes when ctx is
// cancelled; a second concurrent subscription is an error.
func (s *PushSource) Subscribe(ctx context.Context, opts SamplingOptions) (<-chan models.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch != nil {
		return nil, errors.New("fix source already subscribed")
	}

	ch := make(chan models.Fix, 16)
	s.ch = ch
	s.opts = opts
	s.lastAccepted = nil

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ch == ch {
			close(ch)
			s.ch = nil
		}
	}()

	return ch, nil
}

// Cadence returns the baseline sampling interval of the active subscription
// in milliseconds, or 0 while idle.
func (s *PushSource) Cadence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return 0
	}
	return s.opts.IntervalMs
}

// Push offers a raw fix to the active subscription. Returns whether the fix
// was accepted: fixes arriving faster than the fastest interval or moving
// less than the displacement filter are dropped, as is anything while the
// delivery buffer is full.
func (s *PushSource) Push(fix models.Fix) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return false, ErrNotSampling
	}

	if last := s.lastAccepted; last != nil {
		if s.opts.FastestIntervalMs > 0 && fix.TimestampMs-last.TimestampMs < s.opts.FastestIntervalMs {
			return false, nil
		}
		if s.opts.MinDisplacementMeters > 0 {
			moved := spatial.HaversineDistance(last.Latitude, last.Longitude, fix.Latitude, fix.Longitude)
			if moved < s.opts.MinDisplacementMeters {
				return false, nil
			}
		}
	}

	select {
	case s.ch <- fix:
		s.lastAccepted = &fix
		return true, nil
	default:
		return false, nil
	}
}

package syncer

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hokuto/run-telemetry-go/internal/ledger"
	"github.com/hokuto/run-telemetry-go/internal/repository"
)

// Scheduler drives full drain sweeps on a fixed interval, gated on remote
// connectivity, independent of any activity's lifecycle. Failed sweeps pull
// the next attempt forward on an exponential backoff that grows back toward
// the regular interval. Each sweep also evicts rows past the retention age.
type Scheduler struct {
	sync      *Synchronizer
	pending   *repository.PendingSampleRepository
	ledger    ledger.ActivityLedger
	interval  time.Duration
	retention time.Duration
	seed      time.Duration // initial failure backoff
	kick      chan struct{}
}

// NewScheduler creates a scheduler sweeping every interval, evicting queued
// rows older than retention, and seeding the failure backoff at seed.
func NewScheduler(sync *Synchronizer, pending *repository.PendingSampleRepository, l ledger.ActivityLedger, interval, retention, seed time.Duration) *Scheduler {
	return &Scheduler{
		sync:      sync,
		pending:   pending,
		ledger:    l,
		interval:  interval,
		retention: retention,
		seed:      seed,
		kick:      make(chan struct{}, 1),
	}
}

// Kick requests an immediate sweep. Non-blocking; redundant kicks while one
// is already queued collapse into a single sweep.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run loops until the context is cancelled. Call it on its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.seed
	b.MaxInterval = s.interval
	b.MaxElapsedTime = 0 // never give up; the eviction policy bounds the queue instead
	b.Reset()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if s.sweep(ctx) {
			b.Reset()
			timer.Reset(s.interval)
		} else {
			timer.Reset(b.NextBackOff())
		}
	}
}

// sweep runs one gated drain plus the retention eviction. Returns false when
// the sweep should be retried on the failure backoff.
func (s *Scheduler) sweep(ctx context.Context) bool {
	// Network gate: skip the drain entirely while the ledger is unreachable.
	if err := s.ledger.Ping(ctx); err != nil {
		log.Printf("Sync sweep skipped, ledger unreachable: %v", err)
		return false
	}

	if s.retention > 0 {
		cutoff := time.Now().Add(-s.retention).UnixMilli()
		if deleted, err := s.pending.DeleteOlderThan(cutoff); err != nil {
			log.Printf("Warning: retention sweep failed: %v", err)
		} else if deleted > 0 {
			log.Printf("Warning: evicted %d pending samples past retention age", deleted)
		}
	}

	if _, err := s.sync.Drain(ctx, ""); err != nil {
		log.Printf("Sync sweep failed: %v", err)
		return false
	}
	return true
}

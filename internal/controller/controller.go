package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hokuto/run-telemetry-go/internal/ledger"
	"github.com/hokuto/run-telemetry-go/internal/models"
	"github.com/hokuto/run-telemetry-go/internal/recorder"
	"github.com/hokuto/run-telemetry-go/internal/repository"
	"github.com/hokuto/run-telemetry-go/internal/stream"
	"github.com/hokuto/run-telemetry-go/internal/syncer"
)

// ErrMissingIdentifiers is returned when start is called without the required
// event or user identifier. Fatal, non-retryable.
var ErrMissingIdentifiers = errors.New("missing required identifiers")

// ErrAlreadyTracking is returned when start is called while a session runs.
var ErrAlreadyTracking = errors.New("tracking already in progress")

// ErrNotTracking is returned when stop is called while idle.
var ErrNotTracking = errors.New("no tracking in progress")

// Status is the live aggregate state exposed to observers.
type Status struct {
	IsTracking          bool        `json:"isTracking"`
	ActivityID          string      `json:"activityId,omitempty"`
	EventID             string      `json:"eventId,omitempty"`
	LastFix             *models.Fix `json:"lastFix,omitempty"`
	TotalDistanceMeters float64     `json:"totalDistanceMeters"`
	SampleCount         int         `json:"sampleCount"`
}

// SamplingController owns the lifecycle of fix acquisition: Idle -> Sampling
// -> Idle. While sampling it feeds every delivered fix through the recorder
// on a background goroutine, keeps the live aggregates, and broadcasts them
// on the tracking topic.
type SamplingController struct {
	recorder *recorder.TelemetryRecorder
	sync     *syncer.Synchronizer
	ledger   ledger.ActivityLedger
	pending  *repository.PendingSampleRepository
	source   FixSource
	hub      *stream.Hub
	opts     SamplingOptions
	kick     func() // requests a scheduler sweep; may be nil

	mu         sync.Mutex
	tracking   bool
	activityID string
	eventID    string
	previous   *models.RecordedSample
	lastFix    *models.Fix
	total      float64
	count      int
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSamplingController creates an idle controller.
func NewSamplingController(
	rec *recorder.TelemetryRecorder,
	sync *syncer.Synchronizer,
	l ledger.ActivityLedger,
	pending *repository.PendingSampleRepository,
	source FixSource,
	hub *stream.Hub,
	opts SamplingOptions,
	kick func(),
) *SamplingController {
	return &SamplingController{
		recorder: rec,
		sync:     sync,
		ledger:   l,
		pending:  pending,
		source:   source,
		hub:      hub,
		opts:     opts,
		kick:     kick,
	}
}

// Start creates a new activity in the remote ledger and begins sampling.
// Returns the new activity id. Identifier and permission problems are fatal
// to this call; the remote create must succeed for tracking to start.
func (c *SamplingController) Start(ctx context.Context, eventID, userID string) (string, error) {
	if eventID == "" || userID == "" {
		return "", ErrMissingIdentifiers
	}

	c.mu.Lock()
	if c.tracking {
		c.mu.Unlock()
		return "", ErrAlreadyTracking
	}
	c.mu.Unlock()

	activityID := uuid.NewString()
	activity := &models.Activity{
		ID:          activityID,
		EventID:     eventID,
		OwnerID:     userID,
		Status:      models.ActivityStatusActive,
		StartedAtMs: time.Now().UnixMilli(),
	}
	if err := c.ledger.CreateActivity(ctx, activity); err != nil {
		return "", err
	}

	// The subscription lives beyond the start request.
	trackCtx, cancel := context.WithCancel(context.Background())
	fixes, err := c.source.Subscribe(trackCtx, c.opts)
	if err != nil {
		cancel()
		return "", err
	}

	c.mu.Lock()
	c.tracking = true
	c.activityID = activityID
	c.eventID = eventID
	c.previous = nil
	c.lastFix = nil
	c.total = 0
	c.count = 0
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.consume(fixes, activityID, eventID, userID)

	log.Printf("Started tracking activity %s for event %s", activityID, eventID)
	c.broadcast()
	return activityID, nil
}

// consume drives the dual-write off the delivery channel, one fix at a time.
// Runs until the subscription channel closes.
func (c *SamplingController) consume(fixes <-chan models.Fix, activityID, eventID, userID string) {
	defer close(c.done)

	for fix := range fixes {
		// Already-delivered fixes run to completion even after Stop: the
		// durable insert must either finish or fail explicitly, never be
		// abandoned half-way by cancellation.
		recorded, err := c.recorder.Record(context.Background(), activityID, eventID, userID, fix, c.previousSample())
		if err != nil {
			log.Printf("Failed to record fix for activity %s: %v", activityID, err)
			continue
		}

		c.mu.Lock()
		c.previous = recorded
		c.lastFix = &fix
		c.total = recorded.CumulativeDistance
		c.count++
		c.mu.Unlock()

		if !recorded.Synced && c.kick != nil {
			c.kick()
		}
		c.broadcast()
	}
}

// Stop ceases fix acquisition, drains the activity's remaining queued
// samples, and transitions the activity to FINISHED. Drain and finish are
// best-effort; their failures are logged and handed to the synchronizer, not
// returned.
func (c *SamplingController) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.tracking {
		c.mu.Unlock()
		return ErrNotTracking
	}
	activityID := c.activityID
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done

	recoverable := false
	if _, err := c.sync.Drain(ctx, activityID); err != nil {
		log.Printf("Warning: final drain for activity %s failed: %v", activityID, err)
		recoverable = true
	}
	if err := c.ledger.FinishActivity(ctx, activityID, time.Now().UnixMilli()); err != nil {
		log.Printf("Warning: failed to finish activity %s remotely: %v", activityID, err)
		recoverable = true
	}
	if recoverable && c.kick != nil {
		c.kick()
	}

	c.mu.Lock()
	c.tracking = false
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	log.Printf("Stopped tracking activity %s", activityID)
	c.broadcast()
	return nil
}

// Abandon ceases acquisition and wipes the activity's queued samples without
// finishing it remotely.
func (c *SamplingController) Abandon(ctx context.Context) error {
	c.mu.Lock()
	if !c.tracking {
		c.mu.Unlock()
		return ErrNotTracking
	}
	activityID := c.activityID
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done

	if err := c.pending.DeleteByActivity(activityID); err != nil {
		return err
	}

	c.mu.Lock()
	c.tracking = false
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	log.Printf("Abandoned tracking activity %s", activityID)
	c.broadcast()
	return nil
}

// Status returns a snapshot of the live aggregates.
func (c *SamplingController) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		IsTracking:          c.tracking,
		TotalDistanceMeters: c.total,
		SampleCount:         c.count,
	}
	if c.tracking {
		s.ActivityID = c.activityID
		s.EventID = c.eventID
	}
	if c.lastFix != nil {
		fix := *c.lastFix
		s.LastFix = &fix
	}
	return s
}

func (c *SamplingController) previousSample() *models.RecordedSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

func (c *SamplingController) broadcast() {
	if c.hub == nil {
		return
	}

	payload, err := json.Marshal(c.Status())
	if err != nil {
		return
	}
	c.hub.Broadcast(stream.TopicTracking, payload)
}

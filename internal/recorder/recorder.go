package recorder

import (
	"context"
	"log"

	"github.com/hokuto/run-telemetry-go/internal/ledger"
	"github.com/hokuto/run-telemetry-go/internal/models"
	"github.com/hokuto/run-telemetry-go/internal/repository"
	"github.com/hokuto/run-telemetry-go/internal/spatial"
)

// TelemetryRecorder performs the dual-write for each incoming fix: durable
// local insert first, then a single best-effort remote append, then a
// compensating local delete when the append succeeded. A failed append is not
// an error; the row stays queued for the synchronizer.
type TelemetryRecorder struct {
	pending *repository.PendingSampleRepository
	ledger  ledger.ActivityLedger
}

// NewTelemetryRecorder creates a new telemetry recorder.
func NewTelemetryRecorder(pending *repository.PendingSampleRepository, l ledger.ActivityLedger) *TelemetryRecorder {
	return &TelemetryRecorder{pending: pending, ledger: l}
}

// Record processes one fix for an activity.
//
// Distance delta and cumulative distance both derive from the same previous
// sample, so the cumulative chain stays monotonic through the local sequence
// of RecordedSamples regardless of remote-append outcomes. An error is
// returned only when the durable local insert fails; that is the single point
// where a fix can be lost.
func (r *TelemetryRecorder) Record(ctx context.Context, activityID, eventID, userID string, fix models.Fix, previous *models.RecordedSample) (*models.RecordedSample, error) {
	var distanceFromPrevious *float64
	cumulative := 0.0

	if previous != nil {
		d := spatial.HaversineDistance(previous.Latitude, previous.Longitude, fix.Latitude, fix.Longitude)
		distanceFromPrevious = &d
		cumulative = previous.CumulativeDistance + d
	}

	bearing := fix.Bearing
	if bearing == nil && previous != nil {
		b := spatial.Bearing(previous.Latitude, previous.Longitude, fix.Latitude, fix.Longitude)
		bearing = &b
	}

	sample := &models.PendingSample{
		ActivityID:           activityID,
		EventID:              eventID,
		UserID:               userID,
		Latitude:             fix.Latitude,
		Longitude:            fix.Longitude,
		Altitude:             fix.Altitude,
		Accuracy:             fix.Accuracy,
		SpeedMps:             fix.SpeedMps,
		Bearing:              bearing,
		TimestampMs:          fix.TimestampMs,
		DistanceFromPrevious: distanceFromPrevious,
		CumulativeDistance:   cumulative,
	}

	// Durable write. If this fails the fix is lost and the caller must know.
	id, err := r.pending.Insert(sample)
	if err != nil {
		return nil, err
	}

	recorded := &models.RecordedSample{
		ID:                   id,
		Latitude:             fix.Latitude,
		Longitude:            fix.Longitude,
		TimestampMs:          fix.TimestampMs,
		DistanceFromPrevious: distanceFromPrevious,
		CumulativeDistance:   cumulative,
	}

	// Best-effort remote record within the same call: append plus latest-state
	// update. The delete below is idempotent, so racing with a synchronizer
	// sweep that already flushed this row is harmless.
	if err := r.ledger.RecordSample(ctx, sample); err != nil {
		log.Printf("Warning: sample %d queued, remote append failed: %v", id, err)
		return recorded, nil
	}

	if err := r.pending.DeleteByID(id); err != nil {
		// The row will be re-appended by the synchronizer; the remote side
		// must tolerate the duplicate (at-least-once delivery).
		log.Printf("Warning: failed to delete synced sample %d: %v", id, err)
		return recorded, nil
	}

	recorded.Synced = true
	return recorded, nil
}

package ledger

import (
	"context"
	"errors"

	"github.com/hokuto/run-telemetry-go/internal/models"
)

// ErrTransient marks a remote failure worth retrying: network errors,
// timeouts, throttling, server errors. Callers absorb it into retry
// bookkeeping; it is never surfaced to API clients.
var ErrTransient = errors.New("remote ledger temporarily unavailable")

// IsTransient reports whether an append/update failure should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// RemoteSample is the wire form of a sample appended to an activity's sample
// log: the geometry and kinematics of a PendingSample without the local
// bookkeeping fields.
type RemoteSample struct {
	Latitude             float64  `json:"latitude"`
	Longitude            float64  `json:"longitude"`
	Altitude             *float64 `json:"altitude,omitempty"`
	Accuracy             *float64 `json:"accuracy,omitempty"`
	SpeedMps             *float64 `json:"speedMps,omitempty"`
	Bearing              *float64 `json:"bearing,omitempty"`
	TimestampMs          int64    `json:"timestampMs"`
	DistanceFromPrevious *float64 `json:"distanceFromPrevious,omitempty"`
	CumulativeDistance   float64  `json:"cumulativeDistance"`
}

// ActivityLedger is the remote-store client consumed by the recorder, the
// synchronizer and the sampling controller.
//
// RecordSample is the live path: it appends the sample to the activity's log
// and updates the activity's denormalized latest state (position, total
// distance) in the same remote call, so a successful record always leaves the
// two consistent. AppendSample is the drain path: it appends to the log only.
// Retried rows can be older than samples already recorded live, so a drain
// must never move latest state backwards.
//
// Append order on the remote side is arrival order: when retried rows
// interleave with fresh writes the log may be out of timestamp order, and
// readers must sort by the carried timestamp.
type ActivityLedger interface {
	CreateActivity(ctx context.Context, a *models.Activity) error
	RecordSample(ctx context.Context, s *models.PendingSample) error
	AppendSample(ctx context.Context, s *models.PendingSample) error
	FinishActivity(ctx context.Context, activityID string, finishedAtMs int64) error
	Ping(ctx context.Context) error
}

// RemoteSampleFrom strips the local bookkeeping fields off a queued sample.
func RemoteSampleFrom(s *models.PendingSample) RemoteSample {
	return RemoteSample{
		Latitude:             s.Latitude,
		Longitude:            s.Longitude,
		Altitude:             s.Altitude,
		Accuracy:             s.Accuracy,
		SpeedMps:             s.SpeedMps,
		Bearing:              s.Bearing,
		TimestampMs:          s.TimestampMs,
		DistanceFromPrevious: s.DistanceFromPrevious,
		CumulativeDistance:   s.CumulativeDistance,
	}
}

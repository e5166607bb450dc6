package syncer

import (
	"context"
	"log"

	"github.com/hokuto/run-telemetry-go/internal/ledger"
	"github.com/hokuto/run-telemetry-go/internal/models"
	"github.com/hokuto/run-telemetry-go/internal/repository"
)

// MaxRetryCount is the hard ceiling on append attempts per queued sample.
// A row whose post-increment retry count reaches the ceiling is force-evicted:
// deliberate data loss that bounds local storage growth when the remote store
// stays unreachable.
const MaxRetryCount = 5

// Synchronizer reconciles the pending-sample queue against the remote ledger:
// at-least-once delivery with a loss ceiling, no exactly-once claim.
type Synchronizer struct {
	pending *repository.PendingSampleRepository
	ledger  ledger.ActivityLedger
}

// NewSynchronizer creates a new synchronizer.
func NewSynchronizer(pending *repository.PendingSampleRepository, l ledger.ActivityLedger) *Synchronizer {
	return &Synchronizer{pending: pending, ledger: l}
}

// Drain attempts to flush queued samples to the remote ledger, oldest
// timestamp first. An empty activityID drains the whole queue; otherwise the
// sweep is scoped to one activity. Returns the number of successfully synced
// rows; force-evicted rows are deleted but never counted as successes.
func (s *Synchronizer) Drain(ctx context.Context, activityID string) (int, error) {
	rows, err := s.load(activityID)
	if err != nil {
		return 0, err
	}

	synced := 0
	var toDelete []int64

	for i := range rows {
		row := &rows[i]

		if ctx.Err() != nil {
			break
		}

		if err := s.ledger.AppendSample(ctx, row); err != nil {
			if incErr := s.pending.IncrementRetryCount(row.ID); incErr != nil {
				log.Printf("Warning: failed to increment retry count for sample %d: %v", row.ID, incErr)
				continue
			}

			if row.RetryCount+1 >= MaxRetryCount {
				// Forced eviction: the retry budget is spent.
				log.Printf("Warning: evicting sample %d after %d failed append attempts", row.ID, row.RetryCount+1)
				toDelete = append(toDelete, row.ID)
			}
			continue
		}

		toDelete = append(toDelete, row.ID)
		synced++
	}

	if err := s.pending.DeleteByIDs(toDelete); err != nil {
		return synced, err
	}

	if synced > 0 {
		log.Printf("Synced %d pending samples", synced)
	}
	return synced, nil
}

func (s *Synchronizer) load(activityID string) ([]models.PendingSample, error) {
	if activityID != "" {
		return s.pending.GetByActivity(activityID)
	}
	return s.pending.GetAll()
}

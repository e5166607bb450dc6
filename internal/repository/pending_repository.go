package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hokuto/run-telemetry-go/internal/models"
	"github.com/hokuto/run-telemetry-go/internal/stream"
)

const pendingSampleColumns = `id, activity_id, event_id, user_id, latitude, longitude,
	altitude, accuracy, speed_mps, bearing, timestamp_ms,
	distance_from_previous, cumulative_distance, retry_count, created_at_ms`

// PendingSampleRepository handles database operations for the durable queue
// of samples awaiting remote append. Deletes are idempotent no-ops on absent
// ids so that the recorder and the synchronizer can race on the same rows.
type PendingSampleRepository struct {
	db  *sql.DB
	hub *stream.Hub
}

// NewPendingSampleRepository creates a new pending sample repository.
// hub may be nil; when set, every committed mutation re-publishes the queue
// count on the pending topic.
func NewPendingSampleRepository(db *sql.DB, hub *stream.Hub) *PendingSampleRepository {
	return &PendingSampleRepository{db: db, hub: hub}
}

// Insert adds a sample to the queue and returns its assigned id.
func (r *PendingSampleRepository) Insert(s *models.PendingSample) (int64, error) {
	if s.CreatedAtMs == 0 {
		s.CreatedAtMs = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO pending_samples (
			activity_id, event_id, user_id, latitude, longitude,
			altitude, accuracy, speed_mps, bearing, timestamp_ms,
			distance_from_previous, cumulative_distance, retry_count, created_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		s.ActivityID,
		s.EventID,
		s.UserID,
		s.Latitude,
		s.Longitude,
		s.Altitude,
		s.Accuracy,
		s.SpeedMps,
		s.Bearing,
		s.TimestampMs,
		s.DistanceFromPrevious,
		s.CumulativeDistance,
		s.RetryCount,
		s.CreatedAtMs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pending sample: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	s.ID = id
	r.notifyPending()
	return id, nil
}

// DeleteByID removes a single row. Missing ids are not an error: the row may
// already have been deleted by a racing caller.
func (r *PendingSampleRepository) DeleteByID(id int64) error {
	_, err := r.db.Exec("DELETE FROM pending_samples WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete pending sample %d: %w", id, err)
	}

	r.notifyPending()
	return nil
}

// DeleteByIDs removes a batch of rows in one statement.
func (r *PendingSampleRepository) DeleteByIDs(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.db.Exec("DELETE FROM pending_samples WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to delete pending samples: %w", err)
	}

	r.notifyPending()
	return nil
}

// DeleteByActivity removes every queued row of one activity. Used when an
// activity is abandoned.
func (r *PendingSampleRepository) DeleteByActivity(activityID string) error {
	_, err := r.db.Exec("DELETE FROM pending_samples WHERE activity_id = ?", activityID)
	if err != nil {
		return fmt.Errorf("failed to delete pending samples for activity %s: %w", activityID, err)
	}

	r.notifyPending()
	return nil
}

// DeleteOlderThan removes rows created before the cutoff, regardless of
// retry state. This is the retention-age escape valve.
func (r *PendingSampleRepository) DeleteOlderThan(cutoffMs int64) (int64, error) {
	result, err := r.db.Exec("DELETE FROM pending_samples WHERE created_at_ms < ?", cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pending samples: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted row count: %w", err)
	}

	if deleted > 0 {
		r.notifyPending()
	}
	return deleted, nil
}

// IncrementRetryCount bumps the retry counter of one row in place.
func (r *PendingSampleRepository) IncrementRetryCount(id int64) error {
	_, err := r.db.Exec("UPDATE pending_samples SET retry_count = retry_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to increment retry count for sample %d: %w", id, err)
	}

	r.notifyPending()
	return nil
}

// GetAll returns every queued sample ordered by timestamp ascending.
func (r *PendingSampleRepository) GetAll() ([]models.PendingSample, error) {
	query := "SELECT " + pendingSampleColumns + " FROM pending_samples ORDER BY timestamp_ms ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending samples: %w", err)
	}
	defer rows.Close()

	return scanPendingSamples(rows)
}

// GetByActivity returns the queued samples of one activity ordered by
// timestamp ascending.
func (r *PendingSampleRepository) GetByActivity(activityID string) ([]models.PendingSample, error) {
	query := "SELECT " + pendingSampleColumns + " FROM pending_samples WHERE activity_id = ? ORDER BY timestamp_ms ASC"

	rows, err := r.db.Query(query, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending samples for activity %s: %w", activityID, err)
	}
	defer rows.Close()

	return scanPendingSamples(rows)
}

// GetFailed returns rows whose retry count has reached the ceiling; these are
// the candidates for forced eviction.
func (r *PendingSampleRepository) GetFailed(retryCeiling int) ([]models.PendingSample, error) {
	query := "SELECT " + pendingSampleColumns + " FROM pending_samples WHERE retry_count >= ? ORDER BY timestamp_ms ASC"

	rows, err := r.db.Query(query, retryCeiling)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed pending samples: %w", err)
	}
	defer rows.Close()

	return scanPendingSamples(rows)
}

// Count returns the number of queued samples.
func (r *PendingSampleRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM pending_samples").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending samples: %w", err)
	}
	return count, nil
}

func scanPendingSamples(rows *sql.Rows) ([]models.PendingSample, error) {
	var samples []models.PendingSample
	for rows.Next() {
		var s models.PendingSample
		err := rows.Scan(
			&s.ID, &s.ActivityID, &s.EventID, &s.UserID, &s.Latitude, &s.Longitude,
			&s.Altitude, &s.Accuracy, &s.SpeedMps, &s.Bearing, &s.TimestampMs,
			&s.DistanceFromPrevious, &s.CumulativeDistance, &s.RetryCount, &s.CreatedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending sample: %w", err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending samples: %w", err)
	}
	return samples, nil
}

// notifyPending re-derives the queue size and broadcasts it. Observers always
// receive the post-commit state, never an incremental delta.
func (r *PendingSampleRepository) notifyPending() {
	if r.hub == nil {
		return
	}

	count, err := r.Count()
	if err != nil {
		return
	}

	payload, err := json.Marshal(map[string]int{"pendingCount": count})
	if err != nil {
		return
	}
	r.hub.Broadcast(stream.TopicPending, payload)
}

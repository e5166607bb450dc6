package models

// Fix represents one raw GPS reading as delivered by a location provider.
// Fixes are ephemeral; they are consumed by the recorder and never persisted
// directly.
type Fix struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Altitude    *float64 `json:"altitude,omitempty"`
	Accuracy    *float64 `json:"accuracy,omitempty"`
	SpeedMps    *float64 `json:"speedMps,omitempty"`
	Bearing     *float64 `json:"bearing,omitempty"`
	TimestampMs int64    `json:"timestampMs"` // Unix timestamp in milliseconds
}

// PendingSample is a locally queued, not-yet-confirmed-remote sample.
// Rows are deleted only after a successful remote append, after the retry
// ceiling is hit (forced eviction), or after exceeding the retention age.
type PendingSample struct {
	ID                   int64    `json:"id" db:"id"`
	ActivityID           string   `json:"activityId" db:"activity_id"`
	EventID              string   `json:"eventId" db:"event_id"`
	UserID               string   `json:"userId" db:"user_id"`
	Latitude             float64  `json:"latitude" db:"latitude"`
	Longitude            float64  `json:"longitude" db:"longitude"`
	Altitude             *float64 `json:"altitude,omitempty" db:"altitude"`
	Accuracy             *float64 `json:"accuracy,omitempty" db:"accuracy"`
	SpeedMps             *float64 `json:"speedMps,omitempty" db:"speed_mps"`
	Bearing              *float64 `json:"bearing,omitempty" db:"bearing"`
	TimestampMs          int64    `json:"timestampMs" db:"timestamp_ms"`
	DistanceFromPrevious *float64 `json:"distanceFromPrevious,omitempty" db:"distance_from_previous"` // nil for the first sample of an activity
	CumulativeDistance   float64  `json:"cumulativeDistance" db:"cumulative_distance"`                // meters, non-decreasing per activity
	RetryCount           int      `json:"retryCount" db:"retry_count"`
	CreatedAtMs          int64    `json:"createdAtMs" db:"created_at_ms"`
}

// RecordedSample is what the recorder hands back to the sampling controller
// after a dual-write: the computed sample plus whether the remote append
// succeeded within the same call. Synced=false means the sample is queued
// locally and will be delivered by the synchronizer, not that it was lost.
type RecordedSample struct {
	ID                   int64    `json:"id"`
	Latitude             float64  `json:"latitude"`
	Longitude            float64  `json:"longitude"`
	TimestampMs          int64    `json:"timestampMs"`
	DistanceFromPrevious *float64 `json:"distanceFromPrevious,omitempty"`
	CumulativeDistance   float64  `json:"cumulativeDistance"`
	Synced               bool     `json:"synced"`
}

package models

// Activity lifecycle states.
const (
	ActivityStatusActive   = "ACTIVE"
	ActivityStatusPaused   = "PAUSED" // reserved, unused
	ActivityStatusFinished = "FINISHED"
)

// LatestPosition is the denormalized copy of the most recent remote sample,
// updated atomically with each successful append.
type LatestPosition struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	TimestampMs int64    `json:"timestampMs"`
	SpeedMps    *float64 `json:"speedMps,omitempty"`
}

// Activity represents one tracked session from start to finish, as stored in
// the remote ledger. TotalDistanceMeters advances only with successful
// appends; a failed append leaves it behind the local cumulative distance
// until the synchronizer catches up.
type Activity struct {
	ID                 string          `json:"id"`
	EventID            string          `json:"eventId"`
	OwnerID            string          `json:"ownerId"`
	Status             string          `json:"status"`
	StartedAtMs        int64           `json:"startedAtMs"`
	FinishedAtMs       *int64          `json:"finishedAtMs,omitempty"`
	LatestPosition     *LatestPosition `json:"latestPosition,omitempty"`
	TotalDistanceMeters float64        `json:"totalDistanceMeters"`
}

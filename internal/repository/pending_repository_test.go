package repository

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/hokuto/run-telemetry-go/internal/database"
	"github.com/hokuto/run-telemetry-go/internal/models"
	"github.com/hokuto/run-telemetry-go/internal/stream"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "pending.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	manager := database.NewMigrationManager(db, "../../migrations")
	if err := manager.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func sampleAt(activityID string, timestampMs int64, cumulative float64) *models.PendingSample {
	return &models.PendingSample{
		ActivityID:         activityID,
		EventID:            "event-1",
		UserID:             "user-1",
		Latitude:           35.681,
		Longitude:          139.767,
		TimestampMs:        timestampMs,
		CumulativeDistance: cumulative,
	}
}

func TestInsertAssignsIDAndCreatedAt(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	s := sampleAt("run-1", 1000, 0)
	id, err := repo.Insert(s)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}
	if s.ID != id {
		t.Fatalf("sample id not backfilled: got %d want %d", s.ID, id)
	}
	if s.CreatedAtMs == 0 {
		t.Fatal("createdAt not set on insert")
	}

	id2, err := repo.Insert(sampleAt("run-1", 2000, 10))
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if id2 <= id {
		t.Fatalf("ids not increasing: %d then %d", id, id2)
	}
}

func TestGetAllOrdersByTimestamp(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	// Insert out of timestamp order.
	for _, ts := range []int64{3000, 1000, 2000} {
		if _, err := repo.Insert(sampleAt("run-1", ts, 0)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	samples, err := repo.GetAll()
	if err != nil {
		t.Fatalf("getAll failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if samples[i].TimestampMs != want {
			t.Fatalf("position %d: timestamp %d, want %d", i, samples[i].TimestampMs, want)
		}
	}
}

func TestGetByActivityFilters(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	repo.Insert(sampleAt("run-1", 1000, 0))
	repo.Insert(sampleAt("run-2", 1500, 0))
	repo.Insert(sampleAt("run-1", 2000, 5))

	samples, err := repo.GetByActivity("run-1")
	if err != nil {
		t.Fatalf("getByActivity failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples for run-1, got %d", len(samples))
	}
	for _, s := range samples {
		if s.ActivityID != "run-1" {
			t.Fatalf("unexpected activity id: %s", s.ActivityID)
		}
	}
}

func TestDeleteByIDIsIdempotent(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	id, _ := repo.Insert(sampleAt("run-1", 1000, 0))

	if err := repo.DeleteByID(id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	// Deleting an absent id must be a no-op, not an error.
	if err := repo.DeleteByID(id); err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
	if err := repo.DeleteByID(99999); err != nil {
		t.Fatalf("delete of never-existing id errored: %v", err)
	}

	count, _ := repo.Count()
	if count != 0 {
		t.Fatalf("expected empty queue, got %d", count)
	}
}

func TestDeleteByIDs(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	id1, _ := repo.Insert(sampleAt("run-1", 1000, 0))
	id2, _ := repo.Insert(sampleAt("run-1", 2000, 5))
	id3, _ := repo.Insert(sampleAt("run-1", 3000, 9))

	if err := repo.DeleteByIDs(nil); err != nil {
		t.Fatalf("empty batch delete errored: %v", err)
	}
	if err := repo.DeleteByIDs([]int64{id1, id3, 424242}); err != nil {
		t.Fatalf("batch delete failed: %v", err)
	}

	samples, _ := repo.GetAll()
	if len(samples) != 1 || samples[0].ID != id2 {
		t.Fatalf("expected only sample %d to remain, got %+v", id2, samples)
	}
}

func TestDeleteByActivity(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	repo.Insert(sampleAt("run-1", 1000, 0))
	repo.Insert(sampleAt("run-1", 2000, 5))
	repo.Insert(sampleAt("run-2", 1500, 0))

	if err := repo.DeleteByActivity("run-1"); err != nil {
		t.Fatalf("deleteByActivity failed: %v", err)
	}

	samples, _ := repo.GetAll()
	if len(samples) != 1 || samples[0].ActivityID != "run-2" {
		t.Fatalf("expected only run-2 samples to remain, got %+v", samples)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	old := sampleAt("run-1", 1000, 0)
	old.CreatedAtMs = 500
	repo.Insert(old)

	fresh := sampleAt("run-1", 2000, 5)
	fresh.CreatedAtMs = 5000
	repo.Insert(fresh)

	deleted, err := repo.DeleteOlderThan(1500)
	if err != nil {
		t.Fatalf("deleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}

	samples, _ := repo.GetAll()
	if len(samples) != 1 || samples[0].CreatedAtMs != 5000 {
		t.Fatalf("wrong survivor: %+v", samples)
	}
}

func TestIncrementRetryCountAndGetFailed(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	id, _ := repo.Insert(sampleAt("run-1", 1000, 0))
	repo.Insert(sampleAt("run-1", 2000, 5))

	for i := 0; i < 5; i++ {
		if err := repo.IncrementRetryCount(id); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}

	failed, err := repo.GetFailed(5)
	if err != nil {
		t.Fatalf("getFailed failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != id || failed[0].RetryCount != 5 {
		t.Fatalf("unexpected failed set: %+v", failed)
	}
}

func TestOptionalFieldsRoundTrip(t *testing.T) {
	repo := NewPendingSampleRepository(openTestDB(t), nil)

	alt := 12.5
	speed := 2.8
	s := sampleAt("run-1", 1000, 0)
	s.Altitude = &alt
	s.SpeedMps = &speed
	repo.Insert(s)

	// Second sample with every optional field absent.
	repo.Insert(sampleAt("run-1", 2000, 5))

	samples, _ := repo.GetByActivity("run-1")
	if samples[0].Altitude == nil || *samples[0].Altitude != alt {
		t.Fatalf("altitude lost: %+v", samples[0].Altitude)
	}
	if samples[0].SpeedMps == nil || *samples[0].SpeedMps != speed {
		t.Fatalf("speed lost: %+v", samples[0].SpeedMps)
	}
	if samples[0].DistanceFromPrevious != nil {
		t.Fatalf("expected nil distanceFromPrevious, got %v", *samples[0].DistanceFromPrevious)
	}
	if samples[1].Altitude != nil || samples[1].Bearing != nil {
		t.Fatalf("expected nil optionals, got %+v", samples[1])
	}
}

func TestMutationsBroadcastPendingCount(t *testing.T) {
	hub := stream.NewHub()
	repo := NewPendingSampleRepository(openTestDB(t), hub)
	client := hub.Register(stream.TopicPending)

	id, _ := repo.Insert(sampleAt("run-1", 1000, 0))

	var payload struct {
		PendingCount int `json:"pendingCount"`
	}
	select {
	case msg := <-client.Send:
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if payload.PendingCount != 1 {
			t.Fatalf("expected count 1 after insert, got %d", payload.PendingCount)
		}
	default:
		t.Fatal("no broadcast after insert")
	}

	repo.DeleteByID(id)
	select {
	case msg := <-client.Send:
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if payload.PendingCount != 0 {
			t.Fatalf("expected count 0 after delete, got %d", payload.PendingCount)
		}
	default:
		t.Fatal("no broadcast after delete")
	}
}

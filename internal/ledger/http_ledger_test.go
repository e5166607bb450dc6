package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hokuto/run-telemetry-go/internal/models"
)

func TestRecordSamplePostsRemoteForm(t *testing.T) {
	var gotPath, gotQuery string
	var got RemoteSample

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	l := NewHTTPLedger(server.URL, server.Client())

	dist := 50.0
	s := &models.PendingSample{
		ID:                   7,
		ActivityID:           "run-1",
		EventID:              "event-1",
		UserID:               "user-1",
		Latitude:             35.681,
		Longitude:            139.767,
		TimestampMs:          1000,
		DistanceFromPrevious: &dist,
		CumulativeDistance:   150,
		RetryCount:           3,
	}

	if err := l.RecordSample(context.Background(), s); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if gotPath != "/api/v1/activities/run-1/samples" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotQuery != "" {
		t.Fatalf("live record must not carry a query: %s", gotQuery)
	}
	if got.Latitude != 35.681 || got.CumulativeDistance != 150 {
		t.Fatalf("payload mismatch: %+v", got)
	}
	if got.DistanceFromPrevious == nil || *got.DistanceFromPrevious != 50 {
		t.Fatalf("distanceFromPrevious lost: %+v", got.DistanceFromPrevious)
	}
}

func TestAppendSampleSkipsLatestStateUpdate(t *testing.T) {
	var gotPath, gotUpdateLatest string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUpdateLatest = r.URL.Query().Get("updateLatest")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	l := NewHTTPLedger(server.URL, server.Client())

	if err := l.AppendSample(context.Background(), &models.PendingSample{ActivityID: "run-1"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if gotPath != "/api/v1/activities/run-1/samples" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotUpdateLatest != "false" {
		t.Fatalf("updateLatest = %q, want false", gotUpdateLatest)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
		wantErr       bool
	}{
		{"created", http.StatusCreated, false, false},
		{"server error", http.StatusInternalServerError, true, true},
		{"unavailable", http.StatusServiceUnavailable, true, true},
		{"throttled", http.StatusTooManyRequests, true, true},
		{"bad request", http.StatusBadRequest, false, true},
		{"not found", http.StatusNotFound, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			l := NewHTTPLedger(server.URL, server.Client())
			err := l.AppendSample(context.Background(), &models.PendingSample{ActivityID: "run-1"})

			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if IsTransient(err) != tt.wantTransient {
				t.Fatalf("IsTransient = %v, want %v (err: %v)", IsTransient(err), tt.wantTransient, err)
			}
		})
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	l := NewHTTPLedger(server.URL, nil)

	err := l.AppendSample(context.Background(), &models.PendingSample{ActivityID: "run-1"})
	if !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}

	if err := l.Ping(context.Background()); !IsTransient(err) {
		t.Fatalf("expected transient ping error, got %v", err)
	}
}

func TestPingHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	l := NewHTTPLedger(server.URL, server.Client())
	if err := l.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestFinishActivity(t *testing.T) {
	var gotPath string
	var body map[string]int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	l := NewHTTPLedger(server.URL, server.Client())
	if err := l.FinishActivity(context.Background(), "run-9", 123456); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if gotPath != "/api/v1/activities/run-9/finish" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if body["finishedAtMs"] != 123456 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hokuto/run-telemetry-go/internal/models"
)

// HTTPLedger implements ActivityLedger against a remote HTTP JSON store.
// Retry policy lives in the synchronizer, so the client itself makes exactly
// one attempt per call and classifies the failure.
type HTTPLedger struct {
	baseURL string
	client  *http.Client
}

// NewHTTPLedger creates a ledger client for the given base URL. The client's
// timeout bounds every call including the Ping connectivity probe.
func NewHTTPLedger(baseURL string, client *http.Client) *HTTPLedger {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLedger{baseURL: baseURL, client: client}
}

// CreateActivity registers a new activity document in ACTIVE state.
func (l *HTTPLedger) CreateActivity(ctx context.Context, a *models.Activity) error {
	return l.post(ctx, "/api/v1/activities", a)
}

// RecordSample appends one sample to the activity's sample log. The server
// updates the activity's latest position and total distance from the same
// payload.
func (l *HTTPLedger) RecordSample(ctx context.Context, s *models.PendingSample) error {
	path := fmt.Sprintf("/api/v1/activities/%s/samples", s.ActivityID)
	return l.post(ctx, path, RemoteSampleFrom(s))
}

// AppendSample appends one sample to the log without touching latest state.
// Drained rows may predate samples already recorded live, so the server is
// told to skip the state update.
func (l *HTTPLedger) AppendSample(ctx context.Context, s *models.PendingSample) error {
	path := fmt.Sprintf("/api/v1/activities/%s/samples?updateLatest=false", s.ActivityID)
	return l.post(ctx, path, RemoteSampleFrom(s))
}

// FinishActivity transitions an activity to FINISHED.
func (l *HTTPLedger) FinishActivity(ctx context.Context, activityID string, finishedAtMs int64) error {
	path := fmt.Sprintf("/api/v1/activities/%s/finish", activityID)
	return l.post(ctx, path, map[string]int64{"finishedAtMs": finishedAtMs})
}

// Ping probes the remote store. Used as the connectivity gate for the
// periodic sync sweep.
func (l *HTTPLedger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping status %d", ErrTransient, resp.StatusCode)
	}
	return nil
}

func (l *HTTPLedger) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		// Network failure or timeout: retryable.
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned status %d", ErrTransient, path, resp.StatusCode)
	default:
		return fmt.Errorf("ledger rejected %s with status %d", path, resp.StatusCode)
	}
}

// drain discards the body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

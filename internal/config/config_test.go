package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != ":8080" {
		t.Errorf("Port = %q, want :8080", cfg.Port)
	}
	if cfg.SampleIntervalMs != 60000 {
		t.Errorf("SampleIntervalMs = %d, want 60000", cfg.SampleIntervalMs)
	}
	if cfg.SampleFastestIntervalMs != 30000 {
		t.Errorf("SampleFastestIntervalMs = %d, want 30000", cfg.SampleFastestIntervalMs)
	}
	if cfg.SampleMinDisplacementM != 10 {
		t.Errorf("SampleMinDisplacementM = %v, want 10", cfg.SampleMinDisplacementM)
	}
	if cfg.SyncInterval != 15*time.Minute {
		t.Errorf("SyncInterval = %v, want 15m", cfg.SyncInterval)
	}
	if cfg.RetentionAge != 7*24*time.Hour {
		t.Errorf("RetentionAge = %v, want 168h", cfg.RetentionAge)
	}
	if cfg.LedgerTimeout != 10*time.Second {
		t.Errorf("LedgerTimeout = %v, want 10s", cfg.LedgerTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9999")
	t.Setenv("SAMPLE_INTERVAL_MS", "5000")
	t.Setenv("SAMPLE_MIN_DISPLACEMENT_M", "2.5")
	t.Setenv("SYNC_INTERVAL_MINUTES", "1")
	t.Setenv("LEDGER_BASE_URL", "http://ledger.internal:8443")

	cfg := Load()

	if cfg.Port != ":9999" {
		t.Errorf("Port = %q, want :9999", cfg.Port)
	}
	if cfg.SampleIntervalMs != 5000 {
		t.Errorf("SampleIntervalMs = %d, want 5000", cfg.SampleIntervalMs)
	}
	if cfg.SampleMinDisplacementM != 2.5 {
		t.Errorf("SampleMinDisplacementM = %v, want 2.5", cfg.SampleMinDisplacementM)
	}
	if cfg.SyncInterval != time.Minute {
		t.Errorf("SyncInterval = %v, want 1m", cfg.SyncInterval)
	}
	if cfg.LedgerBaseURL != "http://ledger.internal:8443" {
		t.Errorf("LedgerBaseURL = %q", cfg.LedgerBaseURL)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SAMPLE_INTERVAL_MS", "not-a-number")
	t.Setenv("SAMPLE_MIN_DISPLACEMENT_M", "")

	cfg := Load()

	if cfg.SampleIntervalMs != 60000 {
		t.Errorf("SampleIntervalMs = %d, want default 60000", cfg.SampleIntervalMs)
	}
	if cfg.SampleMinDisplacementM != 10 {
		t.Errorf("SampleMinDisplacementM = %v, want default 10", cfg.SampleMinDisplacementM)
	}
}

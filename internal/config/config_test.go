package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PrivacyLevel != "redacted" {
		t.Errorf("PrivacyLevel = %q, want redacted", cfg.PrivacyLevel)
	}
	if cfg.SummaryFile != "DOC0001.XML" {
		t.Errorf("SummaryFile = %q", cfg.SummaryFile)
	}
	if cfg.OutputFile != "patient_history.json" {
		t.Errorf("OutputFile = %q", cfg.OutputFile)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
	if cfg.FailFast {
		t.Error("FailFast should default to false")
	}
	if cfg.AuditDatabaseURL != "" {
		t.Errorf("AuditDatabaseURL = %q, want empty", cfg.AuditDatabaseURL)
	}
	if cfg.AuditDBMaxConns != 4 || cfg.AuditDBMinConns != 1 {
		t.Errorf("audit pool sizes = %d/%d, want 4/1", cfg.AuditDBMaxConns, cfg.AuditDBMinConns)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CDACONVERT_PRIVACY", "strict")
	t.Setenv("CDACONVERT_OUTPUT", "/tmp/out.json")
	t.Setenv("CDACONVERT_SUMMARY_FILE", "SUMMARY.XML")
	t.Setenv("CDACONVERT_FAIL_FAST", "true")
	t.Setenv("CDACONVERT_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PrivacyLevel != "strict" {
		t.Errorf("PrivacyLevel = %q", cfg.PrivacyLevel)
	}
	if cfg.OutputFile != "/tmp/out.json" {
		t.Errorf("OutputFile = %q", cfg.OutputFile)
	}
	if cfg.SummaryFile != "SUMMARY.XML" {
		t.Errorf("SummaryFile = %q", cfg.SummaryFile)
	}
	if !cfg.FailFast {
		t.Error("FailFast should be true")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
}

func TestLoadRejectsInvalidPrivacyLevel(t *testing.T) {
	t.Setenv("CDACONVERT_PRIVACY", "everything")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject an unknown privacy level")
	}
}

func TestLoadRejectsInvalidLogFormat(t *testing.T) {
	t.Setenv("CDACONVERT_LOG_FORMAT", "xml")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject an unknown log format")
	}
}

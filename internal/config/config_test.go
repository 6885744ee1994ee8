package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "PORT", "CLIENT_URL", "TIME_CONTROL", "ALLOW_GUESTS", "MAX_MATCHES", "MATCH_RETENTION_SEC", "LOG_FORMAT", "AUTH_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":3000" || cfg.ClientURL != "http://localhost:5173" {
		t.Fatalf("addr=%q client=%q", cfg.HTTPAddr, cfg.ClientURL)
	}
	if cfg.TimeControl != "5+0" || cfg.MaxMatches != 500 || !cfg.AllowGuests {
		t.Fatalf("game defaults = %+v", cfg)
	}
	if cfg.MatchRetention() != 30*time.Second || cfg.SessionTTL() != 24*time.Hour {
		t.Fatalf("durations: retention=%v ttl=%v", cfg.MatchRetention(), cfg.SessionTTL())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "8080")
	t.Setenv("CLIENT_URL", "https://play.example.com/")
	t.Setenv("ALLOW_GUESTS", "false")
	t.Setenv("MAX_MATCHES", "-3")
	t.Setenv("MATCH_RETENTION_SEC", "0")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("AUTH_URL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("addr = %q", cfg.HTTPAddr)
	}
	if cfg.ClientURL != "https://play.example.com" {
		t.Fatalf("client url = %q", cfg.ClientURL)
	}
	if cfg.AllowGuests || cfg.MaxMatches != 500 || cfg.MatchRetentionSec != 0 {
		t.Fatalf("overrides = %+v", cfg)
	}
	if !cfg.Log.ToFile || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	if _, err := Load(); err == nil {
		t.Fatalf("expected LOG_FORMAT error")
	}
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("AUTH_URL", "ftp://idp")
	if _, err := Load(); err == nil {
		t.Fatalf("expected AUTH_URL error")
	}
}

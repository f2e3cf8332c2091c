package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":8080")
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %s, want 1h", cfg.SessionTTL)
	}
	if cfg.SingleActiveSession {
		t.Error("SingleActiveSession should default to false")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("CLIENT_WHITELIST", "clients.txt")
	t.Setenv("SINGLE_ACTIVE_SESSION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.SessionTTL != 15*time.Minute {
		t.Errorf("SessionTTL = %s, want 15m", cfg.SessionTTL)
	}
	if cfg.ClientWhitelistPath != "clients.txt" {
		t.Errorf("ClientWhitelistPath = %q, want %q", cfg.ClientWhitelistPath, "clients.txt")
	}
	if !cfg.SingleActiveSession {
		t.Error("SingleActiveSession should be true")
	}
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "0s")

	if _, err := Load(); err == nil {
		t.Error("expected validation error for zero TTL")
	}
}

package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ADMIN_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.AdminPIN != "" {
		t.Fatalf("expected empty ADMIN_PIN when unset, got %q", cfg.AdminPIN)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TERMINAL_ID", "")
	t.Setenv("STALL_NAME", "")
	t.Setenv("SYNC_INTERVAL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.TerminalID != "terminal-1" {
		t.Fatalf("expected default terminal id, got %q", cfg.TerminalID)
	}
	if cfg.StallName != "KC HIGH" {
		t.Fatalf("expected default stall name, got %q", cfg.StallName)
	}
	if cfg.SyncIntervalSeconds != 5 {
		t.Fatalf("expected default sync interval 5, got %d", cfg.SyncIntervalSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRejectsBadSyncInterval(t *testing.T) {
	t.Setenv("SYNC_INTERVAL_SECONDS", "-3")

	cfg := Load()
	if cfg.SyncIntervalSeconds != 5 {
		t.Fatalf("expected fallback sync interval 5, got %d", cfg.SyncIntervalSeconds)
	}
}

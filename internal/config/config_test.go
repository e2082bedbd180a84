package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hms_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.AccessTokenTTL != 15 {
		t.Errorf("expected default access TTL 15, got %d", cfg.AccessTokenTTL)
	}
	if cfg.JWTIssuer != "hms" {
		t.Errorf("expected default issuer hms, got %s", cfg.JWTIssuer)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hms_test")
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("expected 5m access TTL, got %s", cfg.AccessTTL())
	}
}

func TestValidate(t *testing.T) {
	longKey := strings.Repeat("k", 32)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"production without key", Config{Env: "production", AccessTokenTTL: 15, RefreshTokenTTL: 72}, true},
		{"production with key", Config{Env: "production", JWTSigningKey: longKey, AccessTokenTTL: 15, RefreshTokenTTL: 72}, false},
		{"development without key", Config{Env: "development", AccessTokenTTL: 15, RefreshTokenTTL: 72}, false},
		{"short key", Config{Env: "development", JWTSigningKey: "short", AccessTokenTTL: 15, RefreshTokenTTL: 72}, true},
		{"zero access ttl", Config{Env: "development", AccessTokenTTL: 0, RefreshTokenTTL: 72}, true},
		{"zero refresh ttl", Config{Env: "development", AccessTokenTTL: 15, RefreshTokenTTL: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRefreshTTL(t *testing.T) {
	cfg := Config{RefreshTokenTTL: 72}
	if cfg.RefreshTTL() != 72*time.Hour {
		t.Errorf("expected 72h, got %s", cfg.RefreshTTL())
	}
}

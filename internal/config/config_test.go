package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address() != "0.0.0.0:5000" {
		t.Errorf("Address: got %q, want 0.0.0.0:5000", cfg.Address())
	}
	if cfg.Mail.WelcomeTemplateID != 6410451 {
		t.Errorf("WelcomeTemplateID: got %d, want 6410451", cfg.Mail.WelcomeTemplateID)
	}
	if cfg.JWT.Secret == "" {
		t.Error("JWT.Secret: got empty, want development fallback")
	}
	if cfg.IsProduction() {
		t.Error("IsProduction: got true, want false")
	}
}

func TestLoadBuildsPostgresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "todos")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "postgres://app:secret@db:6543/todos?sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Errorf("Database.DSN: got %q, want %q", got, want)
	}
}

func TestDSNPrefersURL(t *testing.T) {
	d := DatabaseConfig{URL: "postgres://x@y/z", Host: "ignored"}
	if got := d.DSN(); got != "postgres://x@y/z" {
		t.Errorf("DSN: got %q, want DATABASE_URL value", got)
	}
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Load: got nil error, want missing JWT_SECRET")
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration", "90s", 90 * time.Second},
		{"bare seconds", "15", 15 * time.Second},
		{"garbage", "soon", time.Minute},
		{"unset", "", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getDuration(%q): got %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

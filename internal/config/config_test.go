package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":18080")
	t.Setenv("GRPC_ADDR", ":19090")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SETTINGS_REFRESH_INTERVAL_SECONDS", "90")
	t.Setenv("CONNECTIVITY_AWARE", "false")
	t.Setenv("CHAT_HISTORY_LIMIT", "20")
	t.Setenv("MAINTENANCE_BYPASS_CODE", "007")

	cfg := Load()
	if cfg.HTTPAddr != ":18080" {
		t.Fatalf("expected HTTP_ADDR override, got %s", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":19090" {
		t.Fatalf("expected GRPC_ADDR override, got %s", cfg.GRPCAddr)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Fatalf("expected STORE_DRIVER sqlite, got %s", cfg.StoreDriver)
	}
	if cfg.SQLitePath != "/tmp/test.db" {
		t.Fatalf("expected SQLITE_PATH override, got %s", cfg.SQLitePath)
	}
	if cfg.JWTSecret != "test-secret" {
		t.Fatalf("expected JWT_SECRET override, got %s", cfg.JWTSecret)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected SESSION_TTL 30m, got %s", cfg.SessionTTL)
	}
	if cfg.SettingsRefreshInterval != 90*time.Second {
		t.Fatalf("expected SETTINGS_REFRESH_INTERVAL 90s, got %s", cfg.SettingsRefreshInterval)
	}
	if cfg.ConnectivityAware {
		t.Fatalf("expected CONNECTIVITY_AWARE false")
	}
	if cfg.ChatHistoryLimit != 20 {
		t.Fatalf("expected CHAT_HISTORY_LIMIT 20, got %d", cfg.ChatHistoryLimit)
	}
	if cfg.Codes.MaintenanceBypass != "007" {
		t.Fatalf("expected MAINTENANCE_BYPASS_CODE to keep leading zeros, got %s", cfg.Codes.MaintenanceBypass)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.StoreDriver != DriverMemory || cfg.ChatHistoryLimit != 50 || cfg.DefaultUserPassword != "123456" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.ConnectivityAware || !cfg.AnalyticsEnabled {
		t.Fatalf("expected connectivity and analytics enabled by default")
	}
}

func TestValidateRejectsSharedCodes(t *testing.T) {
	t.Setenv("PUBLISH_CODE", "21412141")
	if err := Load().Validate(); err == nil {
		t.Fatalf("expected shared codes to fail validation")
	}
	t.Setenv("PUBLISH_CODE", "")
	t.Setenv("STORE_DRIVER", "mongo")
	if err := Load().Validate(); err == nil {
		t.Fatalf("expected unknown driver to fail validation")
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KITABUDDY_ENV_FILE_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write error: %v", err)
	}
	t.Setenv("KITABUDDY_ENV_FILE_PROBE", "")
	os.Unsetenv("KITABUDDY_ENV_FILE_PROBE")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load error: %v", err)
	}
	if got := os.Getenv("KITABUDDY_ENV_FILE_PROBE"); got != "loaded" {
		t.Fatalf("expected env file value, got %q", got)
	}
}

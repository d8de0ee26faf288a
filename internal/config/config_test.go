package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.JWT.Issuer != "taskforge" || cfg.JWT.Audience != "taskforge-client" {
		t.Errorf("JWT issuer/audience = %q/%q, expected taskforge/taskforge-client", cfg.JWT.Issuer, cfg.JWT.Audience)
	}
	if cfg.JWT.AccessExpireMinutes != 15 {
		t.Errorf("AccessExpireMinutes = %d, expected 15", cfg.JWT.AccessExpireMinutes)
	}
	if cfg.JWT.RefreshExpireDays != 7 {
		t.Errorf("RefreshExpireDays = %d, expected 7", cfg.JWT.RefreshExpireDays)
	}
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
jwt:
  secret: "file-secret"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "9090")
	}
	if cfg.JWT.Secret != "file-secret" {
		t.Errorf("JWT.Secret = %q, expected %q", cfg.JWT.Secret, "file-secret")
	}
	// Unset fields fall back to defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, expected default %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.JWT.AccessExpireMinutes != 15 {
		t.Errorf("AccessExpireMinutes = %d, expected default 15", cfg.JWT.AccessExpireMinutes)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_ACCESS_EXPIRE_MINUTES", "30")
	t.Setenv("JWT_REFRESH_EXPIRE_DAYS", "14")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "7070")
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("JWT.Secret = %q, expected %q", cfg.JWT.Secret, "env-secret")
	}
	if cfg.JWT.AccessExpireMinutes != 30 {
		t.Errorf("AccessExpireMinutes = %d, expected 30", cfg.JWT.AccessExpireMinutes)
	}
	if cfg.JWT.RefreshExpireDays != 14 {
		t.Errorf("RefreshExpireDays = %d, expected 14", cfg.JWT.RefreshExpireDays)
	}
}

func TestLoad_InvalidEnvNumberIgnored(t *testing.T) {
	t.Setenv("JWT_ACCESS_EXPIRE_MINUTES", "not-a-number")
	t.Setenv("JWT_REFRESH_EXPIRE_DAYS", "-3")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.JWT.AccessExpireMinutes != 15 {
		t.Errorf("AccessExpireMinutes = %d, expected default 15", cfg.JWT.AccessExpireMinutes)
	}
	if cfg.JWT.RefreshExpireDays != 7 {
		t.Errorf("RefreshExpireDays = %d, expected default 7", cfg.JWT.RefreshExpireDays)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = "6060"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != "6060" {
		t.Errorf("Server.Port = %q, expected %q", loaded.Server.Port, "6060")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

const validSecrets = `
security:
  jwt:
    access_secret: "access-secret-key-at-least-32-chars!!"
    refresh_secret: "refresh-secret-key-at-least-32-chars!"
`

func TestLoad_ValidConfig(t *testing.T) {
	content := `
service:
  name: "geb-test"
database:
  main:
    path: "/tmp/test-main.db"
    wal_mode: true
    busy_timeout: 5
  files:
    path: "/tmp/test-files.db"
    wal_mode: true
    busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 9090
` + validSecrets

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "geb-test" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "geb-test")
	}

	if cfg.Database.Main.Path != "/tmp/test-main.db" {
		t.Errorf("Database.Main.Path = %q, want %q", cfg.Database.Main.Path, "/tmp/test-main.db")
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	// Defaults should fill unspecified fields
	if cfg.Security.JWT.AccessTokenTTL != 15 {
		t.Errorf("AccessTokenTTL = %d, want default 15", cfg.Security.JWT.AccessTokenTTL)
	}
	if cfg.Security.Password.BcryptCost != defaultBcryptCost {
		t.Errorf("BcryptCost = %d, want default %d", cfg.Security.Password.BcryptCost, defaultBcryptCost)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MissingSecrets(t *testing.T) {
	_, err := Load(writeConfig(t, "service:\n  name: test\n"))
	if err == nil {
		t.Fatal("Load() expected validation error without signing secrets")
	}
	if !strings.Contains(err.Error(), "access_secret") {
		t.Errorf("error should mention access_secret, got: %v", err)
	}
}

func TestValidate_SharedSecretRejected(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWT.AccessSecret = "shared-secret-key-at-least-32-chars!!"
	cfg.Security.JWT.RefreshSecret = "shared-secret-key-at-least-32-chars!!"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should reject identical access and refresh secrets")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Errorf("error should mention secrets must differ, got: %v", err)
	}
}

func TestValidate_AccessTTLMustBeShorter(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWT.AccessSecret = "access-secret-key-at-least-32-chars!!"
	cfg.Security.JWT.RefreshSecret = "refresh-secret-key-at-least-32-chars!"
	cfg.Security.JWT.AccessTokenTTL = 1440
	cfg.Security.JWT.RefreshTokenTTL = 15

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should reject access TTL >= refresh TTL")
	}
	if !strings.Contains(err.Error(), "strictly less") {
		t.Errorf("error should mention TTL ordering, got: %v", err)
	}
}

func TestValidate_SamePathsRejected(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWT.AccessSecret = "access-secret-key-at-least-32-chars!!"
	cfg.Security.JWT.RefreshSecret = "refresh-secret-key-at-least-32-chars!"
	cfg.Database.Files.Path = cfg.Database.Main.Path

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject identical main and files paths")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
database:
  main:
    path: "/tmp/file-value.db"
` + validSecrets

	t.Setenv("GEB_DATABASE_MAIN_PATH", "/tmp/env-value.db")
	t.Setenv("GEB_API_PORT", "7070")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Main.Path != "/tmp/env-value.db" {
		t.Errorf("Database.Main.Path = %q, want env override", cfg.Database.Main.Path)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("API.Port = %d, want env override 7070", cfg.API.Port)
	}
}

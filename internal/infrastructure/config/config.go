package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for geb-core.
// All configuration is loaded from YAML and can be overridden by environment
// variables. The struct is built once in main and injected into each
// component constructor — there is no package-level instance.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServiceConfig contains service identity settings.
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// DatabaseConfig contains settings for both SQLite databases.
// The metadata store (users, track metadata, audit) and the file store
// (track payloads) are deliberately separate databases.
type DatabaseConfig struct {
	Main  StoreConfig `yaml:"main"`
	Files StoreConfig `yaml:"files"`
}

// StoreConfig contains settings for a single SQLite database.
type StoreConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT      JWTConfig      `yaml:"jwt"`
	Password PasswordConfig `yaml:"password"`
}

// JWTConfig contains JWT token settings. Access and refresh tokens are
// signed with distinct secrets so one can never be presented where the
// other is expected. TTLs are in minutes.
type JWTConfig struct {
	AccessSecret    string `yaml:"access_secret"`
	RefreshSecret   string `yaml:"refresh_secret"`
	AccessTokenTTL  int    `yaml:"access_token_ttl"`
	RefreshTokenTTL int    `yaml:"refresh_token_ttl"`
}

// PasswordConfig contains password hashing settings.
type PasswordConfig struct {
	// BcryptCost is the bcrypt work factor (4-31). Higher is slower.
	BcryptCost int `yaml:"bcrypt_cost"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GEB_SECTION_KEY
// For example: GEB_DATABASE_MAIN_PATH, GEB_API_PORT
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultBcryptCost is the bcrypt work factor used when the config omits one.
const defaultBcryptCost = 12

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "geb-core",
		},
		Database: DatabaseConfig{
			Main: StoreConfig{
				Path:        "./data/geb.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
			Files: StoreConfig{
				Path:        "./data/geb-files.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL:  15,
				RefreshTokenTTL: 1440,
			},
			Password: PasswordConfig{
				BcryptCost: defaultBcryptCost,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GEB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GEB_DATABASE_MAIN_PATH"); v != "" {
		cfg.Database.Main.Path = v
	}
	if v := os.Getenv("GEB_DATABASE_FILES_PATH"); v != "" {
		cfg.Database.Files.Path = v
	}

	// API
	if v := os.Getenv("GEB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GEB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Security - signing secrets (IMPORTANT: always override in production)
	if v := os.Getenv("GEB_JWT_ACCESS_SECRET"); v != "" {
		cfg.Security.JWT.AccessSecret = v
	}
	if v := os.Getenv("GEB_JWT_REFRESH_SECRET"); v != "" {
		cfg.Security.JWT.RefreshSecret = v
	}

	// Logging
	if v := os.Getenv("GEB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validation constants.
const (
	// minSecretLength is the minimum accepted signing secret length.
	minSecretLength = 32

	// maxPort is the highest valid TCP port.
	maxPort = 65535

	// Bcrypt cost bounds accepted by x/crypto/bcrypt.
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Validate checks the configuration for invalid or missing values.
// It reports every problem found, not just the first.
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of field checks
	var errs []string

	// Database paths
	if c.Database.Main.Path == "" {
		errs = append(errs, "database.main.path is required")
	}
	if c.Database.Files.Path == "" {
		errs = append(errs, "database.files.path is required")
	}
	if c.Database.Main.Path != "" && c.Database.Main.Path == c.Database.Files.Path {
		errs = append(errs, "database.main.path and database.files.path must differ")
	}

	// API
	if c.API.Port <= 0 || c.API.Port > maxPort {
		errs = append(errs, fmt.Sprintf("api.port must be 1-%d, got %d", maxPort, c.API.Port))
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	// Signing secrets are REQUIRED and must be distinct. A shared secret
	// would make a refresh token verify where an access token is expected.
	jwtCfg := c.Security.JWT
	switch {
	case jwtCfg.AccessSecret == "":
		errs = append(errs, "security.jwt.access_secret is required (set GEB_JWT_ACCESS_SECRET)")
	case len(jwtCfg.AccessSecret) < minSecretLength:
		errs = append(errs, fmt.Sprintf("security.jwt.access_secret must be at least %d characters", minSecretLength))
	}
	switch {
	case jwtCfg.RefreshSecret == "":
		errs = append(errs, "security.jwt.refresh_secret is required (set GEB_JWT_REFRESH_SECRET)")
	case len(jwtCfg.RefreshSecret) < minSecretLength:
		errs = append(errs, fmt.Sprintf("security.jwt.refresh_secret must be at least %d characters", minSecretLength))
	}
	if jwtCfg.AccessSecret != "" && jwtCfg.AccessSecret == jwtCfg.RefreshSecret {
		errs = append(errs, "security.jwt.access_secret and refresh_secret must differ")
	}

	// Access tokens must expire before the refresh token that renews them.
	if jwtCfg.AccessTokenTTL <= 0 {
		errs = append(errs, "security.jwt.access_token_ttl must be positive")
	}
	if jwtCfg.RefreshTokenTTL <= 0 {
		errs = append(errs, "security.jwt.refresh_token_ttl must be positive")
	}
	if jwtCfg.AccessTokenTTL > 0 && jwtCfg.RefreshTokenTTL > 0 && jwtCfg.AccessTokenTTL >= jwtCfg.RefreshTokenTTL {
		errs = append(errs, "security.jwt.access_token_ttl must be strictly less than refresh_token_ttl")
	}

	if cost := c.Security.Password.BcryptCost; cost < minBcryptCost || cost > maxBcryptCost {
		errs = append(errs, fmt.Sprintf("security.password.bcrypt_cost must be %d-%d, got %d", minBcryptCost, maxBcryptCost, cost))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

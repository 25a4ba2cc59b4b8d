// Package common provides shared utilities for the export service
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the export service
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	CMS         CMSConfig       `toml:"cms"`
	Export      ExportConfig    `toml:"export"`
	Templates   TemplatesConfig `toml:"templates"`
	History     HistoryConfig   `toml:"history"`
	Auth        AuthConfig      `toml:"auth"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// CMSConfig holds the complaint-management API client configuration.
type CMSConfig struct {
	BaseURL      string `toml:"base_url"`
	ServiceToken string `toml:"service_token"` // bearer token for server-to-server calls
	RateLimit    int    `toml:"rate_limit"`    // requests per second
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the fetch timeout ceiling
func (c *CMSConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ExportConfig holds export policy. The staleness threshold and retention
// window are tunables, not invariants — defaults match the reference UI.
type ExportConfig struct {
	AppName  string `toml:"app_name"`
	LogoURL  string `toml:"logo_url"`
	IDPrefix string `toml:"id_prefix"`

	AllowedRoles      []string `toml:"allowed_roles"`       // roles permitted to export
	MaxRecordsAdmin   int      `toml:"max_records_admin"`   // fetch ceiling for ADMINISTRATOR
	MaxRecordsOfficer int      `toml:"max_records_officer"` // fetch ceiling for WARD_OFFICER
	PDFRecordCap      int      `toml:"pdf_record_cap"`      // hard cap on PDF table rows
	SLATargetHours    int      `toml:"sla_target_hours"`

	StuckThreshold     string `toml:"stuck_threshold"`     // non-terminal states older than this are abandoned
	CompletedRetention string `toml:"completed_retention"` // terminal states kept this long for polling
	SweepInterval      string `toml:"sweep_interval"`
}

// GetStuckThreshold parses the stuck-export threshold
func (c *ExportConfig) GetStuckThreshold() time.Duration {
	d, err := time.ParseDuration(c.StuckThreshold)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// GetCompletedRetention parses the terminal-state retention window
func (c *ExportConfig) GetCompletedRetention() time.Duration {
	d, err := time.ParseDuration(c.CompletedRetention)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetSweepInterval parses the recovery sweep interval
func (c *ExportConfig) GetSweepInterval() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// MaxRecordsForRole returns the fetch ceiling for a role
func (c *ExportConfig) MaxRecordsForRole(role string) int {
	if strings.EqualFold(role, "ADMINISTRATOR") {
		return c.MaxRecordsAdmin
	}
	return c.MaxRecordsOfficer
}

// TemplatesConfig holds template resource locations
type TemplatesConfig struct {
	Dir     string `toml:"dir"`      // filesystem directory for template files
	BaseURL string `toml:"base_url"` // optional HTTP base for remote templates
}

// HistoryConfig holds the export audit store configuration
type HistoryConfig struct {
	Path      string `toml:"path"`
	Retention string `toml:"retention"`
}

// GetRetention parses the audit record retention window
func (c *HistoryConfig) GetRetention() time.Duration {
	d, err := time.ParseDuration(c.Retention)
	if err != nil {
		return 90 * 24 * time.Hour
	}
	return d
}

// AuthConfig holds JWT verification configuration
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8085,
		},
		CMS: CMSConfig{
			BaseURL:   "http://localhost:4005",
			RateLimit: 10,
			Timeout:   "30s",
		},
		Export: ExportConfig{
			AppName:            "Smart CMS",
			IDPrefix:           "KSC",
			AllowedRoles:       []string{"ADMINISTRATOR", "WARD_OFFICER"},
			MaxRecordsAdmin:    10000,
			MaxRecordsOfficer:  5000,
			PDFRecordCap:       50,
			SLATargetHours:     72,
			StuckThreshold:     "5m",
			CompletedRetention: "30s",
			SweepInterval:      "30s",
		},
		Templates: TemplatesConfig{
			Dir: "templates",
		},
		History: HistoryConfig{
			Path:      "data/history",
			Retention: "2160h", // 90 days
		},
		Auth: AuthConfig{
			JWTSecret: "dev-jwt-secret-change-in-production",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EXPORTD_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("EXPORTD_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("EXPORTD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("EXPORTD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if url := os.Getenv("EXPORTD_CMS_BASE_URL"); url != "" {
		config.CMS.BaseURL = url
	}

	if token := os.Getenv("EXPORTD_CMS_SERVICE_TOKEN"); token != "" {
		config.CMS.ServiceToken = token
	}

	if path := os.Getenv("EXPORTD_HISTORY_PATH"); path != "" {
		config.History.Path = path
	}

	if dir := os.Getenv("EXPORTD_TEMPLATES_DIR"); dir != "" {
		config.Templates.Dir = dir
	}

	if v := os.Getenv("EXPORTD_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// RoleAllowed reports whether a role is on the export allow-list.
// Comparison is case-insensitive.
func (c *ExportConfig) RoleAllowed(role string) bool {
	for _, r := range c.AllowedRoles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

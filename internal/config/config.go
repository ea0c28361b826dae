// Package config provides YAML-based configuration with environment overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the Extraction Service upload URL.
const DefaultEndpoint = "http://127.0.0.1:8000/api/extract"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Sessions   SessionConfig    `yaml:"sessions"`
	Download   DownloadConfig   `yaml:"download"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                 int    `yaml:"port"`
	BindAddress          string `yaml:"bindAddress"`
	EnableCORS           bool   `yaml:"enableCors"`
	AllowOrigins         string `yaml:"allowOrigins"`
	ReadTimeout          int    `yaml:"readTimeoutSeconds"`
	WriteTimeout         int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout          int    `yaml:"idleTimeoutSeconds"`
	BodyLimit            string `yaml:"bodyLimit"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
}

// ExtractionConfig points at the Extraction Service
type ExtractionConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// SessionConfig controls how long idle panels are kept
type SessionConfig struct {
	TimeoutMinutes         int `yaml:"timeoutMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// DownloadConfig is where the CLI saves extracted.json
type DownloadConfig struct {
	Directory string `yaml:"directory"`
}

// LogConfig selects the slog level and handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                 8090,
			BindAddress:          "127.0.0.1",
			EnableCORS:           true,
			AllowOrigins:         "http://localhost:3000,http://127.0.0.1:3000",
			ReadTimeout:          30,
			WriteTimeout:         0,
			IdleTimeout:          120,
			BodyLimit:            "100M",
			EnableRequestLogging: true,
		},
		Extraction: ExtractionConfig{
			Endpoint: DefaultEndpoint,
		},
		Sessions: SessionConfig{
			TimeoutMinutes:         30,
			CleanupIntervalMinutes: 5,
		},
		Download: DownloadConfig{
			Directory: ".",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is
// created with the defaults. A .env.local next to the file or in the
// working directory is loaded before environment overrides are applied.
func LoadConfig(configPath string) (*AppConfig, error) {
	loadEnvFile(filepath.Dir(configPath))

	config := DefaultConfig()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// FromEnvironment returns the defaults with .env.local and environment
// overrides applied. Used by tools that run without a config file.
func FromEnvironment() (*AppConfig, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	loadEnvFile(wd)

	config := DefaultConfig()
	config.applyEnvironmentOverrides()
	config.resolvePaths(wd)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Smart File Extractor configuration\n# This file is auto-generated on first run\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail at startup
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Extraction.Endpoint == "" {
		return fmt.Errorf("extraction.endpoint is required")
	}
	if c.Sessions.TimeoutMinutes <= 0 || c.Sessions.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("sessions.timeoutMinutes and sessions.cleanupIntervalMinutes must be positive")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}

func loadEnvFile(configDir string) {
	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load(filepath.Join(configDir, ".env.local"))
	_ = godotenv.Load(".env.local")
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		c.Server.BindAddress = addr
	}
	if endpoint := os.Getenv("EXTRACT_ENDPOINT"); endpoint != "" {
		c.Extraction.Endpoint = endpoint
	}
	if dir := os.Getenv("DOWNLOAD_DIR"); dir != "" {
		c.Download.Directory = dir
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Download.Directory) {
		c.Download.Directory = filepath.Join(configDir, c.Download.Directory)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetAllowOrigins splits the comma separated CORS origins
func (c *AppConfig) GetAllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// NewLogger builds the slog logger described by the log section.
func (c *AppConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

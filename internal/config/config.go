// Package config provides configuration loading and structs for the ocrdown server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables holding secrets. Secrets are never read from the YAML file.
const (
	EnvAPIKey        = "MISTRAL_API_KEY"
	EnvSessionSecret = "OCRDOWN_SESSION_SECRET"
)

// ErrMissingAPIKey is returned by Validate when no OCR API key is configured.
var ErrMissingAPIKey = errors.New(EnvAPIKey + " environment variable not set")

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	OCR     OCRConfig     `yaml:"ocr"`
	Storage StorageConfig `yaml:"storage"`
	Upload  UploadConfig  `yaml:"upload"`
	Inbox   InboxConfig   `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	// SessionSecret signs session cookies. Only set from the environment.
	SessionSecret string `yaml:"-"`
}

// MaxUploadBytes returns the upload size limit in bytes.
func (s *ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) * 1024 * 1024
}

// OCRConfig holds settings for the remote OCR service.
type OCRConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	// SignedURLExpiry is sent unchanged as the expiry of the signed document URL.
	SignedURLExpiry int `yaml:"signed_url_expiry"`
	// APIKey is only set from the environment.
	APIKey string `yaml:"-"`
}

// StorageConfig selects and configures the result store.
type StorageConfig struct {
	Backend      string      `yaml:"backend"`
	MaxEntries   int         `yaml:"max_entries"`
	DatabasePath string      `yaml:"database_path"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// UploadConfig lists accepted file extensions (without the leading dot).
type UploadConfig struct {
	ImageExtensions    []string `yaml:"image_extensions"`
	DocumentExtensions []string `yaml:"document_extensions"`
}

// AllExtensions returns image then document extensions.
func (u *UploadConfig) AllExtensions() []string {
	out := make([]string, 0, len(u.ImageExtensions)+len(u.DocumentExtensions))
	out = append(out, u.ImageExtensions...)
	return append(out, u.DocumentExtensions...)
}

// InboxConfig holds settings for the directory watcher used by "ocrdown watch".
type InboxConfig struct {
	Directories []string `yaml:"directories"`
	OutputDir   string   `yaml:"output_dir"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to false when unset.
func (i *InboxConfig) RecursiveOrDefault() bool {
	if i.Recursive != nil {
		return *i.Recursive
	}
	return false
}

// Load reads and parses the config file at path, expands paths, applies
// defaults and reads secrets from the environment.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Inbox.OutputDir = expandPath(cfg.Inbox.OutputDir, configDir)
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a configuration built only from defaults and the environment.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	ApplyEnv(cfg)
	return cfg
}

// ApplyEnv copies secrets from the environment into cfg.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.OCR.APIKey = v
	}
	if v := os.Getenv(EnvSessionSecret); v != "" {
		cfg.Server.SessionSecret = v
	}
}

// Validate checks settings that must be present before starting.
func (c *Config) Validate() error {
	if c.OCR.APIKey == "" {
		return ErrMissingAPIKey
	}
	if len(c.Upload.AllExtensions()) == 0 {
		return fmt.Errorf("no upload extensions configured")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

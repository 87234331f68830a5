// Package config loads server configuration from an optional YAML file,
// a .env file, and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// DataDir holds the database, retained uploads, and embedding
	// sidecars. Subdirectories are derived, not configured.
	DataDir string `yaml:"data_dir"`

	// ModelsDir is where ONNX models live. Empty disables the onnx
	// adapters even in CGO builds.
	ModelsDir string `yaml:"models_dir"`

	// Engine selects the capability adapters: "auto" prefers onnx when
	// models are present, "dsp" forces the pure-Go adapters.
	Engine string `yaml:"engine"`

	DefaultFormat     string `yaml:"default_format"`
	DefaultSampleRate int    `yaml:"default_sample_rate"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`

	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig controls the JWT session boundary.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8090,
		DataDir:           "data",
		Engine:            "auto",
		DefaultFormat:     "wav",
		DefaultSampleRate: 22050,
		MaxUploadBytes:    100 << 20, // 100MB, matches the upload boundary contract
		Auth: AuthConfig{
			Enabled:    false,
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
	}
}

// Load builds the configuration. path may name a YAML file; "" skips it.
// A .env file in the working directory is honored before environment
// variables are read.
func Load(path string) (Config, error) {
	godotenv.Load()

	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config file: %w", err)
		}
	}

	c.applyEnv()

	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	envString(&c.Host, "VOX_HOST")
	envInt(&c.Port, "VOX_PORT")
	envString(&c.DataDir, "VOX_DATA_DIR")
	envString(&c.ModelsDir, "VOX_MODELS_DIR")
	envString(&c.Engine, "VOX_ENGINE")
	envString(&c.DefaultFormat, "VOX_DEFAULT_FORMAT")
	envInt(&c.DefaultSampleRate, "VOX_DEFAULT_SAMPLE_RATE")
	envInt64(&c.MaxUploadBytes, "VOX_MAX_UPLOAD_BYTES")
	envBool(&c.Auth.Enabled, "VOX_AUTH_ENABLED")
	envString(&c.Auth.Secret, "VOX_AUTH_SECRET")
	envDuration(&c.Auth.AccessTTL, "VOX_AUTH_ACCESS_TTL")
	envDuration(&c.Auth.RefreshTTL, "VOX_AUTH_REFRESH_TTL")
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Engine {
	case "auto", "dsp", "onnx":
	default:
		return fmt.Errorf("invalid engine %q (want auto, dsp, or onnx)", c.Engine)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth enabled but VOX_AUTH_SECRET is empty")
	}
	return nil
}

// DatabasePath returns the SQLite file location.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "vox.db")
}

// UploadsDir returns where enrolled source audio is retained.
func (c Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// EmbeddingsDir returns where embedding sidecars are written.
func (c Config) EmbeddingsDir() string {
	return filepath.Join(c.DataDir, "embeddings")
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1" || v == "yes"
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

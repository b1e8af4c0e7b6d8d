// Package config loads dashboard settings.
//
// Sources, lowest precedence first: built-in defaults,
// ~/.callwave/config.yaml, a .env file, then CALLWAVE_* environment
// variables. The .env file only fills variables the environment leaves unset.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/callwave/callwave/internal/validate"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds every tunable the dashboard reads at startup.
type Config struct {
	APIURL    string `yaml:"api_url" env:"CALLWAVE_API_URL" json:"api_url" validate:"required,url"`
	SocketURL string `yaml:"socket_url" env:"CALLWAVE_SOCKET_URL" json:"socket_url" validate:"omitempty,url"`

	SessionBackend string `yaml:"session_backend" env:"CALLWAVE_SESSION_BACKEND" json:"session_backend" validate:"oneof=file memory redis"`
	SessionFile    string `yaml:"session_file" env:"CALLWAVE_SESSION_FILE" json:"session_file"`
	RedisURL       string `yaml:"redis_url" env:"CALLWAVE_REDIS_URL" json:"redis_url" validate:"required_if=SessionBackend redis"`
	Profile        string `yaml:"profile" env:"CALLWAVE_PROFILE" json:"profile"`

	Env      string `yaml:"env" env:"CALLWAVE_ENV" json:"env" validate:"oneof=development production"`
	LogLevel string `yaml:"log_level" env:"CALLWAVE_LOG_LEVEL" json:"log_level"`
	LogFile  string `yaml:"log_file" env:"CALLWAVE_LOG_FILE" json:"log_file"`

	RequestTimeout   time.Duration `yaml:"request_timeout" env:"CALLWAVE_REQUEST_TIMEOUT" json:"request_timeout" validate:"gt=0"`
	TokenTTL         time.Duration `yaml:"token_ttl" env:"CALLWAVE_TOKEN_TTL" json:"token_ttl" validate:"gte=0"`
	TokenLeeway      time.Duration `yaml:"token_leeway" env:"CALLWAVE_TOKEN_LEEWAY" json:"token_leeway" validate:"gte=0"`
	SocketRetries    int           `yaml:"socket_retries" env:"CALLWAVE_SOCKET_RETRIES" json:"socket_retries" validate:"gte=0"`
	SocketRetryDelay time.Duration `yaml:"socket_retry_delay" env:"CALLWAVE_SOCKET_RETRY_DELAY" json:"socket_retry_delay" validate:"gte=0"`
}

// Dir returns the settings directory, $CALLWAVE_HOME or ~/.callwave.
func Dir() (string, error) {
	if d := os.Getenv("CALLWAVE_HOME"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".callwave"), nil
}

// Default returns the built-in settings rooted at dir.
func Default(dir string) *Config {
	return &Config{
		APIURL:           "http://localhost:8080",
		SessionBackend:   BackendFile,
		SessionFile:      filepath.Join(dir, "session.json"),
		Env:              "production",
		LogLevel:         "info",
		LogFile:          filepath.Join(dir, "callwave.log"),
		RequestTimeout:   30 * time.Second,
		TokenTTL:         15 * time.Minute,
		TokenLeeway:      10 * time.Second,
		SocketRetries:    5,
		SocketRetryDelay: 2 * time.Second,
	}
}

// Load reads settings from every source. envFile may be empty or missing.
func Load(dir, envFile string) (*Config, error) {
	cfg := Default(dir)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.loadYAML(filepath.Join(dir, "config.yaml")); err != nil {
		return nil, err
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.SocketURL == "" {
		s, err := SocketURLFor(cfg.APIURL)
		if err != nil {
			return nil, err
		}
		cfg.SocketURL = s
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ParseEnv overlays environment variables onto target. Unset variables keep
// the values already in target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// SocketURLFor derives the websocket endpoint from the API root.
func SocketURLFor(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("api url %q: unsupported scheme %q", apiURL, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

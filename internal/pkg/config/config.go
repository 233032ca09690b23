// Package config loads the process configuration once at startup.
//
// Sources, lowest precedence first: compiled-in defaults, an optional YAML
// file, then environment variables. The resulting *Config is immutable and
// handed by pointer to every component that needs it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvDevelopment is the NODE_ENV value that enables verbose logging and the
// documentation endpoints. Any other value is treated as production.
const EnvDevelopment = "development"

// DefaultPath is the YAML file read when CONFIG_FILE is not set.
const DefaultPath = "config.yaml"

type Config struct {
	Env       string          `koanf:"env"`
	Server    ServerConfig    `koanf:"server"`
	CORS      CORSConfig      `koanf:"cors"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// BodyLimit caps request bodies in bytes.
	BodyLimit int64 `koanf:"body_limit"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	ExposedHeaders   []string `koanf:"exposed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"` // seconds
}

type StorageConfig struct {
	// EventsPath is the SQLite lifecycle-event database; empty disables it.
	EventsPath string `koanf:"events_path"`
}

type TelemetryConfig struct {
	Tracing bool `koanf:"tracing"`
	Metrics bool `koanf:"metrics"`
}

// DefaultAllowedOrigins is the compiled-in CORS allow-list: the admin console
// and the QA practice site in local development.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
}

var defaults = map[string]any{
	"env":                    "production",
	"server.host":            "0.0.0.0",
	"server.port":            3000,
	"server.body_limit":      1 << 20,
	"cors.allowed_origins":   DefaultAllowedOrigins,
	"cors.allowed_methods":   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"cors.allowed_headers":   []string{"Content-Type", "Authorization", "X-Request-ID"},
	"cors.exposed_headers":   []string{"X-Request-ID"},
	"cors.allow_credentials": true,
	"cors.max_age":           86400,
	"telemetry.tracing":      false,
	"telemetry.metrics":      true,
}

// envKeys maps the environment surface onto config keys.
var envKeys = map[string]string{
	"HOST":            "server.host",
	"PORT":            "server.port",
	"NODE_ENV":        "env",
	"ALLOWED_ORIGINS": "cors.allowed_origins",
	"EVENTS_DB_PATH":  "storage.events_path",
	"TRACING_ENABLED": "telemetry.tracing",
	"METRICS_ENABLED": "telemetry.metrics",
	"BODY_LIMIT":      "server.body_limit",
}

// Load reads the optional YAML file at path (a missing file is fine), applies
// environment overrides and fills the remaining keys from defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	// Environment variables override file config. ALLOWED_ORIGINS replaces
	// the allow-list wholesale; it is never merged with defaults.
	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func envValue(key, value string) (string, any) {
	target, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if target == "cors.allowed_origins" {
		origins := splitList(value)
		if len(origins) == 0 {
			return "", nil
		}
		return target, origins
	}
	return target, value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.CORS.MaxAge < 0 {
		return fmt.Errorf("invalid cors max_age %d", c.CORS.MaxAge)
	}
	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("invalid body_limit %d", c.Server.BodyLimit)
	}
	return nil
}

// IsDevelopment reports whether NODE_ENV selected development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

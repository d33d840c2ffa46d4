// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides daemon configuration: YAML file, environment
// overrides and defaults, plus runtime reload of the dynamic subset.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/logprobe/pkg/errors"
)

// Config holds the full daemon configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	Liveness  LivenessConfig  `yaml:"liveness"`
	Limits    LimitsConfig    `yaml:"limits"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ListenConfig configures how the daemon listens for connections.
type ListenConfig struct {
	// TCPAddr is the TCP address to listen on (e.g., "127.0.0.1:7762").
	TCPAddr string `yaml:"tcp_addr,omitempty"`

	// SocketPath is the Unix socket path. Takes precedence over TCPAddr
	// when both are set.
	SocketPath string `yaml:"socket_path,omitempty"`
}

// StoreConfig configures the SQLite record store.
type StoreConfig struct {
	// Path is the filesystem path to the SQLite database file.
	// Special value ":memory:" creates an in-memory database.
	Path string `yaml:"path"`

	// MaxOpenConns sets the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns,omitempty"`
}

// AuthConfig configures operator authentication.
type AuthConfig struct {
	// OperatorSecret is the shared secret used both as a static bearer
	// key and to sign operator JWTs.
	// Environment: LOGPROBE_OPERATOR_SECRET
	OperatorSecret string `yaml:"operator_secret,omitempty"`

	// TokenTTL is the lifetime of minted operator tokens.
	// Default: 24h
	TokenTTL time.Duration `yaml:"token_ttl,omitempty"`
}

// LivenessConfig holds the two probe liveness windows. They are
// deliberately separate: a probe may self-report as stale while still
// being eligible for change fan-out.
type LivenessConfig struct {
	// SelfReport is the window used when reporting a probe's own
	// liveness in API responses. Default: 2m
	SelfReport time.Duration `yaml:"self_report,omitempty"`

	// Fanout is the window used to select which probes receive a
	// desired-state change. Default: 5m
	Fanout time.Duration `yaml:"fanout,omitempty"`
}

// LimitsConfig configures per-probe rate limiting.
type LimitsConfig struct {
	// Enabled controls whether rate limiting is active. Default: true
	Enabled bool `yaml:"enabled"`

	// ProbeRequestsPerSecond limits heartbeat and failure-report calls
	// per probe. Default: 10
	ProbeRequestsPerSecond float64 `yaml:"probe_requests_per_second,omitempty"`

	// ProbeBurst is the token bucket capacity per probe. Default: 20
	ProbeBurst int `yaml:"probe_burst,omitempty"`
}

// LogConfig configures daemon logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// TelemetryConfig configures tracing and metrics export.
type TelemetryConfig struct {
	// Enabled controls whether spans are recorded. Metrics are always
	// served on /metrics.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this daemon in exported traces.
	// Default: logprobed
	ServiceName string `yaml:"service_name,omitempty"`

	// Exporter selects the span exporter: "stdout", "otlp-grpc",
	// "otlp-http" or "none".
	Exporter string `yaml:"exporter,omitempty"`

	// Endpoint is the OTLP collector endpoint for the otlp exporters.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS for the otlp-grpc exporter.
	Insecure bool `yaml:"insecure,omitempty"`

	// SampleRate is the trace sampling ratio in [0, 1]. Default: 1.0
	SampleRate float64 `yaml:"sample_rate,omitempty"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			TCPAddr: "127.0.0.1:7762",
		},
		Store: StoreConfig{
			Path: "logprobe.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Liveness: LivenessConfig{
			SelfReport: 2 * time.Minute,
			Fanout:     5 * time.Minute,
		},
		Limits: LimitsConfig{
			Enabled:                true,
			ProbeRequestsPerSecond: 10,
			ProbeBurst:             20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "logprobed",
			Exporter:    "none",
			SampleRate:  1.0,
		},
	}
}

// Load reads configuration from the given YAML file (if path is
// non-empty), layered over defaults, then applies environment
// overrides. A missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &errors.ConfigError{Reason: "reading config file", Cause: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &errors.ConfigError{Reason: "parsing config file", Cause: err}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LOGPROBE_LISTEN"); v != "" {
		cfg.Listen.TCPAddr = v
	}
	if v := os.Getenv("LOGPROBE_SOCKET"); v != "" {
		cfg.Listen.SocketPath = v
	}
	if v := os.Getenv("LOGPROBE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("LOGPROBE_OPERATOR_SECRET"); v != "" {
		cfg.Auth.OperatorSecret = v
	}
	if v := os.Getenv("LOGPROBE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Listen.TCPAddr == "" && c.Listen.SocketPath == "" {
		return &errors.ConfigError{Key: "listen", Reason: "either tcp_addr or socket_path must be set"}
	}
	if c.Store.Path == "" {
		return &errors.ConfigError{Key: "store.path", Reason: "must be set"}
	}
	if c.Liveness.SelfReport <= 0 {
		return &errors.ConfigError{Key: "liveness.self_report", Reason: "must be positive"}
	}
	if c.Liveness.Fanout <= 0 {
		return &errors.ConfigError{Key: "liveness.fanout", Reason: "must be positive"}
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return &errors.ConfigError{Key: "telemetry.sample_rate", Reason: "must be in [0, 1]"}
	}
	switch c.Telemetry.Exporter {
	case "", "none", "stdout", "otlp-grpc", "otlp-http":
	default:
		return &errors.ConfigError{Key: "telemetry.exporter", Reason: "must be one of none, stdout, otlp-grpc, otlp-http"}
	}
	return nil
}

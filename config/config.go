// Copyright 2025 Blink Labs Software
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

// Package config loads Livestatus client settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/blinklabs-io/golivestatus/transport"
)

const (
	DefaultPort        = 6557
	DefaultConcurrency = 4
	DefaultEnvPrefix   = "LIVESTATUS_"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// Host and Port locate a TCP Livestatus endpoint
	Host string `toml:"host" mapstructure:"host"`
	Port int    `toml:"port" mapstructure:"port"`
	// Socket is the path of a UNIX socket. It takes precedence over Host and Port
	Socket string `toml:"socket" mapstructure:"socket"`

	MaxRetries     int           `toml:"max_retries" mapstructure:"max_retries"`
	AttemptTimeout time.Duration `toml:"attempt_timeout" mapstructure:"attempt_timeout"`
	RetryDelay     time.Duration `toml:"retry_delay" mapstructure:"retry_delay"`

	// AllowEmptyList treats an empty JSON list as a successful result
	AllowEmptyList bool `toml:"allow_empty_list" mapstructure:"allow_empty_list"`
	// Strict rejects queries with malformed filter/stats entries instead of dropping the entries
	Strict bool `toml:"strict" mapstructure:"strict"`
	// DecodeRetry retries JSON decode failures within the query's attempt budget
	DecodeRetry bool `toml:"decode_retry" mapstructure:"decode_retry"`

	// RateLimit is the maximum number of queries per second. Zero disables rate limiting
	RateLimit   float64 `toml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int     `toml:"rate_burst" mapstructure:"rate_burst"`
	Concurrency int     `toml:"concurrency" mapstructure:"concurrency"`

	LogLevel string `toml:"log_level" mapstructure:"log_level"`
}

// Default returns a Config with the default retry policy and empty lists allowed
func Default() *Config {
	policy := transport.DefaultRetryPolicy()
	return &Config{
		Host:           "localhost",
		Port:           DefaultPort,
		MaxRetries:     policy.MaxRetries,
		AttemptTimeout: policy.AttemptTimeout,
		RetryDelay:     policy.RetryDelay,
		AllowEmptyList: true,
		RateBurst:      1,
		Concurrency:    DefaultConcurrency,
		LogLevel:       "info",
	}
}

// Load returns the default config overlaid with the file at path, if not empty,
// and then with environment variables carrying prefix
func Load(path string, prefix string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(prefix); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the values set in the TOML file at path
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays values from environment variables named prefix + upper-case
// key, for example LIVESTATUS_MAX_RETRIES
func (c *Config) LoadEnv(prefix string) error {
	v := viper.New()
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		propKey := strings.ToLower(strings.TrimPrefix(key, prefixUpper))
		propKey = strings.TrimPrefix(propKey, "_")
		if propKey == "" {
			continue
		}
		v.Set(propKey, value)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config from environment: %w", err)
	}
	return nil
}

// RetryPolicy returns the configured retry policy
func (c *Config) RetryPolicy() transport.RetryPolicy {
	return transport.RetryPolicy{
		MaxRetries:     c.MaxRetries,
		AttemptTimeout: c.AttemptTimeout,
		RetryDelay:     c.RetryDelay,
	}
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) Validate() error {
	if c.Socket == "" {
		if c.Host == "" {
			return fmt.Errorf("%w: one of host or socket is required", ErrInvalidConfig)
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("%w: port out of range: %d", ErrInvalidConfig, c.Port)
		}
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must be non-negative: %v", ErrInvalidConfig, c.RateLimit)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be positive: %d", ErrInvalidConfig, c.Concurrency)
	}
	return nil
}

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

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/golivestatus/config"
	"github.com/blinklabs-io/golivestatus/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
host = "nagios.example.com"
port = 6558
max_retries = 3
attempt_timeout = "10s"
retry_delay = "5s"
allow_empty_list = false
log_level = "debug"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livestatus.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, transport.DefaultRetryPolicy(), cfg.RetryPolicy())
	assert.True(t, cfg.AllowEmptyList)
	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, testConfig), "LIVESTATUS_TEST_FILE_")
	require.NoError(t, err)
	assert.Equal(t, "nagios.example.com", cfg.Host)
	assert.Equal(t, 6558, cfg.Port)
	assert.Equal(t, transport.RetryPolicy{
		MaxRetries:     3,
		AttemptTimeout: 10 * time.Second,
		RetryDelay:     5 * time.Second,
	}, cfg.RetryPolicy())
	assert.False(t, cfg.AllowEmptyList)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	// Unset keys keep their defaults
	assert.Equal(t, config.DefaultConcurrency, cfg.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("LIVESTATUS_TEST_PORT", "7000")
	t.Setenv("LIVESTATUS_TEST_RETRY_DELAY", "250ms")
	t.Setenv("LIVESTATUS_TEST_ALLOW_EMPTY_LIST", "true")
	t.Setenv("LIVESTATUS_TEST_STRICT", "true")
	cfg, err := config.Load(writeConfig(t, testConfig), "LIVESTATUS_TEST_")
	require.NoError(t, err)
	assert.Equal(t, "nagios.example.com", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.AttemptTimeout)
	assert.True(t, cfg.AllowEmptyList)
	assert.True(t, cfg.Strict)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("LIVESTATUS_NOFILE_SOCKET", "/var/run/nagios/live")
	cfg, err := config.Load("", "LIVESTATUS_NOFILE_")
	require.NoError(t, err)
	assert.Equal(t, "/var/run/nagios/live", cfg.Socket)
}

func TestLoadBadFile(t *testing.T) {
	_, err := config.Load(writeConfig(t, "port = [oops"), "LIVESTATUS_BAD_")
	assert.Error(t, err)
	_, err = config.Load(filepath.Join(t.TempDir(), "missing.toml"), "LIVESTATUS_BAD_")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"no host or socket", func(c *config.Config) { c.Host = "" }},
		{"port out of range", func(c *config.Config) { c.Port = 70000 }},
		{"negative retries", func(c *config.Config) { c.MaxRetries = -1 }},
		{"zero attempt timeout", func(c *config.Config) { c.AttemptTimeout = 0 }},
		{"negative rate limit", func(c *config.Config) { c.RateLimit = -1 }},
		{"zero concurrency", func(c *config.Config) { c.Concurrency = 0 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.Default()
			test.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}

	// A socket makes host and port irrelevant
	cfg := config.Default()
	cfg.Host = ""
	cfg.Port = 0
	cfg.Socket = "/tmp/live"
	assert.NoError(t, cfg.Validate())
}

func TestSlogLevelFallback(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	cfg.LogLevel = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

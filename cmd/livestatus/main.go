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

// Command livestatus queries an MK Livestatus server from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	livestatus "github.com/blinklabs-io/golivestatus"
	"github.com/blinklabs-io/golivestatus/config"
)

// Set at build time
var version = "devel"

type globalFlags struct {
	configPath     string
	host           string
	port           int
	socket         string
	output         string
	debug          bool
	maxRetries     int
	attemptTimeout time.Duration
	retryDelay     time.Duration
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "livestatus",
	Short:         "Query an MK Livestatus server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a TOML config file")
	pf.StringVar(&flags.host, "host", "", "Livestatus host")
	pf.IntVar(&flags.port, "port", 0, "Livestatus TCP port")
	pf.StringVar(&flags.socket, "socket", "", "Livestatus UNIX socket path (overrides --host/--port)")
	pf.StringVarP(&flags.output, "output", "o", outputAuto, "output format: auto, json, yaml, table")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.IntVar(&flags.maxRetries, "max-retries", 0, "total number of attempts per query")
	pf.DurationVar(&flags.attemptTimeout, "attempt-timeout", 0, "deadline for each attempt")
	pf.DurationVar(&flags.retryDelay, "retry-delay", 0, "delay between attempts")
	rootCmd.AddCommand(
		newGetCommand(),
		newQueryCommand(),
		newShellCommand(),
		newVersionCommand(),
	)
}

// loadConfig merges the config file, environment and command line flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		if err := cfg.LoadFile(flags.configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(config.DefaultEnvPrefix); err != nil {
		return nil, err
	}
	pf := cmd.Flags()
	if pf.Changed("host") {
		cfg.Host = flags.host
	}
	if pf.Changed("port") {
		cfg.Port = flags.port
	}
	if pf.Changed("socket") {
		cfg.Socket = flags.socket
	}
	if pf.Changed("max-retries") {
		cfg.MaxRetries = flags.maxRetries
	}
	if pf.Changed("attempt-timeout") {
		cfg.AttemptTimeout = flags.attemptTimeout
	}
	if pf.Changed("retry-delay") {
		cfg.RetryDelay = flags.retryDelay
	}
	if flags.debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cmd *cobra.Command, extra ...livestatus.ClientOptionFunc) (*livestatus.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	)
	options := []livestatus.ClientOptionFunc{
		livestatus.WithAddress(cfg.Host, cfg.Port),
		livestatus.WithRetryPolicy(cfg.RetryPolicy()),
		livestatus.WithAllowEmptyList(cfg.AllowEmptyList),
		livestatus.WithStrict(cfg.Strict),
		livestatus.WithDecodeRetry(cfg.DecodeRetry),
		livestatus.WithConcurrency(cfg.Concurrency),
		livestatus.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		livestatus.WithLogger(logger),
	}
	if cfg.Socket != "" {
		options = append(options, livestatus.WithSocket(cfg.Socket))
	}
	options = append(options, extra...)
	return livestatus.NewClient(options...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

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

// Package livestatus implements a client for the MK Livestatus query protocol
// exposed by Nagios-family monitoring daemons.
//
// A query names a table and optionally columns, filters, stats and a row limit.
// The client renders it into the line-oriented wire format, sends it over a fresh
// TCP or UNIX socket connection per attempt, retries timeouts and connection
// errors according to a RetryPolicy and decodes the response.
//
// Query methods never return errors for transport or decoding failures. They
// return a Result whose OK field tells the caller whether data was obtained.
package livestatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/blinklabs-io/golivestatus/metrics"
	"github.com/blinklabs-io/golivestatus/query"
	"github.com/blinklabs-io/golivestatus/response"
	"github.com/blinklabs-io/golivestatus/transport"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"golang.org/x/time/rate"
)

const DefaultConcurrency = 4

var ErrNoAddress = errors.New("no livestatus address or socket specified")

// Result is the outcome of a query
type Result = response.Result

// Client sends queries to a single Livestatus server. It keeps no per-query state
// and is safe for concurrent use
type Client struct {
	network        string
	address        string
	policy         transport.RetryPolicy
	allowEmptyList bool
	strict         bool
	decodeRetry    bool
	concurrency    int
	logger         *slog.Logger
	metrics        *metrics.Metrics
	limiter        *rate.Limiter
	dialer         *net.Dialer
}

// RetryOverrides replaces fields of the client's retry policy for a single query. Nil fields keep the client value
type RetryOverrides struct {
	MaxRetries     *int
	AttemptTimeout *time.Duration
	RetryDelay     *time.Duration
}

// GetRequest describes a GET query
type GetRequest struct {
	Table   string
	Columns []string
	// Filters and Stats entries are conditions such as "state = 0", or "&N", "|N"
	// and "!" to combine preceding entries
	Filters []string
	Stats   []string
	Limit   *int
	// OutputFormat is "json" (the default when empty) or "text"
	OutputFormat   string
	Retry          *RetryOverrides
	AllowEmptyList *bool
}

// NewClient returns a new Client with the specified options. An address or socket must be provided
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{
		policy:         transport.DefaultRetryPolicy(),
		allowEmptyList: true,
		concurrency:    DefaultConcurrency,
		logger:         slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	if c.address == "" {
		return nil, ErrNoAddress
	}
	if err := c.policy.Validate(); err != nil {
		return nil, err
	}
	if c.concurrency < 1 {
		return nil, fmt.Errorf("invalid concurrency: %d", c.concurrency)
	}
	return c, nil
}

// New is an alias to NewClient
func New(options ...ClientOptionFunc) (*Client, error) {
	return NewClient(options...)
}

func (c *Client) Network() string {
	return c.network
}

func (c *Client) Address() string {
	return c.address
}

// RetryPolicy returns the default retry policy for queries
func (c *Client) RetryPolicy() transport.RetryPolicy {
	return c.policy
}

// Get builds and runs a GET query
func (c *Client) Get(ctx context.Context, req GetRequest) Result {
	start := time.Now()
	logger := c.queryLogger().With("table", req.Table)
	format := query.OutputFormatJSON
	if req.OutputFormat != "" {
		var err error
		if format, err = query.ParseOutputFormat(req.OutputFormat); err != nil {
			return c.finish(logger, req.Table, start, response.Failure(err))
		}
	}
	builder := query.NewBuilder(
		query.WithStrict(c.strict),
		query.WithLogger(logger),
		query.WithMetrics(c.metrics),
	)
	built, err := builder.Build(
		query.Query{
			Table:        req.Table,
			Columns:      req.Columns,
			Filters:      req.Filters,
			Stats:        req.Stats,
			Limit:        req.Limit,
			OutputFormat: format,
		},
	)
	if err != nil {
		logger.Error("incorrectly formatted logic operator in query", "error", err)
		return c.finish(logger, req.Table, start, response.Failure(err))
	}
	res := c.execute(ctx, logger, built.Text, format, req.Retry, req.AllowEmptyList)
	res.Warnings = built.Warnings
	return c.finish(logger, req.Table, start, res)
}

// Execute runs a pre-rendered query. format must match any OutputFormat line in rawQuery
func (c *Client) Execute(ctx context.Context, rawQuery string, format query.OutputFormat, overrides *RetryOverrides) Result {
	start := time.Now()
	logger := c.queryLogger()
	res := c.execute(ctx, logger, rawQuery, format, overrides, nil)
	return c.finish(logger, "", start, res)
}

func (c *Client) queryLogger() *slog.Logger {
	return c.logger.With(
		"component", "livestatus",
		"query_id", uuid.NewString(),
	)
}

func (c *Client) execute(
	ctx context.Context,
	logger *slog.Logger,
	text string,
	format query.OutputFormat,
	overrides *RetryOverrides,
	allowEmptyOverride *bool,
) Result {
	policy, err := c.retryPolicy(overrides)
	if err != nil {
		return response.Failure(err)
	}
	allowEmpty := c.allowEmptyList
	if allowEmptyOverride != nil {
		allowEmpty = *allowEmptyOverride
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response.Failure(fmt.Errorf("rate limit: %w", err))
		}
	}
	tr := transport.New(
		c.network,
		c.address,
		transport.WithLogger(logger),
		transport.WithMetrics(c.metrics),
		transport.WithDialer(c.dialer),
	)
	// A fresh budget per call, shared by transport and decode retries
	budget := transport.NewBudget(policy)
	for {
		raw, err := tr.ExecuteBudget(ctx, text, budget)
		res := response.Decode(raw, err, format, allowEmpty)
		if res.OK || !c.decodeRetry || !response.IsDecodeFailure(res.Err) || budget.Exhausted() {
			return res
		}
		logger.Error(
			"invalid response from livestatus, retrying",
			"attempt", budget.Attempts(),
			"max_retries", policy.MaxRetries,
			"error", res.Err,
		)
		c.metrics.ObserveRetry()
		if err := budget.Wait(ctx); err != nil {
			return response.Failure(err)
		}
	}
}

// retryPolicy merges overrides onto the client's policy
func (c *Client) retryPolicy(overrides *RetryOverrides) (transport.RetryPolicy, error) {
	policy := c.policy
	if overrides == nil {
		return policy, nil
	}
	if err := copier.CopyWithOption(&policy, overrides, copier.Option{IgnoreEmpty: true}); err != nil {
		return policy, fmt.Errorf("apply retry overrides: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

func (c *Client) finish(logger *slog.Logger, table string, start time.Time, res Result) Result {
	elapsed := time.Since(start)
	status := metrics.QueryStatusOK
	if !res.OK {
		status = metrics.QueryStatusFailed
		if response.IsDecodeFailure(res.Err) {
			status = metrics.QueryStatusDecodeError
		}
		logger.Warn(
			"livestatus query failed",
			"error", res.Err,
			"elapsed", elapsed,
		)
	} else {
		logger.Debug("livestatus query complete", "elapsed", elapsed)
	}
	c.metrics.ObserveQuery(table, status, elapsed)
	return res
}

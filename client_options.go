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

package livestatus

import (
	"log/slog"
	"net"
	"path/filepath"
	"strconv"

	"github.com/blinklabs-io/golivestatus/metrics"
	"github.com/blinklabs-io/golivestatus/transport"
	"golang.org/x/time/rate"
)

// ClientOptionFunc is a type that represents functions that modify the Client config
type ClientOptionFunc func(*Client)

// WithAddress specifies the TCP host and port of the Livestatus server
func WithAddress(host string, port int) ClientOptionFunc {
	return func(c *Client) {
		c.network = "tcp"
		c.address = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// WithSocket specifies the path of a Livestatus UNIX socket. When combined with WithAddress, the last one applied wins
func WithSocket(path string) ClientOptionFunc {
	return func(c *Client) {
		c.network = "unix"
		c.address = filepath.Clean(path)
	}
}

// WithRetryPolicy specifies the default retry policy for queries
func WithRetryPolicy(policy transport.RetryPolicy) ClientOptionFunc {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithAllowEmptyList specifies whether an empty JSON list counts as a successful result. This is enabled by default
func WithAllowEmptyList(allowEmptyList bool) ClientOptionFunc {
	return func(c *Client) {
		c.allowEmptyList = allowEmptyList
	}
}

// WithStrict specifies whether malformed filter/stats entries fail the query instead of being dropped
func WithStrict(strict bool) ClientOptionFunc {
	return func(c *Client) {
		c.strict = strict
	}
}

// WithDecodeRetry specifies whether a JSON decode failure is retried using the remaining attempts of the call
func WithDecodeRetry(decodeRetry bool) ClientOptionFunc {
	return func(c *Client) {
		c.decodeRetry = decodeRetry
	}
}

// WithLogger specifies the logger. The default is slog.Default()
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics specifies the Prometheus collectors to record query activity in
func WithMetrics(m *metrics.Metrics) ClientOptionFunc {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimit limits how often queries are sent. A zero limit disables rate limiting
func WithRateLimit(limit rate.Limit, burst int) ClientOptionFunc {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithConcurrency specifies how many queries GetMany runs at once
func WithConcurrency(concurrency int) ClientOptionFunc {
	return func(c *Client) {
		c.concurrency = concurrency
	}
}

// WithDialer specifies the dialer used to open connections
func WithDialer(dialer *net.Dialer) ClientOptionFunc {
	return func(c *Client) {
		c.dialer = dialer
	}
}

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

// Package transport executes rendered Livestatus requests over a socket.
//
// Every attempt opens its own connection, writes the request, closes the write
// side of the connection to mark the end of the request and then reads until the
// server closes its side. The protocol has no other framing, so the server closing
// the connection is the only end-of-response marker.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/blinklabs-io/golivestatus/metrics"
)

const DefaultReadBufferSize = 4096

type halfCloser interface {
	CloseWrite() error
}

type errorClass int

const (
	errorClassUnclassified errorClass = iota
	errorClassTimeout
	errorClassConnection
)

// Transport sends requests to a single Livestatus endpoint. It holds no per-call
// state and is safe for concurrent use
type Transport struct {
	network        string
	address        string
	dialer         *net.Dialer
	readBufferSize int
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type TransportOptionFunc func(*Transport)

// New returns a Transport for the specified network ("tcp" or "unix") and address
func New(network string, address string, options ...TransportOptionFunc) *Transport {
	t := &Transport{
		network:        network,
		address:        address,
		dialer:         &net.Dialer{},
		readBufferSize: DefaultReadBufferSize,
		logger:         slog.Default(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

func WithLogger(logger *slog.Logger) TransportOptionFunc {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) TransportOptionFunc {
	return func(t *Transport) {
		t.metrics = m
	}
}

func WithDialer(dialer *net.Dialer) TransportOptionFunc {
	return func(t *Transport) {
		if dialer != nil {
			t.dialer = dialer
		}
	}
}

// WithReadBufferSize sets the size of each read from the connection
func WithReadBufferSize(size int) TransportOptionFunc {
	return func(t *Transport) {
		if size > 0 {
			t.readBufferSize = size
		}
	}
}

func (t *Transport) Network() string {
	return t.network
}

func (t *Transport) Address() string {
	return t.address
}

// Execute sends request with a fresh attempt budget
func (t *Transport) Execute(ctx context.Context, request string, policy RetryPolicy) (string, error) {
	return t.ExecuteBudget(ctx, request, NewBudget(policy))
}

// ExecuteBudget sends request, consuming one attempt from budget per try. Timeouts
// and connection errors are retried after the policy's retry delay until the budget
// is exhausted, which yields ErrRetriesExhausted. Any other error is returned
// immediately as an *UnclassifiedError
func (t *Transport) ExecuteBudget(ctx context.Context, request string, budget *Budget) (string, error) {
	policy := budget.Policy()
	var lastErr error
	for !budget.Exhausted() {
		attempt := budget.consume()
		if err := ctx.Err(); err != nil {
			return "", &UnclassifiedError{Attempt: attempt, Err: err}
		}
		t.logger.Debug(
			"sending livestatus query",
			"component", "livestatus",
			"address", t.address,
			"attempt", attempt,
			"max_retries", policy.MaxRetries,
		)
		resp, err := t.attempt(ctx, request, policy.AttemptTimeout)
		if err == nil {
			t.metrics.ObserveAttempt(metrics.AttemptResultSuccess)
			t.metrics.ObserveResponse(len(resp))
			return resp, nil
		}
		switch classify(ctx, err) {
		case errorClassTimeout:
			t.metrics.ObserveAttempt(metrics.AttemptResultTimeout)
			t.logger.Error(
				"livestatus attempt timed out",
				"component", "livestatus",
				"attempt", attempt,
				"max_retries", policy.MaxRetries,
				"address", t.address,
				"error", err,
			)
			lastErr = &AttemptError{Attempt: attempt, Timeout: true, Err: err}
		case errorClassConnection:
			t.metrics.ObserveAttempt(metrics.AttemptResultError)
			t.logger.Error(
				"livestatus socket error",
				"component", "livestatus",
				"attempt", attempt,
				"max_retries", policy.MaxRetries,
				"address", t.address,
				"error", err,
			)
			lastErr = &AttemptError{Attempt: attempt, Err: err}
		default:
			t.metrics.ObserveAttempt(metrics.AttemptResultUnclassified)
			t.logger.Error(
				"unhandled error occurred",
				"component", "livestatus",
				"address", t.address,
				"attempt", attempt,
				"error", err,
			)
			return "", &UnclassifiedError{Attempt: attempt, Err: err}
		}
		if budget.Exhausted() {
			break
		}
		t.metrics.ObserveRetry()
		if err := budget.Wait(ctx); err != nil {
			return "", &UnclassifiedError{Attempt: attempt, Err: err}
		}
	}
	if lastErr == nil {
		return "", fmt.Errorf("%w: no attempts allowed", ErrRetriesExhausted)
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, budget.Attempts(), lastErr)
}

func (t *Transport) attempt(ctx context.Context, request string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	conn, err := t.dialer.DialContext(dialCtx, t.network, t.address)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	hc, ok := conn.(halfCloser)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrHalfCloseUnsupported, conn)
	}
	payload := strings.TrimRightFunc(request, unicode.IsSpace) + "\n"
	if _, err := io.WriteString(conn, payload); err != nil {
		return "", err
	}
	// Signal the end of the request
	if err := hc.CloseWrite(); err != nil {
		return "", err
	}
	var resp bytes.Buffer
	buf := make([]byte, t.readBufferSize)
	for {
		n, err := conn.Read(buf)
		resp.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		// The socket deadline only trips on a blocked read, so a server that keeps
		// trickling data needs an explicit check
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}
	}
	return resp.String(), nil
}

func classify(ctx context.Context, err error) errorClass {
	// The caller gave up, which is never worth retrying
	if ctx.Err() != nil {
		return errorClassUnclassified
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return errorClassTimeout
	}
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) || errors.Is(err, ErrHalfCloseUnsupported) {
		return errorClassUnclassified
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errorClassTimeout
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return errorClassConnection
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return errorClassConnection
	}
	return errorClassUnclassified
}

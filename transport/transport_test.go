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

package transport_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/golivestatus/internal/test/livestatusmock"
	"github.com/blinklabs-io/golivestatus/metrics"
	"github.com/blinklabs-io/golivestatus/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testPolicy(maxRetries int) transport.RetryPolicy {
	return transport.RetryPolicy{
		MaxRetries:     maxRetries,
		AttemptTimeout: 200 * time.Millisecond,
		RetryDelay:     10 * time.Millisecond,
	}
}

func newTestTransport(srv *livestatusmock.Server) (*transport.Transport, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return transport.New(srv.Network(), srv.Addr(), transport.WithMetrics(m)), m
}

func TestExecuteSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(livestatusmock.Reply(`[["localhost",0]]`))
	require.NoError(t, err)
	defer srv.Close()

	tr, m := newTestTransport(srv)
	resp, err := tr.Execute(
		context.Background(),
		"GET hosts\nColumns: name state\nOutputFormat: json\n\n \t\n",
		testPolicy(3),
	)
	require.NoError(t, err)
	assert.Equal(t, `[["localhost",0]]`, resp)
	// Trailing whitespace is trimmed and exactly one newline is appended
	assert.Equal(t, []string{"GET hosts\nColumns: name state\nOutputFormat: json\n"}, srv.Requests())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues(metrics.AttemptResultSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RetriesTotal))
}

func TestExecuteLargeResponse(t *testing.T) {
	defer goleak.VerifyNone(t)

	payload := strings.Repeat("0123456789", 5000)
	srv, err := livestatusmock.NewServer(livestatusmock.Reply(payload))
	require.NoError(t, err)
	defer srv.Close()

	tr := transport.New(srv.Network(), srv.Addr(), transport.WithReadBufferSize(128))
	resp, err := tr.Execute(context.Background(), "GET log", testPolicy(1))
	require.NoError(t, err)
	assert.Equal(t, payload, resp)
}

func TestExecuteAlwaysTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(livestatusmock.ResponseHang)
	require.NoError(t, err)
	defer srv.Close()

	tr, m := newTestTransport(srv)
	_, err = tr.Execute(context.Background(), "GET hosts", testPolicy(3))
	require.ErrorIs(t, err, transport.ErrRetriesExhausted)
	var attemptErr *transport.AttemptError
	require.True(t, errors.As(err, &attemptErr))
	assert.True(t, attemptErr.Timeout)
	assert.Equal(t, 3, attemptErr.Attempt)

	assert.Equal(t, 3, srv.Accepted())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues(metrics.AttemptResultTimeout)))
	// One delay between each pair of attempts
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetriesTotal))
}

func TestExecuteSlowServerHitsWallClockDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(livestatusmock.Response{
		Type:     livestatusmock.ResponseTypeTrickle,
		Payload:  strings.Repeat("x", 100),
		Interval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer srv.Close()

	tr, m := newTestTransport(srv)
	start := time.Now()
	_, err = tr.Execute(context.Background(), "GET log", testPolicy(1))
	require.ErrorIs(t, err, transport.ErrRetriesExhausted)
	var attemptErr *transport.AttemptError
	require.True(t, errors.As(err, &attemptErr))
	assert.True(t, attemptErr.Timeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues(metrics.AttemptResultTimeout)))
}

func TestExecuteConnectionRefused(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Grab a free port and release it so nothing is listening there
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	m := metrics.New(prometheus.NewRegistry())
	tr := transport.New("tcp", addr, transport.WithMetrics(m))
	_, err = tr.Execute(context.Background(), "GET hosts", testPolicy(2))
	require.ErrorIs(t, err, transport.ErrRetriesExhausted)
	var attemptErr *transport.AttemptError
	require.True(t, errors.As(err, &attemptErr))
	assert.False(t, attemptErr.Timeout)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues(metrics.AttemptResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal))
}

func TestExecuteRecoversAfterTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(
		livestatusmock.ResponseHang,
		livestatusmock.Reply("200 OK"),
	)
	require.NoError(t, err)
	defer srv.Close()

	tr, m := newTestTransport(srv)
	resp, err := tr.Execute(context.Background(), "GET status", testPolicy(3))
	require.NoError(t, err)
	assert.Equal(t, "200 OK", resp)
	assert.Equal(t, 2, srv.Accepted())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal))
}

func TestExecuteBudgetIsPerCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(livestatusmock.ResponseHang)
	require.NoError(t, err)
	defer srv.Close()

	tr, _ := newTestTransport(srv)
	for i := 1; i <= 2; i++ {
		_, err := tr.Execute(context.Background(), "GET hosts", testPolicy(2))
		require.ErrorIs(t, err, transport.ErrRetriesExhausted)
		assert.Equal(t, 2*i, srv.Accepted())
	}
}

func TestExecuteSharedBudget(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(livestatusmock.Reply("[]"))
	require.NoError(t, err)
	defer srv.Close()

	tr, _ := newTestTransport(srv)
	budget := transport.NewBudget(testPolicy(2))
	for i := 0; i < 2; i++ {
		_, err := tr.ExecuteBudget(context.Background(), "GET hosts", budget)
		require.NoError(t, err)
	}
	assert.True(t, budget.Exhausted())
	_, err = tr.ExecuteBudget(context.Background(), "GET hosts", budget)
	assert.ErrorIs(t, err, transport.ErrRetriesExhausted)
	assert.Equal(t, 2, srv.Accepted())
}

func TestExecuteUnclassifiedErrorIsNotRetried(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := metrics.New(prometheus.NewRegistry())
	// Missing port
	tr := transport.New("tcp", "127.0.0.1", transport.WithMetrics(m))
	_, err := tr.Execute(context.Background(), "GET hosts", testPolicy(5))
	require.Error(t, err)
	assert.NotErrorIs(t, err, transport.ErrRetriesExhausted)
	var unclassified *transport.UnclassifiedError
	require.True(t, errors.As(err, &unclassified))
	assert.Equal(t, 1, unclassified.Attempt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues(metrics.AttemptResultUnclassified)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RetriesTotal))
}

func TestExecuteCanceledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(livestatusmock.Reply("ok"))
	require.NoError(t, err)
	defer srv.Close()

	tr, _ := newTestTransport(srv)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Execute(ctx, "GET hosts", testPolicy(3))
	require.ErrorIs(t, err, context.Canceled)
	var unclassified *transport.UnclassifiedError
	assert.True(t, errors.As(err, &unclassified))
	assert.Equal(t, 0, srv.Accepted())
}

func TestExecuteZeroRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewServer(livestatusmock.Reply("ok"))
	require.NoError(t, err)
	defer srv.Close()

	tr, _ := newTestTransport(srv)
	_, err = tr.Execute(context.Background(), "GET hosts", testPolicy(0))
	assert.ErrorIs(t, err, transport.ErrRetriesExhausted)
	assert.Equal(t, 0, srv.Accepted())
}

func TestExecuteUnixSocket(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv, err := livestatusmock.NewUnixServer(
		filepath.Join(t.TempDir(), "live.sock"),
		livestatusmock.Reply("unix"),
	)
	require.NoError(t, err)
	defer srv.Close()

	tr := transport.New("unix", srv.Addr())
	resp, err := tr.Execute(context.Background(), "GET status", testPolicy(1))
	require.NoError(t, err)
	assert.Equal(t, "unix", resp)
	assert.Equal(t, []string{"GET status\n"}, srv.Requests())
}

func TestRetryPolicyValidate(t *testing.T) {
	assert.NoError(t, transport.DefaultRetryPolicy().Validate())
	assert.Equal(t, 5, transport.DefaultRetryPolicy().MaxRetries)
	for _, policy := range []transport.RetryPolicy{
		{MaxRetries: -1, AttemptTimeout: time.Second},
		{MaxRetries: 1, AttemptTimeout: 0},
		{MaxRetries: 1, AttemptTimeout: time.Second, RetryDelay: -time.Second},
	} {
		assert.ErrorIs(t, policy.Validate(), transport.ErrInvalidRetryPolicy)
	}
}

func TestBudgetWaitHonoursContext(t *testing.T) {
	budget := transport.NewBudget(transport.RetryPolicy{
		MaxRetries:     2,
		AttemptTimeout: time.Second,
		RetryDelay:     time.Hour,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, budget.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, 0, budget.Attempts())
}

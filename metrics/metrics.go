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

// Package metrics provides Prometheus collectors for Livestatus client activity.
//
// A nil *Metrics is valid and records nothing, so components can accept one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "livestatus"

// Attempt results
const (
	AttemptResultSuccess      = "success"
	AttemptResultTimeout      = "timeout"
	AttemptResultError        = "error"
	AttemptResultUnclassified = "unclassified"
)

// Query statuses
const (
	QueryStatusOK          = "ok"
	QueryStatusFailed      = "failed"
	QueryStatusDecodeError = "decode_error"
)

type Metrics struct {
	// QueriesTotal counts top-level queries by table and status.
	QueriesTotal *prometheus.CounterVec
	// AttemptsTotal counts socket attempts by result.
	AttemptsTotal *prometheus.CounterVec
	// RetriesTotal counts inter-attempt delays.
	RetriesTotal prometheus.Counter
	// QueryDuration is the latency of top-level queries, retries included.
	QueryDuration *prometheus.HistogramVec
	// DroppedExpressionsTotal counts filter/stats entries dropped as malformed.
	DroppedExpressionsTotal *prometheus.CounterVec
	// ResponseBytes is the size of raw responses received.
	ResponseBytes prometheus.Histogram
}

// New registers the collectors with reg. If reg is nil, the collectors are created but not registered
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of Livestatus queries",
			},
			[]string{"table", "status"},
		),
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total number of Livestatus connection attempts",
			},
			[]string{"result"},
		),
		RetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of delayed retries after a failed attempt",
			},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Livestatus query latency in seconds, including retries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table"},
		),
		DroppedExpressionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_expressions_total",
				Help:      "Total number of malformed filter/stats entries dropped from queries",
			},
			[]string{"kind"},
		),
		ResponseBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_bytes",
				Help:      "Size of raw Livestatus responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
	}
}

func (m *Metrics) ObserveAttempt(result string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) ObserveResponse(size int) {
	if m == nil {
		return
	}
	m.ResponseBytes.Observe(float64(size))
}

func (m *Metrics) ObserveDroppedExpression(kind string) {
	if m == nil {
		return
	}
	m.DroppedExpressionsTotal.WithLabelValues(kind).Inc()
}

// ObserveQuery records the outcome and latency of a top-level query
func (m *Metrics) ObserveQuery(table string, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(table, status).Inc()
	m.QueryDuration.WithLabelValues(table).Observe(elapsed.Seconds())
}

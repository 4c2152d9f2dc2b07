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

// Package query renders Livestatus requests into the line-oriented wire format.
//
// A request starts with a GET line naming the table, followed by optional
// Columns, Filter, Stats and Limit headers and an OutputFormat directive:
//
//	GET hosts
//	Columns: name state
//	Filter: state = 0
//	OutputFormat: json
//
// Filter and stats entries are given as strings. Entries starting with "&N" or
// "|N" fold the N preceding lines of the same kind with And/Or, and "!" negates
// the preceding line.
package query

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/golivestatus/metrics"
)

// OutputFormat selects how the server encodes the response
type OutputFormat int

const (
	OutputFormatText OutputFormat = iota
	OutputFormatJSON
)

func (f OutputFormat) String() string {
	if f == OutputFormatJSON {
		return "json"
	}
	return "text"
}

// ParseOutputFormat maps a case-insensitive format name to an OutputFormat.
// "csv" is accepted as an alias for the server's default text format
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return OutputFormatJSON, nil
	case "", "text", "csv":
		return OutputFormatText, nil
	default:
		return OutputFormatText, fmt.Errorf("%w: %q", ErrUnknownOutputFormat, name)
	}
}

// Query describes a single GET request
type Query struct {
	Table   string
	Columns []string
	Filters []string
	Stats   []string
	// Limit is omitted from the request when nil
	Limit        *int
	OutputFormat OutputFormat
}

// Request is the rendered wire text along with any entries dropped while rendering it
type Request struct {
	Text     string
	Warnings []error
}

type Builder struct {
	strict  bool
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type BuilderOptionFunc func(*Builder)

// NewBuilder returns a Builder. By default it is lenient: malformed entries are logged and dropped
func NewBuilder(options ...BuilderOptionFunc) *Builder {
	b := &Builder{
		logger: slog.Default(),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// WithStrict makes malformed entries fail the whole request instead of being dropped
func WithStrict(strict bool) BuilderOptionFunc {
	return func(b *Builder) {
		b.strict = strict
	}
}

func WithLogger(logger *slog.Logger) BuilderOptionFunc {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) BuilderOptionFunc {
	return func(b *Builder) {
		b.metrics = m
	}
}

// Build renders q. In lenient mode it never fails and dropped entries are
// reported in Request.Warnings
func (b *Builder) Build(q Query) (Request, error) {
	var req Request
	var sb strings.Builder
	sb.WriteString("GET " + q.Table + lineEnd)
	if len(q.Columns) > 0 {
		sb.WriteString("Columns: " + strings.Join(q.Columns, " ") + lineEnd)
	}
	for _, kindEntries := range []struct {
		kind    Kind
		entries []string
	}{
		{KindFilter, q.Filters},
		{KindStats, q.Stats},
	} {
		exprs, warnings, err := ParseExpressions(kindEntries.kind, kindEntries.entries, b.strict)
		if err != nil {
			return Request{}, err
		}
		for _, warning := range warnings {
			b.warn(&req, warning)
			b.metrics.ObserveDroppedExpression(kindEntries.kind.String())
		}
		for _, expr := range exprs {
			sb.WriteString(expr.String())
		}
	}
	if q.Limit != nil {
		if *q.Limit < 0 {
			err := fmt.Errorf("%w: %d: must be non-negative", ErrInvalidLimit, *q.Limit)
			if b.strict {
				return Request{}, err
			}
			b.warn(&req, err)
		} else {
			sb.WriteString("Limit: " + strconv.Itoa(*q.Limit) + lineEnd)
		}
	}
	if q.OutputFormat == OutputFormatJSON {
		sb.WriteString("OutputFormat: json" + lineEnd)
	}
	req.Text = sb.String()
	return req, nil
}

func (b *Builder) warn(req *Request, err error) {
	b.logger.Warn(
		"dropping entry from livestatus query",
		"component", "livestatus",
		"error", err,
	)
	req.Warnings = append(req.Warnings, err)
}

// ParseExpressions parses entries in order. In lenient mode malformed entries are
// skipped and returned as warnings. In strict mode the first malformed entry is
// returned as an error, and combinator counts are checked against the number of
// preceding lines they can fold
func ParseExpressions(kind Kind, entries []string, strict bool) ([]Expression, []error, error) {
	var exprs []Expression
	var warnings []error
	depth := 0
	for _, entry := range entries {
		expr, err := ParseExpression(kind, entry)
		if err != nil {
			if strict {
				return nil, nil, err
			}
			warnings = append(warnings, err)
			continue
		}
		if strict {
			if depth, err = expr.fold(depth); err != nil {
				return nil, nil, err
			}
		}
		exprs = append(exprs, expr)
	}
	return exprs, warnings, nil
}

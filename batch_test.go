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

package livestatus_test

import (
	"context"
	"testing"

	livestatus "github.com/blinklabs-io/golivestatus"
	"github.com/blinklabs-io/golivestatus/internal/test/livestatusmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetManyKeepsOrder(t *testing.T) {
	srv := newTestServer(t, livestatusmock.Reply("[]"))
	c := newTestClient(t, srv, livestatus.WithConcurrency(2))

	var reqs []livestatus.GetRequest
	for i := 0; i < 7; i++ {
		format := "json"
		if i%2 == 1 {
			format = "text"
		}
		reqs = append(reqs, livestatus.GetRequest{Table: "hosts", OutputFormat: format})
	}
	results := c.GetMany(context.Background(), reqs)
	require.Len(t, results, len(reqs))
	for i, res := range results {
		require.True(t, res.OK, "request %d failed: %v", i, res.Err)
		if i%2 == 1 {
			assert.Equal(t, "[]", res.Data, "request %d", i)
		} else {
			assert.Equal(t, []any{}, res.Data, "request %d", i)
		}
	}
	assert.Equal(t, len(reqs), srv.Accepted())
}

func TestGetManyIndependentFailures(t *testing.T) {
	srv := newTestServer(t, livestatusmock.Reply(`[["a"]]`))
	c := newTestClient(t, srv, livestatus.WithStrict(true))
	results := c.GetMany(context.Background(), []livestatus.GetRequest{
		{Table: "hosts"},
		{Table: "hosts", Filters: []string{"|x"}},
		{Table: "services"},
	})
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.True(t, results[2].OK)
}

func TestGetManyEmpty(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	assert.Empty(t, c.GetMany(context.Background(), nil))
}

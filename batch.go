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
	"context"
	"sync"
	"time"

	"github.com/blinklabs-io/golivestatus/response"
	"github.com/panjf2000/ants/v2"
)

const poolReleaseTimeout = 5 * time.Second

// GetMany runs reqs concurrently, at most WithConcurrency at a time. Results are
// returned in the same order as reqs. Each query has its own connection and retry budget
func (c *Client) GetMany(ctx context.Context, reqs []GetRequest) []Result {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	pool, err := ants.NewPool(
		c.concurrency,
		ants.WithPanicHandler(func(v any) {
			c.logger.Error(
				"livestatus batch worker panic",
				"component", "livestatus",
				"panic", v,
			)
		}),
	)
	if err != nil {
		for i := range results {
			results[i] = response.Failure(err)
		}
		return results
	}
	defer func() {
		_ = pool.ReleaseTimeout(poolReleaseTimeout)
	}()
	var waitGroup sync.WaitGroup
	for i, req := range reqs {
		i, req := i, req
		waitGroup.Add(1)
		err := pool.Submit(func() {
			defer waitGroup.Done()
			results[i] = c.Get(ctx, req)
		})
		if err != nil {
			waitGroup.Done()
			results[i] = response.Failure(err)
		}
	}
	waitGroup.Wait()
	return results
}

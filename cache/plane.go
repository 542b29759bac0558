/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package cache implements the memoization plane of spec §4.5: a
// hashpath-keyed read/write path in front of a durable apis.Cache,
// with an in-process eviction layer and three-source cache-control
// negotiation.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"dirpx.dev/converge/apis"
)

// Plane composes an in-process memoization layer with a durable
// backing apis.Cache. It implements apis.Cache itself, so a Plane can
// stand in wherever a resolver expects the cache contract.
type Plane struct {
	backing apis.Cache
	memo    *memo
	stats   Stats
	group   *errgroup.Group
}

// NewPlane constructs a Plane backed by backing, memoizing in-process
// with strategy/capacity/ttl. backing may be nil, in which case the
// plane operates purely as an in-process memoization layer (useful for
// tests and the convergectl demo store).
func NewPlane(backing apis.Cache, strategy Strategy, capacity int, ttl time.Duration) *Plane {
	p := &Plane{backing: backing, group: &errgroup.Group{}}
	p.memo = newMemo(strategy, capacity, ttl, &p.stats)
	return p
}

// Read implements apis.Cache: a hit in the in-process layer
// short-circuits; otherwise the backing store is consulted and, on
// hit, populates the in-process layer for next time.
func (p *Plane) Read(ctx context.Context, key apis.Hashpath) (*apis.Message, error) {
	if msg, ok := p.memo.get(key); ok {
		p.stats.hits.Add(1)
		return msg, nil
	}
	if p.backing == nil {
		p.stats.misses.Add(1)
		return nil, apis.NewResolutionError(apis.KindCacheMiss, "cache.plane", apis.ErrCacheMiss)
	}
	msg, err := p.backing.Read(ctx, key)
	if err != nil {
		p.stats.misses.Add(1)
		return nil, err
	}
	p.memo.put(key, msg)
	p.stats.hits.Add(1)
	return msg, nil
}

// Write implements apis.Cache: it always updates the in-process layer
// and writes through to the backing store, if any.
func (p *Plane) Write(ctx context.Context, key apis.Hashpath, output *apis.Message) error {
	p.memo.put(key, output)
	p.stats.writes.Add(1)
	if p.backing == nil {
		return nil
	}
	return p.backing.Write(ctx, key, output)
}

// WriteAsync forks Write into the plane's background errgroup, per
// spec §4.5 "Writes may be ... forked into a background task per
// async_cache". Errors from async writes are non-fatal to the caller
// (spec §7 "Failures in stage 7 ... are non-fatal when async") but are
// available via Wait for tests and graceful shutdown.
func (p *Plane) WriteAsync(ctx context.Context, key apis.Hashpath, output *apis.Message) {
	p.group.Go(func() error {
		return p.Write(ctx, key, output)
	})
}

// Wait blocks until every WriteAsync call so far has completed,
// returning the first error encountered, if any.
func (p *Plane) Wait() error {
	return p.group.Wait()
}

// Stats returns the plane's activity counters.
func (p *Plane) Stats() *Stats {
	return &p.stats
}

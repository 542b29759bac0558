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

package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/cache"
)

type memStore struct {
	mu sync.Mutex
	m  map[apis.Hashpath]*apis.Message
}

func newMemStore() *memStore { return &memStore{m: make(map[apis.Hashpath]*apis.Message)} }

func (s *memStore) Read(_ context.Context, key apis.Hashpath) (*apis.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.m[key]
	if !ok {
		return nil, apis.ErrCacheMiss
	}
	return msg, nil
}

func (s *memStore) Write(_ context.Context, key apis.Hashpath, output *apis.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = output
	return nil
}

func TestPlane_RoundTrip(t *testing.T) {
	backing := newMemStore()
	plane := cache.NewPlane(backing, cache.LRU, 10, 0)

	key := apis.Hashpath{1, 2, 3}
	out := apis.New().With("v", 1)
	if err := plane.Write(context.Background(), key, out); err != nil {
		t.Fatalf("Write: unexpected error: %v", err)
	}

	got, err := plane.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read: unexpected error: %v", err)
	}
	if v, _ := got.Get("v"); v != 1 {
		t.Fatalf("Read() = %v, want v=1", got)
	}
}

func TestPlane_MissWhenNotStored(t *testing.T) {
	plane := cache.NewPlane(nil, cache.LRU, 10, 0)
	_, err := plane.Read(context.Background(), apis.Hashpath{9})
	var rerr *apis.ResolutionError
	if !errors.As(err, &rerr) || rerr.Kind != apis.KindCacheMiss {
		t.Fatalf("Read(missing) error = %v, want KindCacheMiss", err)
	}
}

func TestPlane_LRUEviction(t *testing.T) {
	plane := cache.NewPlane(nil, cache.LRU, 2, 0)
	k1, k2, k3 := apis.Hashpath{1}, apis.Hashpath{2}, apis.Hashpath{3}

	_ = plane.Write(context.Background(), k1, apis.New())
	_ = plane.Write(context.Background(), k2, apis.New())
	// touch k1 so it is not the least-recently-used entry.
	_, _ = plane.Read(context.Background(), k1)
	_ = plane.Write(context.Background(), k3, apis.New())

	if _, err := plane.Read(context.Background(), k2); err == nil {
		t.Fatalf("Read(k2): want eviction (error), got hit")
	}
	if _, err := plane.Read(context.Background(), k1); err != nil {
		t.Fatalf("Read(k1): want hit (recently touched), got error: %v", err)
	}
}

func TestPlane_AsyncWriteAndWait(t *testing.T) {
	backing := newMemStore()
	plane := cache.NewPlane(backing, cache.LRU, 10, 0)

	key := apis.Hashpath{7}
	plane.WriteAsync(context.Background(), key, apis.New().With("async", true))
	if err := plane.Wait(); err != nil {
		t.Fatalf("Wait: unexpected error: %v", err)
	}
	if _, err := backing.Read(context.Background(), key); err != nil {
		t.Fatalf("async write did not reach backing store: %v", err)
	}
}

func TestPlane_StatsCounters(t *testing.T) {
	plane := cache.NewPlane(nil, cache.LRU, 10, 0)
	key := apis.Hashpath{4}

	_, _ = plane.Read(context.Background(), key) // miss
	_ = plane.Write(context.Background(), key, apis.New())
	_, _ = plane.Read(context.Background(), key) // hit

	if plane.Stats().Misses() != 1 {
		t.Fatalf("Misses() = %d, want 1", plane.Stats().Misses())
	}
	if plane.Stats().Hits() != 1 {
		t.Fatalf("Hits() = %d, want 1", plane.Stats().Hits())
	}
	if plane.Stats().Writes() != 1 {
		t.Fatalf("Writes() = %d, want 1", plane.Stats().Writes())
	}
}

func TestPlane_TTLExpiry(t *testing.T) {
	plane := cache.NewPlane(nil, cache.TTL, 10, time.Millisecond)
	key := apis.Hashpath{5}
	_ = plane.Write(context.Background(), key, apis.New())

	time.Sleep(5 * time.Millisecond)
	if _, err := plane.Read(context.Background(), key); err == nil {
		t.Fatalf("Read after TTL expiry: want error, got hit")
	}
}

func TestWriteAllowed_Negotiation(t *testing.T) {
	input := apis.New().With(apis.KeyCacheControl, "no_cache")
	sub := apis.New()

	if cache.WriteAllowed(apis.Options{}, input, sub) {
		t.Fatalf("WriteAllowed: input Cache-Control=no_cache should forbid write")
	}
	if !cache.WriteAllowed(apis.Options{Cache: apis.CacheAlways}, input, sub) {
		t.Fatalf("WriteAllowed: CacheAlways should force write regardless of Cache-Control")
	}
	if cache.WriteAllowed(apis.Options{Cache: apis.CacheNoStore}, apis.New(), apis.New()) {
		t.Fatalf("WriteAllowed: CacheNoStore should forbid write")
	}
	if !cache.WriteAllowed(apis.Options{}, apis.New(), apis.New()) {
		t.Fatalf("WriteAllowed: default options with no Cache-Control should allow write")
	}
}

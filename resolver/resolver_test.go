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

package resolver_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/cache"
	"dirpx.dev/converge/group"
	"dirpx.dev/converge/resolver"
	"dirpx.dev/converge/store"
)

func newTestResolver() *resolver.Resolver {
	plane := cache.NewPlane(nil, cache.LRU, 64, 0)
	coord := group.NewCoordinator(group.NewRegistry())
	return resolver.New(nil, plane, coord, store.NewMemory(), nil, nil)
}

func TestResolver_DirectKeyFetch(t *testing.T) {
	r := newTestResolver()
	input := apis.New().With("a", int64(42))
	sub := apis.New().With(apis.KeyPath, "a")

	out, err := r.Resolve(context.Background(), input, sub, apis.Options{})
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if out != int64(42) {
		t.Fatalf("Resolve(a) = %v, want 42", out)
	}
}

func TestResolver_MultiElementPathFetch(t *testing.T) {
	r := newTestResolver()
	inner := apis.New().With("b", "leaf")
	input := apis.New().With("a", inner)
	sub := apis.New().With(apis.KeyPath, apis.Sequence{"a", "b"})

	out, err := r.Resolve(context.Background(), input, sub, apis.Options{})
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if out != "leaf" {
		t.Fatalf("Resolve(a/b) = %v, want leaf", out)
	}
}

func TestResolver_MissingKeyFailsWithDefaultUnresolved(t *testing.T) {
	r := newTestResolver()
	input := apis.New()
	sub := apis.New().With(apis.KeyPath, "missing")

	_, err := r.Resolve(context.Background(), input, sub, apis.Options{})
	var rerr *apis.ResolutionError
	if !errors.As(err, &rerr) || rerr.Kind != apis.KindDefaultUnresolved {
		t.Fatalf("Resolve(missing) error = %v, want KindDefaultUnresolved", err)
	}
}

func TestResolver_ErrorThrowPanics(t *testing.T) {
	r := newTestResolver()
	input := apis.New()
	sub := apis.New().With(apis.KeyPath, "missing")

	defer func() {
		if rec := recover(); rec == nil {
			t.Fatalf("Resolve with ErrorThrow: want panic, got none")
		}
	}()
	_, _ = r.Resolve(context.Background(), input, sub, apis.Options{ErrorStrategy: apis.ErrorThrow})
}

func TestResolver_CacheHitSkipsSecondExecution(t *testing.T) {
	plane := cache.NewPlane(nil, cache.LRU, 64, 0)
	coord := group.NewCoordinator(group.NewRegistry())
	r := resolver.New(nil, plane, coord, store.NewMemory(), nil, nil)

	var calls atomic.Int32
	dev := apis.DeviceRef{Kind: apis.DeviceKindInline, Inline: apis.DeviceMap{
		"compute": apis.Fn1(func(input *apis.Message) (apis.Value, error) {
			calls.Add(1)
			return apis.New().With("computed", true), nil
		}),
	}}
	input := apis.New().With(apis.KeyDevice, dev)
	sub := apis.New().With(apis.KeyPath, "compute")

	if _, err := r.Resolve(context.Background(), input, sub, apis.Options{}); err != nil {
		t.Fatalf("Resolve #1: unexpected error: %v", err)
	}
	if _, err := r.Resolve(context.Background(), input, sub, apis.Options{}); err != nil {
		t.Fatalf("Resolve #2: unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("handler invoked %d times, want 1 (second call should hit cache)", got)
	}
}

func TestResolver_NoCacheDirectiveForcesReexecution(t *testing.T) {
	plane := cache.NewPlane(nil, cache.LRU, 64, 0)
	coord := group.NewCoordinator(group.NewRegistry())
	r := resolver.New(nil, plane, coord, store.NewMemory(), nil, nil)

	var calls atomic.Int32
	dev := apis.DeviceRef{Kind: apis.DeviceKindInline, Inline: apis.DeviceMap{
		"compute": apis.Fn1(func(input *apis.Message) (apis.Value, error) {
			calls.Add(1)
			return apis.New().With("computed", true), nil
		}),
	}}
	input := apis.New().With(apis.KeyDevice, dev)
	sub := apis.New().With(apis.KeyPath, "compute").With(apis.KeyCacheControl, "no_store")

	if _, err := r.Resolve(context.Background(), input, sub, apis.Options{}); err != nil {
		t.Fatalf("Resolve #1: unexpected error: %v", err)
	}
	if _, err := r.Resolve(context.Background(), input, sub, apis.Options{}); err != nil {
		t.Fatalf("Resolve #2: unexpected error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("handler invoked %d times, want 2 (no_store forbids memoization)", got)
	}
}

func TestResolver_ConcurrentCallsToSameGroupDeduplicate(t *testing.T) {
	r := newTestResolver()

	var calls atomic.Int32
	release := make(chan struct{})
	dev := apis.DeviceRef{Kind: apis.DeviceKindInline, Inline: apis.DeviceMap{
		"slow": apis.Fn1(func(input *apis.Message) (apis.Value, error) {
			calls.Add(1)
			<-release
			return "done", nil
		}),
	}}
	input := apis.New().With(apis.KeyDevice, dev)
	sub := apis.New().With(apis.KeyPath, "slow")

	var wg sync.WaitGroup
	results := make([]apis.Value, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := r.Resolve(context.Background(), input, sub, apis.Options{})
			if err != nil {
				t.Errorf("Resolve: unexpected error: %v", err)
			}
			results[i] = out
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("handler invoked %d times, want 1 (spec §8 at-most-once)", got)
	}
	for i, r := range results {
		if r != "done" {
			t.Fatalf("caller %d got %v, want done", i, r)
		}
	}
}

func TestResolver_ReferenceCallExpandsStoredMessage(t *testing.T) {
	st := store.NewMemory()
	plane := cache.NewPlane(nil, cache.LRU, 64, 0)
	coord := group.NewCoordinator(group.NewRegistry())
	r := resolver.New(nil, plane, coord, st, nil, nil)

	referenced := apis.New().With(apis.KeyPath, "a")
	blob := apis.Blob{ContentType: "application/vnd.converge.device+cbor"}
	data, err := cbor.Marshal(referenced)
	if err != nil {
		t.Fatalf("marshal referenced message: %v", err)
	}
	blob.Bytes = data
	id := st.Put(blob)

	input := apis.New().With("a", "resolved-through-reference")
	sub := apis.New().With(apis.KeyPath, id)

	out, err := r.Resolve(context.Background(), input, sub, apis.Options{})
	if err != nil {
		t.Fatalf("Resolve(reference): unexpected error: %v", err)
	}
	if out != "resolved-through-reference" {
		t.Fatalf("Resolve(reference) = %v, want resolved-through-reference", out)
	}
}

func TestResolver_ReentrantCallWithinSameGroupDoesNotDeadlock(t *testing.T) {
	r := newTestResolver()

	// "loop" re-enters Resolve against the exact same (input, sub) pair
	// it is itself being called for, which computes an identical group
	// key. Without the opts.InGroup bypass (spec §5 "Reentrancy") this
	// would deadlock against its own leader singleflight call.
	var calls atomic.Int32
	dev := apis.DeviceRef{Kind: apis.DeviceKindInline, Inline: apis.DeviceMap{
		"loop": apis.Fn3(func(input, sub *apis.Message, opts apis.Options) (apis.Value, error) {
			if calls.Add(1) == 1 {
				return r.Resolve(context.Background(), input, sub, opts)
			}
			return "reentered", nil
		}),
	}}
	input := apis.New().With(apis.KeyDevice, dev)
	sub := apis.New().With(apis.KeyPath, "loop")

	done := make(chan apis.Value, 1)
	go func() {
		out, err := r.Resolve(context.Background(), input, sub, apis.Options{})
		if err != nil {
			t.Errorf("Resolve(reentrant): unexpected error: %v", err)
			done <- nil
			return
		}
		done <- out
	}()
	select {
	case out := <-done:
		if out != "reentered" {
			t.Fatalf("Resolve(reentrant) = %v, want reentered", out)
		}
	case <-time.After(time.Second):
		t.Fatalf("Resolve(reentrant): deadlocked")
	}
}

func TestResolver_DevicePanicBecomesStructuredError(t *testing.T) {
	r := newTestResolver()
	dev := apis.DeviceRef{Kind: apis.DeviceKindInline, Inline: apis.DeviceMap{
		"boom": apis.Fn1(func(input *apis.Message) (apis.Value, error) {
			panic("device exploded")
		}),
	}}
	input := apis.New().With(apis.KeyDevice, dev)
	sub := apis.New().With(apis.KeyPath, "boom")

	_, err := r.Resolve(context.Background(), input, sub, apis.Options{})
	var rerr *apis.ResolutionError
	if !errors.As(err, &rerr) || rerr.Kind != apis.KindDeviceCall {
		t.Fatalf("Resolve(panicking handler) error = %v, want KindDeviceCall", err)
	}
}

func TestResolver_SpawnWorkerServesFollowupCalls(t *testing.T) {
	r := newTestResolver()

	// A stable Group hook (independent of the sub-input) is what lets a
	// promoted worker keep answering different follow-up keys for the
	// same actor (spec §4.6 "Leader obligations"); the default
	// (input,sub) tuple key would instead mint a fresh group per call.
	var dev apis.DeviceRef
	dev = apis.DeviceRef{Kind: apis.DeviceKindInline, Inline: apis.DeviceMap{
		apis.KeyInfo: apis.InfoFn0(func() apis.Info {
			return apis.Info{Group: func(*apis.Message, *apis.Message, apis.Options) string {
				return "counter-actor"
			}}
		}),
		"start": apis.Fn1(func(input *apis.Message) (apis.Value, error) {
			return apis.New().With(apis.KeyDevice, dev).With("counter", int64(0)), nil
		}),
		"increment": apis.Fn1(func(input *apis.Message) (apis.Value, error) {
			n, _ := input.Get("counter")
			return input.With("counter", n.(int64)+1), nil
		}),
	}}

	startInput := apis.New().With(apis.KeyDevice, dev)
	startSub := apis.New().With(apis.KeyPath, "start")
	out, err := r.Resolve(context.Background(), startInput, startSub, apis.Options{SpawnWorker: true})
	if err != nil {
		t.Fatalf("Resolve(start): unexpected error: %v", err)
	}
	held, ok := out.(*apis.Message)
	if !ok {
		t.Fatalf("Resolve(start) = %T, want *apis.Message", out)
	}
	if v, _ := held.Get("counter"); v != int64(0) {
		t.Fatalf("held state counter = %v, want 0", v)
	}

	incInput := apis.New().With(apis.KeyDevice, dev)
	incSub := apis.New().With(apis.KeyPath, "increment")
	out, err = r.Resolve(context.Background(), incInput, incSub, apis.Options{})
	if err != nil {
		t.Fatalf("Resolve(increment): unexpected error: %v", err)
	}
	after, ok := out.(*apis.Message)
	if !ok {
		t.Fatalf("Resolve(increment) = %T, want *apis.Message", out)
	}
	if v, _ := after.Get("counter"); v != int64(1) {
		t.Fatalf("held state counter after increment = %v, want 1 (worker must serve follow-ups against its own held state)", v)
	}
}

func TestResolveMessage_SplitsPathFromInput(t *testing.T) {
	r := newTestResolver()
	msg := apis.New().With("a", "value").With(apis.KeyPath, "a")

	out, err := r.ResolveMessage(context.Background(), msg, apis.Options{})
	if err != nil {
		t.Fatalf("ResolveMessage: unexpected error: %v", err)
	}
	if out != "value" {
		t.Fatalf("ResolveMessage = %v, want value", out)
	}
}

func TestResolveMessage_NilMessageFails(t *testing.T) {
	r := newTestResolver()
	if _, err := r.ResolveMessage(context.Background(), nil, apis.Options{}); !errors.Is(err, apis.ErrNilInput) {
		t.Fatalf("ResolveMessage(nil) error = %v, want ErrNilInput", err)
	}
}

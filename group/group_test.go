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

package group_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/group"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry_FirstJoinerIsLeader(t *testing.T) {
	reg := group.NewRegistry()
	if leader := reg.Join("g1", "p1"); !leader {
		t.Fatalf("Join(g1,p1) leader = false, want true")
	}
	if leader := reg.Join("g1", "p2"); leader {
		t.Fatalf("Join(g1,p2) leader = true, want false")
	}
	if got := reg.Members("g1"); len(got) != 2 || got[0] != "p1" || got[1] != "p2" {
		t.Fatalf("Members(g1) = %v, want [p1 p2]", got)
	}
}

func TestRegistry_LeaveRemovesMember(t *testing.T) {
	reg := group.NewRegistry()
	reg.Join("g2", "p1")
	reg.Join("g2", "p2")
	reg.Leave("g2", "p1")

	if got := reg.Members("g2"); len(got) != 1 || got[0] != "p2" {
		t.Fatalf("Members(g2) after leave = %v, want [p2]", got)
	}
}

func TestCoordinator_DeduplicatesConcurrentCalls(t *testing.T) {
	reg := group.NewRegistry()
	coord := group.NewCoordinator(reg)

	var invocations atomic.Int32
	var wg sync.WaitGroup
	results := make([]apis.Value, 4)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err, _ := coord.Resolve(context.Background(), "dup-key", func() (apis.Value, error) {
				invocations.Add(1)
				time.Sleep(10 * time.Millisecond)
				return "result", nil
			})
			if err != nil {
				t.Errorf("Resolve: unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if got := invocations.Load(); got != 1 {
		t.Fatalf("handler invoked %d times, want 1 (spec §8 at-most-once)", got)
	}
	for i, r := range results {
		if r != "result" {
			t.Fatalf("caller %d got %v, want result", i, r)
		}
	}
}

func TestCoordinator_JoinerTimeoutDoesNotUnregisterLeader(t *testing.T) {
	reg := group.NewRegistry()
	coord := group.NewCoordinator(reg)

	var invocations atomic.Int32
	leaderDone := make(chan apis.Value, 1)

	go func() {
		v, _, _ := coord.Resolve(context.Background(), "slow-key", func() (apis.Value, error) {
			invocations.Add(1)
			time.Sleep(50 * time.Millisecond)
			return "leader-result", nil
		})
		leaderDone <- v
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err, shared := coord.Resolve(ctx, "slow-key", func() (apis.Value, error) {
		invocations.Add(1)
		return "joiner-would-run-this", nil
	})
	if err == nil {
		t.Fatalf("joiner Resolve: want timeout error, got nil")
	}
	if !shared {
		t.Fatalf("joiner Resolve: shared = false, want true (was waiting on the leader)")
	}

	if got := <-leaderDone; got != "leader-result" {
		t.Fatalf("leader result = %v, want leader-result (leader must keep running after joiner timeout)", got)
	}
	if got := invocations.Load(); got != 1 {
		t.Fatalf("handler invoked %d times, want 1 (joiner timeout must not spawn a second leader)", got)
	}
}

func TestCoordinator_PromoteToWorker(t *testing.T) {
	reg := group.NewRegistry()
	coord := group.NewCoordinator(reg)

	coord.PromoteToWorker("held-key", "worker-1")
	if id, ok := coord.WorkerFor("held-key"); !ok || id != "worker-1" {
		t.Fatalf("WorkerFor(held-key) = (%q,%v), want (worker-1,true)", id, ok)
	}
}

func TestKey_DeviceGroupHookOverrides(t *testing.T) {
	dev := apis.DeviceRef{Kind: apis.DeviceKindInline}
	info := apis.Info{Group: func(input, sub *apis.Message, opts apis.Options) string {
		return "custom-group"
	}}
	k, err := group.Key(dev, info, apis.New(), apis.New(), apis.Options{})
	if err != nil {
		t.Fatalf("Key: unexpected error: %v", err)
	}
	if k != "custom-group" {
		t.Fatalf("Key() = %q, want custom-group", k)
	}
}

func TestKey_DefaultTupleKeyIsDeterministic(t *testing.T) {
	dev := apis.DeviceRef{Kind: apis.DeviceKindInline}
	input := apis.New().With("a", 1)
	sub := apis.New().With("b", 2)

	k1, err := group.Key(dev, apis.Info{}, input, sub, apis.Options{})
	if err != nil {
		t.Fatalf("Key: unexpected error: %v", err)
	}
	k2, err := group.Key(dev, apis.Info{}, input, sub, apis.Options{})
	if err != nil {
		t.Fatalf("Key: unexpected error: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("Key() not deterministic: %q vs %q", k1, k2)
	}
}

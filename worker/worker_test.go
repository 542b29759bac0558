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

package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorker_ServesRepeatedResolutions(t *testing.T) {
	w := worker.New()
	held := apis.New().With("state_key", "1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Serve(ctx, held, func(held, sub *apis.Message, opts apis.Options) (apis.Value, error) {
		state, _ := held.Get("state_key")
		msg, _ := sub.Get("msg_key")
		return state.(string) + msg.(string), nil
	})

	out, err := w.Resolve(ctx, apis.New().With("msg_key", "a"))
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if out != "1a" {
		t.Fatalf("Resolve() = %v, want 1a", out)
	}

	out, err = w.Resolve(ctx, apis.New().With("msg_key", "b"))
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if out != "1b" {
		t.Fatalf("second Resolve() = %v, want 1b (worker does not chain state)", out)
	}
}

func TestWorker_IdleTimeoutRunsTerminate(t *testing.T) {
	w := worker.New()
	held := apis.New()
	var terminated atomic.Bool
	var terminateHashpathPolicy apis.HashpathPolicy

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.ServeWithTimeout(ctx, held, func(held, sub *apis.Message, opts apis.Options) (apis.Value, error) {
			if v, _ := sub.Get(apis.KeyPath); v == string(worker.TerminateSubInput) {
				terminated.Store(true)
				terminateHashpathPolicy = opts.Hashpath
			}
			return nil, nil
		}, 20*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("worker did not exit after idle timeout")
	}

	if !terminated.Load() {
		t.Fatalf("worker did not run terminate resolution on idle timeout")
	}
	if terminateHashpathPolicy != apis.HashpathIgnore {
		t.Fatalf("terminate resolution hashpath policy = %v, want HashpathIgnore", terminateHashpathPolicy)
	}
}

func TestWorker_ContextCancelExitsWithoutTerminate(t *testing.T) {
	w := worker.New()
	held := apis.New()
	var terminated atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Serve(ctx, held, func(held, sub *apis.Message, opts apis.Options) (apis.Value, error) {
			terminated.Store(true)
			return nil, nil
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("worker did not exit on context cancellation")
	}
	if terminated.Load() {
		t.Fatalf("worker ran terminate resolution on plain cancellation, want none")
	}
}

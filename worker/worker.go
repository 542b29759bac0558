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

// Package worker implements the long-lived worker loop of spec §4.8:
// a goroutine holding a hot terminal state, serving further
// resolutions against it until an idle timeout expires.
package worker

import (
	"context"
	"time"

	"dirpx.dev/converge/apis"
)

// TerminateSubInput is the literal sub-input a worker resolves its
// held state against on idle expiry, letting devices flush state
// before exit (spec §4.8).
const TerminateSubInput apis.Symbol = "terminate"

// request is a single {resolve, listener, held, sub-input} message
// accepted by the worker loop.
type request struct {
	sub   *apis.Message
	reply chan response
}

type response struct {
	output apis.Value
	err    error
}

// Worker is the default WorkerLoop implementation: it always serves
// the same held state, never chaining to a new one.
type Worker struct {
	inbox chan request
}

var _ apis.WorkerLoop = (*Worker)(nil)

// New constructs a Worker with a small buffered inbox.
func New() *Worker {
	return &Worker{inbox: make(chan request, 8)}
}

// Resolve sends {resolve, held, sub-input} to a running worker and
// blocks for its reply or ctx cancellation.
func (w *Worker) Resolve(ctx context.Context, sub *apis.Message) (apis.Value, error) {
	req := request{sub: sub, reply: make(chan response, 1)}
	select {
	case w.inbox <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.output, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Serve implements apis.WorkerLoop with no idle timeout: it runs until
// ctx is canceled. ServeWithTimeout adds the idle expiry, on which it
// resolves held against TerminateSubInput once (hashpath policy forced
// to ignore, per spec §4.8) so devices can persist in-memory state,
// then exits.
func (w *Worker) Serve(ctx context.Context, held *apis.Message, resolve func(held, sub *apis.Message, opts apis.Options) (apis.Value, error)) {
	w.ServeWithTimeout(ctx, held, resolve, 0)
}

// ServeWithTimeout is Serve with an explicit idle timeout; 0 means
// apis.WorkerTimeoutInfinite.
func (w *Worker) ServeWithTimeout(ctx context.Context, held *apis.Message, resolve func(held, sub *apis.Message, opts apis.Options) (apis.Value, error), idleTimeout time.Duration) {
	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if idleTimeout > 0 {
		timer = time.NewTimer(idleTimeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-timeoutCh:
			terminateOpts := apis.Options{Hashpath: apis.HashpathIgnore}
			termMsg := apis.New().With(apis.KeyPath, string(TerminateSubInput))
			_, _ = resolve(held, termMsg, terminateOpts)
			return

		case req := <-w.inbox:
			out, err := resolve(held, req.sub, apis.Options{})
			req.reply <- response{output: out, err: err}
			if timer != nil {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(idleTimeout)
			}
		}
	}
}

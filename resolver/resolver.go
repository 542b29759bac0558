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

// Package resolver drives the nine-stage resolution pipeline of spec
// §4.7: normalize, cache lookup, dispatch, group check, execute,
// cryptographic link, cache write, notify, recurse/fork/return. It is
// the component every other package in this repository exists to
// serve.
package resolver

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/cache"
	"dirpx.dev/converge/device"
	"dirpx.dev/converge/group"
	"dirpx.dev/converge/logging"
	"dirpx.dev/converge/worker"
)

// maxResolveDepth caps recursive resolution to guard against the
// reference-call cycles spec §9 warns about ("implementations must cap
// resolution depth or detect reentry by tracking the hashpath stack").
// It bounds both path-tail recursion and reference-call expansion.
const maxResolveDepth = 4096

// Resolver implements apis.Resolver over the concrete package stack:
// device loading and dispatch, the cache plane, the deduplication
// coordinator, the content-addressed store, and the worker loop.
type Resolver struct {
	registry apis.DeviceRegistry
	cache    *cache.Plane
	coord    *group.Coordinator
	store    apis.Store
	verifier apis.Verifier
	logger   *zap.Logger

	workers *workerTable
}

var _ apis.Resolver = (*Resolver)(nil)

// New constructs a Resolver. store may be nil, in which case a
// content-id path head is not expanded as a reference call and
// content-addressed devices fail to load. verifier may be nil, in
// which case a content-addressed device's signer ids are still checked
// against the trusted list but its signature is not verified. logger
// may be nil, in which case logging is discarded.
func New(registry apis.DeviceRegistry, plane *cache.Plane, coord *group.Coordinator, store apis.Store, verifier apis.Verifier, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop()
	}
	if registry == nil {
		registry = device.NewRegistry()
	}
	if plane == nil {
		plane = cache.NewPlane(nil, cache.LRU, 0, 0)
	}
	if coord == nil {
		coord = group.NewCoordinator(group.NewRegistry())
	}
	return &Resolver{
		registry: registry,
		cache:    plane,
		coord:    coord,
		store:    store,
		verifier: verifier,
		logger:   logger,
		workers:  newWorkerTable(),
	}
}

// CacheStats returns the resolver's cache plane activity counters, for
// operator tooling such as the convergectl cache stats subcommand.
func (r *Resolver) CacheStats() *cache.Stats {
	return r.cache.Stats()
}

// ResolveMessage implements apis.Resolver: it splits msg's "path" key
// into the effective input and sub-input before delegating to Resolve,
// whose stage 1 handles reference-call expansion if the resulting
// sub-input's head turns out to be a stored message id (spec §6
// "resolve(msg, options)").
func (r *Resolver) ResolveMessage(ctx context.Context, msg *apis.Message, opts apis.Options) (apis.Value, error) {
	if msg == nil {
		return nil, apis.ErrNilInput
	}
	raw, ok := msg.Get(apis.KeyPath)
	if !ok {
		return nil, r.boundaryError(opts, apis.NewResolutionError(apis.KindDeviceCall, "resolver.resolve_message", errors.New("message carries no path")))
	}
	input := msg.Without(apis.KeyPath)
	sub := apis.New().With(apis.KeyPath, raw)
	return r.Resolve(ctx, input, sub, opts)
}

// Resolve implements apis.Resolver. It is the outermost entry point:
// error propagation (spec §7 "Propagation") is decided here, once,
// regardless of how deep the internal recursion runs.
func (r *Resolver) Resolve(ctx context.Context, input, sub *apis.Message, opts apis.Options) (out apis.Value, err error) {
	if input == nil {
		return nil, apis.ErrNilInput
	}
	if sub == nil {
		sub = apis.New()
	}
	out, err = r.resolveStep(ctx, input, sub, opts, 0)
	if err != nil {
		return nil, r.boundaryError(opts, err)
	}
	return out, nil
}

// boundaryError applies options.error_strategy: ErrorThrow re-raises
// err as a panic carrying the original cause; ErrorReturn (the
// default) yields it as an ordinary Go error (spec §7 "Propagation").
func (r *Resolver) boundaryError(opts apis.Options, err error) error {
	if err == nil {
		return nil
	}
	if opts.ErrorStrategy == apis.ErrorThrow {
		panic(err)
	}
	return err
}

// asMessage coerces a resolution output into a *apis.Message for use
// as the next step's input: an output that is already a Message is
// used as-is; a bare scalar is wrapped under a well-known key so
// subsequent dispatch still has something to key off of.
func asMessage(v apis.Value) *apis.Message {
	if m, ok := v.(*apis.Message); ok {
		return m
	}
	return apis.New().With(scalarValueKey, v)
}

// scalarValueKey is where asMessage stashes a bare scalar output so a
// path can keep recursing through it.
const scalarValueKey = "value"

// workerTable is the resolver's own record of promoted workers,
// indexed by the opaque worker id the deduplication plane's registry
// tracks (spec §4.7 stage 9 "fork a worker ... future callers reach
// the worker").
type workerTable struct {
	mu   sync.Mutex
	byID map[string]*worker.Worker
}

func newWorkerTable() *workerTable {
	return &workerTable{byID: make(map[string]*worker.Worker)}
}

func (t *workerTable) store(id string, w *worker.Worker) {
	t.mu.Lock()
	t.byID[id] = w
	t.mu.Unlock()
}

func (t *workerTable) get(id string) (*worker.Worker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.byID[id]
	return w, ok
}

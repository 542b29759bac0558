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

package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/cache"
	"dirpx.dev/converge/device"
	"dirpx.dev/converge/dispatch"
	"dirpx.dev/converge/group"
	"dirpx.dev/converge/hashpath"
	"dirpx.dev/converge/key"
	"dirpx.dev/converge/logging"
	"dirpx.dev/converge/message"
	"dirpx.dev/converge/worker"
)

// resolveStep runs stages 1 through 9 once, recursing into itself for
// stage 1's reference-call expansion and stage 9's path-tail
// continuation (spec §4.10: every transition is monotonically forward
// except 1→1 and 9→1).
func (r *Resolver) resolveStep(ctx context.Context, input, sub *apis.Message, opts apis.Options, depth int) (apis.Value, error) {
	if depth > maxResolveDepth {
		return nil, apis.NewResolutionError(apis.KindDeviceCall, "resolver.resolve", errors.New("resolution depth exceeded, likely a reference-call cycle"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 1: normalize. A reference-call head substitutes the fetched
	// message for sub, resolves it against the current input, and
	// continues with sub's own path tail against that intermediate
	// result (spec §4.7 stage 1).
	if handled, out, err := r.referenceCall(ctx, input, sub, opts, depth); handled {
		return out, err
	}

	// Stage 2: cache lookup, keyed by the hashpath the output would
	// receive if computed fresh. The key includes the input's own
	// hashpath, not just sub's path, resolving spec §9's open question
	// in favor of correctness under colliding paths across different
	// inputs.
	cacheKey, ckErr := cacheLookupKey(input, sub)
	if ckErr == nil {
		if cached, err := r.cache.Read(ctx, cacheKey); err == nil {
			r.logger.Debug("cache hit", logging.Stage(2), zap.String("hashpath", cacheKey.String()))
			// A hit stands in for stages 3-8 only; the path tail still
			// continues from the cached output (stage 9).
			return r.recurseTail(ctx, sub, cached, opts, depth)
		}
	}

	// Stage 3: device & handler resolution.
	dev, call, opts, err := r.planDispatch(ctx, input, sub, opts)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("dispatch planned", logging.Stage(3), zap.Bool("add_key", opts.AddKey))

	// Stage 4: group check.
	groupKey, gkErr := r.groupKey(dev, input, sub, opts)

	// A call already running inside groupKey (including a worker
	// resolving its own held state, spec §4.8) never redirects through
	// WorkerFor again — doing so would have it wait on a reply from
	// itself.
	if gkErr == nil && !opts.InGroup(groupKey) {
		if id, ok := r.coord.WorkerFor(groupKey); ok {
			if w, ok := r.workers.get(id); ok {
				// The worker resolves only the path head against its
				// held state; the tail continues here.
				h, _ := message.Head(sub)
				out, err := w.Resolve(ctx, sub.With(apis.KeyPath, h))
				if err != nil {
					return nil, err
				}
				// A worker already holds this group; recurse on any
				// path tail but never re-spawn (spec §4.6 "future
				// callers reach the worker directly").
				return r.recurseTail(ctx, sub, out, opts, depth)
			}
		}
	}

	var output apis.Value
	if gkErr != nil || opts.InGroup(groupKey) {
		// No usable group key, or this call chain already holds this
		// group (spec §5 "Reentrancy"): execute directly, bypassing
		// deduplication to avoid a self-deadlock.
		output, err = r.executeLinkAndCache(ctx, input, sub, opts, call, cacheKey, ckErr == nil)
	} else {
		childOpts := opts.WithGroup(groupKey)
		output, err, _ = r.coord.Resolve(ctx, groupKey, func() (apis.Value, error) {
			return r.executeLinkAndCache(ctx, input, sub, childOpts, call, cacheKey, ckErr == nil)
		})
	}
	if err != nil {
		return nil, err
	}

	// Stage 9: recurse on the path tail, fork a worker, or return.
	return r.finish(ctx, dev, groupKey, input, sub, output, opts, depth)
}

// referenceCall implements stage 1's reference-call branch: when sub's
// path head is a 43-character content id, it fetches the referenced
// message from the store, resolves it against input, and continues
// with sub's tail against that result (spec §4.7 stage 1).
func (r *Resolver) referenceCall(ctx context.Context, input, sub *apis.Message, opts apis.Options, depth int) (handled bool, out apis.Value, err error) {
	head, ok := message.Head(sub)
	if !ok {
		return false, nil, nil
	}
	id, isString := head.(string)
	if !isString || len(id) != key.ContentIDLen || r.store == nil {
		return false, nil, nil
	}

	blob, err := r.store.Read(ctx, id)
	if err != nil {
		return true, nil, apis.NewResolutionError(apis.KindDeviceNotLoadable, "resolver.reference_call", err)
	}
	refMsg := apis.New()
	if err := cbor.Unmarshal(blob.Bytes, refMsg); err != nil {
		return true, nil, apis.NewResolutionError(apis.KindDeviceNotLoadable, "resolver.reference_call", err)
	}

	mid, err := r.resolveStep(ctx, input, refMsg, opts, depth+1)
	if err != nil {
		return true, nil, err
	}

	tail, hasTail := message.Tail(sub)
	if !hasTail {
		return true, mid, nil
	}
	out, err = r.resolveStep(ctx, asMessage(mid), tail, opts, depth+1)
	return true, out, err
}

// cacheLookupKey computes the hashpath a fresh computation of
// (input, sub) would receive, used both as the stage 2 read key and
// the stage 7 write key so a cache hit is always keyed identically to
// how it would have been produced.
func cacheLookupKey(input, sub *apis.Message) (apis.Hashpath, error) {
	prev, _ := input.Hashpath()
	return hashpath.Push(prev, sub)
}

// planDispatch runs stage 3: load the device (spec §4.3) and plan the
// call (spec §4.4), recovering a panicking device.Info export into a
// structured failure rather than letting it unwind through the
// resolver (spec §7 "Stages 3 and 5 wrap exceptions from device
// code").
func (r *Resolver) planDispatch(ctx context.Context, input, sub *apis.Message, opts apis.Options) (dev apis.DeviceRef, call dispatch.Call, out apis.Options, err error) {
	out = opts
	defer func() {
		if rec := recover(); rec != nil {
			err = apis.NewResolutionError(apis.KindDeviceCall, "resolver.plan_dispatch", panicError{rec})
		}
	}()

	ref := device.RefFromInput(input)
	dev, err = device.Load(ctx, ref, opts, r.registry, r.store, r.verifier)
	if err != nil {
		return apis.DeviceRef{}, dispatch.Call{}, opts, err
	}
	k, _ := message.Head(sub)
	call, out, err = dispatch.Plan(dev, input, key.ToKey(k), opts)
	return dev, call, out, err
}

// groupKey computes stage 4's deduplication key.
func (r *Resolver) groupKey(dev apis.DeviceRef, input, sub *apis.Message, opts apis.Options) (string, error) {
	info := device.Info(dev, input, opts)
	return group.Key(dev, info, input, sub, opts)
}

// executeLinkAndCache runs stages 5-7 for the leader (or a reentrant
// caller bypassing the group entirely): execute the handler, link the
// output into the hashpath chain, and write it to the cache plane.
func (r *Resolver) executeLinkAndCache(ctx context.Context, input, sub *apis.Message, opts apis.Options, call dispatch.Call, cacheKey apis.Hashpath, haveCacheKey bool) (apis.Value, error) {
	// Stage 5: execute.
	output, err := r.invokeHandler(call, input, sub, opts)
	if err != nil {
		// Spec §7: stage 5 failures are never cryptographically linked
		// or cached; skip straight past stages 6 and 7. A handler
		// returning its own *apis.ResolutionError (e.g. the default
		// device's default_device_could_not_resolve_key) keeps its
		// original Kind; anything else — including a recovered panic —
		// is classified as a generic device_call failure.
		return nil, classifyExecuteError(err)
	}

	// Stage 6: cryptographic link. Scalars bypass linking; only a
	// Message output carries a hashpath to extend.
	if outMsg, ok := output.(*apis.Message); ok && opts.Hashpath != apis.HashpathIgnore {
		prev, _ := input.Hashpath()
		hp, err := message.Push(prev, sub)
		if err != nil {
			return nil, apis.NewResolutionError(apis.KindDeviceCall, "resolver.link", err)
		}
		output = outMsg.WithHashpath(hp)
	}

	// Stage 7: cache write, per the three-source negotiation of §4.5.
	if haveCacheKey {
		if outMsg, ok := output.(*apis.Message); ok && cache.WriteAllowed(opts, input, sub) {
			if opts.AsyncCache {
				r.cache.WriteAsync(ctx, cacheKey, outMsg)
			} else if err := r.cache.Write(ctx, cacheKey, outMsg); err != nil {
				r.logger.Warn("cache write failed", logging.Stage(7), zap.Error(err))
			}
		}
	}

	// Stage 8 (notify) has no extra work here: the deduplication
	// coordinator already replays this same return value to every
	// joiner blocked on the same group key.
	return output, nil
}

// invokeHandler runs stage 5's device call, converting a handler panic
// into a structured device_call failure (spec §7).
func (r *Resolver) invokeHandler(call dispatch.Call, input, sub *apis.Message, opts apis.Options) (output apis.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError{rec}
		}
	}()
	return call.Invoke(input, sub, opts)
}

type panicError struct{ v any }

func (p panicError) Error() string {
	return fmt.Sprintf("device handler panicked: %v", p.v)
}

// Unwrap exposes a recovered value that is itself an error (most
// notably a nested Resolve's own *apis.ResolutionError raised by
// options.error_strategy == "throw") to errors.As, so
// classifyExecuteError can still recover its original Kind instead of
// degrading it to a generic device_call failure.
func (p panicError) Unwrap() error {
	if err, ok := p.v.(error); ok {
		return err
	}
	return nil
}

// classifyExecuteError preserves the Kind of an error a handler already
// raised as a structured *apis.ResolutionError (the default device's
// KindDefaultUnresolved, a nested resolver's own boundary error, ...),
// and classifies everything else — including a recovered panic — as a
// generic device_call failure.
func classifyExecuteError(err error) error {
	var rerr *apis.ResolutionError
	if errors.As(err, &rerr) {
		return rerr
	}
	return apis.NewResolutionError(apis.KindDeviceCall, "resolver.execute", err)
}

// finish runs stage 9: recurse on the path tail, fork a worker and
// promote the group to it, or return the terminal output.
func (r *Resolver) finish(ctx context.Context, dev apis.DeviceRef, groupKey string, input, sub *apis.Message, output apis.Value, opts apis.Options, depth int) (apis.Value, error) {
	if tail, hasTail := message.Tail(sub); hasTail {
		return r.resolveStep(ctx, asMessage(output), tail, opts, depth+1)
	}

	if opts.SpawnWorker && groupKey != "" {
		r.spawnWorker(dev, groupKey, output, opts)
	}
	return output, nil
}

// recurseTail is finish without the worker-spawn half, used when this
// call already reached an existing promoted worker rather than
// running stages 5-7 itself.
func (r *Resolver) recurseTail(ctx context.Context, sub *apis.Message, output apis.Value, opts apis.Options, depth int) (apis.Value, error) {
	if tail, hasTail := message.Tail(sub); hasTail {
		return r.resolveStep(ctx, asMessage(output), tail, opts, depth+1)
	}
	return output, nil
}

// spawnWorker forks a long-lived worker holding output and atomically
// hands the group off to it (spec §4.6 "Leader obligations"), so
// future callers for the same group key reach the worker directly
// instead of re-entering the dispatch/execute pipeline. A device's own
// Info.Worker loop is only started with the held state: it is not
// registered with the group, so later callers do not reach it and keep
// going through the pipeline.
func (r *Resolver) spawnWorker(dev apis.DeviceRef, groupKey string, output apis.Value, opts apis.Options) {
	held := asMessage(output)
	info := device.Info(dev, held, opts)
	resolveFn := r.workerResolveFunc(groupKey)

	if info.Worker != nil {
		go info.Worker.Serve(context.Background(), held, resolveFn)
		return
	}

	w := worker.New()
	id := group.NewID()
	r.workers.store(id, w)
	r.coord.PromoteToWorker(groupKey, id)
	go w.ServeWithTimeout(context.Background(), held, resolveFn, opts.WorkerTimeout)
}

// workerResolveFunc returns the resolve callback a worker loop invokes
// for each sub-input against its held state: a fresh top-level Resolve
// call pinned into groupKey, so it gets its own dispatch, caching, and
// linking exactly like any other entry point, while stage 4's
// reentrancy check (spec §5) keeps it from redirecting back through
// WorkerFor into itself.
func (r *Resolver) workerResolveFunc(groupKey string) func(held, sub *apis.Message, opts apis.Options) (apis.Value, error) {
	return func(held, sub *apis.Message, opts apis.Options) (apis.Value, error) {
		return r.Resolve(context.Background(), held, sub, opts.WithGroup(groupKey))
	}
}

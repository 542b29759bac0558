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

package converge

import (
	"context"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/device"
	"dirpx.dev/converge/dispatch"
)

// dispatchOp invokes op ("set", "remove", or "keys") directly on
// msg's device, bypassing the nine-stage resolve pipeline entirely.
// These three operations are meta-operations on a device's shape
// rather than a path resolution in their own right (spec §4.9), so
// op is planned as a literal dispatch key rather than derived from
// sub's "path" — which leaves sub free to carry each operation's own
// payload (remove's target key under "path", set's patch as sub's own
// keys) without "path" doubling as a routing selector.
//
// Content-addressed devices are not loadable through this path: the
// global builder's store and verifier are private to it, so a
// content id can only be resolved here via opts.PreloadedDevices,
// never fetched fresh. Inline and symbolic devices are unaffected.
func dispatchOp(ctx context.Context, msg *apis.Message, op string, sub *apis.Message, opts apis.Options) (apis.Value, error) {
	ref := device.RefFromInput(msg)
	dev, err := device.Load(ctx, ref, opts, Registry(), nil, nil)
	if err != nil {
		return nil, err
	}
	call, opts, err := dispatch.Plan(dev, msg, op, opts)
	if err != nil {
		return nil, err
	}
	return call.Invoke(msg, sub, opts)
}

// effectiveOptions returns the per-call options a shortcut function
// resolves against: the global configuration's default options when
// the caller supplied none, or opts[0] merged against that same
// global default per its own Prefer scope (spec §6 "prefer") when the
// caller did supply one — every shortcut function accepts opts as a
// trailing variadic so callers can omit it entirely for the common
// case.
func effectiveOptions(opts []apis.Options) apis.Options {
	global := Config().DefaultOptions()
	if len(opts) == 0 {
		return global
	}
	return opts[0].Merge(global)
}

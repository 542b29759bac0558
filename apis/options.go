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

package apis

import "time"

// HashpathPolicy selects whether stage 6 links the output into the
// hashpath chain (spec §4.7 stage 6).
type HashpathPolicy int

const (
	// HashpathUpdate extends the hashpath with the sub-input commit.
	HashpathUpdate HashpathPolicy = iota
	// HashpathIgnore leaves the output's hashpath as-is (used for
	// worker terminate resolutions, spec §4.8).
	HashpathIgnore
)

// CacheMode selects the global cache-control option (spec §4.5,
// §6 "cache").
type CacheMode int

const (
	// CacheDefault applies ordinary cache-control negotiation.
	CacheDefault CacheMode = iota
	// CacheAlways forces caching regardless of Cache-Control headers.
	CacheAlways
	// CacheNoCache disables caching for this call only.
	CacheNoCache
	// CacheNoStore disables caching and forbids storing the result
	// anywhere, including transient layers.
	CacheNoStore
	// CacheNone is an alias for CacheNoStore accepted at the options
	// boundary for source compatibility with callers spelling it
	// "none".
	CacheNone
)

// disables reports whether a CacheMode forbids writing to the cache
// plane (spec §4.5 "iff the global option is not a disabling token").
func (m CacheMode) disables() bool {
	switch m {
	case CacheNoCache, CacheNoStore, CacheNone:
		return true
	default:
		return false
	}
}

// ErrorStrategy selects how stage failures cross the Resolve boundary
// (spec §7 "Propagation").
type ErrorStrategy int

const (
	// ErrorReturn yields (nil, *ResolutionError) to the caller.
	ErrorReturn ErrorStrategy = iota
	// ErrorThrow re-raises the failure as a Go panic at the outermost
	// Resolve call, carrying the original cause.
	ErrorThrow
)

// PreferScope controls whether option lookups favor the innermost
// (local) override or the outermost (global) value (spec §6 "prefer").
type PreferScope int

const (
	PreferLocal PreferScope = iota
	PreferGlobal
)

// Options carries every resolution knob recognized at the external
// boundary (spec §6 "Options keys recognized"). Options values are
// conceptually immutable: stage transitions pass updated copies
// (spec §5 "Shared-resource policy").
type Options struct {
	// Hashpath selects stage 6's linking policy.
	Hashpath HashpathPolicy
	// Cache selects the global cache-control mode.
	Cache CacheMode
	// AsyncCache forks cache writes into a background task.
	AsyncCache bool
	// SpawnWorker promotes the terminal state to a long-lived worker
	// at stage 9 once the path is exhausted.
	SpawnWorker bool
	// WorkerTimeout bounds how long a spawned worker stays idle
	// before self-terminating. Zero means WorkerTimeoutInfinite.
	WorkerTimeout time.Duration
	// ErrorStrategy selects the propagation discipline for failures.
	ErrorStrategy ErrorStrategy
	// LoadRemoteDevices gates content-addressed device loading
	// (spec §4.3).
	LoadRemoteDevices bool
	// TrustedDeviceSigners is the set of signer ids permitted to
	// author a loadable remote device blob.
	TrustedDeviceSigners map[string]struct{}
	// PreloadedDevices maps a symbolic device name to its
	// implementation, consulted by the device loader's final fallback
	// rule (spec §4.3).
	PreloadedDevices map[string]DeviceRef
	// Groups is the stack of group keys the current call chain has
	// already joined, used to detect and avoid self-deadlock on
	// reentrant resolution (spec §5 "Reentrancy").
	Groups []string
	// AddKey records whether the chosen dispatch rule requires
	// prepending the key argument to the handler call (spec §4.7
	// stage 3, internal to the resolver).
	AddKey bool
	// Prefer controls option lookup scope for embedding callers that
	// layer local overrides atop a shared global Options value.
	Prefer PreferScope
}

// WorkerTimeoutInfinite means a worker never self-terminates on
// idleness (spec §5 "Cancellation and timeouts").
const WorkerTimeoutInfinite time.Duration = 0

// WithGroup returns a copy of o with group pushed onto the Groups
// stack, used when entering stage 4 as a new leader or joiner.
func (o Options) WithGroup(group string) Options {
	out := o
	out.Groups = append(append([]string(nil), o.Groups...), group)
	return out
}

// InGroup reports whether group is already present in o's Groups
// stack (spec §5 "Reentrancy").
func (o Options) InGroup(group string) bool {
	for _, g := range o.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Merge combines o, a caller-local Options value, with global, the
// process-wide default it was layered on top of, honoring o.Prefer
// (spec §6 "prefer"). PreferLocal — the zero value — lets o's own
// fields stand as given, the ordinary case for a caller that built its
// Options from scratch. PreferGlobal locks the trust-policy fields to
// global's values regardless of what o carries, so an embedding caller
// composing a local Options on top of a shared one cannot have its own
// override loosen a process-wide trust decision it doesn't own.
func (o Options) Merge(global Options) Options {
	if o.Prefer != PreferGlobal {
		return o
	}
	out := o
	out.LoadRemoteDevices = global.LoadRemoteDevices
	out.TrustedDeviceSigners = global.TrustedDeviceSigners
	out.PreloadedDevices = global.PreloadedDevices
	return out
}

// EffectiveCacheAllowed applies the options-wins precedence of
// spec §4.5: the global option decides first; cache-control tokens on
// the input/sub-input are consulted by the cache package, which knows
// how to read the Cache-Control key off a Message.
func (o Options) EffectiveCacheAllowed() bool {
	return !o.Cache.disables()
}

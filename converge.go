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

// Package converge provides a global, process-wide resolution service
// implementing the nine-stage state machine of the resolver
// specification: normalize, cache lookup, dispatch, deduplicate,
// execute, hash-link, cache write, notify, recurse.
//
// The core of converge is a read-mostly global snapshot (state). The
// snapshot holds:
//
//   - Config: the trust policy and defaults a Resolver is built from
//     (preloaded devices, trusted signers, default cache mode, worker
//     idle timeout).
//
//   - Registry: a process-wide mapping from symbolic device names to
//     implementations, mutable at runtime via Registry().Register.
//
//   - Resolver: the object that actually drives resolution. It is
//     expected to be concurrency-safe for reads.
//
//   - Builder: a pluggable factory that constructs Registry and
//     Resolver instances for a given Config, optionally migrating
//     state from the previous instances.
//
// All of these live inside a single immutable struct called state.
// The package holds an atomic pointer to the current state; readers
// load that pointer and never mutate it, and writers build a brand
// new state and atomically swap it in, giving lock-free reads on the
// hot path:
//
//	out := converge.Get(ctx, "name", msg, nil)
//
// Package-level get.go/set.go/remove.go/keys.go implement the
// shortcut surface against the currently published resolver.
package converge

import (
	"errors"
	"sync"
	"sync/atomic"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/builder"
	"dirpx.dev/converge/config"
)

func init() {
	cfg := config.DefaultConfig()
	b := builder.New()
	reg := b.BuildRegistry(cfg, nil, nil)
	res := b.BuildResolver(cfg, reg, nil, nil)
	publish(cfg, nil, reg, res, b, false, false)
}

var (
	// ErrNilRegistry is returned when a builder returns a nil registry.
	ErrNilRegistry = errors.New("converge: builder returned nil registry")
	// ErrNilResolver is returned when a builder returns a nil resolver.
	ErrNilResolver = errors.New("converge: builder returned nil resolver")
)

// Snapshot is a read-only view of the currently published global
// state, for tooling (convergectl) that needs registry and resolver
// access without depending on package internals.
type Snapshot struct {
	Config     apis.Config
	Registry   apis.DeviceRegistry
	Resolver   apis.Resolver
	Generation uint64
}

// Current returns a Snapshot of the currently published global state.
func Current() Snapshot {
	s := st.Load()
	return Snapshot{Config: s.cfg, Registry: s.reg, Resolver: s.res, Generation: s.gen}
}

// Generation returns the publish sequence number of the currently
// published state: it increments on every SetAll/SetConfig/SetRegistry/
// SetResolver/SetBuilder/SetExt/Pin.../Unpin... call, so operator
// tooling (convergectl device list) can tell whether the registry and
// resolver it is looking at are the pair that was published together
// or have since moved on.
func Generation() uint64 {
	return st.Load().gen
}

// SetAll explicitly sets all global state components. A nil cfg or bld
// keeps the current one. A nil reg or res is rebuilt through the
// (possibly new) builder and left unpinned; a non-nil one is installed
// as given and pinned. ext is always replaced.
func SetAll(cfg *apis.Config, ext any, reg apis.DeviceRegistry, res apis.Resolver, bld apis.Builder) {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()

	ncfg := old.cfg
	if cfg != nil {
		ncfg = *cfg
	}

	nbld := old.bld
	if bld != nil {
		nbld = bld
	}

	nreg := reg
	npreg := false
	if nreg == nil {
		nreg = nbld.BuildRegistry(ncfg, old.reg, ext)
	} else {
		npreg = true
	}

	nres := res
	npres := false
	if nres == nil {
		nres = nbld.BuildResolver(ncfg, nreg, old.res, ext)
	} else {
		npres = true
	}

	if nreg == nil {
		panic(ErrNilRegistry)
	}
	if nres == nil {
		panic(ErrNilResolver)
	}

	publish(ncfg, ext, nreg, nres, nbld, npreg, npres)
}

// Config returns the global configuration.
func Config() apis.Config {
	return st.Load().cfg
}

// SetConfig sets the global configuration to cfg, rebuilding the
// registry and resolver from it unless they are pinned.
//
// A pinned resolver is force-rebuilt regardless, when cfg revokes
// remote device loading that old granted: a resolver pinned in place
// while remote loading was trusted must not keep honoring that trust
// after an operator explicitly turns it off (spec §4.3 trust-policy
// scoping). Every other pin is respected as documented.
func SetConfig(cfg apis.Config) {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	b := old.bld

	pres := old.pres
	if old.cfg.LoadRemoteDevices && !cfg.LoadRemoteDevices {
		pres = false
	}

	nreg := old.reg
	if !old.preg {
		nreg = b.BuildRegistry(cfg, old.reg, old.ext)
	}
	nres := old.res
	if !pres {
		nres = b.BuildResolver(cfg, nreg, old.res, old.ext)
	}

	if nreg == nil {
		panic(ErrNilRegistry)
	}
	if nres == nil {
		panic(ErrNilResolver)
	}

	publish(cfg, old.ext, nreg, nres, b, old.preg, pres)
}

// Registry returns the global device registry.
func Registry() apis.DeviceRegistry {
	return st.Load().reg
}

// SetRegistry sets the global registry to reg and pins it: further
// SetConfig calls will not rebuild it until UnpinRegistry.
func SetRegistry(reg apis.DeviceRegistry) {
	if reg == nil {
		return
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	b := old.bld

	nres := old.res
	if !old.pres {
		nres = b.BuildResolver(old.cfg, reg, old.res, old.ext)
	}
	if nres == nil {
		panic(ErrNilResolver)
	}

	publish(old.cfg, old.ext, reg, nres, b, true, old.pres)
}

// Resolver returns the global resolver.
func Resolver() apis.Resolver {
	return st.Load().res
}

// SetResolver sets the global resolver to res and pins it: further
// rebuilds leave it untouched until UnpinResolver.
func SetResolver(res apis.Resolver) {
	if res == nil {
		return
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	publish(old.cfg, old.ext, old.reg, res, old.bld, old.preg, true)
}

// Builder returns the global builder.
func Builder() apis.Builder {
	return st.Load().bld
}

// SetBuilder sets the global builder to b, rebuilding any non-pinned
// registry/resolver layer through it.
func SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()

	nreg := old.reg
	if !old.preg {
		nreg = b.BuildRegistry(old.cfg, old.reg, old.ext)
	}
	nres := old.res
	if !old.pres {
		nres = b.BuildResolver(old.cfg, nreg, old.res, old.ext)
	}

	if nreg == nil {
		panic(ErrNilRegistry)
	}
	if nres == nil {
		panic(ErrNilResolver)
	}

	publish(old.cfg, old.ext, nreg, nres, b, old.preg, old.pres)
}

// SetExt replaces the extension payload and rebuilds any non-pinned
// layer through the current builder.
func SetExt[T any](ext T) {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	b := old.bld

	nreg := old.reg
	if !old.preg {
		nreg = b.BuildRegistry(old.cfg, old.reg, ext)
	}
	nres := old.res
	if !old.pres {
		nres = b.BuildResolver(old.cfg, nreg, old.res, ext)
	}

	if nreg == nil {
		panic(ErrNilRegistry)
	}
	if nres == nil {
		panic(ErrNilResolver)
	}

	publish(old.cfg, ext, nreg, nres, b, old.preg, old.pres)
}

// ExtAs returns the global extension payload as type T.
func ExtAs[T any]() (T, bool) {
	ext, ok := st.Load().ext.(T)
	return ext, ok
}

// IsRegistryPinned reports whether the global registry is pinned.
func IsRegistryPinned() bool {
	return st.Load().preg
}

// PinRegistry makes the global registry immutable to future rebuilds.
func PinRegistry() {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	publish(old.cfg, old.ext, old.reg, old.res, old.bld, true, old.pres)
}

// UnpinRegistry makes the global registry mutable again.
func UnpinRegistry() {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	publish(old.cfg, old.ext, old.reg, old.res, old.bld, false, old.pres)
}

// IsResolverPinned reports whether the global resolver is pinned.
func IsResolverPinned() bool {
	return st.Load().pres
}

// PinResolver makes the global resolver immutable to future rebuilds.
func PinResolver() {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	publish(old.cfg, old.ext, old.reg, old.res, old.bld, old.preg, true)
}

// UnpinResolver makes the global resolver mutable again.
func UnpinResolver() {
	buildMu.Lock()
	defer buildMu.Unlock()
	old := st.Load()
	publish(old.cfg, old.ext, old.reg, old.res, old.bld, old.preg, false)
}

// buildMu serializes writers so a partially-built snapshot is never
// published.
var buildMu sync.Mutex

// st is the global converge state.
var st atomic.Pointer[state]

// genCounter hands out the monotonic generation number every publish
// stamps onto the state it stores.
var genCounter atomic.Uint64

// publish stamps a new generation onto the given fields and atomically
// installs the resulting state as current. Every writer in this file
// builds its next state through publish rather than calling st.Store
// directly, so the generation counter always advances in step with
// what's actually visible to readers.
func publish(cfg apis.Config, ext any, reg apis.DeviceRegistry, res apis.Resolver, bld apis.Builder, preg, pres bool) {
	st.Store(&state{
		cfg:  cfg,
		ext:  ext,
		reg:  reg,
		res:  res,
		bld:  bld,
		preg: preg,
		pres: pres,
		gen:  genCounter.Add(1),
	})
}

// state is the global converge state snapshot. Immutable once
// published via publish; writers build a new state and swap it in.
type state struct {
	cfg  apis.Config
	ext  any
	reg  apis.DeviceRegistry
	res  apis.Resolver
	bld  apis.Builder
	preg bool
	pres bool
	gen  uint64
}

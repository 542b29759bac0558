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

// Package builder implements apis.Builder: it composes a DeviceRegistry
// and a Resolver from an apis.Config, the way a node process would at
// startup or when reconfiguring its trust policy without restarting.
package builder

import (
	"time"

	"go.uber.org/zap"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/cache"
	"dirpx.dev/converge/device"
	"dirpx.dev/converge/group"
	"dirpx.dev/converge/resolver"
	"dirpx.dev/converge/signer"
	"dirpx.dev/converge/store"
)

// Option configures a Builder at construction time.
type Option func(*builder)

// WithStore sets the content-addressed store consulted for reference
// calls and remote device loading. Defaults to an empty store.Memory.
func WithStore(s apis.Store) Option {
	return func(b *builder) { b.store = s }
}

// WithVerifier sets the signer verifier consulted when loading a
// content-addressed device. Defaults to an empty signer.Keyring, which
// trusts no one until populated.
func WithVerifier(v apis.Verifier) Option {
	return func(b *builder) { b.verifier = v }
}

// WithLogger sets the structured logger the built Resolver logs
// through. Defaults to logging.Nop via resolver.New's own default.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithCacheStrategy sets the in-process memoization eviction policy
// and capacity/ttl bounds for the built cache plane.
func WithCacheStrategy(strategy cache.Strategy, capacity int, ttl time.Duration) Option {
	return func(b *builder) {
		b.cacheStrategy = strategy
		b.cacheCapacity = capacity
		b.cacheTTL = ttl
	}
}

// New constructs an apis.Builder.
func New(opts ...Option) apis.Builder {
	b := &builder{
		store:         store.NewMemory(),
		verifier:      signer.NewKeyring(),
		cacheStrategy: cache.LRU,
		cacheCapacity: 4096,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type builder struct {
	store         apis.Store
	verifier      apis.Verifier
	logger        *zap.Logger
	cacheStrategy cache.Strategy
	cacheCapacity int
	cacheTTL      time.Duration
}

var _ apis.Builder = (*builder)(nil)

// BuildRegistry constructs a DeviceRegistry seeded from cfg's
// preloaded_devices table, migrating any entries already present in
// prev so a live reconfiguration never loses previously registered
// devices (spec §4.3 "preloaded_devices table").
func (b *builder) BuildRegistry(cfg apis.Config, prev apis.DeviceRegistry, _ any) apis.DeviceRegistry {
	reg := device.NewRegistry()
	if prev != nil {
		for _, name := range prev.Names() {
			if dev, ok := prev.Lookup(name); ok {
				_ = reg.Register(name, dev)
			}
		}
	}
	for name, dev := range cfg.PreloadedDevices {
		_ = reg.Register(name, dev)
	}
	return reg
}

// BuildResolver constructs a Resolver over reg using cfg's trust
// policy. It never migrates state from prev: the deduplication and
// worker planes are call-scoped, not configuration-scoped, so a
// reconfiguration always starts a fresh coordinator rather than
// inheriting in-flight groups from a resolver that is about to be
// discarded.
func (b *builder) BuildResolver(cfg apis.Config, reg apis.DeviceRegistry, _ apis.Resolver, _ any) apis.Resolver {
	plane := cache.NewPlane(nil, b.cacheStrategy, b.cacheCapacity, b.cacheTTL)
	coord := group.NewCoordinator(group.NewRegistry())
	return resolver.New(reg, plane, coord, b.store, b.verifier, b.logger)
}

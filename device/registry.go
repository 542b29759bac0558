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

// Package device implements the device loader of spec §4.3: resolving
// a Device reference (inline map, symbolic id, or content-addressed
// id) to a loadable device, honoring the trust policy, plus the
// preloaded_devices registry and the identity/message default device.
package device

import (
	"errors"
	"reflect"
	"sync"

	"dirpx.dev/converge/apis"
)

var (
	// ErrEmptyName is returned when an empty symbolic name is
	// registered or looked up.
	ErrEmptyName = errors.New("device: empty symbolic name")
	// ErrConflictingRegistration indicates an attempt to re-register a
	// name with a different device.
	ErrConflictingRegistration = errors.New("device: conflicting registration")
)

// NewRegistry constructs a process-wide DeviceRegistry, structurally
// the registry package's sync.Map-plus-guarded-counter shape
// generalized from reflect.Type keys to symbolic device names.
func NewRegistry() apis.DeviceRegistry {
	return &registry{}
}

type registry struct {
	mu    sync.Mutex
	m     sync.Map // map[string]apis.DeviceRef
	count int
}

var _ apis.DeviceRegistry = (*registry)(nil)

// Register associates name with dev. Re-registering the same name
// with the same inline map or an equal reference is idempotent;
// registering a different device under an existing name conflicts.
func (r *registry) Register(name string, dev apis.DeviceRef) error {
	if name == "" {
		return ErrEmptyName
	}

	if old, ok := r.m.Load(name); ok {
		if sameDevice(old.(apis.DeviceRef), dev) {
			return nil
		}
		return ErrConflictingRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.m.Load(name); ok {
		if sameDevice(old.(apis.DeviceRef), dev) {
			return nil
		}
		return ErrConflictingRegistration
	}
	r.m.Store(name, dev)
	r.count++
	return nil
}

// Lookup returns the device registered under name, if any.
func (r *registry) Lookup(name string) (apis.DeviceRef, bool) {
	v, ok := r.m.Load(name)
	if !ok {
		return apis.DeviceRef{}, false
	}
	return v.(apis.DeviceRef), true
}

// Names returns every registered symbolic name, in unspecified order.
func (r *registry) Names() []string {
	names := make([]string, 0, r.Count())
	r.m.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	return names
}

// Count returns the number of registered devices.
func (r *registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// sameDevice reports whether two DeviceRef values name the same
// underlying device closely enough for idempotent re-registration
// (same kind and same symbolic/content identity; inline maps are
// compared by identity since handler closures cannot be compared).
func sameDevice(a, b apis.DeviceRef) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case apis.DeviceKindSymbolic:
		return a.Symbolic == b.Symbolic
	case apis.DeviceKindContent:
		return a.Content == b.Content
	default:
		return reflect.ValueOf(a.Inline).Pointer() == reflect.ValueOf(b.Inline).Pointer()
	}
}

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

// Config carries the read-only, process-wide knobs that seed a
// Builder: the static trust policy and defaults a Resolver is built
// with. It is distinct from Options, which carries the per-call
// overrides a caller supplies to a single Resolve. Config is loaded
// once at startup (typically from YAML) and passed by value.
type Config struct {
	// LoadRemoteDevices is the default for Options.LoadRemoteDevices
	// when a call does not override it.
	LoadRemoteDevices bool
	// TrustedDeviceSigners lists signer ids trusted to author
	// content-addressed devices absent a per-call override.
	TrustedDeviceSigners []string
	// DefaultCacheMode is the default for Options.Cache.
	DefaultCacheMode CacheMode
	// WorkerIdleTimeoutSeconds bounds how long a spawned worker holds
	// its state with no pending sub-resolutions before terminating.
	WorkerIdleTimeoutSeconds int
	// PreloadedDevices seeds the registry with operator-supplied
	// devices, keyed by symbolic name.
	PreloadedDevices map[string]DeviceRef
}

// DefaultOptions returns the per-call Options a fresh top-level
// resolution should start from when the caller supplies none of its
// own: the trust policy and cache/worker defaults this Config carries,
// with every other Options field left at its zero value (spec §6
// "Options keys recognized").
func (c Config) DefaultOptions() Options {
	var signers map[string]struct{}
	if len(c.TrustedDeviceSigners) > 0 {
		signers = make(map[string]struct{}, len(c.TrustedDeviceSigners))
		for _, id := range c.TrustedDeviceSigners {
			signers[id] = struct{}{}
		}
	}
	return Options{
		Cache:                c.DefaultCacheMode,
		WorkerTimeout:        time.Duration(c.WorkerIdleTimeoutSeconds) * time.Second,
		LoadRemoteDevices:    c.LoadRemoteDevices,
		TrustedDeviceSigners: signers,
		PreloadedDevices:     c.PreloadedDevices,
	}
}

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

// Builder composes a DeviceRegistry and Resolver from Config.
// Implementations may migrate entries from a previous instance (prev*)
// or ignore them; ext is an optional, implementation-defined extension
// context (e.g. a preloaded device table).
type Builder interface {
	// BuildRegistry constructs a DeviceRegistry for cfg, optionally
	// migrating entries from prev.
	BuildRegistry(cfg Config, prev DeviceRegistry, ext any) DeviceRegistry
	// BuildResolver constructs a Resolver over reg, optionally reusing
	// state from prev.
	BuildResolver(cfg Config, reg DeviceRegistry, prev Resolver, ext any) Resolver
}

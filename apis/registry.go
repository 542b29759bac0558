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

// DeviceRegistry is the process-wide table of preloaded devices,
// consulted by the device loader's final fallback rule (spec §4.3
// "preloaded_devices table"). It generalizes the identity-resolution
// registry pattern (a concurrency-safe name -> implementation map)
// from reflect.Type keys to symbolic device names.
type DeviceRegistry interface {
	// Register associates a symbolic device name with an
	// implementation. Re-registering the same name with a different
	// implementation is a conflict.
	Register(name string, dev DeviceRef) error
	// Lookup returns the device registered under name, if any.
	Lookup(name string) (DeviceRef, bool)
	// Names returns all registered symbolic names.
	Names() []string
	// Count returns the number of registered devices.
	Count() int
}

// Entry is a single (name, device) association in a DeviceRegistry
// snapshot, used for diagnostics and the convergectl device list
// subcommand.
type Entry struct {
	Name   string
	Device DeviceRef
}

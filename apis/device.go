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

import "context"

// Fn1, Fn2, and Fn3 are the three handler arities a device may export
// for a key (spec §4.4 rule 3): a handler may ignore the sub-input,
// the options, or both. The dispatch planner tries Fn3, then Fn2,
// then Fn1, and truncates the call's argument list accordingly.
type (
	Fn1 func(input *Message) (Value, error)
	Fn2 func(input *Message, sub *Message) (Value, error)
	Fn3 func(input *Message, sub *Message, opts Options) (Value, error)
)

// KeyFn1, KeyFn2, and KeyFn3 mirror Fn1..Fn3 but additionally receive
// the resolved key as a prepended argument. Only a device's Info.Default
// callable is ever invoked with a key-prepended signature (spec §4.4
// rule 4); Info.DefaultMod is a plain Device reference and is not
// called with a prepended key (spec §9's documented asymmetry).
type (
	KeyFn1 func(key string, input *Message) (Value, error)
	KeyFn2 func(key string, input *Message, sub *Message) (Value, error)
	KeyFn3 func(key string, input *Message, sub *Message, opts Options) (Value, error)
)

// InfoFn0 and InfoFn2 are the two arities an "info" export may take
// (spec §6 "Info callables accept () or (input, options)"). A device
// publishes Info by exporting a callable named "info" of one of these
// shapes; a device with no such export has zero-value Info.
type (
	InfoFn0 func() Info
	InfoFn2 func(input *Message, opts Options) Info
)

// KeyInfo is the reserved export name a device publishes its Info
// under.
const KeyInfo = "info"

// GroupKeyFunc derives a custom deduplication group key from
// (input, sub-input, options), overriding the default (input,
// sub-input) tuple key (spec §4.6).
type GroupKeyFunc func(input *Message, sub *Message, opts Options) string

// DeviceMap is an inline device: a mapping from key to handler. Each
// value must be one of Fn1, Fn2, or Fn3; anything else is treated as
// "not exported" by the dispatch planner.
type DeviceMap map[string]any

// HandlerWithExclude is the "map handler" shape a device's Info may
// publish: Func handles every key except those listed in Exclude,
// which fall back to the default device (spec §4.4 rule 2).
type HandlerWithExclude struct {
	Func    any
	Exclude []string
}

// DeviceKind discriminates the three ways a Device reference can be
// spelled on a message (spec §3 "Device").
type DeviceKind int

const (
	// DeviceKindInline is an inline handler map, usable as-is.
	DeviceKindInline DeviceKind = iota
	// DeviceKindSymbolic names a preloaded implementation by symbol.
	DeviceKindSymbolic
	// DeviceKindContent names a 43-character content-addressed id.
	DeviceKindContent
)

// DeviceRef is the tagged reference to a device stored under a
// message's "device" key. Exactly one of the Inline/Symbolic/Content
// fields is meaningful, selected by Kind.
type DeviceRef struct {
	Kind     DeviceKind
	Inline   DeviceMap
	Symbolic string
	Content  string
}

// Info is the optional metadata a device may publish (spec §3
// "Device info"). A device publishes Info by exporting a callable
// named "info"; devices with no such callable have zero-value Info.
type Info struct {
	// Exports, when non-nil, restricts which keys are callable at all.
	Exports []string
	// Handler, if set, is either a bare Fn1/Fn2/Fn3 or a
	// HandlerWithExclude, and takes priority over per-key export
	// lookup (spec §4.4 rule 2).
	Handler any
	// Default is a fallback callable invoked with the key prepended
	// when no other rule resolves it (spec §4.4 rule 4).
	Default any
	// DefaultMod is a fallback device reference, tried only when no
	// Handler, export, or Default callable resolves the key.
	DefaultMod *DeviceRef
	// Group derives a custom deduplication group key.
	Group GroupKeyFunc
	// Worker, if set, replaces the default worker loop implementation
	// for states produced by this device.
	Worker WorkerLoop
}

// WorkerLoop is the long-lived actor contract a device may supply in
// place of the default worker loop (spec §4.4 "worker").
type WorkerLoop interface {
	// Serve runs until ctx is canceled or the held state's idle timer
	// expires, resolving further sub-inputs against held.
	Serve(ctx context.Context, held *Message, resolve func(held, sub *Message, opts Options) (Value, error))
}

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

// Package dispatch implements the ordered dispatch planner of spec
// §4.4: given (input, key, options), it decides which concrete
// handler runs and what arguments it receives, honoring
// device-declared handler/default/default_mod overrides.
package dispatch

import (
	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/device"
)

// Call is a fully-resolved dispatch decision: the device the call
// ultimately runs against, and a closure that invokes the chosen
// handler with the arity-truncated argument list already bound.
type Call struct {
	// Device is the device the handler was ultimately found on (the
	// input's own device, unless a handler/exclude/default_mod rule
	// redirected to another one).
	Device apis.DeviceRef
	// Invoke runs the chosen handler against (input, sub, opts).
	Invoke func(input, sub *apis.Message, opts apis.Options) (apis.Value, error)
}

// handlerRule implements rule 2: a device's published Handler (with an
// optional per-key exclude list) takes priority over per-key export
// lookup.
type handlerRule struct{ info apis.Info }

func (r handlerRule) TryDispatch(_ apis.DeviceRef, key string) (any, bool) {
	if r.info.Handler == nil {
		return nil, false
	}
	if excl, ok := r.info.Handler.(apis.HandlerWithExclude); ok {
		if contains(excl.Exclude, key) {
			return nil, false
		}
		return excl.Func, true
	}
	return r.info.Handler, true
}

// exportRule implements rule 3: a key exported directly on an inline
// device's handler map, subject to the device's Exports allowlist.
type exportRule struct{ info apis.Info }

func (r exportRule) TryDispatch(dev apis.DeviceRef, key string) (any, bool) {
	if dev.Kind != apis.DeviceKindInline || !exported(r.info, key) {
		return nil, false
	}
	fn, ok := dev.Inline[key]
	return fn, ok
}

// defaultRule implements the Info.Default half of rule 4: a
// key-prepended fallback callable published by the device itself.
type defaultRule struct{ info apis.Info }

func (r defaultRule) TryDispatch(_ apis.DeviceRef, _ string) (any, bool) {
	if r.info.Default == nil {
		return nil, false
	}
	return r.info.Default, true
}

// planRules is an ordered chain of dispatch decisions: each rule is
// tried in turn,
// and the first that reports handled=true wins. Rules 1 and 5 are the
// structural bookends of spec §4.4 — substituting the default device
// and detecting the terminal failure — and stay outside the chain
// because they redirect to a different device entirely rather than
// producing a callable for the current one.
func planRules(dev apis.DeviceRef, info apis.Info) []apis.DispatchRule {
	return []apis.DispatchRule{
		handlerRule{info},
		exportRule{info},
		defaultRule{info},
	}
}

// bindDefaultRuleIndex is defaultRule's position in planRules: its
// result binds by key-prepending (fromDefault) rather than plain arity
// truncation (fromArity).
const bindDefaultRuleIndex = 2

// Plan runs the five-rule ordered dispatch of spec §4.4 for key
// against dev (already loaded per §4.3), given the input message being
// resolved and the caller's opts. input flows into every device.Info
// call so an InfoFn2 device's Handler/Exports/Default/DefaultMod can
// legitimately depend on the input it is dispatching for. It returns
// opts back with AddKey set to whether the winning rule was the
// device's key-prepending Default callable (spec §6 "add_key"), so
// later stages can tell a plain export/handler call apart from a
// default-fallback one without re-deriving it.
func Plan(dev apis.DeviceRef, input *apis.Message, key string, opts apis.Options) (Call, apis.Options, error) {
	info := device.Info(dev, input, opts)

	// A key on the Handler's exclude list goes straight to the default
	// device, bypassing this device's own exports and defaults.
	if excl, ok := info.Handler.(apis.HandlerWithExclude); ok && contains(excl.Exclude, key) && !isDefaultDevice(dev) {
		return Plan(device.Default(), input, key, opts)
	}

	for i, rule := range planRules(dev, info) {
		fn, ok := rule.TryDispatch(dev, key)
		if !ok {
			continue
		}
		if i == bindDefaultRuleIndex {
			return Call{Device: dev, Invoke: fromDefault(fn, key)}, withAddKey(opts, true), nil
		}
		if call, ok := fromArity(dev, fn); ok {
			return call, withAddKey(opts, false), nil
		}
	}

	// Rule 4's other half: the device's default_mod redirect.
	if info.DefaultMod != nil {
		modInfo := device.Info(*info.DefaultMod, input, opts)
		if call, addKey, ok := fromExportOrHandler(*info.DefaultMod, modInfo, key); ok {
			return call, withAddKey(opts, addKey), nil
		}
	}

	// Rule 5: fall back to the default device; a caller already on the
	// default device that still cannot resolve fails fatally.
	if isDefaultDevice(dev) {
		return Call{}, opts, apis.NewResolutionError(apis.KindDefaultUnresolved, "dispatch.plan", apis.ErrDefaultUnresolved)
	}
	return Plan(device.Default(), input, key, opts)
}

// withAddKey returns a copy of opts with AddKey set to addKey.
func withAddKey(opts apis.Options, addKey bool) apis.Options {
	opts.AddKey = addKey
	return opts
}

// contains reports whether key is present in list.
func contains(list []string, key string) bool {
	for _, s := range list {
		if s == key {
			return true
		}
	}
	return false
}

// fromExportOrHandler resolves key against a device reference already
// carrying its own Info, used for default_mod redirection (rule 4). It
// reports whether the resulting Call binds through the key-prepending
// Default callable.
func fromExportOrHandler(dev apis.DeviceRef, info apis.Info, key string) (Call, bool, bool) {
	if info.Handler != nil {
		if call, ok := fromArity(dev, info.Handler); ok {
			return call, false, true
		}
	}
	if dev.Kind == apis.DeviceKindInline && exported(info, key) {
		if fn, ok := dev.Inline[key]; ok {
			call, ok := fromArity(dev, fn)
			return call, false, ok
		}
	}
	if info.Default != nil {
		return Call{Device: dev, Invoke: fromDefault(info.Default, key)}, true, true
	}
	return Call{}, false, false
}

// exported reports whether key is callable on a device that publishes
// an Exports allowlist; a device with a nil Exports allows every key.
func exported(info apis.Info, key string) bool {
	if info.Exports == nil {
		return true
	}
	for _, e := range info.Exports {
		if e == key {
			return true
		}
	}
	return false
}

// fromArity truncates the call to whichever of Fn3/Fn2/Fn1 fn actually
// is, dropping surplus arguments from the tail (spec §4.4 "Arity
// truncation").
func fromArity(dev apis.DeviceRef, fn any) (Call, bool) {
	switch h := fn.(type) {
	case apis.Fn3:
		return Call{Device: dev, Invoke: func(input, sub *apis.Message, opts apis.Options) (apis.Value, error) {
			return h(input, sub, opts)
		}}, true
	case apis.Fn2:
		return Call{Device: dev, Invoke: func(input, sub *apis.Message, _ apis.Options) (apis.Value, error) {
			return h(input, sub)
		}}, true
	case apis.Fn1:
		return Call{Device: dev, Invoke: func(input, _ *apis.Message, _ apis.Options) (apis.Value, error) {
			return h(input)
		}}, true
	default:
		return Call{}, false
	}
}

// fromDefault binds a KeyFn1/KeyFn2/KeyFn3 default callable, always
// prepending key (spec §4.4 rule 4).
func fromDefault(fn any, key string) func(input, sub *apis.Message, opts apis.Options) (apis.Value, error) {
	switch h := fn.(type) {
	case apis.KeyFn3:
		return func(input, sub *apis.Message, opts apis.Options) (apis.Value, error) {
			return h(key, input, sub, opts)
		}
	case apis.KeyFn2:
		return func(input, sub *apis.Message, _ apis.Options) (apis.Value, error) {
			return h(key, input, sub)
		}
	case apis.KeyFn1:
		return func(input, _ *apis.Message, _ apis.Options) (apis.Value, error) {
			return h(key, input)
		}
	default:
		return func(*apis.Message, *apis.Message, apis.Options) (apis.Value, error) {
			return nil, apis.NewResolutionError(apis.KindDefaultUnresolved, "dispatch.plan", apis.ErrDefaultUnresolved)
		}
	}
}

// isDefaultDevice reports whether dev is (structurally) the identity
// default device, to detect rule 5's terminal condition.
func isDefaultDevice(dev apis.DeviceRef) bool {
	if dev.Kind != apis.DeviceKindInline {
		return false
	}
	_, hasSet := dev.Inline["set"]
	_, hasRemove := dev.Inline["remove"]
	_, hasKeys := dev.Inline["keys"]
	return hasSet && hasRemove && hasKeys && len(dev.Inline) == 4
}

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

package device

import "dirpx.dev/converge/apis"

// Default returns the identity/message default device (spec §4.4 rule
// 1): it returns keys as they appear in the message mapping and
// implements set, remove, and keys. Every other key falls through to
// its "info.default" callable, which either answers from the message
// directly or signals the fatal, unresolvable-key condition of rule 5.
func Default() apis.DeviceRef {
	return apis.DeviceRef{
		Kind: apis.DeviceKindInline,
		Inline: apis.DeviceMap{
			apis.KeyInfo: apis.InfoFn0(func() apis.Info {
				return apis.Info{
					Default: apis.KeyFn2(defaultGet),
				}
			}),
			"set":    apis.Fn3(defaultSet),
			"remove": apis.Fn2(defaultRemove),
			"keys":   apis.Fn1(defaultKeys),
		},
	}
}

// defaultGet answers a key directly from input, or signals that the
// default device itself could not resolve it — the terminal condition
// of dispatch rule 5.
func defaultGet(key string, input *apis.Message, _ *apis.Message) (apis.Value, error) {
	if v, ok := input.Get(key); ok {
		return v, nil
	}
	return nil, apis.NewResolutionError(apis.KindDefaultUnresolved, "device.default", nil)
}

// defaultSet applies every key of the patch message sub onto input,
// skipping the reserved hashpath key so a patch never smuggles a
// witness value into place (spec §4.9 "stripping the hashpath from
// the patch before use").
func defaultSet(input *apis.Message, sub *apis.Message, _ apis.Options) (apis.Value, error) {
	out := input
	for _, k := range sub.Keys() {
		if k == apis.KeyHashpath {
			continue
		}
		v, _ := sub.Get(k)
		out = out.With(k, v)
	}
	return out, nil
}

// defaultRemove deletes the key(s) named by sub from input. sub may be
// a bare key or a Sequence of keys.
func defaultRemove(input *apis.Message, sub *apis.Message) (apis.Value, error) {
	raw, ok := sub.Get(apis.KeyPath)
	if !ok {
		return input, nil
	}
	out := input
	switch v := raw.(type) {
	case apis.Sequence:
		for _, el := range v {
			if s, ok := el.(string); ok {
				out = out.Without(s)
			}
		}
	case string:
		out = out.Without(v)
	}
	return out, nil
}

// defaultKeys returns input's keys in insertion order; reserved-key
// filtering for "remove" mode is applied by the shortcut surface, not
// here.
func defaultKeys(input *apis.Message) (apis.Value, error) {
	keys := input.Keys()
	out := make(apis.Sequence, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out, nil
}

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

package cache

import (
	"strings"

	"dirpx.dev/converge/apis"
)

// disablingTokens are the Cache-Control directives that forbid a
// write, per spec §4.5 "neither cache-control source lists no_cache,
// no_store, or no_transform".
var disablingTokens = map[string]bool{
	"no_cache":     true,
	"no-cache":     true,
	"no_store":     true,
	"no-store":     true,
	"no_transform": true,
	"no-transform": true,
}

// controlDirectives splits msg's Cache-Control value into its
// individual directive tokens; msg may be nil.
func controlDirectives(msg *apis.Message) []string {
	raw, ok := msg.Get(apis.KeyCacheControl)
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(p)))
	}
	return out
}

// forbids reports whether msg's Cache-Control disables writes.
func forbids(msg *apis.Message) bool {
	for _, d := range controlDirectives(msg) {
		if disablingTokens[d] {
			return true
		}
	}
	return false
}

// WriteAllowed implements the three-source, options-wins precedence of
// spec §4.5 "Write": a global CacheAlways permits the write regardless
// of any Cache-Control; otherwise the result is cached iff the global
// option is not a disabling token and neither the input's nor the
// sub-input's Cache-Control lists a disabling directive.
func WriteAllowed(opts apis.Options, input, sub *apis.Message) bool {
	if opts.Cache == apis.CacheAlways {
		return true
	}
	if !opts.EffectiveCacheAllowed() {
		return false
	}
	return !forbids(input) && !forbids(sub)
}

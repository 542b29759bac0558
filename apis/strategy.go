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

// DispatchRule is a single step of the ordered dispatch plan (spec
// §4.4): handler lookup, export lookup, and the key-prepended default
// callable. A planner chains rules in a fixed order and takes the
// first that handles the call; default_mod and the preloaded identity
// device are tried after the chain, outside it.
type DispatchRule interface {
	// TryDispatch attempts to produce a callable handler for key
	// against dev. It returns (fn, true) if this rule applies;
	// otherwise (nil, false) so the planner falls through to the next
	// rule.
	TryDispatch(dev DeviceRef, key string) (fn any, handled bool)
}

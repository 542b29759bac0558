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

// Resolver drives the resolution pipeline: normalize, cache lookup,
// dispatch, deduplicate, execute, hash-link, cache write, notify.
//
// Resolve returns a Value rather than a *Message because a handler's
// terminal output may be a bare scalar (spec §4.7 stage 6, "scalars
// bypass linking") as well as a nested Message.
type Resolver interface {
	// Resolve resolves sub against input under opts, returning the
	// output value.
	Resolve(ctx context.Context, input, sub *Message, opts Options) (Value, error)

	// ResolveMessage is the single-argument form: it splits msg's
	// "path" key into the effective input and sub-input before
	// delegating to Resolve.
	ResolveMessage(ctx context.Context, msg *Message, opts Options) (Value, error)
}

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

// Cache is the memoization plane consumed by the resolver at stages 2
// and 7 (spec §4.5, §6 "Cache contract"). Implementations must be
// idempotent under identical hashpaths and safe for concurrent use.
type Cache interface {
	// Read looks up the result stored under key. It returns
	// ErrCacheMiss (wrapped) when nothing is stored.
	Read(ctx context.Context, key Hashpath) (*Message, error)
	// Write stores output under key (the hashpath the resolver
	// computed from input and sub), subject to whatever eviction policy
	// the implementation applies.
	Write(ctx context.Context, key Hashpath, output *Message) error
}

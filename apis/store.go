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

// Blob is a content-addressed unit of code or data as read from the
// store: raw bytes, the signer id that authored it, and a
// runtime-recognized content type.
type Blob struct {
	Bytes       []byte
	SignerID    string
	Signature   []byte
	ContentType string
}

// Store is the on-disk content-addressed store consumed by reference
// calls (spec §4.7 stage 1) and remote device loading (spec §4.3).
// The resolver treats it as a black box (spec §6 "Store contract");
// this repository owns only the interface plus a minimal in-memory
// implementation for tests and local tooling.
type Store interface {
	// Read fetches the blob named by a 43-character content id.
	Read(ctx context.Context, id string) (Blob, error)
}

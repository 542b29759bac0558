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

// Verifier checks that a stored blob's claimed signer id is
// authentic. Signing/verification primitives are an external
// collaborator (spec §1 "Out of scope"); the resolver only ever
// consults Verifier to decide trust, never to produce signatures.
type Verifier interface {
	// Verify reports whether blob's signature over its bytes is valid
	// for its claimed signer id.
	Verify(blob Blob) bool
}

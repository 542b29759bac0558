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

// Package hashpath computes the cryptographic accumulator that
// witnesses a resolution chain: hashpath(output) = H(hashpath(input)
// || commit(sub-input)), per spec §3 "Hashpath" and §4.1.
package hashpath

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"dirpx.dev/converge/apis"
)

// canonicalEncMode is a deterministic CBOR encoding mode: map keys are
// sorted per RFC 8949 §4.2.1 so that logically identical sub-inputs
// always commit to the same bytes regardless of map iteration order.
var canonicalEncMode = mustCanonicalMode()

func mustCanonicalMode() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

// Commit canonically encodes v so that Push is deterministic across
// map key orderings.
func Commit(v apis.Value) ([]byte, error) {
	return canonicalEncMode.Marshal(v)
}

// Push computes the next hashpath in the chain: blake3(prev ||
// commit(sub)). prev may be the zero Hashpath for the first step in a
// chain, in which case the accumulator starts fresh from sub alone.
func Push(prev apis.Hashpath, sub apis.Value) (apis.Hashpath, error) {
	committed, err := Commit(sub)
	if err != nil {
		return apis.Hashpath{}, err
	}
	h := blake3.New()
	if !prev.IsZero() {
		h.Write(prev[:])
	}
	h.Write(committed)
	var out apis.Hashpath
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Root computes the hashpath of a value with no prior chain, i.e.
// Push(zero-Hashpath, v).
func Root(v apis.Value) (apis.Hashpath, error) {
	return Push(apis.Hashpath{}, v)
}

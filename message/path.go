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

// Package message implements the path algebra of spec §4.1: parsing,
// splitting, and pushing elements of a hierarchical path carried under
// a message's reserved "path" key, plus the hashpath chaining that
// links one resolution step to the next.
package message

import (
	"fmt"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/hashpath"
)

// TermToPath wraps an atomic term as a single-element path. If x is
// already an apis.Sequence, it is returned unchanged.
func TermToPath(x apis.Value) apis.Sequence {
	if seq, ok := x.(apis.Sequence); ok {
		return seq
	}
	return apis.Sequence{x}
}

// Head returns the first element of msg's path, or the whole
// path-value when it is atomic (not a Sequence). The second return
// value is false when msg carries no "path" key.
func Head(msg *apis.Message) (apis.Value, bool) {
	raw, ok := msg.Get(apis.KeyPath)
	if !ok {
		return nil, false
	}
	seq := TermToPath(raw)
	if len(seq) == 0 {
		return nil, false
	}
	return seq[0], true
}

// Tail returns a new message equal to msg but with its "path" key
// replaced by the residual elements after the head. The second return
// value is false when the path is already terminal (single element or
// atomic), the sentinel meaning "no further recursion".
func Tail(msg *apis.Message) (*apis.Message, bool) {
	raw, ok := msg.Get(apis.KeyPath)
	if !ok {
		return msg, false
	}
	seq := TermToPath(raw)
	if len(seq) <= 1 {
		return msg.Without(apis.KeyPath), false
	}
	rest := make(apis.Sequence, len(seq)-1)
	copy(rest, seq[1:])
	return msg.With(apis.KeyPath, rest), true
}

// IsTerminal reports whether msg's path has at most one element,
// signaling resolution completion for the current chain (spec §3
// "Path").
func IsTerminal(msg *apis.Message) bool {
	_, more := Tail(msg)
	return !more
}

// Push computes the next hashpath by committing to sub under prev,
// the pure operation invoked at resolver stage 6 (spec §4.7).
func Push(prev apis.Hashpath, sub apis.Value) (apis.Hashpath, error) {
	return hashpath.Push(prev, sub)
}

// RenderKey renders a composite key (a Sequence of path elements, or
// an atomic term) as its canonical path string form, joining elements
// with "/" the way a filesystem-style hierarchical selector would.
func RenderKey(x apis.Value) string {
	seq := TermToPath(x)
	out := ""
	for i, el := range seq {
		if i > 0 {
			out += "/"
		}
		out += fmt.Sprint(el)
	}
	return out
}

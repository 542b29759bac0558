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

package hashpath_test

import (
	"testing"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/hashpath"
)

func TestPush_Deterministic(t *testing.T) {
	prev, err := hashpath.Root("seed")
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}

	a, err := hashpath.Push(prev, map[string]any{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	b, err := hashpath.Push(prev, map[string]any{"a": 2, "b": 1})
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("Push not order-independent: %s vs %s", a, b)
	}
}

func TestPush_StrictlyExtends(t *testing.T) {
	m0, err := hashpath.Root("m0")
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	m1, err := hashpath.Push(m0, "step1")
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	m2, err := hashpath.Push(m1, "step2")
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	if m0 == m1 || m1 == m2 || m0 == m2 {
		t.Fatalf("hashpath chain did not strictly extend: %s, %s, %s", m0, m1, m2)
	}
}

func TestPush_DifferentSubInputsDiverge(t *testing.T) {
	prev, err := hashpath.Root("seed")
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	a, err := hashpath.Push(prev, "x")
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	b, err := hashpath.Push(prev, "y")
	if err != nil {
		t.Fatalf("Push: unexpected error: %v", err)
	}
	if a == b {
		t.Fatalf("Push(x) == Push(y): %s", a)
	}
}

func TestHashpath_StringRoundTrip(t *testing.T) {
	h, err := hashpath.Root("v")
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if got := len(h.String()); got != 64 {
		t.Fatalf("String() length = %d, want 64 (32 bytes hex)", got)
	}
	var zero apis.Hashpath
	if !zero.IsZero() {
		t.Fatalf("zero-value Hashpath.IsZero() = false, want true")
	}
	if h.IsZero() {
		t.Fatalf("Root() output IsZero() = true, want false")
	}
}

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

package key_test

import (
	"strings"
	"testing"

	"dirpx.dev/converge/key"
)

func TestToKey_CaseInsensitive(t *testing.T) {
	if got, want := key.ToKey("Key1"), "key1"; got != want {
		t.Fatalf("ToKey(Key1) = %q, want %q", got, want)
	}
	if got, want := key.ToKey("KEY1"), "key1"; got != want {
		t.Fatalf("ToKey(KEY1) = %q, want %q", got, want)
	}
}

func TestToKey_SymbolShortcut(t *testing.T) {
	sym := key.Intern("device")
	if got, want := key.ToKey("Device"), sym.String(); got != want {
		t.Fatalf("ToKey(Device) = %q, want %q", got, want)
	}
}

func TestToKey_ContentIDPassthrough(t *testing.T) {
	id := strings.Repeat("a", key.ContentIDLen)
	if got := key.ToKey(id); got != id {
		t.Fatalf("ToKey(id) = %q, want unchanged %q", got, id)
	}
}

func TestToKey_Undefined(t *testing.T) {
	if got := key.ToKey(3.14); got != key.Undefined {
		t.Fatalf("ToKey(3.14) = %q, want Undefined", got)
	}
	if got := key.ToKey(nil); got != key.Undefined {
		t.Fatalf("ToKey(nil) = %q, want Undefined", got)
	}
}

func TestKeyToBinary_AlwaysCanonical(t *testing.T) {
	key.Intern("binarykey")
	if got, want := key.KeyToBinary("BinaryKey"), "binarykey"; got != want {
		t.Fatalf("KeyToBinary(BinaryKey) = %q, want %q", got, want)
	}
}

func TestEqual_RepresentationEquivalence(t *testing.T) {
	sym := key.Intern("key1")
	if !key.Equal("Key1", sym) {
		t.Fatalf("Equal(Key1, symbol key1) = false, want true")
	}
	if !key.Equal("key1", "KEY1") {
		t.Fatalf("Equal(key1, KEY1) = false, want true")
	}
	if key.Equal("key1", "key2") {
		t.Fatalf("Equal(key1, key2) = true, want false")
	}
}

func TestSymbolIntern_Idempotent(t *testing.T) {
	a := key.Intern("shared")
	b := key.Intern("Shared")
	if a != b {
		t.Fatalf("Intern(shared) != Intern(Shared): %v vs %v", a, b)
	}
}

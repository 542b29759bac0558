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

// Package key canonicalizes heterogeneous key representations
// (textual, symbolic, integral, id-shaped) into the byte-string key
// space a device operates on, per spec §4.2.
package key

import (
	"strconv"
	"strings"
)

// ContentIDLen is the length of a 43-character content-addressed id,
// the boundary-reserved shape that to_key passes through unchanged.
const ContentIDLen = 43

// Undefined is the sentinel returned by ToKey and KeyToBinary when k
// cannot be normalized. Callers decide whether that is fatal.
const Undefined = ""

// ToKey canonicalizes k: a 43-character id is returned unchanged;
// otherwise, if the lowercased textual form is already interned as a
// Symbol, its symbolic string is returned; otherwise the canonical
// byte-string form is returned. Failures yield Undefined.
func ToKey(k any) string {
	switch v := k.(type) {
	case nil:
		return Undefined
	case string:
		return toKeyString(v)
	case Symbol:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []byte:
		return toKeyString(string(v))
	default:
		return Undefined
	}
}

func toKeyString(s string) string {
	if len(s) == ContentIDLen {
		return s
	}
	lower := strings.ToLower(s)
	if sym, ok := Symbols.Lookup(lower); ok {
		return sym.String()
	}
	return lower
}

// KeyToBinary always returns the byte-string form of k, bypassing any
// symbol-table shortcut.
func KeyToBinary(k any) string {
	switch v := k.(type) {
	case nil:
		return Undefined
	case string:
		return strings.ToLower(v)
	case Symbol:
		return strings.ToLower(v.String())
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []byte:
		return strings.ToLower(string(v))
	default:
		return Undefined
	}
}

// Equal reports whether a and b normalize to the same key, giving
// case/representation equivalence (spec §8 scenario 8).
func Equal(a, b any) bool {
	ka, kb := KeyToBinary(a), KeyToBinary(b)
	if ka == Undefined || kb == Undefined {
		return false
	}
	return ka == kb
}

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

// Package apis defines the pure contracts of the Converge resolver:
// the message value model, the device and dispatch contracts, and the
// interfaces that the resolver, cache plane, deduplication plane, and
// device loader consume. Concrete implementations live in sibling
// packages (message, device, dispatch, cache, group, resolver, ...);
// apis exists so those packages can depend on shared shapes without
// depending on each other.
package apis

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Reserved keys with special resolution semantics (spec §3).
const (
	KeyDevice       = "device"
	KeyPath         = "path"
	KeyHashpath     = "hashpath"
	KeyCacheControl = "Cache-Control"
)

// Symbol is an interned, canonical key or scalar. Two Symbols with the
// same text always compare equal; comparison is a plain string compare.
type Symbol string

// Value is anything a Message key can map to: a nested *Message, a
// scalar (Bytes, int64, float64, bool, Symbol), or an ordered
// sequence of Values. Value is intentionally `any` — the resolver
// deals with heterogeneous, dynamically-typed data, the same way an
// Erlang map value would.
type Value any

// Sequence is an ordered list of Values, the wire shape for a
// composite/list-valued message field.
type Sequence []Value

// Hashpath is the 32-byte cryptographic accumulator that witnesses a
// resolution chain (spec §3 "Hashpath"). The zero Hashpath means "no
// hashpath yet" and is distinguishable via Message.Hashpath's ok flag.
type Hashpath [32]byte

// String renders the hashpath as lowercase hex, the canonical form
// used in logs and cache keys.
func (h Hashpath) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hashpath.
func (h Hashpath) IsZero() bool {
	return h == Hashpath{}
}

// Message is an immutable mapping from canonical string keys to
// Values, carrying an optional Hashpath witness. "Mutating" a Message
// always produces a new Message; callers never observe a Message
// change out from under them once constructed (spec §3 "Lifecycle").
//
// Keys are stored in their canonical byte-string form (see package
// key for normalization); callers working with symbolic or integral
// key spellings should route through key.ToKey before calling into a
// Message directly.
type Message struct {
	order []string
	vals  map[string]Value
	hp    Hashpath
	hasHP bool
}

// New returns an empty Message.
func New() *Message {
	return &Message{vals: make(map[string]Value)}
}

// FromMap builds a Message from a plain Go map, in the map's
// (unspecified) iteration order. Use With repeatedly when a stable
// key order matters.
func FromMap(m map[string]Value) *Message {
	msg := New()
	for k, v := range m {
		msg = msg.With(k, v)
	}
	return msg
}

// Get returns the value at key and whether it was present.
func (m *Message) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present in m.
func (m *Message) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// With returns a new Message equal to m with key set to value. The
// original Message is never modified.
func (m *Message) With(key string, value Value) *Message {
	out := m.clone()
	if _, exists := out.vals[key]; !exists {
		out.order = append(out.order, key)
	}
	out.vals[key] = value
	return out
}

// Without returns a new Message equal to m with key removed.
func (m *Message) Without(key string) *Message {
	out := m.clone()
	if _, exists := out.vals[key]; !exists {
		return out
	}
	delete(out.vals, key)
	for i, k := range out.order {
		if k == key {
			out.order = append(out.order[:i:i], out.order[i+1:]...)
			break
		}
	}
	return out
}

// Keys returns the message's keys in insertion order.
func (m *Message) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of keys in m.
func (m *Message) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Hashpath returns m's hashpath witness and whether one has been set.
func (m *Message) Hashpath() (Hashpath, bool) {
	if m == nil {
		return Hashpath{}, false
	}
	return m.hp, m.hasHP
}

// WithHashpath returns a new Message equal to m with its hashpath set
// to hp.
func (m *Message) WithHashpath(hp Hashpath) *Message {
	out := m.clone()
	out.hp = hp
	out.hasHP = true
	return out
}

// clone performs the copy-on-write step shared by every mutator.
func (m *Message) clone() *Message {
	out := &Message{
		vals: make(map[string]Value, len(m.Keys())+1),
	}
	if m == nil {
		return out
	}
	out.order = append(out.order, m.order...)
	for k, v := range m.vals {
		out.vals[k] = v
	}
	out.hp = m.hp
	out.hasHP = m.hasHP
	return out
}

// String implements fmt.Stringer for debugging and log fields; it is
// not the wire format.
func (m *Message) String() string {
	if m == nil {
		return "<nil message>"
	}
	return fmt.Sprintf("Message{keys=%v}", m.Keys())
}

// MarshalCBOR implements cbor.Marshaler, giving Message a wire form
// despite its unexported fields: a plain key/value map, canonically
// encoded by callers (the hashpath package's commit step, the store
// blob encoding used for reference calls). Key order is not preserved
// across the wire; canonical CBOR sorts map keys anyway, which is what
// makes hashpath commitment order-independent.
func (m *Message) MarshalCBOR() ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return em.Marshal(nil)
	}
	out := make(map[string]Value, len(m.vals))
	for k, v := range m.vals {
		out[k] = v
	}
	return em.Marshal(out)
}

// UnmarshalCBOR implements cbor.Unmarshaler, reconstructing a Message
// from the map shape MarshalCBOR produces. Key order becomes whatever
// order the decoded map iterates in, since order was not preserved on
// the wire.
func (m *Message) UnmarshalCBOR(data []byte) error {
	dm, err := cbor.DecOptions{IntDec: cbor.IntDecConvertSigned}.DecMode()
	if err != nil {
		return err
	}
	var raw map[string]Value
	if err := dm.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = *FromMap(raw)
	return nil
}

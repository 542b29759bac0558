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

package store_test

import (
	"context"
	"testing"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/key"
	"dirpx.dev/converge/store"
)

func TestMemory_PutThenReadRoundTrips(t *testing.T) {
	m := store.NewMemory()
	id := m.Put(apis.Blob{Bytes: []byte("hello"), SignerID: "s1", ContentType: "application/vnd.converge.device+cbor"})

	if len(id) != key.ContentIDLen {
		t.Fatalf("Put id length = %d, want %d", len(id), key.ContentIDLen)
	}

	blob, err := m.Read(context.Background(), id)
	if err != nil {
		t.Fatalf("Read: unexpected error: %v", err)
	}
	if string(blob.Bytes) != "hello" || blob.SignerID != "s1" {
		t.Fatalf("Read = %+v, want matching blob", blob)
	}
}

func TestMemory_ReadMissingFails(t *testing.T) {
	m := store.NewMemory()
	if _, err := m.Read(context.Background(), "does-not-exist"); err == nil {
		t.Fatalf("Read: want error for missing id")
	}
}

func TestMemory_PutIsContentAddressed(t *testing.T) {
	m := store.NewMemory()
	id1 := m.Put(apis.Blob{Bytes: []byte("same")})
	id2 := m.Put(apis.Blob{Bytes: []byte("same")})
	if id1 != id2 {
		t.Fatalf("Put(same bytes) ids differ: %q vs %q", id1, id2)
	}
}

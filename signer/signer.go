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

// Package signer provides the default apis.Verifier: Ed25519 signature
// checking over a keyring of trusted signer public keys, the signing
// primitive spec §1 names as an external collaborator whose interface
// (not implementation) belongs to this repository.
package signer

import (
	"crypto/ed25519"
	"sync"

	"dirpx.dev/converge/apis"
)

// Keyring is a concurrency-safe map from signer id to Ed25519 public
// key, consulted by Verify.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

var _ apis.Verifier = (*Keyring)(nil)

// NewKeyring returns an empty Keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]ed25519.PublicKey)}
}

// Trust registers pub as signerID's public key. Re-registering the
// same id with a different key replaces the old one.
func (k *Keyring) Trust(signerID string, pub ed25519.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[signerID] = pub
}

// Revoke removes signerID from the keyring.
func (k *Keyring) Revoke(signerID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, signerID)
}

// Verify implements apis.Verifier: blob.Signature must be a valid
// Ed25519 signature over blob.Bytes under blob.SignerID's registered
// public key. An unregistered signer id never verifies.
func (k *Keyring) Verify(blob apis.Blob) bool {
	k.mu.RLock()
	pub, ok := k.keys[blob.SignerID]
	k.mu.RUnlock()
	if !ok || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, blob.Bytes, blob.Signature)
}

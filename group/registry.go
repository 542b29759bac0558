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

// Package group implements the intra-node deduplication plane of spec
// §4.6: process-group join/leave/members, leader election, and the
// notify sweep that wakes joiners once the leader's result is ready.
package group

import (
	"sync"

	"github.com/google/uuid"

	"dirpx.dev/converge/apis"
)

// NewID returns a fresh, unique process identity for group membership.
func NewID() string {
	return uuid.NewString()
}

// Registry is a sharded, concurrency-safe implementation of
// apis.GroupRegistry: a map of group key to member set, guarded
// per-shard the way spec §9's design notes recommend ("a sharded
// hash-map guarded by per-group mutexes").
type Registry struct {
	shards [shardCount]shard
}

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	members map[string][]string
}

var _ apis.GroupRegistry = (*Registry)(nil)

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].members = make(map[string][]string)
	}
	return r
}

func (r *Registry) shardFor(group string) *shard {
	h := fnv32(group)
	return &r.shards[h%shardCount]
}

func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// Join registers self as a member of group, returning true if self
// became the leader (group was previously empty).
func (r *Registry) Join(group string, self string) bool {
	sh := r.shardFor(group)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	existing := sh.members[group]
	leader := len(existing) == 0
	sh.members[group] = append(existing, self)
	return leader
}

// Leave removes self from group.
func (r *Registry) Leave(group string, self string) {
	sh := r.shardFor(group)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	members := sh.members[group]
	for i, m := range members {
		if m == self {
			sh.members[group] = append(members[:i:i], members[i+1:]...)
			break
		}
	}
	if len(sh.members[group]) == 0 {
		delete(sh.members, group)
	}
}

// Members returns the current membership of group, in join order.
func (r *Registry) Members(group string) []string {
	sh := r.shardFor(group)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	out := make([]string, len(sh.members[group]))
	copy(out, sh.members[group])
	return out
}

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

package group

import (
	"context"

	"golang.org/x/sync/singleflight"

	"dirpx.dev/converge/apis"
)

// Coordinator implements the join/leader/notify protocol of spec §4.6
// on top of singleflight.Group: the first caller for a given key
// becomes the leader and executes fn; concurrent callers with the same
// key block and receive the leader's result — exactly the "at most
// once" property of spec §8.
type Coordinator struct {
	sf  singleflight.Group
	reg *Registry
}

// NewCoordinator constructs a Coordinator whose worker-handoff records
// live in reg.
func NewCoordinator(reg *Registry) *Coordinator {
	return &Coordinator{reg: reg}
}

// Resolve runs fn for key, deduplicating concurrent identical calls.
// shared reports whether fn's result was handed to more than one
// caller, so it is true for the leader too when others joined; a
// caller whose ctx expires always reports true. A joiner whose
// ctx expires before the leader finishes reports a local timeout
// without unregistering the leader, which keeps running fn to
// completion for whoever else is waiting on it (spec §5 "Joiners may
// specify a timeout on their receive; on timeout they report a local
// failure without unregistering the leader").
func (c *Coordinator) Resolve(ctx context.Context, key string, fn func() (apis.Value, error)) (result apis.Value, err error, shared bool) {
	ch := c.sf.DoChan(key, func() (any, error) {
		return fn()
	})
	select {
	case res := <-ch:
		if res.Val == nil {
			return nil, res.Err, res.Shared
		}
		return res.Val.(apis.Value), res.Err, res.Shared
	case <-ctx.Done():
		return nil, ctx.Err(), true
	}
}

// PromoteToWorker atomically hands the group off to a spawned worker
// (spec §4.6 "Leader obligations": "atomically leaves and joins the
// spawned worker in its place"). Future callers reaching WorkerFor for
// the same key bypass singleflight entirely and message the worker.
func (c *Coordinator) PromoteToWorker(key string, workerID string) {
	c.reg.Join(key, workerID)
}

// WorkerFor reports the worker handle promoted for key, if any.
func (c *Coordinator) WorkerFor(key string) (string, bool) {
	members := c.reg.Members(key)
	if len(members) == 0 {
		return "", false
	}
	return members[0], true
}

// Registry exposes the underlying group registry for callers needing
// direct join/leave/members access (e.g. reentrancy checks via
// apis.Options.Groups).
func (c *Coordinator) Registry() *Registry {
	return c.reg
}

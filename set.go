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

package converge

import (
	"context"
	"errors"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/key"
	"dirpx.dev/converge/message"
)

// scalarValueKey is where a bare scalar resolved mid-descent is
// stashed so SetPath can still treat it as a message to patch,
// mirroring how the resolver wraps a scalar output for path
// recursion (resolver.asMessage).
const scalarValueKey = "value"

// Set implements spec §4.9's set(msg, patch [, opts]): patch is
// interpreted as a message whose keys are applied onto msg by
// invoking msg's device's own "set" handler, after stripping the
// reserved hashpath key from patch so a caller-supplied witness can
// never be smuggled into place.
func Set(ctx context.Context, msg *apis.Message, patch *apis.Message, opts ...apis.Options) (*apis.Message, error) {
	o := effectiveOptions(opts)
	out, err := dispatchOp(ctx, msg, "set", patch.Without(apis.KeyHashpath), o)
	if err != nil {
		return nil, err
	}
	outMsg, ok := out.(*apis.Message)
	if !ok {
		return nil, apis.NewResolutionError(apis.KindDeviceCall, "converge.set", errors.New("set handler returned a non-message value"))
	}
	return outMsg, nil
}

// SetPath implements spec §4.9's set(msg, key, value [, opts]) deep
// set: path is descended one element at a time via the global
// resolver, the leaf is mutated with Set, and every ancestor along
// the way is rebuilt by re-invoking its own device's "set" with the
// child's new state — so a device that records a side effect on set
// (e.g. a "modified" flag) sees one for every ancestor, not just the
// leaf.
func SetPath(ctx context.Context, msg *apis.Message, path apis.Value, value apis.Value, opts ...apis.Options) (*apis.Message, error) {
	o := effectiveOptions(opts)
	return setPath(ctx, msg, message.TermToPath(path), value, o)
}

func setPath(ctx context.Context, msg *apis.Message, seq apis.Sequence, value apis.Value, opts apis.Options) (*apis.Message, error) {
	head := seq[0]
	headKey := key.ToKey(head)

	if len(seq) == 1 {
		return Set(ctx, msg, apis.New().With(headKey, value), opts)
	}

	sub := apis.New().With(apis.KeyPath, head)
	childVal, err := Resolver().Resolve(ctx, msg, sub, opts)
	if err != nil {
		return nil, err
	}

	updatedChild, err := setPath(ctx, asMessage(childVal), seq[1:], value, opts)
	if err != nil {
		return nil, err
	}
	return Set(ctx, msg, apis.New().With(headKey, updatedChild), opts)
}

// asMessage coerces a resolved value into a *apis.Message for further
// descent: a Message is used as-is, a bare scalar is wrapped under
// scalarValueKey.
func asMessage(v apis.Value) *apis.Message {
	if m, ok := v.(*apis.Message); ok {
		return m
	}
	return apis.New().With(scalarValueKey, v)
}

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

	"dirpx.dev/converge/apis"
)

// Get implements spec §4.9's get(path, msg [, default [, opts]]):
// resolves path against msg through the global resolver, returning
// def on any resolution failure rather than an error.
func Get(ctx context.Context, path apis.Value, msg *apis.Message, def apis.Value, opts ...apis.Options) apis.Value {
	sub := apis.New().With(apis.KeyPath, path)
	out, err := Resolver().Resolve(ctx, msg, sub, effectiveOptions(opts))
	if err != nil {
		return def
	}
	return out
}

// GetAs implements the "{as, device, msg}" override wrapper: it
// resolves path as though msg's device were dev, for one call only.
// msg.With already preserves msg's own hashpath through the clone, so
// the override never disturbs the chain the caller is already in.
func GetAs(ctx context.Context, dev apis.DeviceRef, path apis.Value, msg *apis.Message, def apis.Value, opts ...apis.Options) apis.Value {
	return Get(ctx, path, msg.With(apis.KeyDevice, dev), def, opts...)
}

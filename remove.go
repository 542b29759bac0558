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
)

// Remove implements spec §4.9's remove(msg, key [, opts]): it
// delegates to msg's device's own "remove" handler, passing keyOrKeys
// (a bare key or an apis.Sequence of keys) as the removal payload.
func Remove(ctx context.Context, msg *apis.Message, keyOrKeys apis.Value, opts ...apis.Options) (*apis.Message, error) {
	o := effectiveOptions(opts)
	sub := apis.New().With(apis.KeyPath, keyOrKeys)
	out, err := dispatchOp(ctx, msg, "remove", sub, o)
	if err != nil {
		return nil, err
	}
	outMsg, ok := out.(*apis.Message)
	if !ok {
		return nil, apis.NewResolutionError(apis.KindDeviceCall, "converge.remove", errors.New("remove handler returned a non-message value"))
	}
	return outMsg, nil
}

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

// KeysMode selects Keys' filtering behavior (spec §4.9 "keys(msg
// [, opts [, mode]])").
type KeysMode int

const (
	// KeysAll returns every key the device enumerates, unfiltered.
	KeysAll KeysMode = iota
	// KeysRemove filters out the well-known reserved keys, the shape
	// a caller wants before handing the result to Remove.
	KeysRemove
)

// reservedKeys is the well-known list KeysRemove filters (spec §3
// "Reserved keys").
var reservedKeys = map[string]bool{
	apis.KeyDevice:       true,
	apis.KeyPath:         true,
	apis.KeyHashpath:     true,
	apis.KeyCacheControl: true,
}

// Keys implements spec §4.9's keys(msg [, opts [, mode]]): it
// delegates to msg's device's own "keys" handler, then, in
// KeysRemove mode, filters the well-known reserved keys out of the
// result.
func Keys(ctx context.Context, msg *apis.Message, mode KeysMode, opts ...apis.Options) ([]string, error) {
	o := effectiveOptions(opts)
	out, err := dispatchOp(ctx, msg, "keys", apis.New(), o)
	if err != nil {
		return nil, err
	}
	seq, ok := out.(apis.Sequence)
	if !ok {
		return nil, apis.NewResolutionError(apis.KindDeviceCall, "converge.keys", errors.New("keys handler returned a non-sequence value"))
	}

	result := make([]string, 0, len(seq))
	for _, v := range seq {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if mode == KeysRemove && reservedKeys[s] {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

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
	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/hashpath"
)

// Key computes the deduplication group key for (input, sub, opts): the
// device's Group hook when dev publishes one, otherwise the default
// tuple key derived from committing sub under input's hashpath (spec
// §4.6 "Group key").
func Key(dev apis.DeviceRef, info apis.Info, input, sub *apis.Message, opts apis.Options) (string, error) {
	if info.Group != nil {
		return info.Group(input, sub, opts), nil
	}
	prev, _ := input.Hashpath()
	h, err := hashpath.Push(prev, sub)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

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

package device

import "dirpx.dev/converge/apis"

// Info extracts a device's published metadata (spec §3 "Device info")
// by invoking its "info" export, if any. A device with no "info"
// export has zero-value Info.
func Info(dev apis.DeviceRef, input *apis.Message, opts apis.Options) apis.Info {
	if dev.Kind != apis.DeviceKindInline {
		return apis.Info{}
	}
	raw, ok := dev.Inline[apis.KeyInfo]
	if !ok {
		return apis.Info{}
	}
	switch fn := raw.(type) {
	case apis.InfoFn0:
		return fn()
	case apis.InfoFn2:
		return fn(input, opts)
	default:
		return apis.Info{}
	}
}

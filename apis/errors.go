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

package apis

import (
	"errors"
	"fmt"
)

// Kind enumerates the resolution failure taxonomy of spec §7 "Kinds".
type Kind string

const (
	KindDeviceNotLoadable    Kind = "device_not_loadable"
	KindDeviceCall           Kind = "device_call"
	KindDefaultUnresolved    Kind = "default_device_could_not_resolve_key"
	KindRemoteDevicesOff     Kind = "remote_devices_disabled"
	KindSignerNotTrusted     Kind = "device_signer_not_trusted"
	KindModuleNotAdmissable  Kind = "module_not_admissable"
	KindCacheMiss            Kind = "cache_miss"
)

// Sentinel errors, checkable with errors.Is, one per failure kind
// that can surface without extra context.
var (
	ErrDeviceNotLoadable   = errors.New("converge: device not loadable")
	ErrRemoteDevicesOff    = errors.New("converge: remote devices disabled")
	ErrSignerNotTrusted    = errors.New("converge: device signer not trusted")
	ErrModuleNotAdmissable = errors.New("converge: symbolic device not admissable")
	ErrDefaultUnresolved   = errors.New("converge: default device could not resolve key")
	ErrCacheMiss           = errors.New("converge: cache miss")
	ErrNilInput            = errors.New("converge: nil input message")
	ErrWorkerTerminated    = errors.New("converge: worker has terminated")
)

// ResolutionError is the structured failure shape stage boundaries
// return under options.error_strategy == "return" (spec §7
// "Propagation"). Whence names the stage or component that raised it.
type ResolutionError struct {
	Kind   Kind
	Whence string
	Cause  error
	Stack  string
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("converge: %s (%s): %v", e.Kind, e.Whence, e.Cause)
	}
	return fmt.Sprintf("converge: %s (%s)", e.Kind, e.Whence)
}

// Unwrap exposes the original cause to errors.Is/errors.As.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// NewResolutionError builds a ResolutionError, capturing a lightweight
// stack marker: Stack is always set to the whence string, and no Go
// stack trace is captured.
func NewResolutionError(kind Kind, whence string, cause error) *ResolutionError {
	return &ResolutionError{Kind: kind, Whence: whence, Cause: cause, Stack: whence}
}

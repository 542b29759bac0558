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

import (
	"context"
	"errors"
	"sync"

	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/key"
)

// acceptedContentTypes lists the blob content types the local runtime
// recognizes as a loadable device descriptor (spec §4.3 "declare a
// content-type compatible with the local runtime").
var acceptedContentTypes = map[string]bool{
	"application/vnd.converge.device+cbor": true,
	"application/vnd.converge.device+json": true,
}

// remoteLoadCache memoizes successfully verified content-addressed
// device loads by content id, the same sync.Map memoization shape the
// reflection-based type namer uses for its typeNameCache, adapted here
// from "resolved type name" to "resolved, trust-checked device".
var remoteLoadCache sync.Map // map[string]apis.DeviceRef

// RefFromInput implements dispatch rule 1: use input's declared
// device, or the default identity device when none is declared
// (spec §4.4 "the device named on input, or the default device").
func RefFromInput(input *apis.Message) apis.DeviceRef {
	raw, ok := input.Get(apis.KeyDevice)
	if !ok {
		return Default()
	}
	switch v := raw.(type) {
	case apis.DeviceRef:
		return v
	case string:
		if len(v) == key.ContentIDLen {
			return apis.DeviceRef{Kind: apis.DeviceKindContent, Content: v}
		}
		return apis.DeviceRef{Kind: apis.DeviceKindSymbolic, Symbolic: v}
	default:
		return Default()
	}
}

// Load resolves ref to a loadable device, honoring opts' trust
// policy, per spec §4.3.
func Load(ctx context.Context, ref apis.DeviceRef, opts apis.Options, reg apis.DeviceRegistry, store apis.Store, verifier apis.Verifier) (apis.DeviceRef, error) {
	switch ref.Kind {
	case apis.DeviceKindInline:
		return ref, nil

	case apis.DeviceKindSymbolic:
		return loadSymbolic(ref, opts, reg)

	case apis.DeviceKindContent:
		return loadContent(ctx, ref, opts, reg, store, verifier)

	default:
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindModuleNotAdmissable, "device.load", errors.New("unknown device kind"))
	}
}

func loadSymbolic(ref apis.DeviceRef, opts apis.Options, reg apis.DeviceRegistry) (apis.DeviceRef, error) {
	if reg != nil {
		if d, ok := reg.Lookup(ref.Symbolic); ok {
			return d, nil
		}
	}
	if d, ok := opts.PreloadedDevices[ref.Symbolic]; ok {
		return d, nil
	}
	return apis.DeviceRef{}, apis.NewResolutionError(apis.KindModuleNotAdmissable, "device.load", apis.ErrModuleNotAdmissable)
}

func loadContent(ctx context.Context, ref apis.DeviceRef, opts apis.Options, reg apis.DeviceRegistry, store apis.Store, verifier apis.Verifier) (apis.DeviceRef, error) {
	if !opts.LoadRemoteDevices {
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindRemoteDevicesOff, "device.load", apis.ErrRemoteDevicesOff)
	}
	if cached, ok := remoteLoadCache.Load(ref.Content); ok {
		return cached.(apis.DeviceRef), nil
	}
	if store == nil {
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindDeviceNotLoadable, "device.load", errors.New("no store configured"))
	}

	blob, err := store.Read(ctx, ref.Content)
	if err != nil {
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindDeviceNotLoadable, "device.load", err)
	}

	if _, trusted := opts.TrustedDeviceSigners[blob.SignerID]; !trusted {
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindSignerNotTrusted, "device.load", apis.ErrSignerNotTrusted)
	}
	if verifier != nil && !verifier.Verify(blob) {
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindSignerNotTrusted, "device.load", apis.ErrSignerNotTrusted)
	}
	if !acceptedContentTypes[blob.ContentType] {
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindDeviceNotLoadable, "device.load", errors.New("incompatible content type: "+blob.ContentType))
	}

	installed, ok := opts.PreloadedDevices[ref.Content]
	if !ok {
		return apis.DeviceRef{}, apis.NewResolutionError(apis.KindDeviceNotLoadable, "device.load", errors.New("no installed implementation for content id"))
	}

	if reg != nil {
		_ = reg.Register(ref.Content, installed)
	}
	remoteLoadCache.Store(ref.Content, installed)
	return installed, nil
}

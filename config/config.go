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

// Package config builds apis.Config values: the process-wide trust
// policy and resolution defaults a Builder constructs a Resolver from,
// as distinct from the per-call apis.Options a caller supplies to a
// single Resolve. Config is normally loaded once at process start,
// either through the functional-option constructor or from a YAML
// trust-policy file (Load).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dirpx.dev/converge/apis"
)

const (
	// DefaultLoadRemoteDevices is the out-of-the-box remote-loading
	// posture: disabled, since trusting a signer requires an explicit
	// operator decision (spec §4.3).
	DefaultLoadRemoteDevices = false
	// DefaultCacheMode is the out-of-the-box cache-control posture.
	DefaultCacheMode = apis.CacheDefault
	// DefaultWorkerIdleTimeoutSeconds bounds how long a spawned worker
	// idles before self-terminating when a call does not override
	// worker_timeout. Zero means apis.WorkerTimeoutInfinite.
	DefaultWorkerIdleTimeoutSeconds = 0
)

// NewConfig constructs an apis.Config from the given options, starting
// from DefaultConfig.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// DefaultConfig is the configuration used when none is provided: no
// remote device loading, no trusted signers, ordinary cache
// negotiation, no preloaded devices.
func DefaultConfig() apis.Config {
	return apis.Config{
		LoadRemoteDevices:        DefaultLoadRemoteDevices,
		TrustedDeviceSigners:     nil,
		DefaultCacheMode:         DefaultCacheMode,
		WorkerIdleTimeoutSeconds: DefaultWorkerIdleTimeoutSeconds,
		PreloadedDevices:         nil,
	}
}

// Option is a functional option that mutates an apis.Config during
// construction.
type Option func(*apis.Config)

// WithLoadRemoteDevices sets the LoadRemoteDevices default.
func WithLoadRemoteDevices(enabled bool) Option {
	return func(c *apis.Config) {
		c.LoadRemoteDevices = enabled
	}
}

// WithTrustedSigners sets the trusted signer id list, replacing any
// previously configured signers.
func WithTrustedSigners(ids ...string) Option {
	return func(c *apis.Config) {
		c.TrustedDeviceSigners = append([]string(nil), ids...)
	}
}

// WithDefaultCacheMode sets the default global cache-control mode.
func WithDefaultCacheMode(mode apis.CacheMode) Option {
	return func(c *apis.Config) {
		c.DefaultCacheMode = mode
	}
}

// WithWorkerIdleTimeoutSeconds sets the default worker idle timeout.
// A negative value resets to WorkerTimeoutInfinite.
func WithWorkerIdleTimeoutSeconds(seconds int) Option {
	return func(c *apis.Config) {
		if seconds < 0 {
			seconds = 0
		}
		c.WorkerIdleTimeoutSeconds = seconds
	}
}

// WithPreloadedDevices sets the preloaded device table consulted by
// the device loader's final fallback rule (spec §4.3).
func WithPreloadedDevices(devices map[string]apis.DeviceRef) Option {
	return func(c *apis.Config) {
		c.PreloadedDevices = devices
	}
}

// TrustPolicy is the shape of the YAML trust-policy file Load reads: a
// node's static device-loading posture, kept separate from the wire
// format of an apis.DeviceRef since only symbolic/content refs make
// sense as a preloaded table entry loaded from disk.
type TrustPolicy struct {
	LoadRemoteDevices bool     `yaml:"load_remote_devices"`
	TrustedSigners    []string `yaml:"trusted_signers"`
	PreloadedDevices  []struct {
		Name     string `yaml:"name"`
		Symbolic string `yaml:"symbolic"`
		Content  string `yaml:"content"`
	} `yaml:"preloaded_devices"`
}

// Load reads a YAML trust-policy file and returns the apis.Config it
// describes, the way an embedding node would seed its builder at
// process start.
func Load(path string) (apis.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return apis.Config{}, fmt.Errorf("config: read trust policy %q: %w", path, err)
	}

	var policy TrustPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return apis.Config{}, fmt.Errorf("config: parse trust policy %q: %w", path, err)
	}

	preloaded := make(map[string]apis.DeviceRef, len(policy.PreloadedDevices))
	for _, d := range policy.PreloadedDevices {
		switch {
		case d.Content != "":
			preloaded[d.Name] = apis.DeviceRef{Kind: apis.DeviceKindContent, Content: d.Content}
		case d.Symbolic != "":
			preloaded[d.Name] = apis.DeviceRef{Kind: apis.DeviceKindSymbolic, Symbolic: d.Symbolic}
		default:
			return apis.Config{}, fmt.Errorf("config: preloaded device %q declares neither symbolic nor content id", d.Name)
		}
	}

	return NewConfig(
		WithLoadRemoteDevices(policy.LoadRemoteDevices),
		WithTrustedSigners(policy.TrustedSigners...),
		WithPreloadedDevices(preloaded),
	), nil
}

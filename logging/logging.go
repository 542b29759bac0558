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

// Package logging builds the structured zap.Logger used throughout the
// resolver: a production config by default, switched to debug level
// when verbose diagnostics are requested.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger. verbose lowers the level to Debug; otherwise
// the logger runs at Info and above, matching zap's production default.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything, for tests and callers
// that never configured a real one.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// Stage tags a log entry with the resolver stage number it originated
// from, giving every log line a stable field to filter and correlate
// on across the nine-stage pipeline (spec §4.7).
func Stage(n int) zap.Field {
	return zap.Int("stage", n)
}

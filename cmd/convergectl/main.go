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

// Command convergectl is a local operator CLI for a converge node: it
// loads a trust policy, wires a converge.Snapshot from it, and exposes
// the shortcut surface and cache plane for inspection from a shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dirpx.dev/converge"
	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/builder"
	"dirpx.dev/converge/config"
)

var (
	// Global flags.
	trustPolicyPath string
	verbose         bool

	// logger is initialized once by the root command's
	// PersistentPreRunE and reused by every subcommand.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "convergectl",
	Short: "Operator CLI for a converge resolver node",
	Long: `convergectl wires a converge node's global snapshot from a YAML
trust-policy file and exposes its shortcut surface and cache plane for
local inspection: resolving a path against a message, listing the
registered devices, and reading cache activity counters.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return wireSnapshot()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// wireSnapshot loads the trust policy (or falls back to the built-in
// default) and publishes a freshly built registry/resolver pair into
// the converge package's global state.
func wireSnapshot() error {
	cfg := config.DefaultConfig()
	if trustPolicyPath != "" {
		loaded, err := config.Load(trustPolicyPath)
		if err != nil {
			return fmt.Errorf("convergectl: %w", err)
		}
		cfg = loaded
	}

	b := builder.New(builder.WithLogger(logger))
	converge.SetAll(&cfg, nil, nil, nil, b)
	return nil
}

// currentResolver returns the concrete resolver.Resolver behind the
// published snapshot, for the subcommands that need access to it
// beyond the apis.Resolver interface (cache stats).
func currentResolver() apis.Resolver {
	return converge.Resolver()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&trustPolicyPath, "trust-policy", "", "path to a YAML trust-policy file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(deviceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

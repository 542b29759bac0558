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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"dirpx.dev/converge"
	"dirpx.dev/converge/apis"
)

var (
	msgPath    string
	defaultVal string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [path]",
	Short: "Resolve a dot-separated path against a message",
	Long: `Resolves path against the message loaded from --msg (a YAML mapping
of keys to values), the way a caller of the shortcut surface's Get
would. A missing --msg resolves against an empty message.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&msgPath, "msg", "", "path to a YAML file holding the input message")
	resolveCmd.Flags().StringVar(&defaultVal, "default", "", "value printed when the path does not resolve")
}

func runResolve(cmd *cobra.Command, args []string) error {
	msg, err := loadMessage(msgPath)
	if err != nil {
		return err
	}

	path := splitPath(args[0])
	logger.Debug("resolving", zap.String("path", args[0]))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := converge.Get(ctx, path, msg, defaultVal)
	fmt.Println(renderValue(out))
	return nil
}

// loadMessage reads a YAML mapping from path into an apis.Message. An
// empty path yields the empty message.
func loadMessage(path string) (*apis.Message, error) {
	if path == "" {
		return apis.New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("convergectl: read message %q: %w", path, err)
	}
	raw := make(map[string]apis.Value)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("convergectl: parse message %q: %w", path, err)
	}
	return apis.FromMap(raw), nil
}

// splitPath turns a dot-separated CLI argument into a path term: a
// bare string for a single element, or an apis.Sequence for several.
func splitPath(s string) apis.Value {
	parts := strings.Split(s, ".")
	if len(parts) == 1 {
		return parts[0]
	}
	seq := make(apis.Sequence, len(parts))
	for i, p := range parts {
		seq[i] = p
	}
	return seq
}

func renderValue(v apis.Value) string {
	if m, ok := v.(*apis.Message); ok {
		return m.String()
	}
	return fmt.Sprint(v)
}

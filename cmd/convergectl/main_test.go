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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dirpx.dev/converge"
	"dirpx.dev/converge/apis"
	"dirpx.dev/converge/builder"
	"dirpx.dev/converge/config"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func resetGlobalSnapshot(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()
	cfg := config.DefaultConfig()
	converge.SetAll(&cfg, nil, nil, nil, builder.New())
}

func TestSplitPath_SingleElementStaysAtomic(t *testing.T) {
	got := splitPath("name")
	if got != "name" {
		t.Fatalf("splitPath(name) = %v, want the bare string", got)
	}
}

func TestSplitPath_MultiElementBecomesSequence(t *testing.T) {
	got := splitPath("a.b.c")
	seq, ok := got.(apis.Sequence)
	if !ok || len(seq) != 3 || seq[0] != "a" || seq[1] != "b" || seq[2] != "c" {
		t.Fatalf("splitPath(a.b.c) = %#v, want apis.Sequence{a, b, c}", got)
	}
}

func TestRunResolve_UsesDefaultWhenPathMissing(t *testing.T) {
	resetGlobalSnapshot(t)
	msgPath = ""
	defaultVal = "fallback"

	out := captureStdout(t, func() {
		if err := runResolve(&cobra.Command{}, []string{"missing"}); err != nil {
			t.Fatalf("runResolve returned error: %v", err)
		}
	})

	if strings.TrimSpace(out) != "fallback" {
		t.Fatalf("output = %q, want fallback", out)
	}
}

func TestRunResolve_ReadsMessageFromYAMLFile(t *testing.T) {
	resetGlobalSnapshot(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "msg.yaml")
	if err := os.WriteFile(path, []byte("name: alice\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	msgPath = path
	defaultVal = "nope"

	out := captureStdout(t, func() {
		if err := runResolve(&cobra.Command{}, []string{"name"}); err != nil {
			t.Fatalf("runResolve returned error: %v", err)
		}
	})

	if strings.TrimSpace(out) != "alice" {
		t.Fatalf("output = %q, want alice", out)
	}
}

func TestRunDeviceList_ReportsNoDevicesOnEmptyRegistry(t *testing.T) {
	resetGlobalSnapshot(t)

	out := captureStdout(t, func() {
		if err := runDeviceList(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runDeviceList returned error: %v", err)
		}
	})

	if !strings.Contains(out, "No devices registered") {
		t.Fatalf("output = %q, want the no-devices notice", out)
	}
}

func TestRunCacheStats_PrintsCounters(t *testing.T) {
	resetGlobalSnapshot(t)

	out := captureStdout(t, func() {
		if err := runCacheStats(&cobra.Command{}, nil); err != nil {
			t.Fatalf("runCacheStats returned error: %v", err)
		}
	})

	for _, want := range []string{"hits:", "misses:", "writes:", "evictions:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output = %q, missing %q", out, want)
		}
	}
}

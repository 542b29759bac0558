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
	"fmt"

	"github.com/spf13/cobra"

	"dirpx.dev/converge/resolver"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the resolver's cache plane",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache plane activity counters",
	RunE:  runCacheStats,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	res, ok := currentResolver().(*resolver.Resolver)
	if !ok {
		return fmt.Errorf("convergectl: current resolver does not expose cache stats")
	}
	stats := res.CacheStats()
	fmt.Printf("hits:      %d\n", stats.Hits())
	fmt.Printf("misses:    %d\n", stats.Misses())
	fmt.Printf("writes:    %d\n", stats.Writes())
	fmt.Printf("evictions: %d\n", stats.Evictions())
	return nil
}

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
	"sort"

	"github.com/spf13/cobra"

	"dirpx.dev/converge"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Inspect the registered device table",
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered symbolic device names",
	RunE:  runDeviceList,
}

func init() {
	deviceCmd.AddCommand(deviceListCmd)
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	names := converge.Registry().Names()
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Printf("No devices registered. (generation %d)\n", converge.Generation())
		return nil
	}
	fmt.Printf("Registered devices (%d, generation %d):\n", len(names), converge.Generation())
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

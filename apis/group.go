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

// GroupRegistry is the intra-node process-identity set used by the
// deduplication plane (spec §4.6, §6 "Group registry contract"). All
// methods must be atomic with respect to concurrent callers.
type GroupRegistry interface {
	// Join registers self as a member of group and returns true if
	// self became the leader (i.e. group was previously empty).
	Join(group string, self string) (leader bool)
	// Leave removes self from group.
	Leave(group string, self string)
	// Members returns the current membership of group.
	Members(group string) []string
}

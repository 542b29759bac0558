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

package cache

import "sync/atomic"

// Stats counts cache plane activity for the `convergectl cache stats`
// subcommand and for operators wiring metrics elsewhere.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	writes    atomic.Int64
	evictions atomic.Int64
}

// Hits returns the number of Read calls that returned a stored result.
func (s *Stats) Hits() int64 { return s.hits.Load() }

// Misses returns the number of Read calls that found nothing stored.
func (s *Stats) Misses() int64 { return s.misses.Load() }

// Writes returns the number of results successfully written.
func (s *Stats) Writes() int64 { return s.writes.Load() }

// Evictions returns the number of memoization-layer entries evicted.
func (s *Stats) Evictions() int64 { return s.evictions.Load() }

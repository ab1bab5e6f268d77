// Licensed to Shadow under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Shadow licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package concurrent

import "sync"

// Counters is a named set of monotonically-accumulated int64 values: the
// per-thread allocation/deallocation/syscall counters the spec calls for,
// and the process-wide fallback counters they merge into.
type Counters struct {
	mutex  sync.Mutex
	values map[string]int64
}

// NewCounters returns an empty Counters set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]int64)}
}

// Add adds delta to the named counter.
func (c *Counters) Add(name string, delta int64) {
	c.mutex.Lock()
	c.values[name] += delta
	c.mutex.Unlock()
}

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() map[string]int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make(map[string]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// MergeInto adds every value in c into dst.
func (c *Counters) MergeInto(dst *Counters) {
	for name, v := range c.Snapshot() {
		dst.Add(name, v)
	}
}

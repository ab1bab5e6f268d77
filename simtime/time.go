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

// Package simtime defines the simulator's two notions of time: the
// monotonically advancing SimulationTime every event is scheduled against,
// and the EmulatedTime derived from it that applications observe as their
// wall clock.
package simtime

import (
	"math"
	"time"
)

// SimulationTime is measured in simulator nanoseconds since simulation
// start.
type SimulationTime int64

const (
	// Max represents "unknown/no event". It is the identity element for
	// the global next-event-time reduction: every real event time is
	// smaller.
	Max SimulationTime = math.MaxInt64

	// Invalid marks "not currently inside an event": the value a Worker's
	// current time holds outside of event execution.
	Invalid SimulationTime = -1

	// OneMillisecond is the number of simulator nanoseconds in one
	// millisecond, used to convert topology latencies (in milliseconds)
	// into SimulationTime deltas.
	OneMillisecond SimulationTime = 1_000_000
)

// EmulatedTime is SimulationTime plus the fixed offset applications see as
// the epoch start, so plugin code observes a plausible wall clock instead
// of nanoseconds-since-simulation-start.
type EmulatedTime int64

// EpochOffset is the fixed offset applied to SimulationTime to produce
// EmulatedTime: simulated wall-clock time starts at 2000-01-01T00:00:00Z,
// the same fictitious epoch the original simulator presents to hosts.
var EpochOffset = SimulationTime(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).UnixNano())

// ToEmulatedTime converts a SimulationTime to the EmulatedTime applications
// should observe.
func ToEmulatedTime(t SimulationTime) EmulatedTime {
	return EmulatedTime(int64(t) + int64(EpochOffset))
}

// MillisToDelay converts a topology latency in milliseconds into a
// SimulationTime delta, rounding up so that delay is always at least one
// nanosecond — matching the ceil(latency_ms * nanosPerMs) conversion
// packets use.
func MillisToDelay(latencyMs float64) SimulationTime {
	delay := SimulationTime(math.Ceil(latencyMs * float64(OneMillisecond)))
	if delay < 1 {
		delay = 1
	}
	return delay
}

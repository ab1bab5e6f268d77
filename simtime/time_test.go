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

package simtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shadow-sim/shadow/simtime"
)

func TestToEmulatedTime(t *testing.T) {
	assert.Equal(t,
		simtime.EmulatedTime(int64(simtime.EpochOffset)+1000),
		simtime.ToEmulatedTime(simtime.SimulationTime(1000)))
}

func TestMillisToDelay(t *testing.T) {
	assert.Equal(t, simtime.SimulationTime(1), simtime.MillisToDelay(0))
	assert.Equal(t, simtime.SimulationTime(1_000_000), simtime.MillisToDelay(1))
	assert.Equal(t, simtime.SimulationTime(1_500_000), simtime.MillisToDelay(1.5))
	assert.Equal(t, simtime.SimulationTime(1_000_001), simtime.MillisToDelay(1.0000001))
}

func TestSentinels(t *testing.T) {
	assert.True(t, simtime.Max > simtime.SimulationTime(0))
	assert.True(t, simtime.Invalid < simtime.SimulationTime(0))
}

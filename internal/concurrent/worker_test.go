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

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shadow-sim/shadow/simtime"
)

func TestWorker_CurrentAndLastEventTime(t *testing.T) {
	w := newWorker(nil, 0, simtime.SimulationTime(42))
	assert.Equal(t, simtime.Invalid, w.CurrentTime())
	assert.Equal(t, simtime.SimulationTime(42), w.BootstrapEndTime())

	w.SetCurrentTime(simtime.SimulationTime(100))
	assert.Equal(t, simtime.SimulationTime(100), w.CurrentTime())

	w.SetLastEventTime(simtime.SimulationTime(100))
	assert.Equal(t, simtime.SimulationTime(100), w.LastEventTime())
}

func TestWorker_ActiveHost(t *testing.T) {
	w := newWorker(nil, 0, 0)
	assert.Nil(t, w.ActiveHost())

	host := struct{ name string }{name: "host0"}
	w.SetActiveHost(host)
	assert.Equal(t, host, w.ActiveHost())

	w.ClearActiveHost()
	assert.Nil(t, w.ActiveHost())
}

func TestWorker_ObjectCounters(t *testing.T) {
	mgr := newFakeManager()
	pool := NewWorkerPool(mgr, nil, 0, 1, Config{UseObjectCounters: true}, &fakeAffinity{}, testScope(t))

	var got map[string]int64
	pool.StartTaskFn(func(w *Worker, data interface{}) {
		// degenerate mode passes a nil Worker; exercise the counters via a
		// freshly constructed one instead.
		lw := newWorker(pool, 0, 0)
		lw.IncrementObjectAllocCounter("packet")
		lw.IncrementObjectAllocCounter("packet")
		lw.IncrementObjectDeallocCounter("packet")
		got = lw.allocCounter.Snapshot()
	}, nil)
	pool.AwaitTaskFn()

	assert.EqualValues(t, 2, got["packet"])
	pool.JoinAll()
}

func TestWorker_ObjectCountersDisabled(t *testing.T) {
	mgr := newFakeManager()
	pool := NewWorkerPool(mgr, nil, 0, 1, Config{UseObjectCounters: false}, &fakeAffinity{}, testScope(t))

	w := newWorker(pool, 0, 0)
	w.IncrementObjectAllocCounter("packet")
	assert.Empty(t, w.allocCounter.Snapshot())
	pool.JoinAll()
}

func TestWorker_AddSyscallCounts(t *testing.T) {
	w := newWorker(nil, 0, 0)
	w.AddSyscallCounts(map[string]int64{"read": 3, "write": 1})
	w.AddSyscallCounts(map[string]int64{"read": 2})

	got := w.syscallCounter.Snapshot()
	assert.EqualValues(t, 5, got["read"])
	assert.EqualValues(t, 1, got["write"])
}

func TestWorker_GetAffinity(t *testing.T) {
	mgr := newFakeManager()
	pool := NewWorkerPool(mgr, nil, 2, 2, DefaultConfig(), &fakeAffinity{}, testScope(t))

	var lpi0, lpi1 int
	pool.StartTaskFn(func(w *Worker, data interface{}) {
		lpi, cpu := w.GetAffinity()
		assert.Equal(t, pool.lps.CPUID(lpi), cpu)
		if w.ID() == 0 {
			lpi0 = lpi
		} else {
			lpi1 = lpi
		}
	}, nil)
	pool.AwaitTaskFn()

	assert.NotEqual(t, lpi0, lpi1)
	pool.JoinAll()
}

func TestIncrementObjectAllocCounter_NilWorkerUsesFallback(t *testing.T) {
	mgr := newFakeManager()
	pool := NewWorkerPool(mgr, nil, 0, 1, DefaultConfig(), &fakeAffinity{}, testScope(t))

	IncrementObjectAllocCounter(pool, nil, "packet")
	IncrementObjectAllocCounter(pool, nil, "packet")
	IncrementObjectDeallocCounter(pool, nil, "packet")
	AddSyscallCounts(pool, nil, map[string]int64{"read": 4})

	pool.JoinAll()

	assert.EqualValues(t, 2, mgr.mergedAllocNames["packet"])
}

func TestIncrementObjectAllocCounter_DisabledIsNoop(t *testing.T) {
	mgr := newFakeManager()
	pool := NewWorkerPool(mgr, nil, 0, 1, Config{UseObjectCounters: false}, &fakeAffinity{}, testScope(t))

	IncrementObjectAllocCounter(pool, nil, "packet")
	assert.Empty(t, pool.allocFallback.Snapshot())
	pool.JoinAll()
}

func TestWorker_FlushCounters(t *testing.T) {
	mgr := newFakeManager()
	pool := NewWorkerPool(mgr, nil, 0, 1, DefaultConfig(), &fakeAffinity{}, testScope(t))
	w := newWorker(pool, 0, 0)

	w.IncrementObjectAllocCounter("packet")
	w.AddSyscallCounts(map[string]int64{"read": 1})

	w.FlushCounters()

	assert.Equal(t, 1, mgr.allocMerges)
	assert.Equal(t, 1, mgr.deallocMerges)
	assert.Equal(t, 1, mgr.syscallMerges)
	assert.EqualValues(t, 1, mgr.mergedAllocNames["packet"])

	// Counters reset after flush.
	assert.Empty(t, w.allocCounter.Snapshot())
	pool.JoinAll()
}

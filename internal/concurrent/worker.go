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
	"github.com/shadow-sim/shadow/internal/affinity"
	"github.com/shadow-sim/shadow/simtime"
)

// Worker is the per-goroutine state a task function runs with. It plays
// the role thread-local storage plays in the original design: rather than
// an ambient "current worker" looked up by thread id, the pool passes a
// *Worker to every TaskFn directly (the alternative the design notes call
// out explicitly).
type Worker struct {
	pool *WorkerPool
	id   int

	bootstrapEndTime simtime.SimulationTime
	currentTime      simtime.SimulationTime
	lastEventTime    simtime.SimulationTime

	activeHost interface{}

	allocCounter   *Counters
	deallocCounter *Counters
	syscallCounter *Counters
}

func newWorker(pool *WorkerPool, id int, bootstrapEndTime simtime.SimulationTime) *Worker {
	return &Worker{
		pool:             pool,
		id:               id,
		bootstrapEndTime: bootstrapEndTime,
		currentTime:      simtime.Invalid,
		lastEventTime:    simtime.Invalid,
		allocCounter:     NewCounters(),
		deallocCounter:   NewCounters(),
		syscallCounter:   NewCounters(),
	}
}

// ID returns the worker's index within its pool, in [0, NWorkers).
func (w *Worker) ID() int { return w.id }

// Pool returns the WorkerPool this worker belongs to.
func (w *Worker) Pool() *WorkerPool { return w.pool }

// BootstrapEndTime returns the simulation time at which the bootstrap
// period ends, captured once when the worker started.
func (w *Worker) BootstrapEndTime() simtime.SimulationTime { return w.bootstrapEndTime }

// CurrentTime returns the simulation time of the event currently
// executing on this worker, or simtime.Invalid outside of event execution.
func (w *Worker) CurrentTime() simtime.SimulationTime { return w.currentTime }

// SetCurrentTime records the simulation time of the event this worker is
// about to execute. Called by the dispatch layer, never by task functions
// themselves.
func (w *Worker) SetCurrentTime(t simtime.SimulationTime) { w.currentTime = t }

// LastEventTime returns the simulation time of the last event this worker
// executed, or simtime.Invalid if it hasn't executed one yet.
func (w *Worker) LastEventTime() simtime.SimulationTime { return w.lastEventTime }

// SetLastEventTime records the simulation time of the event this worker
// just finished executing.
func (w *Worker) SetLastEventTime(t simtime.SimulationTime) { w.lastEventTime = t }

// ActiveHost returns the host whose event is currently executing on this
// worker, or nil outside of event execution. The type is opaque here
// (interface{}) to avoid this package depending on the host/topology
// collaborator types it doesn't otherwise need.
func (w *Worker) ActiveHost() interface{} { return w.activeHost }

// SetActiveHost records the host whose event this worker is about to run.
func (w *Worker) SetActiveHost(host interface{}) { w.activeHost = host }

// ClearActiveHost clears the active host once its event has finished.
func (w *Worker) ClearActiveHost() { w.activeHost = nil }

// GetAffinity reports which logical processor this worker is currently
// bound to, and the CPU that binding maps to. Only meaningful while the
// worker is executing — between rounds the binding may be reassigned.
func (w *Worker) GetAffinity() (lpi int, cpu affinity.CPUID) {
	lpi = int(w.pool.workerLPIdx[w.id].Load())
	return lpi, w.pool.lps.CPUID(lpi)
}

// SetMinEventTimeNextRound offers t as a candidate for the earliest event
// time across the whole pool. If t falls before the end of the round
// currently executing (t < roundEndTime), it belongs to this round, not
// the next one, and is ignored for the global minimum; otherwise it folds
// into the pool's next-event-time reduction via a lock-free per-LP min,
// safe because at most one worker is ever assigned to a given LP at a
// time.
func (w *Worker) SetMinEventTimeNextRound(t simtime.SimulationTime) {
	if t < w.pool.RoundEndTime() {
		return
	}
	lpi := int(w.pool.workerLPIdx[w.id].Load())
	w.pool.updateMinEventTime(lpi, t)
}

// IncrementObjectAllocCounter records one allocation of the named object
// type on this worker's local counters, if per-object counters are
// enabled for the pool.
func (w *Worker) IncrementObjectAllocCounter(objectName string) {
	if !w.pool.UseObjectCounters() {
		return
	}
	w.allocCounter.Add(objectName, 1)
}

// IncrementObjectDeallocCounter records one deallocation of the named
// object type on this worker's local counters, if per-object counters are
// enabled for the pool.
func (w *Worker) IncrementObjectDeallocCounter(objectName string) {
	if !w.pool.UseObjectCounters() {
		return
	}
	w.deallocCounter.Add(objectName, 1)
}

// AddSyscallCounts merges the given per-syscall-name counts into this
// worker's local syscall counters.
func (w *Worker) AddSyscallCounts(counts map[string]int64) {
	for name, n := range counts {
		w.syscallCounter.Add(name, n)
	}
}

// FlushCounters merges this worker's local alloc/dealloc/syscall counters
// into the pool's Manager, then clears them. Called once per worker at
// simulation shutdown, never mid-round: the counters are worker-local
// exactly so no round-by-round synchronization is needed.
func (w *Worker) FlushCounters() {
	w.pool.manager.MergeAllocCounters(w.allocCounter)
	w.pool.manager.MergeDeallocCounters(w.deallocCounter)
	w.pool.manager.MergeSyscallCounters(w.syscallCounter)
	w.allocCounter = NewCounters()
	w.deallocCounter = NewCounters()
	w.syscallCounter = NewCounters()
}

// IncrementObjectAllocCounter records one allocation of objectName against
// w's local counters, or against pool's shared fallback counter if w is
// nil — the case of code running off any pool worker, e.g. during
// process-wide teardown after JoinAll. Go has no ambient "current worker"
// to fall back to implicitly, so every call site that might run without
// one must go through this pair of free functions instead of the Worker
// method directly.
func IncrementObjectAllocCounter(pool *WorkerPool, w *Worker, objectName string) {
	if !pool.UseObjectCounters() {
		return
	}
	if w != nil {
		w.IncrementObjectAllocCounter(objectName)
		return
	}
	pool.allocFallback.Add(objectName, 1)
}

// IncrementObjectDeallocCounter is the deallocation counterpart of
// IncrementObjectAllocCounter.
func IncrementObjectDeallocCounter(pool *WorkerPool, w *Worker, objectName string) {
	if !pool.UseObjectCounters() {
		return
	}
	if w != nil {
		w.IncrementObjectDeallocCounter(objectName)
		return
	}
	pool.deallocFallback.Add(objectName, 1)
}

// AddSyscallCounts merges counts into w's local syscall counters, or into
// pool's shared fallback counter if w is nil.
func AddSyscallCounts(pool *WorkerPool, w *Worker, counts map[string]int64) {
	if w != nil {
		w.AddSyscallCounts(counts)
		return
	}
	for name, n := range counts {
		pool.syscallFallback.Add(name, n)
	}
}

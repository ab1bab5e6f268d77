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
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/shadow-sim/shadow/internal/affinity"
)

// logicalProcessor is one scheduling slot: a CPU id plus the FIFO queues of
// worker ids assigned to it for the current and completed turns of a round.
type logicalProcessor struct {
	cpuID affinity.CPUID

	mutex sync.Mutex
	ready []int
	done  []int

	idleMutex sync.Mutex
	idleSince time.Time // zero value: currently busy (timer stopped)
	idleTotal time.Duration
}

func newLogicalProcessor(cpuID affinity.CPUID) *logicalProcessor {
	return &logicalProcessor{cpuID: cpuID, idleSince: time.Now()}
}

func (lp *logicalProcessor) pushReady(workerID int) {
	lp.mutex.Lock()
	lp.ready = append(lp.ready, workerID)
	lp.mutex.Unlock()
}

func (lp *logicalProcessor) pushDone(workerID int) {
	lp.mutex.Lock()
	lp.done = append(lp.done, workerID)
	lp.mutex.Unlock()
}

// popReady removes and returns the front of the ready queue, if any.
func (lp *logicalProcessor) popReady() (int, bool) {
	lp.mutex.Lock()
	defer lp.mutex.Unlock()
	if len(lp.ready) == 0 {
		return -1, false
	}
	w := lp.ready[0]
	lp.ready = lp.ready[1:]
	return w, true
}

// drainDoneIntoReady moves every worker id from done to ready, preserving
// FIFO order, and reports how many were moved.
func (lp *logicalProcessor) drainDoneIntoReady() int {
	lp.mutex.Lock()
	defer lp.mutex.Unlock()
	moved := len(lp.done)
	if moved == 0 {
		return 0
	}
	lp.ready = append(lp.ready, lp.done...)
	lp.done = lp.done[:0]
	return moved
}

func (lp *logicalProcessor) idleTimerStop() {
	lp.idleMutex.Lock()
	defer lp.idleMutex.Unlock()
	if !lp.idleSince.IsZero() {
		lp.idleTotal += time.Since(lp.idleSince)
		lp.idleSince = time.Time{}
	}
}

func (lp *logicalProcessor) idleTimerContinue() {
	lp.idleMutex.Lock()
	defer lp.idleMutex.Unlock()
	if lp.idleSince.IsZero() {
		lp.idleSince = time.Now()
	}
}

func (lp *logicalProcessor) idleTimerElapsed() time.Duration {
	lp.idleMutex.Lock()
	defer lp.idleMutex.Unlock()
	total := lp.idleTotal
	if !lp.idleSince.IsZero() {
		total += time.Since(lp.idleSince)
	}
	return total
}

// LogicalProcessorSet is the fixed array of logical processors workers run
// on. It owns the only mutable state the pool's dispatch loop touches
// concurrently from multiple goroutines: the ready/done queues and the
// global ready-worker count used to decide whether stealing can succeed.
type LogicalProcessorSet struct {
	lps        []*logicalProcessor
	readyCount atomic.Int64
}

// NewLogicalProcessorSet builds a set of n logical processors, binding each
// to a CPU id from affinity.OnlineCPUs in round-robin order.
func NewLogicalProcessorSet(n int) *LogicalProcessorSet {
	assertf(n >= 0, "concurrent: logical processor count must be non-negative, got %d", n)
	cpus := affinity.OnlineCPUs()
	lps := make([]*logicalProcessor, n)
	for i := 0; i < n; i++ {
		lps[i] = newLogicalProcessor(cpus[i%len(cpus)])
	}
	return &LogicalProcessorSet{lps: lps}
}

// N returns the number of logical processors in the set.
func (s *LogicalProcessorSet) N() int { return len(s.lps) }

// CPUID returns the CPU bound to logical processor i.
func (s *LogicalProcessorSet) CPUID(i int) affinity.CPUID { return s.lps[i].cpuID }

// ReadyPush appends workerID to logical processor i's ready queue.
func (s *LogicalProcessorSet) ReadyPush(i, workerID int) {
	s.lps[i].pushReady(workerID)
	s.readyCount.Add(1)
}

// DonePush appends workerID to logical processor i's done queue: the
// worker has just finished its turn on i.
func (s *LogicalProcessorSet) DonePush(i, workerID int) {
	s.lps[i].pushDone(workerID)
}

// PopWorkerToRunOn returns the next worker that should run on logical
// processor i: the front of i's own ready queue if non-empty, otherwise a
// worker stolen from another logical processor's ready queue if the global
// ready count is still positive. Returns -1 iff every ready queue is empty.
//
// Concurrency contract: callers must serialize their own calls for a given
// i (the pool's dispatch protocol only ever has one goroutine inside
// PopWorkerToRunOn(i) for a fixed i at a time); calls for distinct i may
// run concurrently.
func (s *LogicalProcessorSet) PopWorkerToRunOn(i int) int {
	if w, ok := s.lps[i].popReady(); ok {
		s.readyCount.Add(-1)
		return w
	}
	if s.readyCount.Load() <= 0 {
		return -1
	}
	// Stealing policy: scan the other LPs round-robin starting just past i.
	// The source leaves the locality tradeoff here as a TODO; this satisfies
	// the exclusive-LP invariant without claiming to be locality-optimal.
	n := len(s.lps)
	for off := 1; off < n; off++ {
		j := (i + off) % n
		if w, ok := s.lps[j].popReady(); ok {
			s.readyCount.Add(-1)
			return w
		}
	}
	return -1
}

// FinishTask moves every worker id from each logical processor's done
// queue back into that same processor's ready queue, preserving FIFO
// order. Called once by the coordinator at the end of a round.
func (s *LogicalProcessorSet) FinishTask() {
	for _, lp := range s.lps {
		if moved := lp.drainDoneIntoReady(); moved > 0 {
			s.readyCount.Add(int64(moved))
		}
	}
}

// IdleTimerStop halts logical processor i's idle-time accumulator: a
// worker has begun executing on it.
func (s *LogicalProcessorSet) IdleTimerStop(i int) { s.lps[i].idleTimerStop() }

// IdleTimerContinue resumes logical processor i's idle-time accumulator:
// it has become idle again.
func (s *LogicalProcessorSet) IdleTimerContinue(i int) { s.lps[i].idleTimerContinue() }

// IdleTimerElapsed returns the cumulative wall time logical processor i has
// spent idle.
func (s *LogicalProcessorSet) IdleTimerElapsed(i int) time.Duration {
	return s.lps[i].idleTimerElapsed()
}

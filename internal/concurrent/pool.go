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

// Package concurrent implements the discrete-event simulator's core
// worker-pool and event-dispatch primitives: a fixed-size pool of pinned
// OS-thread workers, a logical-processor set that governs which worker runs
// where each round, and the reusable latch that signals round completion
// back to the coordinator.
package concurrent

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	"github.com/shadow-sim/shadow/internal/affinity"
	"github.com/shadow-sim/shadow/internal/linmetric"
	"github.com/shadow-sim/shadow/pkg/logger"
	"github.com/shadow-sim/shadow/simtime"
)

// Manager is the subset of the external Manager collaborator this package
// needs directly. The rest of the Manager surface (DNS, Topology, config,
// scheduler-running checks) is consumed one layer up, by the event-dispatch
// API built on top of Worker.
type Manager interface {
	GetBootstrapEndTime() simtime.SimulationTime
	MergeAllocCounters(c *Counters)
	MergeDeallocCounters(c *Counters)
	MergeSyscallCounters(c *Counters)
}

// TaskFn is the callable the coordinator hands to every worker for one
// round. Rather than a thread-local "current Worker" singleton, the
// calling worker's state is threaded through explicitly — the same
// alternative the design notes call out in place of ambient TLS.
type TaskFn func(w *Worker, data interface{})

// Config is the single recognized core option.
type Config struct {
	// UseObjectCounters gates the per-object allocation/deallocation
	// counters. When false, IncrementObjectAllocCounter and
	// IncrementObjectDeallocCounter are no-ops regardless of whether a
	// live Worker is bound to the calling goroutine.
	UseObjectCounters bool
}

// DefaultConfig returns the core's default configuration.
func DefaultConfig() Config {
	return Config{UseObjectCounters: true}
}

type poolMetrics struct {
	roundsCompleted   *linmetric.BoundCumulativeCounter
	workersDispatched *linmetric.BoundDeltaCounter
}

func newPoolMetrics(scope *linmetric.Scope) poolMetrics {
	return poolMetrics{
		roundsCompleted:   scope.NewCumulativeCounter("rounds_completed"),
		workersDispatched: scope.NewDeltaCounter("workers_dispatched"),
	}
}

// WorkerPool owns nWorkers goroutines, each pinned to an OS thread and to
// one logical processor at a time, and dispatches one task function per
// round across them.
type WorkerPool struct {
	manager   Manager
	scheduler interface{}
	cfg       Config
	aff       affinity.Affinity
	log       *logger.Logger
	metrics   poolMetrics

	nWorkers int
	lps      *LogicalProcessorSet

	sems            []chan struct{}
	workerLPIdx     []atomic.Int64
	nativeThreadIDs []atomic.Int64
	workers         []*Worker

	latch *CountDownLatch
	wg    sync.WaitGroup

	taskMu       sync.Mutex
	taskFn       TaskFn
	taskData     interface{}
	taskInFlight bool

	roundEndTime  atomic.Int64
	minEventTimes []atomic.Int64

	allocFallback   *Counters
	deallocFallback *Counters
	syscallFallback *Counters

	joined atomic.Bool
}

// NewWorkerPool creates a pool of nWorkers goroutines pinned across
// L = min(nWorkers, nParallel) logical processors, and blocks until every
// worker has started. nWorkers == 0 is a degenerate synchronous mode (spec
// §9): no goroutines are spawned, and StartTaskFn runs the task function
// inline with a nil Worker.
func NewWorkerPool(manager Manager, scheduler interface{}, nWorkers, nParallel int, cfg Config, aff affinity.Affinity, scope *linmetric.Scope) *WorkerPool {
	assertf(nParallel >= 1, "concurrent: nParallel must be >= 1, got %d", nParallel)
	assertf(nWorkers >= 0, "concurrent: nWorkers must be >= 0, got %d", nWorkers)

	l := nParallel
	if nWorkers < l {
		l = nWorkers
	}

	p := &WorkerPool{
		manager:         manager,
		scheduler:       scheduler,
		cfg:             cfg,
		aff:             aff,
		log:             logger.GetLogger("concurrent", "WorkerPool"),
		metrics:         newPoolMetrics(scope),
		nWorkers:        nWorkers,
		lps:             NewLogicalProcessorSet(l),
		minEventTimes:   make([]atomic.Int64, l),
		allocFallback:   NewCounters(),
		deallocFallback: NewCounters(),
		syscallFallback: NewCounters(),
	}
	for i := range p.minEventTimes {
		p.minEventTimes[i].Store(int64(simtime.Max))
	}
	// roundEndTime starts at 0: before the coordinator has dispatched a
	// round, nothing offered to SetMinEventTimeNextRound can be "within
	// the current round", so nothing is filtered.

	if nWorkers == 0 {
		return p
	}

	p.sems = make([]chan struct{}, nWorkers)
	p.workerLPIdx = make([]atomic.Int64, nWorkers)
	p.nativeThreadIDs = make([]atomic.Int64, nWorkers)
	p.workers = make([]*Worker, nWorkers)
	p.latch = NewCountDownLatch(nWorkers)
	p.wg.Add(nWorkers)

	for id := 0; id < nWorkers; id++ {
		p.sems[id] = make(chan struct{}, 1)
		go p.runWorker(id)
	}

	// Wait for every worker to publish its native thread id, then re-arm
	// the latch for round 1.
	p.latch.Await()
	p.latch.Reset()

	for workerID := 0; workerID < nWorkers; workerID++ {
		lpi := workerID % l
		p.lps.ReadyPush(lpi, workerID)
		p.setLogicalProcessorIdx(workerID, lpi)
	}

	return p
}

// NWorkers returns the number of workers in the pool.
func (p *WorkerPool) NWorkers() int { return p.nWorkers }

// LPS returns the pool's logical processor set.
func (p *WorkerPool) LPS() *LogicalProcessorSet { return p.lps }

// Manager returns the pool's Manager collaborator.
func (p *WorkerPool) Manager() Manager { return p.manager }

// Scheduler returns the pool's opaque Scheduler reference, for the
// event-dispatch layer to type-assert into its own Scheduler interface.
func (p *WorkerPool) Scheduler() interface{} { return p.scheduler }

// UseObjectCounters reports whether the per-object counters are enabled.
func (p *WorkerPool) UseObjectCounters() bool { return p.cfg.UseObjectCounters }

// SetRoundEndTime records the horizon of the round about to be dispatched,
// used by Worker.SetMinEventTimeNextRound to decide whether an offered
// event time belongs to this round or the next.
func (p *WorkerPool) SetRoundEndTime(t simtime.SimulationTime) {
	p.roundEndTime.Store(int64(t))
}

// RoundEndTime returns the current round's horizon.
func (p *WorkerPool) RoundEndTime() simtime.SimulationTime {
	return simtime.SimulationTime(p.roundEndTime.Load())
}

// getNextWorkerForLogicalProcessorIdx pops the next worker that should run
// on LP toLPI and, if one is found, rebinds it there. Shared by
// startTaskFn's initial dispatch and the worker run loop's continuation.
func (p *WorkerPool) getNextWorkerForLogicalProcessorIdx(toLPI int) int {
	w := p.lps.PopWorkerToRunOn(toLPI)
	if w >= 0 {
		p.setLogicalProcessorIdx(w, toLPI)
	}
	return w
}

// setLogicalProcessorIdx rebinds worker workerID to logical processor
// newLPI, updating CPU affinity of its native thread to match.
func (p *WorkerPool) setLogicalProcessorIdx(workerID, newLPI int) {
	oldLPI := int(p.workerLPIdx[workerID].Load())
	oldCPU := affinity.Uninitialized
	if oldLPI >= 0 {
		oldCPU = p.lps.CPUID(oldLPI)
	}
	p.workerLPIdx[workerID].Store(int64(newLPI))
	newCPU := p.lps.CPUID(newLPI)

	tid := int(p.nativeThreadIDs[workerID].Load())
	if err := p.aff.SetProcessAffinity(tid, newCPU, oldCPU); err != nil {
		panic(fmt.Sprintf("concurrent: affinity rebind failed for worker %d: %v", workerID, err))
	}
}

// StartTaskFn dispatches f to run once on every ready worker this round.
// Panics if the pool has been joined, a task is already in flight, or f is
// nil (the nil task function is reserved for the internal shutdown
// signal).
func (p *WorkerPool) StartTaskFn(f TaskFn, data interface{}) {
	assertf(f != nil, "concurrent: StartTaskFn requires a non-nil task function")
	assertf(!p.joined.Load(), "concurrent: StartTaskFn called on a joined pool")
	p.startTaskFn(f, data)
}

func (p *WorkerPool) startTaskFn(f TaskFn, data interface{}) {
	if p.nWorkers == 0 {
		if f != nil {
			f(nil, data)
		}
		return
	}

	p.taskMu.Lock()
	assertf(!p.taskInFlight, "concurrent: StartTaskFn called while a task is already in flight")
	p.taskFn = f
	p.taskData = data
	p.taskInFlight = true
	p.taskMu.Unlock()

	for i := 0; i < p.lps.N(); i++ {
		workerID := p.getNextWorkerForLogicalProcessorIdx(i)
		if workerID < 0 {
			break
		}
		p.lps.IdleTimerStop(i)
		p.sems[workerID] <- struct{}{}
		p.metrics.workersDispatched.Incr()
	}
}

// AwaitTaskFn blocks until every worker has completed its turn this round,
// then resets the pool for the next dispatch. Calling it without a prior
// StartTaskFn is a precondition violation and panics. In the zero-worker
// mode it returns immediately.
func (p *WorkerPool) AwaitTaskFn() {
	if p.nWorkers == 0 {
		return
	}
	p.taskMu.Lock()
	inFlight := p.taskInFlight
	p.taskMu.Unlock()
	assertf(inFlight, "concurrent: AwaitTaskFn called without a prior StartTaskFn")

	p.latch.Await()
	p.latch.Reset()

	p.taskMu.Lock()
	p.taskFn = nil
	p.taskData = nil
	p.taskInFlight = false
	p.taskMu.Unlock()

	p.lps.FinishTask()
	p.metrics.roundsCompleted.Incr()
}

// JoinAll broadcasts shutdown to every worker, waits for them to exit, and
// marks the pool joined. Panics if already joined.
func (p *WorkerPool) JoinAll() {
	assertf(!p.joined.Load(), "concurrent: JoinAll called on an already-joined pool")

	p.startTaskFn(nil, nil)
	p.AwaitTaskFn()

	if p.nWorkers > 0 {
		p.wg.Wait()
	}
	for i := 0; i < p.lps.N(); i++ {
		idle := p.lps.IdleTimerElapsed(i)
		p.log.Info("logical processor idle time", logger.Int("lpi", i), logger.Int64("idle_ns", int64(idle)))
	}
	p.flushFallbackCounters()
	p.joined.Store(true)
	p.log.Info("worker pool joined", logger.Int("workers", p.nWorkers))
}

// flushFallbackCounters merges the counters accumulated off any live
// worker (IncrementObjectAllocCounter etc. called with a nil Worker) into
// the Manager, once, at shutdown.
func (p *WorkerPool) flushFallbackCounters() {
	p.manager.MergeAllocCounters(p.allocFallback)
	p.manager.MergeDeallocCounters(p.deallocFallback)
	p.manager.MergeSyscallCounters(p.syscallFallback)
}

// Free releases the pool's resources. Must be called after JoinAll.
func (p *WorkerPool) Free() {
	assertf(p.joined.Load(), "concurrent: Free called before JoinAll")
}

// GetGlobalNextEventTime returns the minimum event time offered across all
// logical processors since the last call, then resets every slot back to
// simtime.Max. Must only be called between rounds.
func (p *WorkerPool) GetGlobalNextEventTime() simtime.SimulationTime {
	min := simtime.Max
	for i := range p.minEventTimes {
		v := simtime.SimulationTime(p.minEventTimes[i].Swap(int64(simtime.Max)))
		if v < min {
			min = v
		}
	}
	return min
}

// updateMinEventTime lowers minEventTimes[lpi] to t if t is smaller than
// the current value. Lock-free: at most one worker is ever assigned to lpi
// at a time, so the CAS never contends with another worker, only (rarely)
// with itself under retry.
func (p *WorkerPool) updateMinEventTime(lpi int, t simtime.SimulationTime) {
	for {
		cur := simtime.SimulationTime(p.minEventTimes[lpi].Load())
		if t >= cur {
			return
		}
		if p.minEventTimes[lpi].CAS(int64(cur), int64(t)) {
			return
		}
	}
}

// runWorker is the body of worker goroutine id: the entry point for
// parallel mode, analogous to _worker_run in the original implementation.
func (p *WorkerPool) runWorker(id int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer p.wg.Done()

	p.workerLPIdx[id].Store(-1)
	p.nativeThreadIDs[id].Store(int64(affinity.NativeThreadID()))

	w := newWorker(p, id, p.manager.GetBootstrapEndTime())
	p.workers[id] = w

	// Signal the constructor that this worker's native thread id (and
	// Worker state) is published.
	p.latch.CountDown()

	for {
		<-p.sems[id]

		p.taskMu.Lock()
		fn := p.taskFn
		data := p.taskData
		p.taskMu.Unlock()

		if fn != nil {
			fn(w, data)
		}

		lpi := int(p.workerLPIdx[id].Load())
		p.lps.DonePush(lpi, id)

		if nextID := p.getNextWorkerForLogicalProcessorIdx(lpi); nextID >= 0 {
			p.sems[nextID] <- struct{}{}
		} else {
			p.lps.IdleTimerContinue(lpi)
		}

		p.latch.CountDown()

		if fn == nil {
			return
		}
	}
}

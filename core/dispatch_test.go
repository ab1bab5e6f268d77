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

package core_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadow-sim/shadow/core"
	"github.com/shadow-sim/shadow/internal/affinity"
	"github.com/shadow-sim/shadow/internal/concurrent"
	"github.com/shadow-sim/shadow/internal/linmetric"
	"github.com/shadow-sim/shadow/simtime"
)

// -- fakes --------------------------------------------------------------

type fakeManager struct {
	running      bool
	bootstrapEnd simtime.SimulationTime

	mutex         sync.Mutex
	allocMerges   int
	deallocMerges int
	syscallMerges int
}

func (m *fakeManager) GetDNS() core.DNS           { return nil }
func (m *fakeManager) GetTopology() core.Topology { return nil }
func (m *fakeManager) GetBootstrapEndTime() simtime.SimulationTime {
	return m.bootstrapEnd
}
func (m *fakeManager) SchedulerIsRunning() bool { return m.running }
func (m *fakeManager) GetNodeBandwidthUp(nodeID, ip string) (uint64, error)   { return 0, nil }
func (m *fakeManager) GetNodeBandwidthDown(nodeID, ip string) (uint64, error) { return 0, nil }
func (m *fakeManager) GetLatency(srcID, dstID string) (float64, error)        { return 1, nil }
func (m *fakeManager) UpdateMinTimeJump(minLatencyMillis float64)             {}
func (m *fakeManager) IncrementPluginError()                                 {}
func (m *fakeManager) MergeAllocCounters(c *concurrent.Counters) {
	m.mutex.Lock()
	m.allocMerges++
	m.mutex.Unlock()
}
func (m *fakeManager) MergeDeallocCounters(c *concurrent.Counters) {
	m.mutex.Lock()
	m.deallocMerges++
	m.mutex.Unlock()
}
func (m *fakeManager) MergeSyscallCounters(c *concurrent.Counters) {
	m.mutex.Lock()
	m.syscallMerges++
	m.mutex.Unlock()
}

type fakeEvent struct {
	t        simtime.SimulationTime
	executed bool
	released bool
	onRun    func()
}

func (e *fakeEvent) Time() simtime.SimulationTime { return e.t }
func (e *fakeEvent) Execute() {
	e.executed = true
	if e.onRun != nil {
		e.onRun()
	}
}
func (e *fakeEvent) Release() { e.released = true }

type fakeScheduler struct {
	mutex   sync.Mutex
	pushed  []core.Event
	running bool
	hosts   map[string]core.Host
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{running: true, hosts: make(map[string]core.Host)}
}

func (s *fakeScheduler) NewEvent(task core.Task, t simtime.SimulationTime, hostID string) core.Event {
	return &fakeEvent{t: t, onRun: task}
}

func (s *fakeScheduler) Push(event core.Event, srcHost, dstHost core.Host) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.running {
		return false
	}
	s.pushed = append(s.pushed, event)
	return true
}

func (s *fakeScheduler) GetHost(hostID string) core.Host { return s.hosts[hostID] }

type fakeRouter struct {
	mutex    sync.Mutex
	enqueued []core.Packet
}

func (r *fakeRouter) Enqueue(pkt core.Packet) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.enqueued = append(r.enqueued, pkt)
}

type fakeHost struct {
	id     string
	router *fakeRouter
	rnd    *rand.Rand

	booted, shutdown, freed bool
}

func newFakeHost(id string) *fakeHost {
	return &fakeHost{id: id, router: &fakeRouter{}, rnd: rand.New(rand.NewSource(1))}
}

func (h *fakeHost) ID() string                      { return h.id }
func (h *fakeHost) GetUpstreamRouter() core.Router  { return h.router }
func (h *fakeHost) GetRandom() *rand.Rand           { return h.rnd }
func (h *fakeHost) Boot()                           { h.booted = true }
func (h *fakeHost) Shutdown()                       { h.shutdown = true }
func (h *fakeHost) FreeAllApplications()            { h.freed = true }
func (h *fakeHost) ContinueExecutionTimer()         {}
func (h *fakeHost) StopExecutionTimer()             {}
func (h *fakeHost) Release()                        {}

type fakeDNS struct {
	addrs map[string]string
}

func (d *fakeDNS) ResolveIPToAddress(ip string) (string, bool) {
	a, ok := d.addrs[ip]
	return a, ok
}
func (d *fakeDNS) ResolveNameToAddress(name string) (string, bool) { return "", false }

type fakeTopology struct {
	reliability   float64
	latencyMillis float64
	incremented   int
}

func (t *fakeTopology) GetReliability(srcAddr, dstAddr string) float64 { return t.reliability }
func (t *fakeTopology) GetLatencyMillis(srcAddr, dstAddr string) float64 {
	return t.latencyMillis
}
func (t *fakeTopology) IncrementPathPacketCounter(srcAddr, dstAddr string) { t.incremented++ }

type fakePacket struct {
	srcIP, dstIP string
	payloadLen   int
	statuses     []core.DeliveryStatus
	copies       int
}

func (p *fakePacket) SourceIP() string      { return p.srcIP }
func (p *fakePacket) DestinationIP() string { return p.dstIP }
func (p *fakePacket) PayloadLength() int    { return p.payloadLen }
func (p *fakePacket) AddDeliveryStatus(s core.DeliveryStatus) {
	p.statuses = append(p.statuses, s)
}
func (p *fakePacket) Copy() core.Packet {
	p.copies++
	cp := *p
	cp.statuses = nil
	return &cp
}
func (p *fakePacket) Release() {}

func newTestWorker(t *testing.T, mgr concurrent.Manager) (*concurrent.WorkerPool, *concurrent.Worker) {
	pool := concurrent.NewWorkerPool(mgr, nil, 1, 1, concurrent.DefaultConfig(), affinityNoop{}, linmetric.NewScope("core_dispatch_test_"+t.Name()))
	var w *concurrent.Worker
	pool.StartTaskFn(func(worker *concurrent.Worker, data interface{}) {
		worker.SetCurrentTime(simtime.SimulationTime(1000))
		w = worker
	}, nil)
	pool.AwaitTaskFn()
	return pool, w
}

type affinityNoop struct{}

func (affinityNoop) SetProcessAffinity(nativeThreadID int, newCPU, oldCPU affinity.CPUID) error {
	return nil
}

// -- tests ----------------------------------------------------------------

func TestRunEvent_BracketsCurrentTime(t *testing.T) {
	mgr := &fakeManager{running: true}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	e := &fakeEvent{t: simtime.SimulationTime(500)}
	core.RunEvent(w, e)

	assert.True(t, e.executed)
	assert.True(t, e.released)
	assert.Equal(t, simtime.SimulationTime(500), w.LastEventTime())
	assert.Equal(t, simtime.Invalid, w.CurrentTime())
}

func TestScheduleTask_RejectsWhenSchedulerStopped(t *testing.T) {
	mgr := &fakeManager{running: false}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	sched := newFakeScheduler()
	host := newFakeHost("h0")

	ok := core.ScheduleTask(w, mgr, sched, func() {}, host, simtime.SimulationTime(10))
	assert.False(t, ok)
	assert.Empty(t, sched.pushed)
}

func TestScheduleTask_PushesEventAtCurrentTimePlusDelay(t *testing.T) {
	mgr := &fakeManager{running: true}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	sched := newFakeScheduler()
	host := newFakeHost("h0")

	ok := core.ScheduleTask(w, mgr, sched, func() {}, host, simtime.SimulationTime(250))
	require.True(t, ok)
	require.Len(t, sched.pushed, 1)
	assert.Equal(t, simtime.SimulationTime(1250), sched.pushed[0].Time())
}

func TestSendPacket_ReliableDeliversAndStampsSent(t *testing.T) {
	mgr := &fakeManager{running: true}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	sched := newFakeScheduler()
	dns := &fakeDNS{addrs: map[string]string{"10.0.0.1": "addrA", "10.0.0.2": "addrB"}}
	topo := &fakeTopology{reliability: 1.0, latencyMillis: 2}
	src := newFakeHost("src")
	dst := newFakeHost("dst")
	pkt := &fakePacket{srcIP: "10.0.0.1", dstIP: "10.0.0.2", payloadLen: 100}

	delivered := core.SendPacket(w, mgr, sched, dns, topo, src, dst, pkt)

	assert.True(t, delivered)
	require.Len(t, sched.pushed, 1)
	assert.Equal(t, simtime.SimulationTime(1000+2_000_000), sched.pushed[0].Time())
	assert.Contains(t, pkt.statuses, core.Sent)
	assert.Equal(t, 1, pkt.copies)
	assert.Equal(t, 1, topo.incremented)
}

func TestSendPacket_UnreliableDropsWhenNotControlOrBootstrapping(t *testing.T) {
	mgr := &fakeManager{running: true, bootstrapEnd: simtime.SimulationTime(0)}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	sched := newFakeScheduler()
	dns := &fakeDNS{addrs: map[string]string{"10.0.0.1": "addrA", "10.0.0.2": "addrB"}}
	topo := &fakeTopology{reliability: 0.0, latencyMillis: 2}
	src := newFakeHost("src")
	dst := newFakeHost("dst")
	pkt := &fakePacket{srcIP: "10.0.0.1", dstIP: "10.0.0.2", payloadLen: 100}

	delivered := core.SendPacket(w, mgr, sched, dns, topo, src, dst, pkt)

	assert.False(t, delivered)
	assert.Empty(t, sched.pushed)
	assert.Contains(t, pkt.statuses, core.Dropped)
	assert.Zero(t, topo.incremented, "dropped packets must not count toward the path's delivered-packet counter")
}

func TestSendPacket_ControlPacketAlwaysDelivers(t *testing.T) {
	mgr := &fakeManager{running: true, bootstrapEnd: simtime.SimulationTime(0)}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	sched := newFakeScheduler()
	dns := &fakeDNS{addrs: map[string]string{"10.0.0.1": "addrA", "10.0.0.2": "addrB"}}
	topo := &fakeTopology{reliability: 0.0, latencyMillis: 2}
	src := newFakeHost("src")
	dst := newFakeHost("dst")
	pkt := &fakePacket{srcIP: "10.0.0.1", dstIP: "10.0.0.2", payloadLen: 0}

	delivered := core.SendPacket(w, mgr, sched, dns, topo, src, dst, pkt)

	assert.True(t, delivered)
	assert.Contains(t, pkt.statuses, core.Sent)
}

func TestSendPacket_PanicsOnUnresolvableAddress(t *testing.T) {
	mgr := &fakeManager{running: true}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	sched := newFakeScheduler()
	dns := &fakeDNS{addrs: map[string]string{}}
	topo := &fakeTopology{reliability: 1, latencyMillis: 1}
	src := newFakeHost("src")
	dst := newFakeHost("dst")
	pkt := &fakePacket{srcIP: "10.0.0.1", dstIP: "10.0.0.2", payloadLen: 10}

	assert.Panics(t, func() {
		core.SendPacket(w, mgr, sched, dns, topo, src, dst, pkt)
	})
}

func TestSendPacket_RejectsWhenSchedulerStoppedBeforeResolvingAddresses(t *testing.T) {
	mgr := &fakeManager{running: false}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	sched := newFakeScheduler()
	dns := &fakeDNS{addrs: map[string]string{}}
	topo := &fakeTopology{reliability: 1, latencyMillis: 1}
	src := newFakeHost("src")
	dst := newFakeHost("dst")
	pkt := &fakePacket{srcIP: "10.0.0.1", dstIP: "10.0.0.2", payloadLen: 10}

	var delivered bool
	assert.NotPanics(t, func() {
		delivered = core.SendPacket(w, mgr, sched, dns, topo, src, dst, pkt)
	})
	assert.False(t, delivered)
	assert.Empty(t, sched.pushed)
}

func TestBootHostsAndFinish(t *testing.T) {
	mgr := &fakeManager{running: true}
	pool, w := newTestWorker(t, mgr)
	defer pool.JoinAll()

	h0 := newFakeHost("h0")
	h1 := newFakeHost("h1")
	hosts := []core.Host{h0, h1}

	core.BootHosts(w, hosts)
	assert.True(t, h0.booted)
	assert.True(t, h1.booted)
	assert.Nil(t, w.ActiveHost())

	core.Finish(w, hosts)
	assert.True(t, h0.shutdown)
	assert.True(t, h0.freed)
	assert.True(t, h1.shutdown)
	assert.True(t, h1.freed)
	assert.Equal(t, 1, mgr.allocMerges)
	assert.Equal(t, 1, mgr.deallocMerges)
	assert.Equal(t, 1, mgr.syscallMerges)
}

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

package core

import (
	"fmt"

	"github.com/shadow-sim/shadow/internal/concurrent"
	"github.com/shadow-sim/shadow/simtime"
)

func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// RunEvent executes e on w: brackets it with current/last-event time
// bookkeeping, then releases the caller's reference.
func RunEvent(w *concurrent.Worker, e Event) {
	w.SetCurrentTime(e.Time())
	e.Execute()
	e.Release()
	w.SetLastEventTime(e.Time())
	w.SetCurrentTime(simtime.Invalid)
}

// ScheduleTask asks the scheduler to run task on host after delay
// simulation-time units, relative to w's current time. Returns false
// without scheduling anything if the scheduler is no longer running.
func ScheduleTask(w *concurrent.Worker, mgr Manager, sched Scheduler, task Task, host Host, delay simtime.SimulationTime) bool {
	if !mgr.SchedulerIsRunning() {
		return false
	}
	t := w.CurrentTime() + delay
	event := sched.NewEvent(task, t, host.ID())
	return sched.Push(event, host, host)
}

// SendPacket attempts to deliver pkt from srcHost to dstHost. If the
// scheduler is no longer running it returns false before resolving
// anything. Otherwise source and destination IPs are resolved to topology
// addresses — an unresolvable address is a broken invariant and panics. A zero-length
// payload (a control packet), a still-bootstrapping simulation, or a
// reliability draw at or under the path's reliability all deliver the
// packet; otherwise it is dropped. Returns whether the packet was
// delivered.
func SendPacket(w *concurrent.Worker, mgr Manager, sched Scheduler, dns DNS, topo Topology, srcHost, dstHost Host, pkt Packet) bool {
	if !mgr.SchedulerIsRunning() {
		return false
	}

	srcAddr, ok := dns.ResolveIPToAddress(pkt.SourceIP())
	assertf(ok, "core: sendPacket: unresolvable source IP %q", pkt.SourceIP())
	dstAddr, ok := dns.ResolveIPToAddress(pkt.DestinationIP())
	assertf(ok, "core: sendPacket: unresolvable destination IP %q", pkt.DestinationIP())

	isControl := pkt.PayloadLength() == 0
	bootstrapping := w.CurrentTime() < w.BootstrapEndTime()
	reliability := topo.GetReliability(srcAddr, dstAddr)
	draw := srcHost.GetRandom().Float64()

	if !isControl && !bootstrapping && draw > reliability {
		pkt.AddDeliveryStatus(Dropped)
		return false
	}

	topo.IncrementPathPacketCounter(srcAddr, dstAddr)

	latencyMs := topo.GetLatencyMillis(srcAddr, dstAddr)
	delay := simtime.MillisToDelay(latencyMs)
	deliverTime := w.CurrentTime() + delay

	cp := pkt.Copy()
	task := Task(func() {
		dstHost.GetUpstreamRouter().Enqueue(cp)
	})
	event := sched.NewEvent(task, deliverTime, dstHost.ID())
	sched.Push(event, srcHost, dstHost)
	pkt.AddDeliveryStatus(Sent)
	return true
}

// BootHosts drives the boot lifecycle of every host in hosts on w,
// bracketing each with the active-host marker event code depends on.
func BootHosts(w *concurrent.Worker, hosts []Host) {
	for _, h := range hosts {
		w.SetActiveHost(h)
		h.ContinueExecutionTimer()
		h.Boot()
		h.StopExecutionTimer()
		w.ClearActiveHost()
	}
}

// Finish drives the shutdown lifecycle of every host in hosts on w, then
// flushes w's accumulated counters into the Manager. Called once per
// worker at simulation end.
func Finish(w *concurrent.Worker, hosts []Host) {
	for _, h := range hosts {
		w.SetActiveHost(h)
		h.StopExecutionTimer()
		h.Shutdown()
		h.FreeAllApplications()
		w.ClearActiveHost()
	}
	w.FlushCounters()
}

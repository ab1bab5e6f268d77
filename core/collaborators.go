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

// Package core implements the event-dispatch API and round-driver contract
// built on top of internal/concurrent's worker pool: the thin layer event
// execution code actually calls (schedule a task, send a packet, run an
// event) and the interfaces it consumes from the rest of the simulator,
// whose internals are out of scope here.
package core

import (
	"math/rand"

	"github.com/shadow-sim/shadow/internal/concurrent"
	"github.com/shadow-sim/shadow/simtime"
)

// Manager is the simulator-wide collaborator the core consumes for
// configuration, bootstrap state, scheduler liveness, and counter merging.
// Its counter-merging and bootstrap-time methods are the exact subset
// internal/concurrent.Manager requires, so any Manager implementation
// satisfies that interface too without this package importing concurrent's
// interface back.
type Manager interface {
	GetDNS() DNS
	GetTopology() Topology
	GetBootstrapEndTime() simtime.SimulationTime
	SchedulerIsRunning() bool
	GetNodeBandwidthUp(nodeID, ip string) (bitsPerSecond uint64, err error)
	GetNodeBandwidthDown(nodeID, ip string) (bitsPerSecond uint64, err error)
	GetLatency(srcID, dstID string) (milliseconds float64, err error)
	UpdateMinTimeJump(minLatencyMillis float64)
	IncrementPluginError()
	MergeAllocCounters(c *concurrent.Counters)
	MergeDeallocCounters(c *concurrent.Counters)
	MergeSyscallCounters(c *concurrent.Counters)
}

// Scheduler is the cross-host event channel: the only way an event
// produced on one worker becomes visible to another host's execution.
type Scheduler interface {
	// NewEvent constructs an Event carrying task, scheduled for t, targeted
	// at the host identified by hostID. Event is opaque to the core: the
	// scheduler owns its representation and reference counting.
	NewEvent(task Task, t simtime.SimulationTime, hostID string) Event
	// Push enqueues event for execution, attributing it to the src/dst host
	// pair for accounting. Returns false if the scheduler is no longer
	// accepting events.
	Push(event Event, srcHost, dstHost Host) bool
	// GetHost looks up a host by id, for callers that only have an id
	// (e.g. resolved from a destination address) and need the live Host.
	GetHost(hostID string) Host
}

// Event is opaque to the core: owned and reference-counted by the
// Scheduler. The core only ever runs, times, and releases one.
type Event interface {
	Time() simtime.SimulationTime
	Execute()
	Release()
}

// Task is the callable wrapped into an Event by ScheduleTask/SendPacket.
type Task func()

// DNS resolves the simulator's fake IP/name space into topology addresses.
type DNS interface {
	ResolveIPToAddress(ip string) (address string, ok bool)
	ResolveNameToAddress(name string) (address string, ok bool)
}

// Topology answers reliability and latency queries between two resolved
// topology addresses, and tracks per-path packet counts.
type Topology interface {
	GetReliability(srcAddr, dstAddr string) float64
	GetLatencyMillis(srcAddr, dstAddr string) float64
	IncrementPathPacketCounter(srcAddr, dstAddr string)
}

// Router is a host's upstream packet queue, the destination of a
// successfully delivered packet's delivery task.
type Router interface {
	Enqueue(pkt Packet)
}

// Host is one simulated network endpoint.
type Host interface {
	ID() string
	GetUpstreamRouter() Router
	GetRandom() *rand.Rand
	Boot()
	Shutdown()
	FreeAllApplications()
	ContinueExecutionTimer()
	StopExecutionTimer()
	Release()
}

// DeliveryStatus records the outcome SendPacket stamps on a Packet.
type DeliveryStatus int

const (
	// Sent marks a packet that was handed to the scheduler for delivery.
	Sent DeliveryStatus = iota
	// Dropped marks a packet that failed its reliability draw.
	Dropped
)

// Packet is a reference-counted network payload.
type Packet interface {
	SourceIP() string
	DestinationIP() string
	PayloadLength() int
	AddDeliveryStatus(status DeliveryStatus)
	Copy() Packet
	Release()
}

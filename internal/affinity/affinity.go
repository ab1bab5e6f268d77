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

// Package affinity binds OS threads to CPUs and enumerates the CPUs
// available for that binding. It is the concrete implementation behind the
// Affinity collaborator named in the core's external interfaces: the
// WorkerPool rebinds workers only through the Affinity interface, never the
// platform syscalls directly, and the LogicalProcessorSet takes its CPU ids
// from OnlineCPUs.
package affinity

import (
	"github.com/shirou/gopsutil/cpu"
)

// CPUID identifies a CPU the way the underlying OS affinity API expects.
// Uninitialized is the sentinel used for "no previous binding".
type CPUID int

// Uninitialized marks a worker/LP that has never been bound to a CPU.
const Uninitialized CPUID = -1

// Affinity binds a native OS thread id to a CPU.
type Affinity interface {
	// SetProcessAffinity pins nativeThreadID to newCPU. oldCPU, if not
	// Uninitialized, is the CPU the thread was previously bound to and may
	// be used by the implementation to validate the rebind; implementations
	// are free to ignore it.
	SetProcessAffinity(nativeThreadID int, newCPU, oldCPU CPUID) error
}

// OnlineCPUs returns the CPU ids available for binding, in round-robin
// assignment order. Falls back to a single pseudo-CPU (id 0) if the host's
// CPU topology cannot be determined, so LP construction never fails outright.
func OnlineCPUs() []CPUID {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = 1
	}
	ids := make([]CPUID, n)
	for i := range ids {
		ids[i] = CPUID(i)
	}
	return ids
}

// Default returns the platform's real Affinity implementation.
func Default() Affinity { return defaultAffinity{} }

// NativeThreadID returns the calling OS thread's kernel-level id, for use
// with SetProcessAffinity. The caller must have called
// runtime.LockOSThread() first so the id stays valid for the goroutine's
// lifetime. Platforms without a native tid concept return -1.
func NativeThreadID() int { return nativeThreadID() }

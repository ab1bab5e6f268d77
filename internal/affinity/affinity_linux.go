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

//go:build linux

package affinity

import (
	"golang.org/x/sys/unix"
)

type defaultAffinity struct{}

// SetProcessAffinity pins the native thread to a single CPU via
// sched_setaffinity. oldCPU is accepted for interface symmetry with the
// spec's affinity_setProcessAffinity contract but isn't needed by the
// Linux syscall, which always replaces the full mask.
func (defaultAffinity) SetProcessAffinity(nativeThreadID int, newCPU, oldCPU CPUID) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(int(newCPU))
	return unix.SchedSetaffinity(nativeThreadID, &set)
}

func nativeThreadID() int {
	return unix.Gettid()
}

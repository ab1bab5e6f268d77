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

package affinity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shadow-sim/shadow/internal/affinity"
)

func TestOnlineCPUs_NonEmpty(t *testing.T) {
	cpus := affinity.OnlineCPUs()
	assert.NotEmpty(t, cpus)
	for i, id := range cpus {
		assert.Equal(t, affinity.CPUID(i), id)
	}
}

func TestDefault_SetProcessAffinityRunsWithoutPanicking(t *testing.T) {
	aff := affinity.Default()
	cpus := affinity.OnlineCPUs()
	// Some sandboxed test environments restrict which CPUs a process may
	// bind to, so a non-nil error here is expected in CI; only a panic
	// would indicate a bug in the syscall wiring itself.
	assert.NotPanics(t, func() {
		_ = aff.SetProcessAffinity(affinity.NativeThreadID(), cpus[0], affinity.Uninitialized)
	})
}

func TestUninitialized_IsNegative(t *testing.T) {
	assert.True(t, affinity.Uninitialized < 0)
}

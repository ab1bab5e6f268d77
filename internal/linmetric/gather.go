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

package linmetric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// GatherOption configures a Gather call.
type GatherOption func(*gatherConfig)

type gatherConfig struct {
	readRuntime bool
}

// WithReadRuntimeOption requests that Go runtime metrics (goroutine count,
// memory stats) are included in the gathered output.
func WithReadRuntimeOption() GatherOption {
	return func(c *gatherConfig) { c.readRuntime = true }
}

var goCollectorOnce sync.Once

// Gather snapshots every metric registered across every Scope in the
// process (they all share one underlying registry).
type Gather struct {
	cfg gatherConfig
}

// NewGather returns a Gather over the process-wide metric registry.
func NewGather(opts ...GatherOption) *Gather {
	cfg := gatherConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.readRuntime {
		goCollectorOnce.Do(func() {
			_ = defaultRegistry.prom.Register(prometheus.NewGoCollector())
		})
	}
	return &Gather{cfg: cfg}
}

// Gather returns every metric family currently registered, resetting delta
// counters in the process.
func (g *Gather) Gather() ([]*dto.MetricFamily, error) {
	return defaultRegistry.prom.Gather()
}

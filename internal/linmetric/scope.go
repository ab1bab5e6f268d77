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

// Package linmetric is the simulator's own thin metrics facade, the same
// role internal/linmetric plays in the wider codebase: a small Scope/Gauge/
// Counter API that every subsystem uses instead of reaching for
// github.com/prometheus/client_golang directly. Underneath, every bound
// metric is backed by a real prometheus collector registered against a
// single process-wide registry shared by every Scope, so existing Prometheus tooling can scrape
// it unmodified via Gather.
package linmetric

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const kindGauge = "gauge"
const kindDeltaCounter = "deltaCounter"
const kindCumulativeCounter = "cumulativeCounter"
const kindGaugeVec = "gaugeVec"
const kindDeltaCounterVec = "deltaCounterVec"
const kindCumulativeCounterVec = "cumulativeCounterVec"

// registry is the bookkeeping shared by a root Scope and every Scope derived
// from it via Scope.Scope.
type registry struct {
	mutex    sync.Mutex
	prom     *prometheus.Registry
	kinds    map[string]string // fully-qualified metric path -> kind
	gauges   map[string]*BoundGauge
	counters map[string]*BoundDeltaCounter
	cumCount map[string]*BoundCumulativeCounter
}

func newRegistry() *registry {
	return &registry{
		prom:     prometheus.NewRegistry(),
		kinds:    make(map[string]string),
		gauges:   make(map[string]*BoundGauge),
		counters: make(map[string]*BoundDeltaCounter),
		cumCount: make(map[string]*BoundCumulativeCounter),
	}
}

// defaultRegistry backs every Scope in the process; NewGather always
// reports the union of every metric created through any Scope, mirroring
// the single process-wide Prometheus registry convention.
var defaultRegistry = newRegistry()

// Scope is a named, tagged metrics namespace. Every metric created through a
// Scope is labeled with the scope's accumulated tag set.
type Scope struct {
	path string
	tags prometheus.Labels
	reg  *registry
}

// NewScope creates a root scope named name, with optional key/value tag
// pairs. Panics if name is empty or tagPairs has an odd length.
func NewScope(name string, tagPairs ...string) *Scope {
	if name == "" {
		panic("linmetric: scope name must not be empty")
	}
	tags := mergeTags(nil, tagPairs)
	return &Scope{path: name, tags: tags, reg: defaultRegistry}
}

// Scope derives a child scope nested under s, adding/overriding tag pairs.
// Panics if name is empty or tagPairs has an odd length.
func (s *Scope) Scope(name string, tagPairs ...string) *Scope {
	if name == "" {
		panic("linmetric: scope name must not be empty")
	}
	tags := mergeTags(s.tags, tagPairs)
	return &Scope{path: s.path + "." + name, reg: s.reg, tags: tags}
}

func mergeTags(base prometheus.Labels, pairs []string) prometheus.Labels {
	if len(pairs)%2 != 0 {
		panic("linmetric: tag key/value pairs must come in pairs")
	}
	out := make(prometheus.Labels, len(base)+len(pairs)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = pairs[i+1]
	}
	return out
}

func (s *Scope) fqName(name string) string {
	return sanitize(s.path + "." + name)
}

func sanitize(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

// joinKey builds a map key from an ordered list of tag values.
func joinKey(values []string) string {
	return strings.Join(values, "\x00")
}

// claim registers fqName under kind, panicking if it was already claimed
// under a different kind. Returns true if this is the first claim.
func (r *registry) claim(fqName, kind string) (first bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if existing, ok := r.kinds[fqName]; ok {
		if existing != kind {
			panic("linmetric: metric " + fqName + " already registered as " + existing + ", cannot reuse as " + kind)
		}
		return false
	}
	r.kinds[fqName] = kind
	return true
}

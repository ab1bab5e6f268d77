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
	"go.uber.org/atomic"
)

// BoundDeltaCounter accumulates a value that is reported, then reset to
// zero, on every Gather — matching the "delta" counter semantics used
// throughout the round/task bookkeeping in internal/concurrent.
type BoundDeltaCounter struct {
	value *atomic.Float64
}

// Incr adds one to the counter.
func (c *BoundDeltaCounter) Incr() { c.value.Add(1) }

// Add adds delta to the counter.
func (c *BoundDeltaCounter) Add(delta float64) { c.value.Add(delta) }

// BoundCumulativeCounter accumulates a value that is never reset; each
// Gather reports the running total.
type BoundCumulativeCounter struct {
	value *atomic.Float64
}

// Incr adds one to the counter.
func (c *BoundCumulativeCounter) Incr() { c.value.Add(1) }

// Add adds delta to the counter. Panics if delta is negative.
func (c *BoundCumulativeCounter) Add(delta float64) {
	if delta < 0 {
		panic("linmetric: cumulative counter cannot be decremented")
	}
	c.value.Add(delta)
}

// NewDeltaCounter returns the delta counter named name under s.
func (s *Scope) NewDeltaCounter(name string) *BoundDeltaCounter {
	if name == "" {
		panic("linmetric: metric name must not be empty")
	}
	fq := s.fqName(name)
	first := s.reg.claim(fq, kindDeltaCounter)

	s.reg.mutex.Lock()
	defer s.reg.mutex.Unlock()
	if !first {
		return s.reg.counters[fq]
	}

	c := &BoundDeltaCounter{value: atomic.NewFloat64(0)}
	collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        fq,
		Help:        name,
		ConstLabels: s.tags,
	}, func() float64 { return c.value.Swap(0) })
	_ = s.reg.prom.Register(collector)

	s.reg.counters[fq] = c
	return c
}

// NewCumulativeCounter returns the cumulative counter named name under s.
func (s *Scope) NewCumulativeCounter(name string) *BoundCumulativeCounter {
	if name == "" {
		panic("linmetric: metric name must not be empty")
	}
	fq := s.fqName(name)
	first := s.reg.claim(fq, kindCumulativeCounter)

	s.reg.mutex.Lock()
	defer s.reg.mutex.Unlock()
	if !first {
		return s.reg.cumCount[fq]
	}

	c := &BoundCumulativeCounter{value: atomic.NewFloat64(0)}
	collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        fq,
		Help:        name,
		ConstLabels: s.tags,
	}, c.value.Load)
	_ = s.reg.prom.Register(collector)

	s.reg.cumCount[fq] = c
	return c
}

// DeltaCounterVec is a delta-counter metric family distinguished by tagKeys.
type DeltaCounterVec struct {
	mutex sync.Mutex
	bound map[string]*BoundDeltaCounter
	new   func(values []string) *BoundDeltaCounter
}

// NewDeltaCounterVec declares a delta-counter family named name with the
// given tag keys. Panics if name is empty or no tag keys are given.
func (s *Scope) NewDeltaCounterVec(name string, tagKeys ...string) *DeltaCounterVec {
	if name == "" {
		panic("linmetric: metric name must not be empty")
	}
	if len(tagKeys) == 0 {
		panic("linmetric: vec metric " + name + " requires at least one tag key")
	}
	fq := s.fqName(name)
	s.reg.claim(fq, kindDeltaCounterVec)

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        fq,
		Help:        name,
		ConstLabels: s.tags,
	}, tagKeys)
	_ = s.reg.prom.Register(vec)

	return &DeltaCounterVec{
		bound: make(map[string]*BoundDeltaCounter),
		new: func(values []string) *BoundDeltaCounter {
			_ = vec.WithLabelValues(values...)
			return &BoundDeltaCounter{value: atomic.NewFloat64(0)}
		},
	}
}

// WithTagValues returns the counter bound to the given tag values.
func (v *DeltaCounterVec) WithTagValues(values ...string) *BoundDeltaCounter {
	key := joinKey(values)
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if c, ok := v.bound[key]; ok {
		return c
	}
	c := v.new(values)
	v.bound[key] = c
	return c
}

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

// BoundGauge is a gauge metric bound to one Scope/name pair (or one label
// combination of a GaugeVec). value is the source of truth for Get;
// prom, when non-nil, is kept in sync so Gather sees the same value.
type BoundGauge struct {
	value *atomic.Float64
	prom  prometheus.Gauge
}

// Incr increments the gauge by one.
func (g *BoundGauge) Incr() { g.set(g.value.Add(1)) }

// Decr decrements the gauge by one.
func (g *BoundGauge) Decr() { g.set(g.value.Sub(1)) }

// Update sets the gauge to v.
func (g *BoundGauge) Update(v float64) {
	g.value.Store(v)
	g.set(v)
}

func (g *BoundGauge) set(v float64) {
	if g.prom != nil {
		g.prom.Set(v)
	}
}

// Get returns the gauge's current value.
func (g *BoundGauge) Get() float64 { return g.value.Load() }

// NewGauge returns the gauge named name under s, creating it on first call
// and returning the same bound gauge on subsequent calls with the same
// name. Panics if name is empty, or was already used under s for a
// different metric kind.
func (s *Scope) NewGauge(name string) *BoundGauge {
	if name == "" {
		panic("linmetric: metric name must not be empty")
	}
	fq := s.fqName(name)
	first := s.reg.claim(fq, kindGauge)

	s.reg.mutex.Lock()
	defer s.reg.mutex.Unlock()
	if !first {
		return s.reg.gauges[fq]
	}

	g := &BoundGauge{value: atomic.NewFloat64(0)}
	collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        fq,
		Help:        name,
		ConstLabels: s.tags,
	}, g.value.Load)
	_ = s.reg.prom.Register(collector)

	s.reg.gauges[fq] = g
	return g
}

// GaugeVec is a gauge metric family distinguished by tagKeys.
type GaugeVec struct {
	vec *prometheus.GaugeVec

	mutex sync.Mutex
	bound map[string]*BoundGauge
}

// NewGaugeVec declares a gauge family named name with the given tag keys.
// Panics if name is empty or no tag keys are given.
func (s *Scope) NewGaugeVec(name string, tagKeys ...string) *GaugeVec {
	if name == "" {
		panic("linmetric: metric name must not be empty")
	}
	if len(tagKeys) == 0 {
		panic("linmetric: vec metric " + name + " requires at least one tag key")
	}
	fq := s.fqName(name)
	s.reg.claim(fq, kindGaugeVec)

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        fq,
		Help:        name,
		ConstLabels: s.tags,
	}, tagKeys)
	_ = s.reg.prom.Register(vec)

	return &GaugeVec{vec: vec, bound: make(map[string]*BoundGauge)}
}

// WithTagValues returns the gauge bound to the given tag values, in the
// same order as the tag keys passed to NewGaugeVec.
func (v *GaugeVec) WithTagValues(values ...string) *BoundGauge {
	key := joinKey(values)
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if g, ok := v.bound[key]; ok {
		return g
	}
	g := &BoundGauge{value: atomic.NewFloat64(0), prom: v.vec.WithLabelValues(values...)}
	v.bound[key] = g
	return g
}

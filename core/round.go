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
	"github.com/shadow-sim/shadow/internal/concurrent"
	"github.com/shadow-sim/shadow/pkg/logger"
	"github.com/shadow-sim/shadow/simtime"
)

// RoundDriver is a reference implementation of the round-driver contract
// (spec'd, not owned, by the core): repeatedly dispatch a task function to
// the pool, wait for it, then read back the global next-event time to set
// the next round's horizon. A real coordinator is free to replace this
// with its own loop — the only requirement is the call sequence
// SetRoundEndTime -> StartTaskFn -> AwaitTaskFn -> GetGlobalNextEventTime.
type RoundDriver struct {
	pool *concurrent.WorkerPool
	log  *logger.Logger
}

// NewRoundDriver returns a RoundDriver over pool.
func NewRoundDriver(pool *concurrent.WorkerPool) *RoundDriver {
	return &RoundDriver{pool: pool, log: logger.GetLogger("core", "RoundDriver")}
}

// RunRound dispatches f for one round bounded by horizon, waits for every
// worker to finish, and returns the next round's horizon: the minimum
// event time offered by any worker during the round, or simtime.Max if
// none was offered.
func (d *RoundDriver) RunRound(horizon simtime.SimulationTime, f concurrent.TaskFn, data interface{}) simtime.SimulationTime {
	d.pool.SetRoundEndTime(horizon)
	d.pool.StartTaskFn(f, data)
	d.pool.AwaitTaskFn()
	return d.pool.GetGlobalNextEventTime()
}

// Run drives rounds until the horizon reaches until or no worker offers a
// further event time.
func (d *RoundDriver) Run(f concurrent.TaskFn, data interface{}, until simtime.SimulationTime) {
	horizon := simtime.SimulationTime(0)
	for horizon < until {
		next := d.RunRound(horizon, f, data)
		if next == simtime.Max {
			d.log.Info("no further events offered, stopping")
			return
		}
		horizon = next
	}
}

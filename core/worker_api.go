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
	"github.com/shadow-sim/shadow/simtime"
)

// GetEmulatedTime returns the wall-clock time applications executing on w
// should observe: w's current simulation time plus the fixed epoch offset.
func GetEmulatedTime(w *concurrent.Worker) simtime.EmulatedTime {
	return simtime.ToEmulatedTime(w.CurrentTime())
}

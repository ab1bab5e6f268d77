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

package logger

import "go.uber.org/zap"

// String builds a structured string field.
func String(key, val string) Field { return zap.String(key, val) }

// Int builds a structured int field.
func Int(key string, val int) Field { return zap.Int(key, val) }

// Int32 builds a structured int32 field.
func Int32(key string, val int32) Field { return zap.Int32(key, val) }

// Int64 builds a structured int64 field.
func Int64(key string, val int64) Field { return zap.Int64(key, val) }

// Float64 builds a structured float64 field.
func Float64(key string, val float64) Field { return zap.Float64(key, val) }

// Duration builds a structured int64 field holding a duration in
// nanoseconds.
func Duration(key string, val int64) Field { return zap.Int64(key, val) }

// Error builds a structured error field under the conventional "error" key.
func Error(err error) Field { return zap.Error(err) }

// Any builds a structured field for an arbitrary value.
func Any(key string, val interface{}) Field { return zap.Any(key, val) }

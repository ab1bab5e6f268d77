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

// Package logger provides the structured logger used across the simulator
// core. It wraps go.uber.org/zap the way the rest of the codebase expects:
// one *Logger per (module, name) pair, with fields built via the helpers in
// field.go.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors zapcore.Level so callers never need to import zap directly.
type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// Logger is a thin wrapper around a zap logger scoped to a module/name pair.
type Logger struct {
	zl *zap.Logger
}

// Field is a structured logging field, produced by the helpers in field.go.
type Field = zap.Field

var (
	mutex   sync.Mutex
	base    *zap.Logger
	options = defaultOptions()
)

type config struct {
	level      Level
	filename   string // empty => stderr only
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

func defaultOptions() config {
	return config{
		level:      InfoLevel,
		maxSizeMB:  100,
		maxBackups: 3,
		maxAgeDays: 7,
	}
}

// InitLogger (re)configures the process-wide logger. filename == "" keeps
// output on stderr; otherwise output is rotated through lumberjack.
func InitLogger(filename string, level Level) {
	mutex.Lock()
	defer mutex.Unlock()

	options.filename = filename
	options.level = level
	base = nil // rebuilt lazily by GetLogger
}

func buildBase() *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	var ws zapcore.WriteSyncer
	if options.filename == "" {
		ws = zapcore.Lock(zapcore.AddSync(os.Stderr))
	} else {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   options.filename,
			MaxSize:    options.maxSizeMB,
			MaxBackups: options.maxBackups,
			MaxAge:     options.maxAgeDays,
		})
	}

	core := zapcore.NewCore(encoder, ws, options.level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// GetLogger returns a Logger scoped to module/name, e.g.
// GetLogger("concurrent", "WorkerPool").
func GetLogger(module, name string) *Logger {
	mutex.Lock()
	if base == nil {
		base = buildBase()
	}
	b := base
	mutex.Unlock()

	return &Logger{zl: b.With(zap.String("module", module), zap.String("name", name))}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.zl.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.zl.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.zl.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.zl.Error(msg, fields...) }

// With returns a child logger with additional fields bound permanently.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zl: l.zl.With(fields...)}
}

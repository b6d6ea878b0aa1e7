// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig carries the logger settings, normally populated from
// config.CompilerParameters.
type LogConfig struct {
	Level string
	// Filename enables file output with rotation when non-empty.
	Filename   string
	MaxSize    int
	MaxDays    int
	MaxBackups int
}

var globalLogger atomic.Value // *zap.Logger

// GetGlobalLogger returns the process logger, initializing a default
// console logger on first use.
func GetGlobalLogger() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l.(*zap.Logger)
	}
	SetupLogger(&LogConfig{Level: "info"})
	return globalLogger.Load().(*zap.Logger)
}

// SetupLogger replaces the process logger. Safe to call more than once;
// the last call wins.
func SetupLogger(conf *LogConfig) {
	var level zapcore.Level
	if err := level.Set(conf.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var sink zapcore.WriteSyncer
	if conf.Filename != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.Filename,
			MaxSize:    conf.MaxSize,
			MaxAge:     conf.MaxDays,
			MaxBackups: conf.MaxBackups,
		})
	} else {
		sink = zapcore.AddSync(os.Stderr)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		sink,
		level,
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	globalLogger.Store(logger)
}

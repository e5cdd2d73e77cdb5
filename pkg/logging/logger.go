// Copyright (c) 2020 The Gnet Authors. All rights reserved.
// Copyright (c) 2026 The Dgram Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging holds the Logger used by dgram listeners and its default
// implementation on top of go.uber.org/zap. A listener takes its logger from
// dgram.WithLogger, from dgram.WithLogPath, or falls back to the default one.
//
// DGRAM_LOGGING_LEVEL sets the level of the default logger by name ("debug",
// "warn", ...), DGRAM_LOGGING_FILE sends its output to a rotated local file.
package logging

import (
	"errors"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is used for logging formatted messages.
type Logger interface {
	// Debugf logs messages at DEBUG level.
	Debugf(format string, args ...interface{})
	// Infof logs messages at INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs messages at WARN level.
	Warnf(format string, args ...interface{})
	// Errorf logs messages at ERROR level.
	Errorf(format string, args ...interface{})
	// Fatalf logs messages at FATAL level.
	Fatalf(format string, args ...interface{})
}

// Flusher writes out buffered log entries, call it before the process exits.
type Flusher = func() error

// Level is the alias of zapcore.Level.
type Level = zapcore.Level

// Levels dgram logs at.
const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

const logPrefix = "[dgram]"

var (
	defaultLogger  Logger
	defaultFlusher Flusher
)

func init() {
	lvl := InfoLevel
	if name := os.Getenv("DGRAM_LOGGING_LEVEL"); name != "" {
		var err error
		if lvl, err = ParseLevel(name); err != nil {
			panic("invalid DGRAM_LOGGING_LEVEL, " + err.Error())
		}
	}

	if path := os.Getenv("DGRAM_LOGGING_FILE"); path != "" {
		var err error
		if defaultLogger, defaultFlusher, err = CreateLoggerAsLocalFile(path, lvl); err != nil {
			panic("invalid DGRAM_LOGGING_FILE, " + err.Error())
		}
		return
	}
	zl := zap.New(zapcore.NewCore(newEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(os.Stdout), lvl),
		zap.Development(),
		zap.AddCaller(),
		zap.AddStacktrace(ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defaultLogger, defaultFlusher = zl.Sugar(), zl.Sync
}

// prefixEncoder puts logPrefix in front of every entry.
type prefixEncoder struct {
	zapcore.Encoder

	pool buffer.Pool
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return &prefixEncoder{Encoder: zapcore.NewConsoleEncoder(cfg), pool: buffer.NewPool()}
}

func (e *prefixEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer line.Free()

	buf := e.pool.Get()
	buf.AppendString(logPrefix)
	buf.AppendByte(' ')
	_, _ = buf.Write(line.Bytes())
	return buf, nil
}

func (e *prefixEncoder) Clone() zapcore.Encoder {
	return &prefixEncoder{Encoder: e.Encoder.Clone(), pool: e.pool}
}

// GetDefaultLogger returns the default logger.
func GetDefaultLogger() Logger {
	return defaultLogger
}

// ParseLevel converts a level name such as "debug" or "warn" into a Level.
func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

// CreateLoggerAsLocalFile builds a logger writing entries at logLevel and
// above into localFilePath, the file is rotated at 100 MB.
func CreateLoggerAsLocalFile(localFilePath string, logLevel Level) (Logger, Flusher, error) {
	if localFilePath == "" {
		return nil, nil, errors.New("invalid local logger path")
	}

	// lumberjack.Logger is safe for concurrent use.
	ws := zapcore.AddSync(&lumberjack.Logger{
		Filename:   localFilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 2,
		MaxAge:     15, // days
	})
	zl := zap.New(zapcore.NewCore(newEncoder(zap.NewProductionEncoderConfig()), ws, logLevel),
		zap.AddCaller(),
		zap.AddStacktrace(ErrorLevel))
	return zl.Sugar(), zl.Sync, nil
}

// Cleanup flushes the default logger.
func Cleanup() {
	if defaultFlusher != nil {
		_ = defaultFlusher()
	}
}

// Warnf logs messages at WARN level through the default logger.
func Warnf(format string, args ...interface{}) {
	defaultLogger.Warnf(format, args...)
}

// Errorf logs messages at ERROR level through the default logger.
func Errorf(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}

// PrintfAdapter bridges a Logger to libraries that only know about Printf,
// such as the ants worker pool. Messages are logged at WARN level.
type PrintfAdapter struct {
	Logger Logger
}

// Printf implements the Printf-style logger interface.
func (a PrintfAdapter) Printf(format string, args ...interface{}) {
	a.Logger.Warnf(format, args...)
}

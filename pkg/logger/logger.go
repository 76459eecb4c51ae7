// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	LogContainer     logContainer
	loggerInit       sync.Once
	simpleLoggerInit sync.Once
)

type logContainer struct {
	logger       *zap.Logger
	simpleLogger *zap.SugaredLogger
	file         fileSink
	level        zap.AtomicLevel
	m            sync.Mutex
}

// fileSink discards writes until a file is attached, so loggers handed out
// during package init pick up a log file configured later.
type fileSink struct {
	m sync.Mutex
	f *os.File
}

func (s *fileSink) set(f *os.File) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.f != nil {
		s.f.Close()
	}
	s.f = f
}

func (s *fileSink) active() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.f != nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.f == nil {
		return len(p), nil
	}
	return s.f.Write(p)
}

func (s *fileSink) Sync() error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.f == nil {
		return nil
	}
	return s.f.Sync()
}

// SetLogFile adds a JSON file sink next to stdout. An empty path detaches
// the file.
func (l *logContainer) SetLogFile(path string) error {
	if path == "" {
		l.file.set(nil)
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open logfile %s: %v", path, err)
	}
	l.file.set(f)
	return nil
}

// SetLevel changes the level of every logger handed out by the container.
func (l *logContainer) SetLevel(lvl zapcore.Level) {
	l.atomicLevel().SetLevel(lvl)
}

// GetLogger returns the pointer to the logger and creates one if none exists
func (l *logContainer) GetLogger() *zap.Logger {
	loggerInit.Do(func() {
		l.logger = zap.New(l.getCombinedCore())
	})
	return l.logger
}

// GetSimpleLogger returns the pointer to the sugared logger and creates one
// if none exists
func (l *logContainer) GetSimpleLogger() *zap.SugaredLogger {
	simpleLoggerInit.Do(func() {
		l.simpleLogger = l.GetLogger().Sugar()
	})
	return l.simpleLogger
}

// String mirrors zap.String
func (l *logContainer) String(key string, val string) zap.Field {
	return zap.String(key, val)
}

// Int mirrors zap.Int
func (l *logContainer) Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func (l *logContainer) atomicLevel() zap.AtomicLevel {
	l.m.Lock()
	defer l.m.Unlock()
	if l.level == (zap.AtomicLevel{}) {
		l.level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return l.level
}

func getConsoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getJsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.EpochTimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (l *logContainer) getCombinedCore() zapcore.Core {
	lvl := l.atomicLevel()
	console := zapcore.NewCore(getConsoleEncoder(), zapcore.Lock(os.Stdout), lvl)
	fileLvl := zap.LevelEnablerFunc(func(z zapcore.Level) bool {
		return l.file.active() && lvl.Enabled(z)
	})
	return zapcore.NewTee(console, zapcore.NewCore(getJsonEncoder(), &l.file, fileLvl))
}

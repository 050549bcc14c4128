// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"context"
	"fmt"
	"time"
)

type contextKeyType string

var loggerKey contextKeyType = "logger"

// AttachLogger returns a new context derived from ctx that carries lg.
// Logs sent to the returned context (or any of its descendants, as long as
// they don't attach a different logger) reach lg.
func AttachLogger(ctx context.Context, lg Logger) context.Context {
	return context.WithValue(ctx, loggerKey, lg)
}

// FromContext returns the Logger attached to ctx, if any.
func FromContext(ctx context.Context) (Logger, bool) {
	lg, ok := ctx.Value(loggerKey).(Logger)
	return lg, ok
}

// Info logs args at LevelInfo to the logger attached to ctx, if any.
// It is a silent no-op if ctx carries no logger.
func Info(ctx context.Context, args ...interface{}) {
	log(ctx, LevelInfo, fmt.Sprint(args...))
}

// Infof is similar to Info but formats args as per fmt.Sprintf.
func Infof(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelInfo, fmt.Sprintf(format, args...))
}

// Debug logs args at LevelDebug to the logger attached to ctx, if any.
func Debug(ctx context.Context, args ...interface{}) {
	log(ctx, LevelDebug, fmt.Sprint(args...))
}

// Debugf is similar to Debug but formats args as per fmt.Sprintf.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelDebug, fmt.Sprintf(format, args...))
}

func log(ctx context.Context, level Level, msg string) {
	lg, ok := FromContext(ctx)
	if !ok {
		return
	}
	lg.Log(level, time.Now(), msg)
}

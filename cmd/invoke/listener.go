// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"

	"chromiumos/invoke/build"
	"chromiumos/invoke/listener"
	"chromiumos/invoke/logging"
)

// consoleListener reports every invocation event through the logging
// package rather than directly to stdout, so it shows up wherever the
// process-wide log registry is currently fanning out to (the CLI's own
// stdout logger, plus each invocation's own log file).
type consoleListener struct{}

var _ listener.InvocationListener = consoleListener{}

func (consoleListener) InvocationStarted(ctx context.Context, b *build.Info) error {
	logging.Infof(ctx, "invocation started: %s (build %s)", b.TestTag, b.BuildID)
	return nil
}

func (consoleListener) InvocationFailed(ctx context.Context, cause error) error {
	logging.Infof(ctx, "invocation failed: %v", cause)
	return nil
}

func (consoleListener) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	logging.Infof(ctx, "invocation ended after %d ms", elapsedMS)
	return nil
}

func (consoleListener) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	logging.Infof(ctx, "test run started: %s (%d tests)", runName, testCount)
	return nil
}

func (consoleListener) TestStarted(ctx context.Context, testName string) error {
	logging.Infof(ctx, "test started: %s", testName)
	return nil
}

func (consoleListener) TestFailed(ctx context.Context, testName string, trace string) error {
	logging.Infof(ctx, "test failed: %s\n%s", testName, trace)
	return nil
}

func (consoleListener) TestEnded(ctx context.Context, testName string) error {
	logging.Infof(ctx, "test ended: %s", testName)
	return nil
}

func (consoleListener) TestLog(ctx context.Context, dataName, dataType string, data []byte) error {
	logging.Infof(ctx, "test log %s (%s, %d bytes)", dataName, dataType, len(data))
	return nil
}

func (consoleListener) TestRunFailed(ctx context.Context, cause error) error {
	logging.Infof(ctx, "test run failed: %v", cause)
	return nil
}

func (consoleListener) TestRunStopped(ctx context.Context) error {
	logging.Infof(ctx, "test run stopped")
	return nil
}

func (consoleListener) TestRunEnded(ctx context.Context, elapsedMS int64) error {
	logging.Infof(ctx, "test run ended after %d ms", elapsedMS)
	return nil
}

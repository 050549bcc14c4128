// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package listener_test

import (
	"context"
	"fmt"
	"sync"

	"chromiumos/invoke/build"
)

// recording is a fake InvocationListener that appends a string per event,
// shared by forwarder/resume/mangle tests in this package.
type recording struct {
	mu     sync.Mutex
	events []string
	fail   bool // if true, every method returns an error
	panics bool // if true, every method panics
}

func (r *recording) record(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panics {
		panic("boom: " + s)
	}
	r.events = append(r.events, s)
	if r.fail {
		return fmt.Errorf("fake failure on %s", s)
	}
	return nil
}

func (r *recording) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recording) InvocationStarted(ctx context.Context, b *build.Info) error {
	return r.record(fmt.Sprintf("invocation-started(%s)", b.BuildID))
}
func (r *recording) InvocationFailed(ctx context.Context, cause error) error {
	return r.record(fmt.Sprintf("invocation-failed(%v)", cause))
}
func (r *recording) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	return r.record(fmt.Sprintf("invocation-ended(%d)", elapsedMS))
}
func (r *recording) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	return r.record(fmt.Sprintf("test-run-started(%s,%d)", runName, testCount))
}
func (r *recording) TestStarted(ctx context.Context, testName string) error {
	return r.record(fmt.Sprintf("test-started(%s)", testName))
}
func (r *recording) TestFailed(ctx context.Context, testName string, trace string) error {
	return r.record(fmt.Sprintf("test-failed(%s)", testName))
}
func (r *recording) TestEnded(ctx context.Context, testName string) error {
	return r.record(fmt.Sprintf("test-ended(%s)", testName))
}
func (r *recording) TestLog(ctx context.Context, dataName, dataType string, data []byte) error {
	return r.record(fmt.Sprintf("test-log(%s)", dataName))
}
func (r *recording) TestRunFailed(ctx context.Context, cause error) error {
	return r.record(fmt.Sprintf("test-run-failed(%v)", cause))
}
func (r *recording) TestRunStopped(ctx context.Context) error {
	return r.record("test-run-stopped")
}
func (r *recording) TestRunEnded(ctx context.Context, elapsedMS int64) error {
	return r.record(fmt.Sprintf("test-run-ended(%d)", elapsedMS))
}

// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package listener implements the invocation listener contract and the
// three concrete listener shapes the invocation engine relies on: the
// fan-out Forwarder (C1), its Resume and Shard specializations, and the
// Name-Mangling Proxy (C6).
package listener

import (
	"context"

	"chromiumos/invoke/build"
)

// InvocationListener is the strict event sequence contract of spec §3:
// exactly one InvocationStarted and exactly one InvocationEnded per
// logical invocation, with any number of test-level events and at most
// one InvocationFailed in between.
type InvocationListener interface {
	// InvocationStarted reports that a logical invocation has begun
	// testing build.
	InvocationStarted(ctx context.Context, b *build.Info) error
	// InvocationFailed reports that the invocation could not complete.
	// At most one call per invocation.
	InvocationFailed(ctx context.Context, cause error) error
	// InvocationEnded reports that the invocation has finished, having
	// run for elapsedMS milliseconds. Exactly one call per invocation,
	// except when a resume was successfully scheduled for the same
	// logical invocation.
	InvocationEnded(ctx context.Context, elapsedMS int64) error

	TestRunStarted(ctx context.Context, runName string, testCount int) error
	TestStarted(ctx context.Context, testName string) error
	TestFailed(ctx context.Context, testName string, trace string) error
	TestEnded(ctx context.Context, testName string) error
	TestLog(ctx context.Context, dataName, dataType string, data []byte) error
	TestRunFailed(ctx context.Context, cause error) error
	TestRunStopped(ctx context.Context) error
	TestRunEnded(ctx context.Context, elapsedMS int64) error
}

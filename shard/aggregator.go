// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shard implements the Shard Aggregator: it joins N shard
// sub-invocations into one logical invocation for downstream listeners.
package shard

import (
	"context"
	"sync"

	"chromiumos/invoke/build"
	"chromiumos/invoke/listener"
)

// Aggregator joins shardCount independent shard streams into a single
// logical invocation. It is written concurrently by each shard's
// goroutine/worker, so its counters and started-emitted flag are
// mutex-protected; invocation-started and invocation-ended are fanned out
// while holding the lock (other events pass straight through), which
// spec §5 explicitly allows since listeners are expected to be
// non-blocking relative to shard progress. This mirrors
// logging.MultiLogger's own lock-held fan-out.
type Aggregator struct {
	downstream *listener.Forwarder
	shardCount int

	mu             sync.Mutex
	startedEmitted bool
	ended          int
	totalElapsedMS int64
}

var _ listener.InvocationListener = (*Aggregator)(nil)

// New creates an Aggregator forwarding to downstream, which sees
// invocation-ended once all shardCount shards have ended. shardCount must be
// the total number of
// shards (splits plus any tests that declined to split), not just the
// split children.
func New(downstream []listener.InvocationListener, shardCount int) *Aggregator {
	return &Aggregator{
		downstream: listener.NewForwarder(downstream...),
		shardCount: shardCount,
	}
}

// InvocationStarted forwards invocation-started exactly once: the first
// shard to call it wins, and later calls from other shards are dropped.
func (a *Aggregator) InvocationStarted(ctx context.Context, b *build.Info) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.startedEmitted {
		return nil
	}
	a.startedEmitted = true
	return a.downstream.InvocationStarted(ctx, b)
}

// InvocationFailed is forwarded immediately and unconditionally: it is the
// downstream's responsibility to decide what a per-shard failure means for
// the overall run.
func (a *Aggregator) InvocationFailed(ctx context.Context, cause error) error {
	return a.downstream.InvocationFailed(ctx, cause)
}

// InvocationEnded accumulates elapsedMS from each shard; when the Nth
// shard reports, invocation-ended(Σ elapsedMS) is forwarded.
func (a *Aggregator) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ended++
	a.totalElapsedMS += elapsedMS
	if a.ended < a.shardCount {
		return nil
	}
	return a.downstream.InvocationEnded(ctx, a.totalElapsedMS)
}

func (a *Aggregator) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	return a.downstream.TestRunStarted(ctx, runName, testCount)
}

func (a *Aggregator) TestStarted(ctx context.Context, testName string) error {
	return a.downstream.TestStarted(ctx, testName)
}

func (a *Aggregator) TestFailed(ctx context.Context, testName string, trace string) error {
	return a.downstream.TestFailed(ctx, testName, trace)
}

func (a *Aggregator) TestEnded(ctx context.Context, testName string) error {
	return a.downstream.TestEnded(ctx, testName)
}

func (a *Aggregator) TestLog(ctx context.Context, dataName, dataType string, data []byte) error {
	return a.downstream.TestLog(ctx, dataName, dataType, data)
}

func (a *Aggregator) TestRunFailed(ctx context.Context, cause error) error {
	return a.downstream.TestRunFailed(ctx, cause)
}

func (a *Aggregator) TestRunStopped(ctx context.Context) error {
	return a.downstream.TestRunStopped(ctx)
}

func (a *Aggregator) TestRunEnded(ctx context.Context, elapsedMS int64) error {
	return a.downstream.TestRunEnded(ctx, elapsedMS)
}

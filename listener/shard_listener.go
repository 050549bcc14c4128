// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package listener

import (
	"context"
	"sync"

	"chromiumos/invoke/build"
)

// ShardListener sits between one shard's engine and the shared Shard
// Aggregator. It forwards every event to the aggregator under a mutex so
// that this shard's stream is never interleaved with itself even if a
// future caller relaxes the single-thread-per-shard execution model;
// ordering across shards is the aggregator's concern, not this type's.
type ShardListener struct {
	mu         sync.Mutex
	aggregator InvocationListener
}

var _ InvocationListener = (*ShardListener)(nil)

// NewShardListener creates a ShardListener forwarding to aggregator.
func NewShardListener(aggregator InvocationListener) *ShardListener {
	return &ShardListener{aggregator: aggregator}
}

func (s *ShardListener) InvocationStarted(ctx context.Context, b *build.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.InvocationStarted(ctx, b)
}

func (s *ShardListener) InvocationFailed(ctx context.Context, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.InvocationFailed(ctx, cause)
}

func (s *ShardListener) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.InvocationEnded(ctx, elapsedMS)
}

func (s *ShardListener) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestRunStarted(ctx, runName, testCount)
}

func (s *ShardListener) TestStarted(ctx context.Context, testName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestStarted(ctx, testName)
}

func (s *ShardListener) TestFailed(ctx context.Context, testName string, trace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestFailed(ctx, testName, trace)
}

func (s *ShardListener) TestEnded(ctx context.Context, testName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestEnded(ctx, testName)
}

func (s *ShardListener) TestLog(ctx context.Context, dataName, dataType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestLog(ctx, dataName, dataType, data)
}

func (s *ShardListener) TestRunFailed(ctx context.Context, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestRunFailed(ctx, cause)
}

func (s *ShardListener) TestRunStopped(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestRunStopped(ctx)
}

func (s *ShardListener) TestRunEnded(ctx context.Context, elapsedMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator.TestRunEnded(ctx, elapsedMS)
}

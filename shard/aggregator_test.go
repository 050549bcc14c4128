// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shard_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chromiumos/invoke/build"
	"chromiumos/invoke/listener"
	"chromiumos/invoke/shard"
)

type recording struct {
	mu     sync.Mutex
	starts int
	ends   []int64
	fails  []string
}

func (r *recording) InvocationStarted(ctx context.Context, b *build.Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	return nil
}
func (r *recording) InvocationFailed(ctx context.Context, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fails = append(r.fails, cause.Error())
	return nil
}
func (r *recording) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, elapsedMS)
	return nil
}
func (r *recording) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	return nil
}
func (r *recording) TestStarted(ctx context.Context, testName string) error    { return nil }
func (r *recording) TestFailed(ctx context.Context, t, trace string) error     { return nil }
func (r *recording) TestEnded(ctx context.Context, testName string) error      { return nil }
func (r *recording) TestLog(ctx context.Context, n, t string, d []byte) error  { return nil }
func (r *recording) TestRunFailed(ctx context.Context, cause error) error      { return nil }
func (r *recording) TestRunStopped(ctx context.Context) error                  { return nil }
func (r *recording) TestRunEnded(ctx context.Context, elapsedMS int64) error   { return nil }

func TestAggregatorEmitsStartOnceAndEndOnNth(t *testing.T) {
	rec := &recording{}
	agg := shard.New([]listener.InvocationListener{rec}, 3)

	ctx := context.Background()
	info := build.NewInfo("tag", "17")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(elapsed int64) {
			defer wg.Done()
			agg.InvocationStarted(ctx, info)
			agg.InvocationEnded(ctx, elapsed)
		}(int64(10 * (i + 1)))
	}
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.starts != 1 {
		t.Errorf("InvocationStarted forwarded %d times; want 1", rec.starts)
	}
	if len(rec.ends) != 1 {
		t.Fatalf("InvocationEnded forwarded %d times; want 1", len(rec.ends))
	}
	if got, want := rec.ends[0], int64(60); got != want {
		t.Errorf("InvocationEnded elapsed = %d; want %d (sum of 10+20+30)", got, want)
	}
}

func TestAggregatorForwardsFailuresImmediately(t *testing.T) {
	rec := &recording{}
	agg := shard.New([]listener.InvocationListener{rec}, 2)

	ctx := context.Background()
	agg.InvocationFailed(ctx, fmt.Errorf("shard 0 failed"))
	agg.InvocationFailed(ctx, fmt.Errorf("shard 1 failed"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []string{"shard 0 failed", "shard 1 failed"}
	if diff := cmp.Diff(rec.fails, want); diff != "" {
		t.Errorf("mismatch (-got +want):\n%s", diff)
	}
}

func TestAggregatorDoesNotEndEarly(t *testing.T) {
	rec := &recording{}
	agg := shard.New([]listener.InvocationListener{rec}, 5)

	ctx := context.Background()
	agg.InvocationEnded(ctx, 10)
	agg.InvocationEnded(ctx, 10)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ends) != 0 {
		t.Errorf("InvocationEnded forwarded early: %v", rec.ends)
	}
}

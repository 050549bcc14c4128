// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package reschedule defines the Rescheduler contract the invocation
// engine submits shard children and resumed continuations to, plus a
// reference in-memory implementation used by tests.
package reschedule

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"chromiumos/invoke/config"
)

// Rescheduler places a configuration on a worker. It returns false if it
// refuses the configuration (e.g. the scheduler is shutting down); the
// caller must then treat the build as orphaned and clean it up itself.
type Rescheduler interface {
	ScheduleConfig(ctx context.Context, cfg *config.Configuration) bool
}

// Func adapts a plain function to the Rescheduler interface.
type Func func(ctx context.Context, cfg *config.Configuration) bool

// ScheduleConfig implements Rescheduler.
func (f Func) ScheduleConfig(ctx context.Context, cfg *config.Configuration) bool {
	return f(ctx, cfg)
}

// InMemory is a reference Rescheduler that records every configuration
// submitted to it and reports acceptance according to Accept (defaulting
// to always-accept). It exists so that engine/resume/shard tests have a
// concrete rescheduler to submit to without standing up a real worker
// pool; spec.md's own rescheduler contract (§6) is a plain external
// collaborator with no prescribed implementation.
type InMemory struct {
	// Accept decides whether to accept cfg. If nil, every submission is
	// accepted.
	Accept func(cfg *config.Configuration) bool
	// Run, if non-nil, is invoked asynchronously for every accepted
	// config, bounded by at most Workers concurrent invocations (default
	// 1 if Workers <= 0). This lets shard/resume tests observe a
	// submitted config actually "run" on a worker without a real pool.
	Run func(ctx context.Context, cfg *config.Configuration)
	// Workers bounds concurrent Run invocations.
	Workers int

	mu        sync.Mutex
	submitted []*config.Configuration
	sem       *semaphore.Weighted
	semOnce   sync.Once
}

var _ Rescheduler = (*InMemory)(nil)

func (r *InMemory) workerSem() *semaphore.Weighted {
	r.semOnce.Do(func() {
		n := r.Workers
		if n <= 0 {
			n = 1
		}
		r.sem = semaphore.NewWeighted(int64(n))
	})
	return r.sem
}

// ScheduleConfig implements Rescheduler.
func (r *InMemory) ScheduleConfig(ctx context.Context, cfg *config.Configuration) bool {
	r.mu.Lock()
	r.submitted = append(r.submitted, cfg)
	r.mu.Unlock()

	accepted := true
	if r.Accept != nil {
		accepted = r.Accept(cfg)
	}
	if accepted && r.Run != nil {
		sem := r.workerSem()
		go func() {
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			r.Run(ctx, cfg)
		}()
	}
	return accepted
}

// Submitted returns every configuration submitted so far, in submission
// order, regardless of whether it was accepted.
func (r *InMemory) Submitted() []*config.Configuration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*config.Configuration(nil), r.submitted...)
}

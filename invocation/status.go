// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package invocation

import (
	"fmt"
	"sync"
)

// Status strings (spec §6). An invocation moves from StatusNotInvoked to
// StatusFetchingBuild, then either to StatusSharding (when it hands its work
// to shard children) or through runningStatus to StatusDoneRunningTests;
// StatusNoBuildToTest is the terminal status when there is no build to test.
const (
	StatusNotInvoked       = "(not invoked)"
	StatusFetchingBuild    = "fetching build"
	StatusSharding         = "sharding"
	StatusNoBuildToTest    = "(no build to test)"
	StatusDoneRunningTests = "done running tests"
)

// Status is a free-form status string. Engine.Invoke creates one per call
// and updates it as the invocation progresses; Engine has no accessor for
// it, so the status is not visible to callers of Invoke. Spec §9
// notes thread-safety is only required if an external monitor polls
// concurrently; the engine itself mutates it from a single thread.
type Status struct {
	mu    sync.Mutex
	value string
}

func newStatus() *Status {
	return &Status{value: StatusNotInvoked}
}

// Set updates the status string.
func (s *Status) Set(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
}

// Setf updates the status string with fmt.Sprintf formatting.
func (s *Status) Setf(format string, args ...interface{}) {
	s.Set(fmt.Sprintf(format, args...))
}

// String returns the current status string.
func (s *Status) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// runningStatus formats the "running <testTag> on build <buildId>" status.
func runningStatus(testTag, buildID string) string {
	return fmt.Sprintf("running %s on build %s", testTag, buildID)
}

// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package timing wraps a code.cloudfoundry.org/clock.Clock so that elapsed
// time computations in the invocation engine (invocation start, shard
// accumulation, resume continuation) are deterministic under test.
package timing

import (
	"time"

	"code.cloudfoundry.org/clock"
)

// Clock is the clock used to stamp invocation start times and measure
// elapsed durations. Production code leaves this at its default
// (clock.NewClock()); tests swap in fakeclock.NewFakeClock so that elapsed
// times in assertions are exact rather than merely "close to zero".
var Clock clock.Clock = clock.NewClock()

// Now returns the current time according to Clock.
func Now() time.Time {
	return Clock.Now()
}

// Since returns the duration elapsed since start according to Clock.
func Since(start time.Time) time.Duration {
	return Clock.Now().Sub(start)
}

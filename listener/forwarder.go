// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package listener

import (
	"context"

	"chromiumos/invoke/build"
	"chromiumos/invoke/logging"
)

// Forwarder fans every event out to an ordered list of downstream
// listeners. A single listener's panic or error must not suppress
// delivery to the others, so each call is isolated: a panic is recovered
// and logged, and an error return is logged and swallowed.
//
// This mirrors logging.MultiLogger's fan-out loop and the handler
// isolation documented by the teacher's event processor: "Handlers are
// isolated from each other, that is, a behavior of one Handler does not
// affect that of another Handler."
type Forwarder struct {
	Listeners []InvocationListener
}

var _ InvocationListener = (*Forwarder)(nil)

// NewForwarder creates a Forwarder fanning out to listeners in order.
func NewForwarder(listeners ...InvocationListener) *Forwarder {
	return &Forwarder{Listeners: listeners}
}

// forEach calls f for each downstream listener, recovering and logging any
// panic and logging any returned error, so that one misbehaving listener
// never blocks or corrupts delivery to the others.
func (f *Forwarder) forEach(ctx context.Context, event string, call func(l InvocationListener) error) {
	for _, l := range f.Listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Infof(ctx, "listener panicked handling %s: %v", event, r)
				}
			}()
			if err := call(l); err != nil {
				logging.Infof(ctx, "listener returned error handling %s: %v", event, err)
			}
		}()
	}
}

// InvocationStarted implements InvocationListener.
func (f *Forwarder) InvocationStarted(ctx context.Context, b *build.Info) error {
	f.forEach(ctx, "invocation-started", func(l InvocationListener) error {
		return l.InvocationStarted(ctx, b)
	})
	return nil
}

// InvocationFailed implements InvocationListener.
func (f *Forwarder) InvocationFailed(ctx context.Context, cause error) error {
	f.forEach(ctx, "invocation-failed", func(l InvocationListener) error {
		return l.InvocationFailed(ctx, cause)
	})
	return nil
}

// InvocationEnded implements InvocationListener.
func (f *Forwarder) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	f.forEach(ctx, "invocation-ended", func(l InvocationListener) error {
		return l.InvocationEnded(ctx, elapsedMS)
	})
	return nil
}

// TestRunStarted implements InvocationListener.
func (f *Forwarder) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	f.forEach(ctx, "test-run-started", func(l InvocationListener) error {
		return l.TestRunStarted(ctx, runName, testCount)
	})
	return nil
}

// TestStarted implements InvocationListener.
func (f *Forwarder) TestStarted(ctx context.Context, testName string) error {
	f.forEach(ctx, "test-started", func(l InvocationListener) error {
		return l.TestStarted(ctx, testName)
	})
	return nil
}

// TestFailed implements InvocationListener.
func (f *Forwarder) TestFailed(ctx context.Context, testName string, trace string) error {
	f.forEach(ctx, "test-failed", func(l InvocationListener) error {
		return l.TestFailed(ctx, testName, trace)
	})
	return nil
}

// TestEnded implements InvocationListener.
func (f *Forwarder) TestEnded(ctx context.Context, testName string) error {
	f.forEach(ctx, "test-ended", func(l InvocationListener) error {
		return l.TestEnded(ctx, testName)
	})
	return nil
}

// TestLog implements InvocationListener.
func (f *Forwarder) TestLog(ctx context.Context, dataName, dataType string, data []byte) error {
	f.forEach(ctx, "test-log", func(l InvocationListener) error {
		return l.TestLog(ctx, dataName, dataType, data)
	})
	return nil
}

// TestRunFailed implements InvocationListener.
func (f *Forwarder) TestRunFailed(ctx context.Context, cause error) error {
	f.forEach(ctx, "test-run-failed", func(l InvocationListener) error {
		return l.TestRunFailed(ctx, cause)
	})
	return nil
}

// TestRunStopped implements InvocationListener.
func (f *Forwarder) TestRunStopped(ctx context.Context) error {
	f.forEach(ctx, "test-run-stopped", func(l InvocationListener) error {
		return l.TestRunStopped(ctx)
	})
	return nil
}

// TestRunEnded implements InvocationListener.
func (f *Forwarder) TestRunEnded(ctx context.Context, elapsedMS int64) error {
	f.forEach(ctx, "test-run-ended", func(l InvocationListener) error {
		return l.TestRunEnded(ctx, elapsedMS)
	})
	return nil
}

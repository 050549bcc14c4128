// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package listener

import (
	"context"

	"chromiumos/invoke/build"
)

// ResumeForwarder wraps the original listener list for a resumed
// invocation. The original InvocationStarted was already delivered by the
// failed attempt, so it is suppressed here; InvocationEnded is adjusted to
// report the sum of the elapsed time of the failed attempt and the
// resumed attempt.
type ResumeForwarder struct {
	*Forwarder
	// PriorElapsedMS is the elapsed time, in milliseconds, captured from
	// the attempt that failed and triggered this resume.
	PriorElapsedMS int64
}

var _ InvocationListener = (*ResumeForwarder)(nil)

// NewResumeForwarder creates a ResumeForwarder fanning out to listeners,
// carrying the elapsed time of the attempt being resumed.
func NewResumeForwarder(listeners []InvocationListener, priorElapsedMS int64) *ResumeForwarder {
	return &ResumeForwarder{
		Forwarder:      NewForwarder(listeners...),
		PriorElapsedMS: priorElapsedMS,
	}
}

// InvocationStarted suppresses delivery: the original attempt already
// emitted invocation-started for this logical invocation.
func (f *ResumeForwarder) InvocationStarted(ctx context.Context, b *build.Info) error {
	return nil
}

// InvocationEnded forwards elapsedMS + PriorElapsedMS so that downstream
// listeners see the total duration of the logical invocation across both
// attempts.
func (f *ResumeForwarder) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	return f.Forwarder.InvocationEnded(ctx, f.PriorElapsedMS+elapsedMS)
}

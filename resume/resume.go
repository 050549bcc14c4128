// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package resume implements the Resumer (C4): given a failed invocation
// that holds a resumable test, it clones the configuration and hands a
// continuation to the rescheduler.
package resume

import (
	"context"
	"time"

	"chromiumos/invoke/build"
	"chromiumos/invoke/config"
	"chromiumos/invoke/ctxutil"
	"chromiumos/invoke/listener"
	"chromiumos/invoke/logging"
	"chromiumos/invoke/reschedule"
	"chromiumos/invoke/test"
)

// Try scans cfg.Tests in order for the first test that both implements
// test.Resumable and currently reports IsResumable() == true. If found, it
// clones cfg, substitutes a build pass-through and a ResumeForwarder
// carrying elapsedMS, and submits the clone to rescheduler.
//
// Try returns true iff a resume was actually scheduled. The scan stops at
// the first resumable test even if later tests are also resumable: this
// preserves the source behavior's "one resume per failed invocation" and
// is a deliberate decision, not an oversight (spec §4.4, §9).
//
// newLogOutput must produce a fresh LogOutput for the cloned configuration;
// the original invocation continues to own its own LogOutput.
func Try(ctx context.Context, cfg *config.Configuration, b *build.Info, rescheduler reschedule.Rescheduler, elapsedMS int64, newLogOutput config.LogOutput) bool {
	for _, t := range cfg.Tests {
		r, ok := test.AsResumable(t)
		if !ok || !r.IsResumable() {
			continue
		}

		buildClone := b.Clone()
		clone := cfg.Clone(newLogOutput)
		clone.BuildProvider = build.NewExistingBuildProvider(buildClone, cfg.BuildProvider)
		clone.Listeners = []listener.InvocationListener{
			listener.NewResumeForwarder(cfg.Listeners, elapsedMS),
		}

		// The continuation inherits ctx's deadline, if any, shortened by
		// the time already spent running before the device was lost. The
		// cancel func is intentionally not deferred here: the shortened
		// context outlives Try, carried by the continuation scheduled
		// below, and is released only when its deadline fires or ctx is
		// canceled.
		resumeCtx, _ := ctxutil.Shorten(ctx, time.Duration(elapsedMS)*time.Millisecond)

		if rescheduler.ScheduleConfig(resumeCtx, clone) {
			logging.Infof(ctx, "resuming invocation for build %s via test %s", b.BuildID, t.Name())
			return true
		}

		logging.Infof(ctx, "rescheduler rejected resume for build %s; cleaning up", b.BuildID)
		clone.BuildProvider.CleanUp(ctx, buildClone)
		return false
	}
	return false
}

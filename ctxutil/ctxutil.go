// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ctxutil provides convenience functions for working with
// context.Context deadlines.
package ctxutil

import (
	"context"
	"time"
)

// Shorten returns a context and cancel function derived from ctx with its
// deadline shortened by d. If ctx has no deadline, the returned context
// won't have one either. If ctx's deadline is less than d in the future,
// the returned context's deadline will have already expired.
//
// The Resumer (spec §4.4) uses this to derive the context it hands to a
// resumed continuation: a continuation inherits whatever overall deadline
// the original invocation was running under, shortened by the time
// already spent running before the device was lost.
func Shorten(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	dl, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, dl.Add(-d))
}

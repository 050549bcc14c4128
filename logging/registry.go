// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

// Registry is the process-wide log registry described by the invocation
// engine's resource model: every running invocation registers its own
// per-invocation logger here at the start of its lifecycle and
// unregisters it (idempotently) on every exit path. While registered, a
// logger receives every message logged through a context carrying
// Registry, whichever invocation logged it.
var Registry = NewMultiLogger()

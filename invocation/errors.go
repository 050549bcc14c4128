// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package invocation

import "chromiumos/invoke/errors"

// BuildError reports that a preparer or test refused the build under test.
// The build itself was exercised, so the engine never calls
// build-not-tested for this kind of failure (spec §7).
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string { return e.Err.Error() }
func (e *BuildError) Unwrap() error { return e.Err }

// NewBuildError wraps cause as a BuildError.
func NewBuildError(cause error) *BuildError {
	return &BuildError{Err: errors.Wrap(cause, "build error")}
}

// TargetSetupError reports that the target environment could not be set
// up. Unlike BuildError, the build was never meaningfully tested, so the
// engine calls build-not-tested.
type TargetSetupError struct {
	Err error
}

func (e *TargetSetupError) Error() string { return e.Err.Error() }
func (e *TargetSetupError) Unwrap() error { return e.Err }

// NewTargetSetupError wraps cause as a TargetSetupError.
func NewTargetSetupError(cause error) *TargetSetupError {
	return &TargetSetupError{Err: errors.Wrap(cause, "target setup error")}
}

// Canonical log names (spec §6), bit-exact.
const (
	HostLogName             = "host_log"
	DeviceLogcatName        = "device_logcat"
	BuildErrorBugreportName = "build_error_bugreport"
)

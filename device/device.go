// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package device defines the minimal contract the invocation engine needs
// from a device. Device acquisition, recovery, and telemetry are external
// collaborators (see spec §1) and are not implemented here.
package device

import (
	"context"

	"chromiumos/invoke/errors"
)

// ErrNotAvailable is returned (typically wrapped) when the device is lost
// mid-invocation, e.g. because the connection dropped or the device
// rebooted unexpectedly.
var ErrNotAvailable = errors.New("device not available")

// Options is a bag of device-level knobs applied once per invocation
// before any preparer runs.
type Options struct {
	// Serial is a caller-supplied DUT identifier, independent of any
	// build-stamped serial.
	Serial string
	// Extra carries collaborator-defined options this package does not
	// interpret.
	Extra map[string]string
}

// Clone returns a value-copy of o.
func (o Options) Clone() Options {
	extra := make(map[string]string, len(o.Extra))
	for k, v := range o.Extra {
		extra[k] = v
	}
	return Options{Serial: o.Serial, Extra: extra}
}

// Recovery is the strategy a Device uses to attempt to recover connectivity
// after an operation fails. It is opaque to the engine: the engine only
// stamps it onto the device before performInvocation runs.
type Recovery interface {
	// Name identifies the recovery strategy for logging.
	Name() string
}

// Device is the subset of device operations the invocation engine drives
// directly. Concrete implementations own the real connection (SSH, ADB,
// etc.), which is out of scope here.
type Device interface {
	// SetOptions applies opts to the device before any preparer runs.
	SetOptions(ctx context.Context, opts Options) error
	// SetRecovery installs the recovery strategy to use if subsequent
	// operations report the device as unavailable.
	SetRecovery(r Recovery)
}

// LogCapturer is an optional Device capability that can pull its own
// device-side log (e.g. logcat) on demand. Telemetry capture itself is an
// external collaborator (spec §1); this interface only names the contract
// the engine probes for when assembling the canonical device_logcat entry.
type LogCapturer interface {
	Device
	CaptureLog(ctx context.Context) ([]byte, error)
}

// AsLogCapturer probes d for the LogCapturer capability.
func AsLogCapturer(d Device) (LogCapturer, bool) {
	lc, ok := d.(LogCapturer)
	return lc, ok
}

// BugReporter is an optional Device capability that can capture a bug
// report, attached to listeners as build_error_bugreport when a preparer
// or test raises a BuildError.
type BugReporter interface {
	Device
	CaptureBugReport(ctx context.Context) ([]byte, error)
}

// AsBugReporter probes d for the BugReporter capability.
func AsBugReporter(d Device) (BugReporter, bool) {
	br, ok := d.(BugReporter)
	return br, ok
}

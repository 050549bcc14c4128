// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"chromiumos/invoke/device"
	"chromiumos/invoke/logging"
)

// localDevice is a trivial, in-process stand-in for a real DUT connection.
// It exists only so the CLI has something concrete to drive the engine
// against; real device acquisition and transport are external
// collaborators (spec §1) with no implementation in this module.
type localDevice struct {
	opts     device.Options
	recovery device.Recovery
}

func newLocalDevice() *localDevice {
	return &localDevice{}
}

var (
	_ device.Device      = (*localDevice)(nil)
	_ device.LogCapturer = (*localDevice)(nil)
	_ device.BugReporter = (*localDevice)(nil)
)

func (d *localDevice) SetOptions(ctx context.Context, opts device.Options) error {
	d.opts = opts
	logging.Infof(ctx, "local device: options applied (serial=%q)", opts.Serial)
	return nil
}

func (d *localDevice) SetRecovery(r device.Recovery) {
	d.recovery = r
}

// CaptureLog returns a placeholder device log, standing in for logcat or
// an equivalent device-side log stream a real transport would pull.
func (d *localDevice) CaptureLog(ctx context.Context) ([]byte, error) {
	return []byte(fmt.Sprintf("local device log for serial %q\n", d.opts.Serial)), nil
}

// CaptureBugReport returns a placeholder bug report, standing in for the
// artifact a real transport would pull after a BuildError.
func (d *localDevice) CaptureBugReport(ctx context.Context) ([]byte, error) {
	recoveryName := "none"
	if d.recovery != nil {
		recoveryName = d.recovery.Name()
	}
	return []byte(fmt.Sprintf("local device bug report (recovery=%s)\n", recoveryName)), nil
}

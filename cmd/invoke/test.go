// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"

	"chromiumos/invoke/build"
	"chromiumos/invoke/device"
	"chromiumos/invoke/test"
)

// echoTest is a trivial test.RemoteTest that reports a single passing
// test case named after itself. It stands in for a real remote test
// binary, which is an external collaborator (spec §1).
type echoTest struct {
	name string
	b    *build.Info
	d    device.Device
}

func newEchoTest(name string) *echoTest {
	return &echoTest{name: name}
}

var (
	_ test.RemoteTest    = (*echoTest)(nil)
	_ test.BuildReceiver = (*echoTest)(nil)
	_ test.DeviceTest    = (*echoTest)(nil)
)

func (t *echoTest) Name() string { return t.name }

func (t *echoTest) SetBuild(b *build.Info) { t.b = b }

func (t *echoTest) SetDevice(d device.Device) { t.d = d }

func (t *echoTest) Run(ctx context.Context, l test.Listener) error {
	if err := l.TestRunStarted(ctx, t.name, 1); err != nil {
		return err
	}
	if err := l.TestStarted(ctx, t.name); err != nil {
		return err
	}
	if err := l.TestEnded(ctx, t.name); err != nil {
		return err
	}
	return l.TestRunEnded(ctx, 0)
}

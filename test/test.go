// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package test defines the RemoteTest capability model: a test is
// polymorphic over a set of optional capability interfaces, probed with a
// type-assertion helper rather than modeled via inheritance (see spec §9).
package test

import (
	"context"

	"chromiumos/invoke/build"
	"chromiumos/invoke/device"
)

// RemoteTest is the base contract every test in an invocation's test list
// satisfies. Capabilities beyond Run are optional and probed with
// AsBuildReceiver, AsDeviceTest, AsShardable, and AsResumable.
type RemoteTest interface {
	// Run executes the test, reporting events to listener.
	Run(ctx context.Context, listener Listener) error
	// Name identifies the test for logging.
	Name() string
}

// Listener is the subset of the invocation listener contract a RemoteTest
// needs to report its own events. It is satisfied by
// chromiumos/invoke/listener.InvocationListener.
type Listener interface {
	TestRunStarted(ctx context.Context, runName string, testCount int) error
	TestStarted(ctx context.Context, testName string) error
	TestFailed(ctx context.Context, testName string, trace string) error
	TestEnded(ctx context.Context, testName string) error
	TestLog(ctx context.Context, dataName, dataType string, data []byte) error
	TestRunFailed(ctx context.Context, cause error) error
	TestRunStopped(ctx context.Context) error
	TestRunEnded(ctx context.Context, elapsed int64) error
}

// BuildReceiver is implemented by tests that accept the invocation's build
// before running.
type BuildReceiver interface {
	RemoteTest
	SetBuild(b *build.Info)
}

// AsBuildReceiver probes t for the BuildReceiver capability.
func AsBuildReceiver(t RemoteTest) (BuildReceiver, bool) {
	br, ok := t.(BuildReceiver)
	return br, ok
}

// DeviceTest is implemented by tests that need a device.
type DeviceTest interface {
	RemoteTest
	SetDevice(d device.Device)
}

// AsDeviceTest probes t for the DeviceTest capability.
func AsDeviceTest(t RemoteTest) (DeviceTest, bool) {
	dt, ok := t.(DeviceTest)
	return dt, ok
}

// Shardable is implemented by tests that may split into independent
// children. Split may return an empty slice to indicate the test declined
// to split this time (e.g. it has too few cases to be worth sharding).
type Shardable interface {
	RemoteTest
	Split(ctx context.Context, shardCount int) ([]RemoteTest, error)
}

// AsShardable probes t for the Shardable capability.
func AsShardable(t RemoteTest) (Shardable, bool) {
	s, ok := t.(Shardable)
	return s, ok
}

// Resumable is implemented by tests that can report whether they currently
// hold enough state to be resumed after a device loss.
type Resumable interface {
	RemoteTest
	IsResumable() bool
}

// AsResumable probes t for the Resumable capability.
func AsResumable(t RemoteTest) (Resumable, bool) {
	r, ok := t.(Resumable)
	return r, ok
}

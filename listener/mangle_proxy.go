// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package listener

import (
	"context"

	"chromiumos/invoke/build"
)

// MangleProxy interposes on every event carrying a test ID, a run name, or
// build info, rewriting the value via the corresponding hook before
// forwarding to Downstream. All other events pass through unchanged. Hooks
// default to identity and must return new values rather than mutate their
// argument.
type MangleProxy struct {
	Downstream InvocationListener

	// MangleTestID rewrites a test name before it reaches Downstream.
	// Defaults to the identity function.
	MangleTestID func(testName string) string
	// MangleRunName rewrites a test-run name before it reaches
	// Downstream. Defaults to the identity function.
	MangleRunName func(runName string) string
	// MangleBuildInfo rewrites the build before it reaches Downstream.
	// Defaults to the identity function. Must not mutate b.
	MangleBuildInfo func(b *build.Info) *build.Info
}

var _ InvocationListener = (*MangleProxy)(nil)

// NewMangleProxy creates a MangleProxy forwarding to downstream with
// identity hooks; set the Mangle* fields to override.
func NewMangleProxy(downstream InvocationListener) *MangleProxy {
	return &MangleProxy{
		Downstream:      downstream,
		MangleTestID:    func(s string) string { return s },
		MangleRunName:   func(s string) string { return s },
		MangleBuildInfo: func(b *build.Info) *build.Info { return b },
	}
}

func (p *MangleProxy) testID(name string) string {
	if p.MangleTestID == nil {
		return name
	}
	return p.MangleTestID(name)
}

func (p *MangleProxy) runName(name string) string {
	if p.MangleRunName == nil {
		return name
	}
	return p.MangleRunName(name)
}

func (p *MangleProxy) buildInfo(b *build.Info) *build.Info {
	if p.MangleBuildInfo == nil {
		return b
	}
	return p.MangleBuildInfo(b)
}

func (p *MangleProxy) InvocationStarted(ctx context.Context, b *build.Info) error {
	return p.Downstream.InvocationStarted(ctx, p.buildInfo(b))
}

func (p *MangleProxy) InvocationFailed(ctx context.Context, cause error) error {
	return p.Downstream.InvocationFailed(ctx, cause)
}

func (p *MangleProxy) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	return p.Downstream.InvocationEnded(ctx, elapsedMS)
}

func (p *MangleProxy) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	return p.Downstream.TestRunStarted(ctx, p.runName(runName), testCount)
}

func (p *MangleProxy) TestStarted(ctx context.Context, testName string) error {
	return p.Downstream.TestStarted(ctx, p.testID(testName))
}

func (p *MangleProxy) TestFailed(ctx context.Context, testName string, trace string) error {
	return p.Downstream.TestFailed(ctx, p.testID(testName), trace)
}

func (p *MangleProxy) TestEnded(ctx context.Context, testName string) error {
	return p.Downstream.TestEnded(ctx, p.testID(testName))
}

func (p *MangleProxy) TestLog(ctx context.Context, dataName, dataType string, data []byte) error {
	return p.Downstream.TestLog(ctx, dataName, dataType, data)
}

func (p *MangleProxy) TestRunFailed(ctx context.Context, cause error) error {
	return p.Downstream.TestRunFailed(ctx, cause)
}

func (p *MangleProxy) TestRunStopped(ctx context.Context) error {
	return p.Downstream.TestRunStopped(ctx)
}

func (p *MangleProxy) TestRunEnded(ctx context.Context, elapsedMS int64) error {
	return p.Downstream.TestRunEnded(ctx, elapsedMS)
}

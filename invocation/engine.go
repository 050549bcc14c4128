// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package invocation implements the Invocation Engine (C3): the state
// machine that drives one invocation's lifecycle from build fetch through
// cleanup, routing failures per the taxonomy in spec §7.
package invocation

import (
	"context"
	stderrors "errors"

	"github.com/shirou/gopsutil/v3/load"

	"chromiumos/invoke/build"
	"chromiumos/invoke/config"
	"chromiumos/invoke/device"
	"chromiumos/invoke/errors"
	"chromiumos/invoke/listener"
	"chromiumos/invoke/logging"
	"chromiumos/invoke/reschedule"
	"chromiumos/invoke/resume"
	"chromiumos/invoke/shard"
	"chromiumos/invoke/test"
	"chromiumos/invoke/timing"
)

// Engine drives one invocation at a time per call to Invoke. Engine itself
// holds no mutable state between calls: spec §5 requires each invocation to
// own its own logger registration, build, device, and log output, with no
// shared mutable state across concurrently-running engines.
type Engine struct{}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

// Invoke drives one invocation of cfg against d, submitting shard children
// or a resumed continuation to rescheduler as needed. It returns the error
// that should propagate to the caller of invoke: nil on success or a
// handled failure that does not need to be rethrown, or the original cause
// for DeviceNotAvailable and unexpected faults (spec §7).
func (e *Engine) Invoke(ctx context.Context, d device.Device, cfg *config.Configuration, rescheduler reschedule.Rescheduler) error {
	status := newStatus()
	status.Set(StatusFetchingBuild)

	// Attach the process-wide log registry to ctx so that every
	// logging.Infof call made anywhere beneath this call reaches every
	// currently-registered invocation's log output, not just this one.
	ctx = logging.AttachLogger(ctx, logging.Registry)

	perInvocationLogger := logging.NewSinkLogger(logging.LevelInfo, true, logging.NewWriterSink(cfg.LogOutput))
	logging.Registry.AddLogger(perInvocationLogger)
	defer logging.Registry.RemoveLogger(perInvocationLogger)
	defer cfg.LogOutput.Close()

	if cfg.CommandOptions.ReportHostLoad {
		if avg, err := load.Avg(); err == nil {
			status.Setf("%s (host load %.2f %.2f %.2f)", StatusFetchingBuild, avg.Load1, avg.Load5, avg.Load15)
			logging.Infof(ctx, "host load: %.2f %.2f %.2f", avg.Load1, avg.Load5, avg.Load15)
		}
	}

	b, err := cfg.BuildProvider.GetBuild(ctx)
	if err != nil {
		var retrieval *build.RetrievalError
		if stderrors.As(err, &retrieval) {
			forwarder := listener.NewForwarder(cfg.Listeners...)
			forwarder.InvocationStarted(ctx, retrieval.Info)
			forwarder.InvocationFailed(ctx, retrieval)
			forwarder.InvocationEnded(ctx, 0)
			return nil
		}
		// No partial build identity is known, so no listener has
		// anything to attach the failure to; swallow and let the
		// deferred unregister/close drain whatever was logged.
		logging.Infof(ctx, "failed to fetch build: %v", err)
		return nil
	}
	if b == nil {
		status.Set(StatusNoBuildToTest)
		logging.Infof(ctx, "no build to test")
		return nil
	}

	for _, t := range cfg.Tests {
		if br, ok := test.AsBuildReceiver(t); ok {
			br.SetBuild(b)
		}
	}

	sharded, shardErr := e.shardIfNeeded(ctx, status, b, cfg, rescheduler)
	if shardErr != nil {
		return shardErr
	}
	if sharded {
		return nil
	}

	d.SetRecovery(cfg.DeviceRecovery)
	return e.performInvocation(ctx, d, b, cfg, rescheduler, status)
}

// shardIfNeeded implements §4.3.1. It returns true if the invocation was
// sharded (in which case the caller must return without running tests
// itself), along with any error encountered while splitting.
func (e *Engine) shardIfNeeded(ctx context.Context, status *Status, b *build.Info, cfg *config.Configuration, rescheduler reschedule.Rescheduler) (bool, error) {
	var allTests []test.RemoteTest
	sharded := false
	for _, t := range cfg.Tests {
		if s, ok := test.AsShardable(t); ok {
			children, err := s.Split(ctx, cfg.CommandOptions.DesiredShardCount)
			if err != nil {
				return false, errors.Wrapf(err, "failed to split test %s", t.Name())
			}
			if len(children) > 0 {
				allTests = append(allTests, children...)
				sharded = true
				continue
			}
		}
		allTests = append(allTests, t)
	}
	if !sharded {
		return false, nil
	}
	if cfg.LogOutputFactory == nil {
		return false, errors.New("sharding requires a LogOutputFactory")
	}

	status.Set(StatusSharding)

	aggregator := shard.New(cfg.Listeners, len(allTests))
	aggregator.InvocationStarted(ctx, b)

	for _, t := range allTests {
		newLogOutput, err := cfg.LogOutputFactory()
		if err != nil {
			logging.Infof(ctx, "failed to create log output for shard child %s: %v", t.Name(), err)
			continue
		}

		child := cfg.Clone(newLogOutput)
		child.Tests = []test.RemoteTest{t}
		child.Listeners = []listener.InvocationListener{listener.NewShardListener(aggregator)}
		// Clones own their own build: CleanUp is a deliberate no-op
		// (nil delegate) since the original's CleanUp runs once below
		// on the real provider.
		child.BuildProvider = build.NewExistingBuildProvider(b.Clone(), nil)

		if !rescheduler.ScheduleConfig(ctx, child) {
			logging.Infof(ctx, "rescheduler rejected shard child for test %s", t.Name())
			child.LogOutput.Close()
		}
	}

	cfg.BuildProvider.CleanUp(ctx, b)
	return true, nil
}

// performInvocation implements §4.3.2.
func (e *Engine) performInvocation(ctx context.Context, d device.Device, b *build.Info, cfg *config.Configuration, rescheduler reschedule.Rescheduler, status *Status) (retErr error) {
	startTime := timing.Now()
	b.DeviceSerial = cfg.DeviceOptions.Serial

	forwarder := listener.NewForwarder(cfg.Listeners...)
	e.startInvocation(ctx, status, forwarder, b)

	var failure error
	resumed := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				failure = errors.Errorf("unexpected fault running invocation: %v", r)
			}
		}()

		if err := d.SetOptions(ctx, cfg.DeviceOptions); err != nil {
			if stderrors.Is(err, device.ErrNotAvailable) {
				failure = err
			} else {
				failure = NewTargetSetupError(err)
			}
			return
		}
		for _, p := range cfg.Preparers {
			if err := p.SetUp(ctx, d, b); err != nil {
				var buildErr *BuildError
				switch {
				case stderrors.As(err, &buildErr):
					failure = err
				case stderrors.Is(err, device.ErrNotAvailable):
					failure = err
				default:
					failure = NewTargetSetupError(err)
				}
				return
			}
		}
		if err := e.runTests(ctx, d, cfg); err != nil {
			failure = err
		}
	}()

	if failure != nil {
		var buildErr *BuildError
		var targetErr *TargetSetupError
		switch {
		case stderrors.As(failure, &buildErr):
			e.emitBugReport(ctx, d, forwarder)
			e.reportFailure(ctx, cfg, forwarder, b, failure, false)
		case stderrors.As(failure, &targetErr):
			e.reportFailure(ctx, cfg, forwarder, b, failure, true)
		case stderrors.Is(failure, device.ErrNotAvailable):
			elapsedMS := timing.Since(startTime).Milliseconds()
			newLogOutput, err := cfg.LogOutputFactory()
			if err != nil {
				logging.Infof(ctx, "failed to create log output for resume: %v", err)
			} else {
				resumed = resume.Try(ctx, cfg, b, rescheduler, elapsedMS, newLogOutput)
			}
			if !resumed {
				e.reportFailure(ctx, cfg, forwarder, b, failure, true)
			}
			retErr = failure
		default:
			e.reportFailure(ctx, cfg, forwarder, b, failure, true)
			retErr = failure
		}
	}

	status.Set(StatusDoneRunningTests)
	e.reportLogs(ctx, d, cfg.LogOutput, forwarder)
	elapsedMS := timing.Since(startTime).Milliseconds()
	if !resumed {
		forwarder.InvocationEnded(ctx, elapsedMS)
	}
	cfg.BuildProvider.CleanUp(ctx, b)

	return retErr
}

// startInvocation implements §4.3.3.
func (e *Engine) startInvocation(ctx context.Context, status *Status, forwarder listener.InvocationListener, b *build.Info) {
	status.Set(runningStatus(b.TestTag, b.BuildID))
	forwarder.InvocationStarted(ctx, b)
}

// runTests implements §4.3.4.
func (e *Engine) runTests(ctx context.Context, d device.Device, cfg *config.Configuration) error {
	for _, t := range cfg.Tests {
		if dt, ok := test.AsDeviceTest(t); ok {
			dt.SetDevice(d)
		}
		l := listener.NewForwarder(cfg.Listeners...)
		if err := t.Run(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// reportFailure emits invocation-failed and, unless the failure is a
// BuildError, tells the build provider the build was never meaningfully
// tested.
func (e *Engine) reportFailure(ctx context.Context, cfg *config.Configuration, forwarder listener.InvocationListener, b *build.Info, cause error, buildNotTested bool) {
	forwarder.InvocationFailed(ctx, cause)
	if buildNotTested {
		cfg.BuildProvider.BuildNotTested(ctx, b)
	}
}

// emitBugReport captures a bug report on BuildError, if the device supports
// it, and attaches it to listeners under the canonical log name.
func (e *Engine) emitBugReport(ctx context.Context, d device.Device, forwarder listener.InvocationListener) {
	br, ok := device.AsBugReporter(d)
	if !ok {
		return
	}
	data, err := br.CaptureBugReport(ctx)
	if err != nil {
		logging.Infof(ctx, "failed to capture bug report: %v", err)
		return
	}
	forwarder.TestLog(ctx, BuildErrorBugreportName, "text/plain", data)
}

// reportLogs captures the device's own log, if it supports doing so, and
// reads back the invocation's own log output, if it supports that,
// attaching each to listeners under its canonical log name.
func (e *Engine) reportLogs(ctx context.Context, d device.Device, logOutput config.LogOutput, forwarder listener.InvocationListener) {
	if lc, ok := device.AsLogCapturer(d); ok {
		data, err := lc.CaptureLog(ctx)
		if err != nil {
			logging.Infof(ctx, "failed to capture device log: %v", err)
		} else if len(data) > 0 {
			forwarder.TestLog(ctx, DeviceLogcatName, "text/plain", data)
		}
	}

	if rlo, ok := config.AsReadableLogOutput(logOutput); ok {
		data, err := rlo.ReadLog(ctx)
		if err != nil {
			logging.Infof(ctx, "failed to read invocation log: %v", err)
			return
		}
		forwarder.TestLog(ctx, HostLogName, "text/plain", data)
	}
}

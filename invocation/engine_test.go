// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package invocation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chromiumos/invoke/build"
	"chromiumos/invoke/config"
	"chromiumos/invoke/device"
	"chromiumos/invoke/invocation"
	"chromiumos/invoke/listener"
	"chromiumos/invoke/reschedule"
	"chromiumos/invoke/test"
)

type fakeDevice struct {
	optionsSet    device.Options
	recovery      device.Recovery
	setOptionsErr error
}

func (d *fakeDevice) SetOptions(ctx context.Context, opts device.Options) error {
	d.optionsSet = opts
	return d.setOptionsErr
}

func (d *fakeDevice) SetRecovery(r device.Recovery) { d.recovery = r }

type fakeBuildProvider struct {
	build *build.Info
	err   error

	cleanedUp []*build.Info
	notTested []*build.Info
}

func (p *fakeBuildProvider) GetBuild(ctx context.Context) (*build.Info, error) {
	return p.build, p.err
}

func (p *fakeBuildProvider) BuildNotTested(ctx context.Context, b *build.Info) {
	p.notTested = append(p.notTested, b)
}

func (p *fakeBuildProvider) CleanUp(ctx context.Context, b *build.Info) {
	p.cleanedUp = append(p.cleanedUp, b)
}

type fakeLogOutput struct {
	closed bool
}

func (l *fakeLogOutput) Write(p []byte) (int, error) { return len(p), nil }
func (l *fakeLogOutput) Close() error {
	l.closed = true
	return nil
}

// ReadLog makes fakeLogOutput satisfy config.ReadableLogOutput, so tests
// exercise the engine's host_log read-back path.
func (l *fakeLogOutput) ReadLog(ctx context.Context) ([]byte, error) {
	return []byte("fake log contents"), nil
}

var _ config.ReadableLogOutput = (*fakeLogOutput)(nil)

// bugReportingDevice adds the BugReporter capability to fakeDevice, for
// tests exercising the BuildError disposition's bug-report attachment.
type bugReportingDevice struct {
	fakeDevice
}

func (d *bugReportingDevice) CaptureBugReport(ctx context.Context) ([]byte, error) {
	return []byte("fake bug report"), nil
}

var _ device.BugReporter = (*bugReportingDevice)(nil)

func newLogOutputFactory() func() (config.LogOutput, error) {
	return func() (config.LogOutput, error) { return &fakeLogOutput{}, nil }
}

type fakeTest struct {
	name      string
	resumable bool
	runFunc   func(ctx context.Context, l test.Listener) error

	gotDevice device.Device
	gotBuild  *build.Info
}

func (t *fakeTest) Run(ctx context.Context, l test.Listener) error {
	l.TestRunStarted(ctx, t.name, 1)
	l.TestStarted(ctx, t.name)
	if t.runFunc != nil {
		if err := t.runFunc(ctx, l); err != nil {
			return err
		}
	}
	l.TestEnded(ctx, t.name)
	l.TestRunEnded(ctx, 0)
	return nil
}

func (t *fakeTest) Name() string              { return t.name }
func (t *fakeTest) SetDevice(d device.Device) { t.gotDevice = d }
func (t *fakeTest) SetBuild(b *build.Info)    { t.gotBuild = b }
func (t *fakeTest) IsResumable() bool         { return t.resumable }

type fakeShardableTest struct {
	name     string
	children []test.RemoteTest
}

func (t *fakeShardableTest) Run(ctx context.Context, l test.Listener) error { return nil }
func (t *fakeShardableTest) Name() string                                  { return t.name }
func (t *fakeShardableTest) Split(ctx context.Context, shardCount int) ([]test.RemoteTest, error) {
	return t.children, nil
}

type fakePreparer struct {
	err error
}

func (p *fakePreparer) SetUp(ctx context.Context, d device.Device, b *build.Info) error {
	return p.err
}

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingListener) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingListener) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingListener) InvocationStarted(ctx context.Context, b *build.Info) error {
	r.add("invocation-started")
	return nil
}
func (r *recordingListener) InvocationFailed(ctx context.Context, cause error) error {
	r.add("invocation-failed")
	return nil
}
func (r *recordingListener) InvocationEnded(ctx context.Context, elapsedMS int64) error {
	r.add("invocation-ended")
	return nil
}
func (r *recordingListener) TestRunStarted(ctx context.Context, runName string, testCount int) error {
	r.add("test-run-started")
	return nil
}
func (r *recordingListener) TestStarted(ctx context.Context, testName string) error {
	r.add("test-started")
	return nil
}
func (r *recordingListener) TestFailed(ctx context.Context, testName, trace string) error {
	r.add("test-failed")
	return nil
}
func (r *recordingListener) TestEnded(ctx context.Context, testName string) error {
	r.add("test-ended")
	return nil
}
func (r *recordingListener) TestLog(ctx context.Context, dataName, dataType string, data []byte) error {
	r.add("test-log:" + dataName)
	return nil
}
func (r *recordingListener) TestRunFailed(ctx context.Context, cause error) error {
	r.add("test-run-failed")
	return nil
}
func (r *recordingListener) TestRunStopped(ctx context.Context) error {
	r.add("test-run-stopped")
	return nil
}
func (r *recordingListener) TestRunEnded(ctx context.Context, elapsedMS int64) error {
	r.add("test-run-ended")
	return nil
}

var _ listener.InvocationListener = (*recordingListener)(nil)

func TestInvokeHappyPath(t *testing.T) {
	rec := &recordingListener{}
	tst := &fakeTest{name: "t1"}
	provider := &fakeBuildProvider{build: build.NewInfo("tag", "17")}
	logOut := &fakeLogOutput{}
	cfg := &config.Configuration{
		BuildProvider:    provider,
		Tests:            []test.RemoteTest{tst},
		Listeners:        []listener.InvocationListener{rec},
		LogOutput:        logOut,
		LogOutputFactory: newLogOutputFactory(),
	}
	e := invocation.New()

	if err := e.Invoke(context.Background(), &fakeDevice{}, cfg, &reschedule.InMemory{}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	events := rec.Events()
	if len(events) == 0 || events[0] != "invocation-started" {
		t.Errorf("first event = %v; want invocation-started", events)
	}
	if len(events) == 0 || events[len(events)-1] != "invocation-ended" {
		t.Errorf("last event = %v; want invocation-ended", events)
	}
	if len(provider.notTested) != 0 {
		t.Errorf("BuildNotTested called %d times; want 0", len(provider.notTested))
	}
	if len(provider.cleanedUp) != 1 {
		t.Errorf("CleanUp called %d times; want 1", len(provider.cleanedUp))
	}
	if !logOut.closed {
		t.Error("log output not closed")
	}
	if tst.gotBuild == nil {
		t.Error("test did not receive the build")
	}

	foundHostLog := false
	for _, ev := range events {
		if ev == "test-log:host_log" {
			foundHostLog = true
		}
	}
	if !foundHostLog {
		t.Errorf("events = %v; want a test-log:host_log entry", events)
	}
}

func TestInvokeBuildError(t *testing.T) {
	rec := &recordingListener{}
	provider := &fakeBuildProvider{build: build.NewInfo("tag", "17")}
	preparer := &fakePreparer{err: invocation.NewBuildError(errors.New("refused"))}
	cfg := &config.Configuration{
		BuildProvider:    provider,
		Preparers:        []config.Preparer{preparer},
		Listeners:        []listener.InvocationListener{rec},
		LogOutput:        &fakeLogOutput{},
		LogOutputFactory: newLogOutputFactory(),
	}
	e := invocation.New()

	if err := e.Invoke(context.Background(), &bugReportingDevice{}, cfg, &reschedule.InMemory{}); err != nil {
		t.Fatalf("Invoke() error = %v; want nil (BuildError is not rethrown)", err)
	}

	// Spec scenario 2 (§8): the bug report is attached before
	// invocation-failed, and the invocation's own log is attached as
	// host_log before invocation-ended.
	want := []string{
		"invocation-started",
		"test-log:build_error_bugreport",
		"invocation-failed",
		"test-log:host_log",
		"invocation-ended",
	}
	if diff := cmp.Diff(rec.Events(), want); diff != "" {
		t.Errorf("Events() mismatch (-got +want):\n%s", diff)
	}
	if len(provider.notTested) != 0 {
		t.Errorf("BuildNotTested called for BuildError; want not called")
	}
	if len(provider.cleanedUp) != 1 {
		t.Errorf("CleanUp called %d times; want 1", len(provider.cleanedUp))
	}
}

func TestInvokeDeviceLossWithResume(t *testing.T) {
	rec := &recordingListener{}
	provider := &fakeBuildProvider{build: build.NewInfo("tag", "17")}
	tst := &fakeTest{
		name:      "t1",
		resumable: true,
		runFunc: func(ctx context.Context, l test.Listener) error {
			return device.ErrNotAvailable
		},
	}
	cfg := &config.Configuration{
		BuildProvider:    provider,
		Tests:            []test.RemoteTest{tst},
		Listeners:        []listener.InvocationListener{rec},
		LogOutput:        &fakeLogOutput{},
		LogOutputFactory: newLogOutputFactory(),
	}
	e := invocation.New()
	r := &reschedule.InMemory{}

	err := e.Invoke(context.Background(), &fakeDevice{}, cfg, r)
	if !errors.Is(err, device.ErrNotAvailable) {
		t.Fatalf("Invoke() error = %v; want device.ErrNotAvailable", err)
	}

	for _, forbidden := range []string{"invocation-failed", "invocation-ended"} {
		for _, ev := range rec.Events() {
			if ev == forbidden {
				t.Errorf("unexpected %s on first attempt: %v", forbidden, rec.Events())
			}
		}
	}

	submitted := r.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("len(Submitted()) = %d; want 1", len(submitted))
	}
	if len(submitted[0].Listeners) != 1 {
		t.Errorf("resumed config has %d listeners; want 1 (a ResumeForwarder)", len(submitted[0].Listeners))
	}
}

// TestInvokeDeviceLossDuringSetOptions covers spec §4.3.2's single
// try/except: setOptions, every preparer's setUp, and runTests all raise
// DeviceNotAvailable through the same path, not just runTests.
func TestInvokeDeviceLossDuringSetOptions(t *testing.T) {
	rec := &recordingListener{}
	provider := &fakeBuildProvider{build: build.NewInfo("tag", "17")}
	tst := &fakeTest{name: "t1", resumable: true}
	cfg := &config.Configuration{
		BuildProvider:    provider,
		Tests:            []test.RemoteTest{tst},
		Listeners:        []listener.InvocationListener{rec},
		LogOutput:        &fakeLogOutput{},
		LogOutputFactory: newLogOutputFactory(),
	}
	e := invocation.New()
	r := &reschedule.InMemory{}
	d := &fakeDevice{setOptionsErr: device.ErrNotAvailable}

	err := e.Invoke(context.Background(), d, cfg, r)
	if !errors.Is(err, device.ErrNotAvailable) {
		t.Fatalf("Invoke() error = %v; want device.ErrNotAvailable", err)
	}

	submitted := r.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("len(Submitted()) = %d; want 1 (resume should have been attempted)", len(submitted))
	}
}

// TestInvokeDeviceLossDuringPreparerSetUp covers the same try/except for a
// preparer's SetUp call.
func TestInvokeDeviceLossDuringPreparerSetUp(t *testing.T) {
	rec := &recordingListener{}
	provider := &fakeBuildProvider{build: build.NewInfo("tag", "17")}
	tst := &fakeTest{name: "t1", resumable: true}
	preparer := &fakePreparer{err: device.ErrNotAvailable}
	cfg := &config.Configuration{
		BuildProvider:    provider,
		Preparers:        []config.Preparer{preparer},
		Tests:            []test.RemoteTest{tst},
		Listeners:        []listener.InvocationListener{rec},
		LogOutput:        &fakeLogOutput{},
		LogOutputFactory: newLogOutputFactory(),
	}
	e := invocation.New()
	r := &reschedule.InMemory{}

	err := e.Invoke(context.Background(), &fakeDevice{}, cfg, r)
	if !errors.Is(err, device.ErrNotAvailable) {
		t.Fatalf("Invoke() error = %v; want device.ErrNotAvailable", err)
	}

	submitted := r.Submitted()
	if len(submitted) != 1 {
		t.Fatalf("len(Submitted()) = %d; want 1 (resume should have been attempted)", len(submitted))
	}
}

func TestInvokeSharding(t *testing.T) {
	rec := &recordingListener{}
	shardableA := &fakeShardableTest{name: "A", children: []test.RemoteTest{
		&fakeTest{name: "a1"}, &fakeTest{name: "a2"}, &fakeTest{name: "a3"},
	}}
	shardableB := &fakeShardableTest{name: "B", children: []test.RemoteTest{
		&fakeTest{name: "b1"}, &fakeTest{name: "b2"},
	}}

	provider := &fakeBuildProvider{build: build.NewInfo("tag", "17")}
	e := invocation.New()

	var mu sync.Mutex
	ran := 0
	r := &reschedule.InMemory{
		Workers: 5,
		Run: func(ctx context.Context, childCfg *config.Configuration) {
			e.Invoke(ctx, &fakeDevice{}, childCfg, &reschedule.InMemory{})
			mu.Lock()
			ran++
			mu.Unlock()
		},
	}

	cfg := &config.Configuration{
		BuildProvider:    provider,
		Tests:            []test.RemoteTest{shardableA, shardableB},
		Listeners:        []listener.InvocationListener{rec},
		LogOutput:        &fakeLogOutput{},
		LogOutputFactory: newLogOutputFactory(),
	}

	if err := e.Invoke(context.Background(), &fakeDevice{}, cfg, r); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	submitted := r.Submitted()
	if len(submitted) != 5 {
		t.Fatalf("len(Submitted()) = %d; want 5", len(submitted))
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		done := ran == 5
		mu.Unlock()
		if done || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	started, ended := 0, 0
	for _, ev := range rec.Events() {
		switch ev {
		case "invocation-started":
			started++
		case "invocation-ended":
			ended++
		}
	}
	if started != 1 {
		t.Errorf("invocation-started count = %d; want 1", started)
	}
	if ended != 1 {
		t.Errorf("invocation-ended count = %d; want 1", ended)
	}
}

func TestInvokeNoBuildToTest(t *testing.T) {
	provider := &fakeBuildProvider{}
	logOut := &fakeLogOutput{}
	cfg := &config.Configuration{BuildProvider: provider, LogOutput: logOut}
	e := invocation.New()

	if err := e.Invoke(context.Background(), &fakeDevice{}, cfg, &reschedule.InMemory{}); err != nil {
		t.Fatalf("Invoke() error = %v; want nil", err)
	}
	if !logOut.closed {
		t.Error("log output not closed")
	}
}

func TestInvokeBuildRetrievalError(t *testing.T) {
	rec := &recordingListener{}
	partial := build.NewInfo("tag", "")
	retrieval := &build.RetrievalError{Info: partial, Err: errors.New("fetch failed")}
	provider := &fakeBuildProvider{err: retrieval}
	cfg := &config.Configuration{
		BuildProvider: provider,
		Listeners:     []listener.InvocationListener{rec},
		LogOutput:     &fakeLogOutput{},
	}
	e := invocation.New()

	if err := e.Invoke(context.Background(), &fakeDevice{}, cfg, &reschedule.InMemory{}); err != nil {
		t.Fatalf("Invoke() error = %v; want nil (BuildRetrievalError is not rethrown)", err)
	}

	want := []string{"invocation-started", "invocation-failed", "invocation-ended"}
	if diff := cmp.Diff(rec.Events(), want); diff != "" {
		t.Errorf("Events() mismatch (-got +want):\n%s", diff)
	}
	if len(provider.notTested) != 0 {
		t.Error("BuildNotTested called for BuildRetrievalError; want not called")
	}
	if len(provider.cleanedUp) != 0 {
		t.Error("CleanUp called for BuildRetrievalError; want not called")
	}
}

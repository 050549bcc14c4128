// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config defines the Configuration aggregate that the invocation
// engine drives: a build provider, an ordered preparer and test list, the
// invocation's listeners, and the device/command option bags.
package config

import (
	"context"
	"io"

	"chromiumos/invoke/build"
	"chromiumos/invoke/device"
	"chromiumos/invoke/listener"
	"chromiumos/invoke/test"
)

// Preparer sets up the target device before tests run. Any failure it
// reports is routed by the engine per spec §7's BuildError/TargetSetupError
// distinction: preparers and tests share the same failure taxonomy.
type Preparer interface {
	SetUp(ctx context.Context, d device.Device, b *build.Info) error
}

// CommandOptions is a bag of per-invocation options. The engine reads
// ReportHostLoad and DesiredShardCount and passes Extra through without
// interpreting it.
type CommandOptions struct {
	// ReportHostLoad annotates the engine's status string with host load
	// (via gopsutil) while fetching a build. Off by default; has no
	// effect on listener-visible behavior.
	ReportHostLoad bool
	// DesiredShardCount is the hint passed to every Shardable test's
	// Split call. A test is free to ignore it and split into a
	// different number of children, or decline to split at all.
	DesiredShardCount int
	// Extra carries collaborator-defined options this package does not
	// interpret.
	Extra map[string]string
}

// Clone returns a value-copy of o.
func (o CommandOptions) Clone() CommandOptions {
	extra := make(map[string]string, len(o.Extra))
	for k, v := range o.Extra {
		extra[k] = v
	}
	return CommandOptions{
		ReportHostLoad:    o.ReportHostLoad,
		DesiredShardCount: o.DesiredShardCount,
		Extra:             extra,
	}
}

// LogOutput is the per-invocation log destination. It is an independent
// resource: a cloned Configuration gets its own LogOutput, and the
// invocation that owns a clone is responsible for closing it.
type LogOutput interface {
	io.Writer
	io.Closer
}

// ReadableLogOutput is an optional LogOutput capability: a LogOutput that
// can read back everything written to it so far. The engine probes for
// this after an invocation finishes running and, if present, attaches the
// result as the canonical host_log entry (spec §6) alongside the
// device's own log, mirroring the idiom of device.AsLogCapturer and
// device.AsBugReporter. A LogOutput that does not support read-back
// simply contributes no host_log entry.
type ReadableLogOutput interface {
	LogOutput
	ReadLog(ctx context.Context) ([]byte, error)
}

// AsReadableLogOutput probes lo for the ReadableLogOutput capability.
func AsReadableLogOutput(lo LogOutput) (ReadableLogOutput, bool) {
	rlo, ok := lo.(ReadableLogOutput)
	return rlo, ok
}

// Configuration aggregates everything one invocation needs to run.
// Configuration is independently cloneable: Clone deep-copies the listener
// slice by reference (listeners are reentrant fan-outs shared across
// shards/resumes) but value-copies LogOutput and the option bags so that
// sharded or resumed invocations do not interfere with each other.
type Configuration struct {
	BuildProvider  build.Provider
	Preparers      []Preparer
	Tests          []test.RemoteTest
	Listeners      []listener.InvocationListener
	LogOutput      LogOutput
	DeviceRecovery device.Recovery
	DeviceOptions  device.Options
	CommandOptions CommandOptions

	// LogOutputFactory mints a fresh LogOutput for a shard child or a
	// resumed continuation. It is shared by reference across clones,
	// the same as BuildProvider: only the resource it produces is
	// independent, not the factory itself.
	LogOutputFactory func() (LogOutput, error)
}

// Clone returns a clone of c suitable for a shard child or a resumed
// continuation: BuildProvider, Preparers, Tests, DeviceRecovery, and
// Listeners are shared (by reference or by re-slicing, since listeners are
// reentrant); LogOutput and the two option bags are deep-copied.
//
// newLogOutput must produce a fresh, independent LogOutput; the caller is
// responsible for choosing how (e.g. a new temp file).
func (c *Configuration) Clone(newLogOutput LogOutput) *Configuration {
	clone := &Configuration{
		BuildProvider:    c.BuildProvider,
		Preparers:        append([]Preparer(nil), c.Preparers...),
		Tests:            append([]test.RemoteTest(nil), c.Tests...),
		Listeners:        append([]listener.InvocationListener(nil), c.Listeners...),
		LogOutput:        newLogOutput,
		DeviceRecovery:   c.DeviceRecovery,
		DeviceOptions:    c.DeviceOptions.Clone(),
		CommandOptions:   c.CommandOptions.Clone(),
		LogOutputFactory: c.LogOutputFactory,
	}
	return clone
}

// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package build defines the build identity that flows through one
// invocation and the contract a build provider must satisfy.
package build

import "context"

// UnknownBuildID distinguishes a build that was fetched without an
// identifier from a named build.
const UnknownBuildID = "UNKNOWN_BUILD_ID"

// Info is an opaque build identity plus key/value attributes. It is mutable
// only during a narrow window: the invocation engine stamps DeviceSerial
// before starting, and it is read-only to listeners thereafter.
type Info struct {
	TestTag      string
	BuildID      string
	DeviceSerial string
	Attributes   map[string]string
}

// NewInfo creates an Info with the given test tag and build ID.
func NewInfo(testTag, buildID string) *Info {
	return &Info{
		TestTag:    testTag,
		BuildID:    buildID,
		Attributes: make(map[string]string),
	}
}

// Clone returns a value-copy of i safe to own from a different invocation
// (e.g. a shard child or a resumed continuation).
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	attrs := make(map[string]string, len(i.Attributes))
	for k, v := range i.Attributes {
		attrs[k] = v
	}
	return &Info{
		TestTag:      i.TestTag,
		BuildID:      i.BuildID,
		DeviceSerial: i.DeviceSerial,
		Attributes:   attrs,
	}
}

// Provider fetches a build to test and reports its ultimate disposition.
type Provider interface {
	// GetBuild returns the build to test, or nil if there is nothing to
	// test. It may return a RetrievalError carrying a partial Info.
	GetBuild(ctx context.Context) (*Info, error)
	// BuildNotTested reports that build was never meaningfully exercised
	// and may be recycled by the provider.
	BuildNotTested(ctx context.Context, build *Info)
	// CleanUp releases any resources associated with build.
	CleanUp(ctx context.Context, build *Info)
}

// RetrievalError is returned by Provider.GetBuild when fetching a build
// failed after a partial build identity was already known (e.g. a build ID
// was resolved but the artifact download failed).
type RetrievalError struct {
	Info *Info
	Err  error
}

func (e *RetrievalError) Error() string {
	return e.Err.Error()
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// ExistingBuildProvider is a pass-through Provider that serves a
// preconstructed build and delegates CleanUp/BuildNotTested to a wrapped
// delegate. It lets a shard child or a resumed continuation own a clone of
// the original build without re-fetching it, while cleanup of the clone
// stays separable from cleanup of the original.
type ExistingBuildProvider struct {
	Build    *Info
	Delegate Provider
}

// NewExistingBuildProvider creates an ExistingBuildProvider serving build
// and delegating CleanUp/BuildNotTested to delegate.
func NewExistingBuildProvider(build *Info, delegate Provider) *ExistingBuildProvider {
	return &ExistingBuildProvider{Build: build, Delegate: delegate}
}

// GetBuild returns the preconstructed build.
func (p *ExistingBuildProvider) GetBuild(ctx context.Context) (*Info, error) {
	return p.Build, nil
}

// BuildNotTested delegates to the wrapped provider.
func (p *ExistingBuildProvider) BuildNotTested(ctx context.Context, build *Info) {
	if p.Delegate != nil {
		p.Delegate.BuildNotTested(ctx, build)
	}
}

// CleanUp delegates to the wrapped provider.
func (p *ExistingBuildProvider) CleanUp(ctx context.Context, build *Info) {
	if p.Delegate != nil {
		p.Delegate.CleanUp(ctx, build)
	}
}

// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"os"

	"chromiumos/invoke/config"
)

// fileLogOutput is a config.LogOutput backed by a temp file on disk. It
// also implements config.ReadableLogOutput, so the engine can read the
// file back once the invocation finishes and attach it to listeners as
// the canonical host_log entry.
type fileLogOutput struct {
	*os.File
}

var (
	_ config.LogOutput         = (*fileLogOutput)(nil)
	_ config.ReadableLogOutput = (*fileLogOutput)(nil)
)

// newFileLogOutput creates a temp file in dir matching pattern and wraps
// it as a fileLogOutput.
func newFileLogOutput(dir, pattern string) (*fileLogOutput, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return &fileLogOutput{File: f}, nil
}

// ReadLog rereads the file from disk rather than from f.File's current
// offset, which sits at the end of the file after a run of writes.
func (f *fileLogOutput) ReadLog(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.Name())
}

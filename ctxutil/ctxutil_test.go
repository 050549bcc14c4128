// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestShortenExistingDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const d = 5 * time.Second
	orig, _ := ctx.Deadline()
	want := orig.Add(-d)

	shortened, cancel2 := Shorten(ctx, d)
	defer cancel2()

	dl, ok := shortened.Deadline()
	if !ok {
		t.Fatal("Shorten returned a context with no deadline")
	}
	if !dl.Equal(want) {
		t.Errorf("Shorten returned deadline %v; want %v", dl, want)
	}
}

func TestShortenNoDeadline(t *testing.T) {
	shortened, cancel := Shorten(context.Background(), 5*time.Second)
	defer cancel()

	if _, ok := shortened.Deadline(); ok {
		t.Error("Shorten invented a deadline where the original context had none")
	}
}


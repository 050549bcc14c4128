// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command invoke is a thin, local-device CLI front end for the invocation
// engine: it parses a command file into argument vectors and runs one
// invocation per vector against a trivial in-process device, for manual
// smoke testing of the engine. Its echo tests neither shard nor resume, so
// a CLI run does not exercise the resumer or the shard aggregator.
package main

import (
	"context"
	"os"

	"github.com/google/subcommands"

	"chromiumos/invoke/logging"
)

func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCommand{}, "")

	console := logging.NewSinkLogger(logging.LevelInfo, true, logging.NewWriterSink(os.Stdout))
	logging.Registry.AddLogger(console)
	defer logging.Registry.RemoveLogger(console)

	ctx := logging.AttachLogger(context.Background(), logging.Registry)
	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}

// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/google/subcommands"

	"chromiumos/invoke/build"
	"chromiumos/invoke/commandfile"
	"chromiumos/invoke/config"
	"chromiumos/invoke/device"
	"chromiumos/invoke/errors"
	"chromiumos/invoke/invocation"
	"chromiumos/invoke/listener"
	"chromiumos/invoke/logging"
	"chromiumos/invoke/reschedule"
	"chromiumos/invoke/test"
)

// runCommand implements subcommands.Command to drive the invocation engine
// from a command file: one invocation per resolved line.
type runCommand struct {
	optionsPath string
	logDir      string
	workers     int
}

var _ subcommands.Command = (*runCommand)(nil)

func (*runCommand) Name() string     { return "run" }
func (*runCommand) Synopsis() string { return "run invocations described by a command file" }
func (*runCommand) Usage() string {
	return `Usage: run [flags] <command file> [extra arg]...

Parses <command file> (MACRO/LONG MACRO/INCLUDE directives and macro
calls included) into one argument vector per resolved line, appends any
extra args to every vector, and runs one invocation per vector against a
local, in-process device.
`
}

func (r *runCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.optionsPath, "options", "", "path to a YAML option bag")
	f.StringVar(&r.logDir, "logdir", os.TempDir(), "directory to write per-invocation log files to")
	f.IntVar(&r.workers, "workers", 4, "maximum number of concurrently-running invocations")
}

func (r *runCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "expected a command file path")
		return subcommands.ExitUsageError
	}
	commandFilePath := f.Arg(0)
	extraArgs := f.Args()[1:]

	bag, err := loadOptionsBag(r.optionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading options: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := os.MkdirAll(r.logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "creating log directory: %v\n", err)
		return subcommands.ExitFailure
	}

	var wg sync.WaitGroup
	rescheduler := &reschedule.InMemory{Workers: r.workers}
	rescheduler.Run = func(ctx context.Context, cfg *config.Configuration) {
		defer wg.Done()
		if err := invocation.New().Invoke(ctx, newLocalDevice(), cfg, rescheduler); err != nil {
			logging.Infof(ctx, "invocation returned error: %v", err)
		}
	}

	sink := &invokeSink{
		ctx:         ctx,
		rescheduler: rescheduler,
		logDir:      r.logDir,
		bag:         bag,
		wg:          &wg,
	}

	if err := commandfile.Parse(ctx, commandFilePath, extraArgs, sink); err != nil {
		fmt.Fprintf(os.Stderr, "parsing command file: %v\n", err)
		return subcommands.ExitFailure
	}

	wg.Wait()
	return subcommands.ExitSuccess
}

// invokeSink adapts commandfile.Parse's argument vectors into one
// Configuration submission per vector: argv[0] is the test tag, argv[1]
// (if present) is the build ID, and the rest name the echo tests to run.
type invokeSink struct {
	ctx         context.Context
	rescheduler *reschedule.InMemory
	logDir      string
	bag         optionsBag
	wg          *sync.WaitGroup
}

var _ commandfile.Sink = (*invokeSink)(nil)

func (s *invokeSink) AddCommand(argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command line")
	}
	testTag := argv[0]
	buildID := testTag
	testNames := argv[1:]
	if len(testNames) > 0 {
		buildID = testNames[0]
		testNames = testNames[1:]
	}
	if len(testNames) == 0 {
		testNames = []string{testTag}
	}

	logFile, err := newFileLogOutput(s.logDir, testTag+"-*.txt")
	if err != nil {
		return errors.Wrapf(err, "creating log file for %s", testTag)
	}

	tests := make([]test.RemoteTest, len(testNames))
	for i, name := range testNames {
		tests[i] = newEchoTest(name)
	}

	cfg := &config.Configuration{
		BuildProvider: build.NewExistingBuildProvider(build.NewInfo(testTag, buildID), nil),
		Tests:         tests,
		Listeners:     []listener.InvocationListener{consoleListener{}},
		LogOutput:     logFile,
		DeviceOptions: device.Options{Serial: s.bag.DeviceSerial, Extra: s.bag.Extra},
		CommandOptions: config.CommandOptions{
			ReportHostLoad:    s.bag.ReportHostLoad,
			DesiredShardCount: s.bag.DesiredShardCount,
			Extra:             s.bag.Extra,
		},
		LogOutputFactory: func() (config.LogOutput, error) {
			return newFileLogOutput(s.logDir, testTag+"-*.txt")
		},
	}

	s.wg.Add(1)
	if !s.rescheduler.ScheduleConfig(s.ctx, cfg) {
		s.wg.Done()
		logFile.Close()
		return errors.Errorf("rescheduler rejected invocation for %s", testTag)
	}
	return nil
}

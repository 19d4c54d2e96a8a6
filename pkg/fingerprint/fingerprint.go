// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fingerprint runs external processes and summarizes each run with a deterministic digest.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bugreducer/bugreducer/pkg/hash"
	"github.com/bugreducer/bugreducer/pkg/log"
	"github.com/bugreducer/bugreducer/pkg/osutil"
	"github.com/bugreducer/bugreducer/pkg/stat"
)

// Options is the execution context passed to every invocation.
type Options struct {
	// DryRun only logs commands, every command "succeeds" with empty output.
	DryRun bool
	// Echo logs every command line and its output.
	Echo bool
	// Timeout kills the process (and everything it spawned) after this time, 0 means no limit.
	Timeout time.Duration
	// Dir is the working dir of the process.
	Dir string
}

// Result describes one finished process.
type Result struct {
	ExitCode int
	Sig      hash.Sig
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
}

func (res *Result) Failed() bool {
	return res.ExitCode != 0 || res.TimedOut
}

func (res *Result) String() string {
	state := fmt.Sprintf("exit status %v", res.ExitCode)
	if res.TimedOut {
		state = "timed out"
	}
	return fmt.Sprintf("%v, fingerprint %v", state, res.Sig.Short())
}

// LaunchError means the binary could not be started at all (e.g. it does not exist).
// It is never a test outcome.
type LaunchError struct {
	Args []string
	Err  error
}

func (err *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %v: %v", strings.Join(err.Args, " "), err.Err)
}

func (err *LaunchError) Unwrap() error {
	return err.Err
}

var (
	statRuns     = stat.New("process runs", "Number of external process invocations", stat.Prometheus("br_process_runs"))
	statFailures = stat.New("process failures", "Number of runs with non-zero exit status",
		stat.Prometheus("br_process_failures"))
	statRunTime = stat.New("process run time", "Distribution of process run times (ms)", stat.Distribution{},
		func(v int) string { return fmt.Sprintf("%v ms", v) })
)

// Run executes args[0] with args[1:] to completion and fingerprints the run.
func Run(ctx context.Context, opts *Options, args ...string) (*Result, error) {
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.DryRun || opts.Echo {
		log.Logf(0, "BRCALL: %v", strings.Join(args, " "))
	}
	if opts.DryRun {
		return &Result{}, nil
	}
	cmd := osutil.Command(args[0], args[1:]...)
	cmd.Dir = opts.Dir
	start := time.Now()
	out, err := osutil.Exec(ctx, opts.Timeout, cmd)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted, not a broken tool.
			return nil, err
		}
		return nil, &LaunchError{Args: args, Err: err}
	}
	statRuns.Add(1)
	statRunTime.Add(int(time.Since(start) / time.Millisecond))
	res := &Result{
		ExitCode: out.ExitCode,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		TimedOut: out.TimedOut,
	}
	res.Sig = Sum(res.Failed(), res.Stdout, res.Stderr)
	if res.Failed() {
		statFailures.Add(1)
	}
	if opts.Echo {
		log.Logf(1, "STDERR:\n%s", res.Stderr)
		log.Logf(1, "STDOUT:\n%s", res.Stdout)
	}
	log.Logf(2, "%v: %v", args[0], res)
	return res, nil
}

// Sum computes the fingerprint of a run: one byte for failure/success, then stdout, then stderr.
// Runs that differ in the exit class never get the same fingerprint.
func Sum(failed bool, stdout, stderr []byte) hash.Sig {
	status := []byte{'0'}
	if failed {
		status[0] = '1'
	}
	return hash.Hash(status, stdout, stderr)
}

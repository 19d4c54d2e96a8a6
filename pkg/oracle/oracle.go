// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package oracle decides whether a pair of extracted programs reproduces a compiler bug.
//
// A bug reproduced by the pipeline under test is a Classification, not an error.
// Errors returned by testers mean that the test itself could not be carried out
// (a tool is missing, or a setup step such as extraction or codegen failed);
// they are reported as *ConfigError so that callers can tell them apart from the bug.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/bugreducer/bugreducer/pkg/fingerprint"
)

type Classification int

const (
	Success Classification = iota
	Crash
	Mismatch
)

func (c Classification) String() string {
	switch c {
	case Success:
		return "success"
	case Crash:
		return "crash"
	case Mismatch:
		return "mismatch"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// Anomaly returns true if the bug was reproduced.
func (c Classification) Anomaly() bool {
	return c != Success
}

// ConfigError is a fatal failure of the test setup. It must abort the reduction.
type ConfigError struct {
	Stage string
	Err   error
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%v): %v", err.Stage, err.Err)
}

func (err *ConfigError) Unwrap() error {
	return err.Err
}

func Configf(stage, msg string, args ...interface{}) error {
	return &ConfigError{Stage: stage, Err: fmt.Errorf(msg, args...)}
}

// AsConfig wraps err into a ConfigError unless it already is one.
// Context cancellation is passed through as is: an interrupted run is not a setup problem.
func AsConfig(stage string, err error) error {
	if err == nil || IsConfigError(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ConfigError{Stage: stage, Err: err}
}

func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}

// Artifacts are the two programs extracted from one candidate list.
type Artifacts struct {
	// Subset contains only the candidate elements.
	Subset     string
	SubsetStem string
	// Complement contains everything except the candidate elements.
	Complement     string
	ComplementStem string
}

type Tester interface {
	Test(ctx context.Context, arts *Artifacts) (Classification, error)
}

// Optimizer is the pipeline under test.
type Optimizer interface {
	Optimize(ctx context.Context, input string, passes []string, output string) (*fingerprint.Result, error)
}

type Codegen interface {
	Generate(ctx context.Context, input, output string) (*fingerprint.Result, error)
}

// Paths names files derived from an artifact stem.
type Paths interface {
	Path(suffix string) string
	PathExt(suffix, ext string) string
}

// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"time"
)

const (
	DefaultDirPerm  = 0755
	DefaultFilePerm = 0644
	DefaultExecPerm = 0755
)

// Output is what a finished process left behind.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
}

// Failed returns true if the process did not exit with 0.
func (out *Output) Failed() bool {
	return out.ExitCode != 0 || out.TimedOut
}

// ErrNotStarted is wrapped by errors returned from Exec when the binary could not be launched.
var ErrNotStarted = errors.New("failed to start")

// Exec runs cmd to completion and captures stdout and stderr separately.
// A non-zero exit status is not an error, it is reported in Output.ExitCode.
// If the timeout (0 means none) expires first, the whole process group is killed
// and Output.TimedOut is set.
// If ctx is cancelled, the process group is killed and the context error is returned
// instead of an Output: the run did not finish on its own and says nothing about the program.
// Otherwise an error is returned only if the process could not be started at all.
func Exec(ctx context.Context, timeout time.Duration, cmd *exec.Cmd) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("not running %q: %w", cmd.Args, err)
	}
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	if cmd.Stdout == nil {
		cmd.Stdout = stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = stderr
	}
	setPdeathsig(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w %v %+v: %w", ErrNotStarted, cmd.Path, cmd.Args, err)
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	// Whoever moves state out of execRunning first decides how the run ended.
	var state atomic.Int32
	done := make(chan struct{})
	watcher := make(chan struct{})
	go func() {
		defer close(watcher)
		end := execTimedOut
		select {
		case <-expired:
		case <-ctx.Done():
			end = execCancelled
		case <-done:
			return
		}
		if state.CompareAndSwap(execRunning, end) {
			killPgroup(cmd)
			cmd.Process.Kill()
		}
	}()
	err := cmd.Wait()
	state.CompareAndSwap(execRunning, execFinished)
	close(done)
	<-watcher
	if state.Load() == execCancelled || ctx.Err() != nil {
		return nil, fmt.Errorf("%q interrupted: %w", cmd.Args, context.Cause(ctx))
	}
	out := &Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		TimedOut: state.Load() == execTimedOut,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to wait for %q: %w", cmd.Args, err)
		}
		out.ExitCode = exitErr.ExitCode()
	}
	return out, nil
}

const (
	execRunning int32 = iota
	execFinished
	execTimedOut
	execCancelled
)

// Command is similar to os/exec.Command, but also puts the process into its own process group,
// so that everything it spawned can be killed on timeout.
func Command(bin string, args ...string) *exec.Cmd {
	cmd := exec.Command(bin, args...)
	setPdeathsig(cmd)
	return cmd
}

// VerboseError carries the stderr of a failed process.
type VerboseError struct {
	Title    string
	Output   []byte
	ExitCode int
}

func (err *VerboseError) Error() string {
	if len(err.Output) == 0 {
		return err.Title
	}
	return fmt.Sprintf("%v\n%s", err.Title, err.Output)
}

// IsExist returns true if the file name exists.
func IsExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// IsAccessible checks if the file can be opened.
func IsAccessible(name string) error {
	if !IsExist(name) {
		return fmt.Errorf("%v does not exist", name)
	}
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("%v can't be opened (%w)", name, err)
	}
	f.Close()
	return nil
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

func WriteFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, DefaultFilePerm)
}

func WriteExecFile(filename string, data []byte) error {
	os.Remove(filename)
	return os.WriteFile(filename, data, DefaultExecPerm)
}

// CopyFile atomically copies oldFile to newFile preserving permissions and modification time.
func CopyFile(oldFile, newFile string) error {
	oldf, err := os.Open(oldFile)
	if err != nil {
		return err
	}
	defer oldf.Close()
	stat, err := oldf.Stat()
	if err != nil {
		return err
	}
	tmpFile := newFile + ".tmp"
	newf, err := os.OpenFile(tmpFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, stat.Mode()&os.ModePerm)
	if err != nil {
		return err
	}
	defer newf.Close()
	if _, err := io.Copy(newf, oldf); err != nil {
		return err
	}
	if err := newf.Close(); err != nil {
		return err
	}
	if err := os.Chtimes(tmpFile, stat.ModTime(), stat.ModTime()); err != nil {
		return err
	}
	return os.Rename(tmpFile, newFile)
}

// Abs returns path made absolute relative to the current working dir.
func Abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

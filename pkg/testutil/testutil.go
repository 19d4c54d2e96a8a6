// Copyright 2022 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/bugreducer/bugreducer/pkg/osutil"
)

func IterCount() int {
	iters := 200
	if testing.Short() {
		iters /= 10
	}
	return iters
}

func RandSource(t *testing.T) rand.Source {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("BR_SEED"); fixed != "" {
		seed, _ = strconv.ParseInt(fixed, 0, 64)
	}
	if os.Getenv("CI") != "" {
		seed = 0 // required for deterministic coverage reports
	}
	t.Logf("seed=%v", seed)
	return rand.NewSource(seed)
}

// WriteScript creates an executable /bin/sh script with the given body in a temp dir.
func WriteScript(t testing.TB, name, body string) string {
	file := filepath.Join(t.TempDir(), name)
	if err := osutil.WriteExecFile(file, []byte("#!/bin/sh\n"+body+"\n")); err != nil {
		t.Fatal(err)
	}
	return file
}

// FakeBuildDir creates a toolchain build dir with <dir>/bin/<name> shell scripts.
func FakeBuildDir(t testing.TB, scripts map[string]string) string {
	dir := t.TempDir()
	for name, body := range scripts {
		file := filepath.Join(dir, "bin", name)
		if err := osutil.MkdirAll(filepath.Dir(file)); err != nil {
			t.Fatal(err)
		}
		if err := osutil.WriteExecFile(file, []byte("#!/bin/sh\n"+body+"\n")); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

type Writer struct {
	testing.TB
}

func (w *Writer) Write(data []byte) (int, error) {
	w.TB.Logf("%s", data)
	return len(data), nil
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"path/filepath"
	"testing"

	"github.com/bugreducer/bugreducer/pkg/osutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")
	require.NoError(t, osutil.WriteFile(base, []byte(`{
	# shared toolchain settings
	"build_dir": "/swift/build",
	"passes": ["-inline"],
	"tools": {"sdk": "/sdk", "target": "x86_64-apple-macosx"},
	"max_steps": 10
}`)))
	local := filepath.Join(dir, "local.json")
	require.NoError(t, osutil.WriteFile(local, []byte(`{"tools": {"module_name": "main"}, "memo": true}`)))

	cfg, report, exit, err := parseFlags("func", []string{
		"-config", base + "," + local,
		"-sdk", "/other-sdk",
		"-pass=-sroa", "-pass=-dce",
		"-report",
		"input.sib",
	})
	require.NoError(t, err)
	exit()
	assert.True(t, report)
	assert.Equal(t, "input.sib", cfg.Input)
	assert.Equal(t, "/swift/build", cfg.BuildDir)
	assert.Equal(t, "/other-sdk", cfg.Tools.SDK)
	assert.Equal(t, "x86_64-apple-macosx", cfg.Tools.Target)
	assert.Equal(t, "main", cfg.Tools.ModuleName)
	assert.Equal(t, []string{"-sroa", "-dce"}, cfg.Passes)
	assert.Equal(t, 10, cfg.MaxSteps)
	assert.True(t, cfg.Memo)
	assert.Equal(t, "bug_reducer", cfg.WorkDir)
}

func TestParseFlagsErrors(t *testing.T) {
	_, _, _, err := parseFlags("opt", []string{"a.sib", "b.sib"})
	assert.Error(t, err)
	_, _, _, err = parseFlags("opt", []string{"-pass="})
	assert.Error(t, err)
	_, _, _, err = parseFlags("opt", []string{"-config", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

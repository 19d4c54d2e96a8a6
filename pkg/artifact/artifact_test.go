// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")
	table, err := NewTable(dir, "/some/where/module.swiftmodule", "func_list_")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "module_initial.sib"), table.Initial())
	assert.Equal(t, filepath.Join(dir, "module_base_case.sib"), table.Path("base_case"))

	e1, err := table.Add([]string{"main", "foo"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "func_list_"+e1.Sig.String()), e1.ListFile)
	assert.Equal(t, filepath.Join(dir, "module_"+e1.Stem+".sib"), e1.Subset)
	assert.Equal(t, filepath.Join(dir, "module_"+e1.Stem+"_invert.sib"), e1.Complement)
	assert.Equal(t, e1.Stem+"_invert", e1.InvertStem)
	data, err := os.ReadFile(e1.ListFile)
	require.NoError(t, err)
	assert.Equal(t, "main\nfoo\n", string(data))

	again, err := table.Add([]string{"main", "foo"})
	require.NoError(t, err)
	assert.Same(t, e1, again)
	assert.Same(t, e1, table.Lookup(e1.Sig))

	e2, err := table.Add([]string{"foo", "main"})
	require.NoError(t, err)
	assert.NotEqual(t, e1.ListFile, e2.ListFile)
	assert.NotEqual(t, e1.Subset, e2.Subset)
	assert.Equal(t, 2, table.Len())

	// The first list file is not overwritten.
	data, err = os.ReadFile(e1.ListFile)
	require.NoError(t, err)
	assert.Equal(t, "main\nfoo\n", string(data))
}

func TestTableNoDir(t *testing.T) {
	_, err := NewTable("", "input.sil", "func_list_")
	assert.Error(t, err)
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package artifact manages the scratch dir of a reduction run.
// Every tested candidate list is stored under the hash of its content, and so are the
// two programs extracted from it, so repeated or different lists never overwrite each other.
// Nothing is ever evicted, the dir is left for post-mortem inspection.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bugreducer/bugreducer/pkg/hash"
	"github.com/bugreducer/bugreducer/pkg/osutil"
)

const (
	DefaultExt   = ".sib"
	InvertSuffix = "_invert"
)

type Table struct {
	dir        string
	stem       string
	ext        string
	listPrefix string
	entries    map[hash.Sig]*Entry
}

// Entry describes one candidate list and the files derived from it.
type Entry struct {
	Sig      hash.Sig
	Elements []string
	// ListFile contains the elements, one per line.
	ListFile string
	// Stem/Subset is the program with only the listed elements.
	Stem   string
	Subset string
	// InvertStem/Complement is the program with everything except the listed elements.
	InvertStem string
	Complement string
}

// NewTable creates the scratch dir if necessary.
// Derived file names are based on the name of the input file (without extension),
// listPrefix is prepended to names of list files.
func NewTable(dir, input, listPrefix string) (*Table, error) {
	if dir == "" {
		return nil, fmt.Errorf("no work dir specified")
	}
	if err := osutil.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	base := filepath.Base(input)
	return &Table{
		dir:        dir,
		stem:       strings.TrimSuffix(base, filepath.Ext(base)),
		ext:        DefaultExt,
		listPrefix: listPrefix,
		entries:    make(map[hash.Sig]*Entry),
	}, nil
}

func (t *Table) Dir() string {
	return t.dir
}

// Path returns <dir>/<input stem>_<suffix>.sib.
func (t *Table) Path(suffix string) string {
	return t.PathExt(suffix, t.ext)
}

func (t *Table) PathExt(suffix, ext string) string {
	return filepath.Join(t.dir, t.stem+"_"+suffix+ext)
}

// Initial is the untouched copy of the input reused across the whole run.
func (t *Table) Initial() string {
	return t.Path("initial")
}

// Add registers the candidate list and writes its list file.
// Adding the same list again returns the existing entry.
func (t *Table) Add(elems []string) (*Entry, error) {
	sig := hash.List(elems)
	if e := t.entries[sig]; e != nil {
		return e, nil
	}
	stem := sig.String()
	e := &Entry{
		Sig:        sig,
		Elements:   append([]string(nil), elems...),
		ListFile:   filepath.Join(t.dir, t.listPrefix+stem),
		Stem:       stem,
		Subset:     t.Path(stem),
		InvertStem: stem + InvertSuffix,
		Complement: t.Path(stem + InvertSuffix),
	}
	data := new(strings.Builder)
	for _, elem := range elems {
		data.WriteString(elem)
		data.WriteByte('\n')
	}
	if err := osutil.WriteFile(e.ListFile, []byte(data.String())); err != nil {
		return nil, fmt.Errorf("failed to write list file: %w", err)
	}
	t.entries[sig] = e
	return e, nil
}

func (t *Table) Lookup(sig hash.Sig) *Entry {
	return t.entries[sig]
}

func (t *Table) Len() int {
	return len(t.entries)
}

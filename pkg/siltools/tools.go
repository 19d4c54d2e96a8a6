// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package siltools locates SIL tools in a toolchain build dir and builds their command lines.
package siltools

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bugreducer/bugreducer/pkg/osutil"
)

const (
	SILNM                 = "sil-nm"
	SILOpt                = "sil-opt"
	SILFuncExtractor      = "sil-func-extractor"
	SILLLVMGen            = "sil-llvm-gen"
	SILPassPipelineDumper = "sil-passpipeline-dumper"
	Swiftc                = "swiftc"
)

type ToolNotFoundError struct {
	Name string
	Path string
}

func (err *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%v does not exist at: %v", err.Name, err.Path)
}

// Tools holds paths of tools found in <build dir>/bin.
type Tools struct {
	BuildDir string
	paths    map[string]string
}

// Find looks up all the named tools at once, so that a missing tool is reported at startup
// rather than in the middle of a reduction.
func Find(buildDir string, names ...string) (*Tools, error) {
	tools := &Tools{
		BuildDir: buildDir,
		paths:    make(map[string]string),
	}
	for _, name := range names {
		path := filepath.Join(buildDir, "bin", name)
		if !osutil.IsExist(path) {
			return nil, &ToolNotFoundError{Name: name, Path: path}
		}
		tools.paths[name] = path
	}
	return tools, nil
}

// Path returns the path of a tool passed to Find.
func (tools *Tools) Path(name string) string {
	path, ok := tools.paths[name]
	if !ok {
		panic(fmt.Sprintf("tool %v was not requested in Find", name))
	}
	return path
}

func (tools *Tools) Names() []string {
	var names []string
	for name := range tools.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

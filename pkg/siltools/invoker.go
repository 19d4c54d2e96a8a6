// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package siltools

import (
	"context"
	"fmt"
	"strings"

	"github.com/bugreducer/bugreducer/pkg/fingerprint"
	"github.com/bugreducer/bugreducer/pkg/osutil"
)

// Config holds the frontend arguments shared by all tools.
type Config struct {
	SDK         string `json:"sdk,omitempty"`
	Target      string `json:"target,omitempty"`
	ResourceDir string `json:"resource_dir,omitempty"`
	ModuleCache string `json:"module_cache,omitempty"`
	ModuleName  string `json:"module_name,omitempty"`
}

func (cfg *Config) baseArgs(tool string, emitSIB bool) []string {
	args := []string{tool}
	for _, arg := range []struct{ name, val string }{
		{"-sdk", cfg.SDK},
		{"-target", cfg.Target},
		{"-resource-dir", osutil.Abs(cfg.ResourceDir)},
		{"-module-cache-path", cfg.ModuleCache},
		{"-module-name", cfg.ModuleName},
	} {
		if arg.val != "" {
			args = append(args, arg.name+"="+arg.val)
		}
	}
	if emitSIB {
		args = append(args, "-emit-sib")
	}
	return args
}

type invoker struct {
	tool string
	cfg  *Config
	opts *fingerprint.Options
}

func newInvoker(tools *Tools, name string, cfg *Config, opts *fingerprint.Options) invoker {
	if cfg == nil {
		cfg = new(Config)
	}
	return invoker{tools.Path(name), cfg, opts}
}

func (inv *invoker) run(ctx context.Context, args []string) (*fingerprint.Result, error) {
	return fingerprint.Run(ctx, inv.opts, args...)
}

// checkFiles makes sure inputs exist, a tool run on a missing file looks like a crash otherwise.
func (inv *invoker) checkFiles(files ...string) error {
	if inv.opts != nil && inv.opts.DryRun {
		return nil
	}
	for _, file := range files {
		if err := osutil.IsAccessible(file); err != nil {
			return fmt.Errorf("%v: %w", inv.tool, err)
		}
	}
	return nil
}

type Symbol struct {
	Kind string
	Name string
}

// NM lists symbols of a SIL module with sil-nm.
type NM struct {
	invoker
}

func NewNM(tools *Tools, cfg *Config, opts *fingerprint.Options) *NM {
	return &NM{newInvoker(tools, SILNM, cfg, opts)}
}

func (nm *NM) Symbols(ctx context.Context, input string) ([]Symbol, error) {
	if err := nm.checkFiles(input); err != nil {
		return nil, err
	}
	args := append(nm.cfg.baseArgs(nm.tool, false), input)
	res, err := nm.run(ctx, args)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		return nil, &osutil.VerboseError{
			Title:    fmt.Sprintf("%v failed: %v", SILNM, res),
			Output:   res.Stderr,
			ExitCode: res.ExitCode,
		}
	}
	return ParseSymbols(res.Stdout)
}

// ParseSymbols parses "<kind> <name>" lines.
func ParseSymbols(output []byte) ([]Symbol, error) {
	var syms []Symbol
	for i, line := range strings.Split(string(output), "\n") {
		if line == "" {
			continue
		}
		kind, name, ok := strings.Cut(line, " ")
		if !ok || kind == "" || name == "" {
			return nil, fmt.Errorf("bad symbol line #%v: %q", i+1, line)
		}
		syms = append(syms, Symbol{Kind: kind, Name: name})
	}
	return syms, nil
}

// FunctionKind is the sil-nm kind of function symbols.
const FunctionKind = "F"

// Names returns names of symbols of the given kind, in order.
func Names(syms []Symbol, kind string) []string {
	var names []string
	for _, sym := range syms {
		if sym.Kind == kind {
			names = append(names, sym.Name)
		}
	}
	return names
}

// Optimizer runs sil-opt with a list of passes.
type Optimizer struct {
	invoker
	extraArgs []string
}

func NewOptimizer(tools *Tools, cfg *Config, opts *fingerprint.Options, extraArgs []string) *Optimizer {
	return &Optimizer{newInvoker(tools, SILOpt, cfg, opts), extraArgs}
}

// Cmdline returns the command line that optimizes input with passes, writing to output ("-" is stdout).
func (opt *Optimizer) Cmdline(input string, passes []string, emitSIB bool, output string) []string {
	args := opt.cfg.baseArgs(opt.tool, emitSIB)
	args = append(args, input, "-o", output)
	args = append(args, opt.extraArgs...)
	return append(args, passes...)
}

// Optimize writes the optimized module in sib format to output.
func (opt *Optimizer) Optimize(ctx context.Context, input string, passes []string, output string) (
	*fingerprint.Result, error) {
	if err := opt.checkFiles(input); err != nil {
		return nil, err
	}
	return opt.run(ctx, opt.Cmdline(input, passes, true, output))
}

// Extractor runs sil-func-extractor.
type Extractor struct {
	invoker
}

func NewExtractor(tools *Tools, cfg *Config, opts *fingerprint.Options) *Extractor {
	return &Extractor{newInvoker(tools, SILFuncExtractor, cfg, opts)}
}

func (ex *Extractor) Cmdline(input, funcList, output string, invert bool) []string {
	args := ex.cfg.baseArgs(ex.tool, true)
	args = append(args, input, "-o", output, "-func-file="+funcList)
	if invert {
		args = append(args, "-invert")
	}
	return args
}

// Extract keeps only functions listed in funcList (or everything except them if invert is set).
func (ex *Extractor) Extract(ctx context.Context, input, funcList, output string, invert bool) (
	*fingerprint.Result, error) {
	if err := ex.checkFiles(input, funcList); err != nil {
		return nil, err
	}
	return ex.run(ctx, ex.Cmdline(input, funcList, output, invert))
}

// Codegen runs sil-llvm-gen to produce an object file.
type Codegen struct {
	invoker
	extraArgs []string
}

func NewCodegen(tools *Tools, cfg *Config, opts *fingerprint.Options, extraArgs []string) *Codegen {
	return &Codegen{newInvoker(tools, SILLLVMGen, cfg, opts), extraArgs}
}

func (gen *Codegen) Cmdline(input, output string) []string {
	args := gen.cfg.baseArgs(gen.tool, false)
	args = append(args, input, "-o", output, "-output-kind=object")
	return append(args, gen.extraArgs...)
}

func (gen *Codegen) Generate(ctx context.Context, input, output string) (*fingerprint.Result, error) {
	if err := gen.checkFiles(input); err != nil {
		return nil, err
	}
	return gen.run(ctx, gen.Cmdline(input, output))
}

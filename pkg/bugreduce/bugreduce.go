// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package bugreduce reduces SIL modules and optimizer pass lists that trigger compiler bugs.
//
// ReduceFunctions isolates the functions of a module that are needed to reproduce
// an optimizer crash or a miscompilation. ReducePasses isolates the passes needed
// to reproduce an optimizer crash.
package bugreduce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bugreducer/bugreducer/pkg/artifact"
	"github.com/bugreducer/bugreducer/pkg/fingerprint"
	"github.com/bugreducer/bugreducer/pkg/hash"
	"github.com/bugreducer/bugreducer/pkg/log"
	"github.com/bugreducer/bugreducer/pkg/minimize"
	"github.com/bugreducer/bugreducer/pkg/oracle"
	"github.com/bugreducer/bugreducer/pkg/osutil"
	"github.com/bugreducer/bugreducer/pkg/siltools"
)

type Config struct {
	// Input is the module to reduce (*.sil, *.sib or *.swiftmodule).
	Input string `json:"input"`
	// WorkDir keeps all intermediate files, it is not cleaned up.
	WorkDir string `json:"work_dir"`
	// BuildDir is the toolchain build dir, tools are taken from BuildDir/bin.
	BuildDir string `json:"build_dir"`
	// Passes are the optimizer passes that trigger the bug.
	Passes []string `json:"passes"`
	// ExtraArgs are passed to sil-opt and sil-llvm-gen.
	ExtraArgs []string        `json:"extra_args,omitempty"`
	Tools     siltools.Config `json:"tools"`
	// Mode is the reduction algorithm: "ddmin" (default) or "halves".
	Mode     string `json:"mode,omitempty"`
	MaxSteps int    `json:"max_steps,omitempty"`
	// RunScript switches function reduction from optimizer crashes to miscompilations:
	// the script is invoked with an object file and its output is compared.
	RunScript string `json:"run_script,omitempty"`
	// ParallelBuild builds and runs the two halves of a miscompile check concurrently.
	ParallelBuild bool `json:"parallel_build,omitempty"`
	// Memo caches verdicts for repeated candidate lists.
	Memo bool `json:"memo,omitempty"`
	// Timeout for every tool invocation in seconds, 0 means no limit.
	Timeout int  `json:"timeout,omitempty"`
	DryRun  bool `json:"dry_run,omitempty"`
	Echo    bool `json:"echo,omitempty"`
}

func (cfg *Config) validate() (minimize.Mode, error) {
	mode := minimize.ModeDDMin
	if cfg.Mode != "" {
		var err error
		if mode, err = minimize.ParseMode(cfg.Mode); err != nil {
			return mode, oracle.AsConfig("config", err)
		}
	}
	if cfg.Input == "" {
		return mode, oracle.Configf("config", "no input file specified")
	}
	if !cfg.DryRun {
		if err := osutil.IsAccessible(cfg.Input); err != nil {
			return mode, oracle.AsConfig("input", err)
		}
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "bug_reducer"
	}
	if cfg.MaxSteps < 0 {
		return mode, oracle.Configf("config", "negative max_steps")
	}
	return mode, nil
}

func (cfg *Config) execOptions() *fingerprint.Options {
	return &fingerprint.Options{
		DryRun:  cfg.DryRun,
		Echo:    cfg.Echo,
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}
}

type env struct {
	cfg   *Config
	mode  minimize.Mode
	tools *siltools.Tools
	table *artifact.Table
	opts  *fingerprint.Options
	opt   *siltools.Optimizer
}

func newEnv(cfg *Config, listPrefix string, tools ...string) (*env, error) {
	mode, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	found, err := siltools.Find(cfg.BuildDir, append([]string{siltools.SILOpt}, tools...)...)
	if err != nil {
		return nil, oracle.AsConfig("tools", err)
	}
	table, err := artifact.NewTable(osutil.Abs(cfg.WorkDir), cfg.Input, listPrefix)
	if err != nil {
		return nil, oracle.AsConfig("work dir", err)
	}
	e := &env{
		cfg:   cfg,
		mode:  mode,
		tools: found,
		table: table,
		opts:  cfg.execOptions(),
	}
	e.opt = siltools.NewOptimizer(found, &cfg.Tools, e.opts, cfg.ExtraArgs)
	return e, nil
}

// emitInitial converts the input to sib, so that the rest of the run does not depend on the input format.
func (e *env) emitInitial(ctx context.Context) error {
	res, err := e.opt.Optimize(ctx, osutil.Abs(e.cfg.Input), nil, e.table.Initial())
	if err != nil {
		return oracle.AsConfig("initial", err)
	}
	if res.Failed() {
		return oracle.Configf("initial", "failed to emit initial sib file: %v\n%s", res, res.Stderr)
	}
	return nil
}

func (e *env) reduce(ctx context.Context, rep *Report, list []string, orc minimize.Oracle[string]) error {
	res, err := minimize.Reduce(minimize.Config[string]{
		Oracle:   orc,
		Mode:     e.mode,
		MaxSteps: e.cfg.MaxSteps,
		Logf: func(msg string, args ...interface{}) {
			log.Logf(1, msg, args...)
		},
	}, list)
	if errors.Is(err, minimize.ErrTooManySteps) {
		log.Logf(0, "%v, stopping with a partially reduced list", err)
		rep.StepLimit = true
	} else if err != nil {
		return err
	}
	rep.Final = res.List
	rep.Reduced = res.Reduced
	rep.Steps = res.Steps
	return nil
}

// ReduceFunctions finds a smaller set of functions of the input module that still reproduces the bug.
func ReduceFunctions(ctx context.Context, cfg *Config) (*Report, error) {
	tools := []string{siltools.SILNM, siltools.SILFuncExtractor}
	if cfg.RunScript != "" {
		tools = append(tools, siltools.SILLLVMGen)
	}
	e, err := newEnv(cfg, "func_list_", tools...)
	if err != nil {
		return nil, err
	}
	rep := newReport(KindFunctions, cfg, e.mode)
	if err := e.emitInitial(ctx); err != nil {
		return nil, err
	}
	syms, err := siltools.NewNM(e.tools, &cfg.Tools, e.opts).Symbols(ctx, e.table.Initial())
	if err != nil {
		return nil, oracle.AsConfig("symbols", err)
	}
	funcs := siltools.Names(syms, siltools.FunctionKind)
	rep.Original = funcs
	if len(funcs) == 0 && !cfg.DryRun {
		return nil, oracle.Configf("symbols", "no functions found in %v", cfg.Input)
	}
	var tester oracle.Tester = &oracle.CrashTester{
		Opt:    e.opt,
		Passes: cfg.Passes,
		Paths:  e.table,
	}
	rep.Classification = oracle.Crash.String()
	if cfg.RunScript != "" {
		tester = &oracle.MiscompileTester{
			Opt:       e.opt,
			Gen:       siltools.NewCodegen(e.tools, &cfg.Tools, e.opts, cfg.ExtraArgs),
			Passes:    cfg.Passes,
			Paths:     e.table,
			RunScript: osutil.Abs(cfg.RunScript),
			RunOpts:   e.opts,
			Parallel:  cfg.ParallelBuild,
		}
		rep.Classification = oracle.Mismatch.String()
	}
	checker := &FuncChecker{
		Input:     e.table.Initial(),
		Table:     e.table,
		Extractor: siltools.NewExtractor(e.tools, &cfg.Tools, e.opts),
		Tester:    tester,
		Memo:      cfg.Memo,
	}
	reproduces, err := e.baseCase(ctx, checker, funcs)
	if err != nil {
		return nil, err
	}
	if !reproduces {
		rep.NotReproduced = true
		rep.Final = funcs
		rep.FinalFile = e.table.Initial()
		rep.Repro = e.opt.Cmdline(rep.FinalFile, cfg.Passes, false, "-")
		return rep, nil
	}
	log.Logf(0, "base case reproduces, trying to reduce %v functions", len(funcs))
	if err := e.reduce(ctx, rep, funcs, checker.Oracle(ctx)); err != nil {
		return nil, err
	}
	rep.FinalFile = e.table.Initial()
	if entry := e.table.Lookup(hash.List(rep.Final)); entry != nil && rep.Reduced {
		rep.FinalFile = entry.Subset
	}
	rep.Repro = e.opt.Cmdline(rep.FinalFile, cfg.Passes, false, "-")
	return rep, nil
}

// baseCase makes sure the unreduced input reproduces the bug.
// Optimizer crashes are checked on the whole module, miscompilations with the full function list.
func (e *env) baseCase(ctx context.Context, checker *FuncChecker, funcs []string) (bool, error) {
	if e.cfg.RunScript != "" {
		return checker.Check(ctx, funcs)
	}
	res, err := e.opt.Optimize(ctx, e.table.Initial(), e.cfg.Passes, e.table.Path("base_case"))
	if err != nil {
		return false, oracle.AsConfig("base case", err)
	}
	return res.Failed(), nil
}

// ReducePasses finds a smaller list of optimizer passes that still crashes the optimizer on the input.
func ReducePasses(ctx context.Context, cfg *Config) (*Report, error) {
	if len(cfg.Passes) == 0 {
		return nil, oracle.Configf("config", "no passes to reduce")
	}
	e, err := newEnv(cfg, "pass_list_")
	if err != nil {
		return nil, err
	}
	rep := newReport(KindPasses, cfg, e.mode)
	rep.Classification = oracle.Crash.String()
	rep.Original = cfg.Passes
	if err := e.emitInitial(ctx); err != nil {
		return nil, err
	}
	checker := &PassChecker{
		Input: e.table.Initial(),
		Table: e.table,
		Opt:   e.opt,
	}
	rep.FinalFile = e.table.Initial()
	reproduces, err := checker.Check(ctx, cfg.Passes)
	if err != nil {
		return nil, err
	}
	if !reproduces {
		rep.NotReproduced = true
		rep.Final = cfg.Passes
		rep.Repro = e.opt.Cmdline(rep.FinalFile, cfg.Passes, false, "-")
		return rep, nil
	}
	log.Logf(0, "base case crashes, trying to reduce %v passes", len(cfg.Passes))
	if err := e.reduce(ctx, rep, cfg.Passes, checker.Oracle(ctx)); err != nil {
		return nil, err
	}
	rep.Repro = e.opt.Cmdline(rep.FinalFile, rep.Final, false, "-")
	return rep, nil
}

// Describe formats a reduction error for the user.
func Describe(err error) string {
	var cerr *oracle.ConfigError
	if errors.As(err, &cerr) {
		return fmt.Sprintf("reduction aborted: %v", err)
	}
	return fmt.Sprintf("reduction failed: %v", err)
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// bug-reducer reduces SIL modules and optimizer pass lists that trigger compiler bugs.
// Example use:
//
//	$ bug-reducer func -build-dir /swift/build -sdk /sdks/macosx.sdk -module-name main \
//		-pass=-sil-combine -pass=-sroa input.sib
//	$ bug-reducer opt -build-dir /swift/build -config cfg.json -pass=-inline -pass=-sroa input.sib
//
// Flags override values from config files, config files are merged in the order they are given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bugreducer/bugreducer/pkg/bugreduce"
	"github.com/bugreducer/bugreducer/pkg/config"
	"github.com/bugreducer/bugreducer/pkg/log"
	"github.com/bugreducer/bugreducer/pkg/oracle"
	"github.com/bugreducer/bugreducer/pkg/tool"
)

const (
	exitFailure     = 1
	exitConfigError = 2
)

var commands = map[string]struct {
	desc   string
	reduce func(context.Context, *bugreduce.Config) (*bugreduce.Report, error)
}{
	"func": {"reduce the functions of the input module", bugreduce.ReduceFunctions},
	"opt":  {"reduce the list of optimizer passes", bugreduce.ReducePasses},
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
	}
	os.Exit(run(os.Args[1], os.Args[2:], cmd.reduce))
}

func run(name string, args []string, reduce func(context.Context, *bugreduce.Config) (*bugreduce.Report, error)) int {
	cfg, report, exit, err := parseFlags(name, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitConfigError
	}
	defer exit()
	log.EnableLogCaching(1000, 1<<20)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rep, err := reduce(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nlast log lines:\n%v", bugreduce.Describe(err), log.CachedLogOutput())
		if oracle.IsConfigError(err) {
			return exitConfigError
		}
		return exitFailure
	}
	fmt.Print(rep.String())
	if report {
		file, err := rep.Save(cfg.WorkDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return exitFailure
		}
		log.Logf(0, "report saved to %v", file)
	}
	if rep.NotReproduced {
		return exitFailure
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: bug-reducer <command> [flags] input\ncommands:\n")
	for _, name := range []string{"func", "opt"} {
		fmt.Fprintf(os.Stderr, "  %-6v %v\n", name, commands[name].desc)
	}
	os.Exit(exitConfigError)
}

func parseFlags(name string, args []string) (*bugreduce.Config, bool, func(), error) {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	var (
		flagConfigs   tool.CfgsFlag
		flagPasses    tool.StringsFlag
		flagExtraArgs tool.StringsFlag
		flagVerbose   = set.Int("v", 0, "verbosity")
		flagMode      = set.String("mode", "", "reduction algorithm: ddmin (default) or halves")
		flagWorkDir   = set.String("work-dir", "bug_reducer", "dir for intermediate files")
		flagBuildDir  = set.String("build-dir", "", "toolchain build dir (tools are taken from its bin subdir)")
		flagSDK       = set.String("sdk", "", "SDK path")
		flagTarget    = set.String("target", "", "target triple")
		flagResDir    = set.String("resource-dir", "", "compiler resource dir")
		flagCache     = set.String("module-cache", "", "module cache path")
		flagModule    = set.String("module-name", "", "module name of the input")
		flagRunScript = set.String("run-script", "", "script that runs an object file, enables miscompile detection")
		flagParallel  = set.Bool("parallel-build", false, "build both halves of a miscompile check concurrently")
		flagMaxSteps  = set.Int("max-steps", 0, "limit on the number of reduction steps (0 means no limit)")
		flagMemo      = set.Bool("memo", false, "cache verdicts of repeated candidate lists")
		flagTimeout   = set.Int("timeout", 0, "timeout for every tool invocation in seconds")
		flagDryRun    = set.Bool("dry-run", false, "only print commands that would be executed")
		flagEcho      = set.Bool("echo", false, "print all commands and their output")
		flagReport    = set.Bool("report", false, "save a JSON report into the work dir")
	)
	set.Var(&flagConfigs, "config", "comma-separated list of JSON config files")
	set.Var(&flagPasses, "pass", "optimizer pass (can be repeated)")
	set.Var(&flagExtraArgs, "extra-silopt-arg", "extra argument for sil-opt (can be repeated)")
	set.Usage = func() {
		fmt.Fprintf(set.Output(), "usage: bug-reducer %v [flags] input\n", name)
		set.PrintDefaults()
	}
	exit, err := tool.Init(set, args)
	if err != nil {
		return nil, false, nil, err
	}
	log.SetVerbosity(*flagVerbose)

	cfg := new(bugreduce.Config)
	if len(flagConfigs) != 0 {
		if err := config.LoadFiles(flagConfigs, cfg); err != nil {
			exit()
			return nil, false, nil, err
		}
	}
	switch set.NArg() {
	case 0:
	case 1:
		cfg.Input = set.Arg(0)
	default:
		exit()
		return nil, false, nil, fmt.Errorf("expected one input file, got %v", set.Args())
	}
	overrides := map[string]func(){
		"mode":             func() { cfg.Mode = *flagMode },
		"work-dir":         func() { cfg.WorkDir = *flagWorkDir },
		"build-dir":        func() { cfg.BuildDir = *flagBuildDir },
		"sdk":              func() { cfg.Tools.SDK = *flagSDK },
		"target":           func() { cfg.Tools.Target = *flagTarget },
		"resource-dir":     func() { cfg.Tools.ResourceDir = *flagResDir },
		"module-cache":     func() { cfg.Tools.ModuleCache = *flagCache },
		"module-name":      func() { cfg.Tools.ModuleName = *flagModule },
		"run-script":       func() { cfg.RunScript = *flagRunScript },
		"parallel-build":   func() { cfg.ParallelBuild = *flagParallel },
		"max-steps":        func() { cfg.MaxSteps = *flagMaxSteps },
		"memo":             func() { cfg.Memo = *flagMemo },
		"timeout":          func() { cfg.Timeout = *flagTimeout },
		"dry-run":          func() { cfg.DryRun = *flagDryRun },
		"echo":             func() { cfg.Echo = *flagEcho },
		"pass":             func() { cfg.Passes = flagPasses },
		"extra-silopt-arg": func() { cfg.ExtraArgs = flagExtraArgs },
	}
	set.Visit(func(f *flag.Flag) {
		if override := overrides[f.Name]; override != nil {
			override()
		}
	})
	if cfg.WorkDir == "" {
		cfg.WorkDir = *flagWorkDir
	}
	return cfg, *flagReport, exit, nil
}

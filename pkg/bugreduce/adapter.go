// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package bugreduce

import (
	"context"

	"github.com/bugreducer/bugreducer/pkg/artifact"
	"github.com/bugreducer/bugreducer/pkg/fingerprint"
	"github.com/bugreducer/bugreducer/pkg/hash"
	"github.com/bugreducer/bugreducer/pkg/log"
	"github.com/bugreducer/bugreducer/pkg/minimize"
	"github.com/bugreducer/bugreducer/pkg/oracle"
	"github.com/bugreducer/bugreducer/pkg/stat"
)

// Extractor splits a module by a list of functions.
type Extractor interface {
	Extract(ctx context.Context, input, funcList, output string, invert bool) (*fingerprint.Result, error)
}

var (
	statChecks = stat.New("checks", "Number of candidate lists tested", stat.Prometheus("br_checks"))
	statRepro  = stat.New("reproducing checks", "Number of candidate lists that reproduced the bug",
		stat.Prometheus("br_reproducing_checks"))
	statMemoHits = stat.New("memo hits", "Number of checks answered from the verdict memo")
)

// FuncChecker tests lists of functions: the input module is split into the listed
// functions and the rest, and both parts are given to the tester.
type FuncChecker struct {
	Input     string
	Table     *artifact.Table
	Extractor Extractor
	Tester    oracle.Tester
	// Memo enables caching of verdicts by list hash within one run.
	Memo     bool
	verdicts map[hash.Sig]bool
}

func (fc *FuncChecker) Check(ctx context.Context, funcs []string) (bool, error) {
	entry, err := fc.Table.Add(funcs)
	if err != nil {
		return false, oracle.AsConfig("work dir", err)
	}
	if verdict, ok := fc.verdicts[entry.Sig]; ok && fc.Memo {
		statMemoHits.Add(1)
		return verdict, nil
	}
	statChecks.Add(1)
	log.Logf(0, "checking to see if the program is misoptimized with func list: %v (%v functions)",
		entry.ListFile, len(funcs))
	if err := fc.extract(ctx, entry.ListFile, entry.Subset, false); err != nil {
		return false, err
	}
	if err := fc.extract(ctx, entry.ListFile, entry.Complement, true); err != nil {
		return false, err
	}
	cls, err := fc.Tester.Test(ctx, &oracle.Artifacts{
		Subset:         entry.Subset,
		SubsetStem:     entry.Stem,
		Complement:     entry.Complement,
		ComplementStem: entry.InvertStem,
	})
	if err != nil {
		return false, err
	}
	log.Logf(1, "func list %v: %v", entry.Stem, cls)
	if cls.Anomaly() {
		statRepro.Add(1)
	}
	if fc.verdicts == nil {
		fc.verdicts = make(map[hash.Sig]bool)
	}
	fc.verdicts[entry.Sig] = cls.Anomaly()
	return cls.Anomaly(), nil
}

func (fc *FuncChecker) extract(ctx context.Context, funcList, output string, invert bool) error {
	res, err := fc.Extractor.Extract(ctx, fc.Input, funcList, output, invert)
	if err != nil {
		return oracle.AsConfig("extract", err)
	}
	if res.Failed() {
		return oracle.Configf("extract", "function extraction failed (invert=%v): %v\n%s",
			invert, res, res.Stderr)
	}
	return nil
}

// Oracle binds the checker to the minimization engine.
func (fc *FuncChecker) Oracle(ctx context.Context) minimize.Oracle[string] {
	return minimize.FromPredicate(func(funcs []string) (bool, error) {
		return fc.Check(ctx, funcs)
	})
}

// Optimizer is the pipeline under test.
type Optimizer interface {
	oracle.Optimizer
	Cmdline(input string, passes []string, emitSIB bool, output string) []string
}

// PassChecker tests lists of optimizer passes: the list reproduces if the optimizer
// crashes on the input module with only these passes.
type PassChecker struct {
	Input string
	Table *artifact.Table
	Opt   Optimizer
}

func (pc *PassChecker) Check(ctx context.Context, passes []string) (bool, error) {
	entry, err := pc.Table.Add(passes)
	if err != nil {
		return false, oracle.AsConfig("work dir", err)
	}
	statChecks.Add(1)
	log.Logf(0, "checking to see if the optimizer crashes with pass list: %v (%v passes)",
		entry.ListFile, len(passes))
	res, err := pc.Opt.Optimize(ctx, pc.Input, passes, entry.Subset)
	if err != nil {
		return false, oracle.AsConfig("optimizer", err)
	}
	if res.Failed() {
		statRepro.Add(1)
	}
	return res.Failed(), nil
}

func (pc *PassChecker) Oracle(ctx context.Context) minimize.Oracle[string] {
	return minimize.FromPredicate(func(passes []string) (bool, error) {
		return pc.Check(ctx, passes)
	})
}

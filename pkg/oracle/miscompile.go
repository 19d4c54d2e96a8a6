// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package oracle

import (
	"context"
	"fmt"

	"github.com/bugreducer/bugreducer/pkg/fingerprint"
	"github.com/bugreducer/bugreducer/pkg/log"
	dmp "github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"
)

// MiscompileTester compiles both the subset and the complement with the configured passes,
// runs both resulting objects with RunScript and compares the run fingerprints.
// Different fingerprints mean the bug reproduces.
// The optimizer or codegen failing is a setup failure, not a miscompilation.
type MiscompileTester struct {
	Opt       Optimizer
	Gen       Codegen
	Passes    []string
	Paths     Paths
	RunScript string
	RunOpts   *fingerprint.Options
	// Parallel builds and runs the subset and the complement concurrently.
	Parallel bool
}

func (mt *MiscompileTester) Test(ctx context.Context, arts *Artifacts) (Classification, error) {
	var subset, complement *fingerprint.Result
	if mt.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			subset, err = mt.build(gctx, arts.Subset, arts.SubsetStem)
			return err
		})
		g.Go(func() error {
			var err error
			complement, err = mt.build(gctx, arts.Complement, arts.ComplementStem)
			return err
		})
		if err := g.Wait(); err != nil {
			return Success, err
		}
	} else {
		var err error
		if subset, err = mt.build(ctx, arts.Subset, arts.SubsetStem); err != nil {
			return Success, err
		}
		if complement, err = mt.build(ctx, arts.Complement, arts.ComplementStem); err != nil {
			return Success, err
		}
	}
	if subset.Sig == complement.Sig {
		return Success, nil
	}
	log.Logf(1, "outputs of %v and %v differ (%v vs %v)", arts.SubsetStem, arts.ComplementStem, subset, complement)
	if log.V(2) {
		log.Logf(2, "%v", Diff(subset, complement))
	}
	return Mismatch, nil
}

func (mt *MiscompileTester) build(ctx context.Context, input, stem string) (*fingerprint.Result, error) {
	sib := mt.Paths.Path(stem + "_opt")
	res, err := mt.Opt.Optimize(ctx, input, mt.Passes, sib)
	if err != nil {
		return nil, AsConfig("optimizer", err)
	}
	if res.Failed() {
		return nil, Configf("optimizer", "optimizer compile time crasher on %v: %v", input, res)
	}
	obj := mt.Paths.PathExt(stem, ".o")
	res, err = mt.Gen.Generate(ctx, sib, obj)
	if err != nil {
		return nil, AsConfig("codegen", err)
	}
	if res.Failed() {
		return nil, Configf("codegen", "codegen compile time crasher on %v: %v", sib, res)
	}
	res, err = fingerprint.Run(ctx, mt.RunOpts, mt.RunScript, obj)
	if err != nil {
		return nil, AsConfig("run script", err)
	}
	return res, nil
}

// Diff renders a textual diff of the outputs of two runs.
func Diff(a, b *fingerprint.Result) string {
	differ := dmp.New()
	return fmt.Sprintf("exit status: %v vs %v\nstdout:\n%v\nstderr:\n%v",
		a.ExitCode, b.ExitCode,
		differ.DiffPrettyText(differ.DiffMain(string(a.Stdout), string(b.Stdout), false)),
		differ.DiffPrettyText(differ.DiffMain(string(a.Stderr), string(b.Stderr), false)))
}

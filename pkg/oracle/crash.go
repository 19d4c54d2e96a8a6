// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package oracle

import (
	"context"

	"github.com/bugreducer/bugreducer/pkg/log"
)

// CrashTester looks for optimizer crashes: the subset is run through the optimizer
// with the configured passes, a non-zero exit status means the bug reproduces.
type CrashTester struct {
	Opt    Optimizer
	Passes []string
	Paths  Paths
}

func (ct *CrashTester) Test(ctx context.Context, arts *Artifacts) (Classification, error) {
	output := ct.Paths.Path(arts.SubsetStem + "_opt")
	res, err := ct.Opt.Optimize(ctx, arts.Subset, ct.Passes, output)
	if err != nil {
		return Success, AsConfig("optimizer", err)
	}
	if res.Failed() {
		log.Logf(1, "optimizer crashed on %v: %v", arts.Subset, res)
		return Crash, nil
	}
	return Success, nil
}

// Copyright 2023 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package minimize implements delta debugging (ddmin) over ordered lists.
//
// The list is shrunk with respect to an Oracle that is given a partition of the current
// target into a prefix and a suffix and says which of them (if any) alone still reproduces
// the anomaly. The engine only ever adopts lists the oracle reported as reproducing,
// so the returned list reproduces the anomaly as long as the input did.
package minimize

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Outcome is the verdict of one oracle call.
type Outcome int

const (
	// NoFailure means neither part alone reproduces the anomaly.
	NoFailure Outcome = iota
	// KeepPrefix means the prefix alone reproduces the anomaly.
	KeepPrefix
	// KeepSuffix means the suffix alone reproduces the anomaly.
	KeepSuffix
)

func (o Outcome) String() string {
	switch o {
	case NoFailure:
		return "no-failure"
	case KeepPrefix:
		return "keep-prefix"
	case KeepSuffix:
		return "keep-suffix"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Oracle tests a partition of the current target.
// One of the parts may be empty, an empty part must never be kept.
// A returned error is fatal and aborts the reduction.
type Oracle[T any] func(prefix, suffix []T) (Outcome, error)

type Mode int

const (
	// ModeDDMin is the full increasing-granularity ddmin, the result is 1-minimal.
	ModeDDMin Mode = iota
	// ModeHalves only ever tests the two halves of the target. The granularity never grows,
	// so the result is only half-minimal, but it takes at most log2(n) oracle calls.
	ModeHalves
)

func (m Mode) String() string {
	switch m {
	case ModeDDMin:
		return "ddmin"
	case ModeHalves:
		return "halves"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeDDMin, ModeHalves} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown reduction mode %q (want ddmin or halves)", s)
}

type Config[T any] struct {
	Oracle Oracle[T]
	Mode   Mode
	// MaxSteps is a limit on the number of oracle calls.
	// If it's hit, reduction stops and Reduce returns ErrTooManySteps alongside
	// the intermediate result (a valid, but not fully minimized list).
	// If it's set to 0 (by default), no limit is applied.
	MaxSteps int
	// Logf is used for sharing debugging output.
	Logf func(string, ...interface{})
}

type Result[T any] struct {
	List []T
	// Reduced is false if nothing smaller than the input was found to reproduce the anomaly.
	Reduced bool
	// Steps is the number of oracle calls.
	Steps int
}

// ErrTooManySteps is returned if the reduction hit Config.MaxSteps.
var ErrTooManySteps = errors.New("the reduction reached the limit on oracle calls")

// Reduce shrinks list to a smaller one that the oracle still reports as reproducing the anomaly.
// Lists shorter than 2 elements are returned as is.
// Oracle errors are returned immediately without a result.
func Reduce[T any](config Config[T], list []T) (*Result[T], error) {
	if config.Oracle == nil {
		return nil, errors.New("no oracle")
	}
	if config.Logf == nil {
		config.Logf = func(string, ...interface{}) {}
	}
	ctx := &reduceCtx[T]{
		Config: config,
		target: slices.Clone(list),
	}
	var err error
	switch config.Mode {
	case ModeDDMin:
		err = ctx.ddmin()
	case ModeHalves:
		err = ctx.halves()
	default:
		return nil, fmt.Errorf("unknown reduction mode %v", config.Mode)
	}
	if err != nil && err != ErrTooManySteps {
		return nil, err
	}
	res := &Result[T]{
		List:    ctx.target,
		Reduced: len(ctx.target) < len(list),
		Steps:   ctx.steps,
	}
	ctx.Logf("reduction done: %v -> %v elements in %v steps", len(list), len(res.List), res.Steps)
	return res, err
}

type reduceCtx[T any] struct {
	Config[T]
	target []T
	steps  int
}

func (ctx *reduceCtx[T]) ddmin() error {
	n := 2
	for len(ctx.target) >= 2 {
		chunks := splitChunks(ctx.target, n)
		ctx.Logf("ddmin: %v elements, granularity %v: %v", len(ctx.target), n, chunkInfo(chunks))
		if len(chunks) == 2 {
			// With 2 chunks every chunk is the complement of the other one.
			outcome, err := ctx.test(chunks[0], chunks[1])
			if err != nil {
				return err
			}
			switch outcome {
			case KeepPrefix:
				ctx.adopt(chunks[0])
				continue
			case KeepSuffix:
				ctx.adopt(chunks[1])
				continue
			}
		} else {
			adopted := false
			// Every chunk alone is tried before any complement.
			for i, chunk := range chunks {
				outcome, err := ctx.test(nil, chunk)
				if err != nil {
					return err
				}
				if outcome == KeepSuffix {
					ctx.Logf("chunk #%v reproduces alone", i)
					ctx.adopt(chunk)
					n = 2
					adopted = true
					break
				}
			}
			for i := 0; i < len(chunks) && !adopted; i++ {
				rest := complement(chunks, i)
				outcome, err := ctx.test(rest, nil)
				if err != nil {
					return err
				}
				if outcome == KeepPrefix {
					ctx.Logf("chunk #%v can be dropped", i)
					ctx.adopt(rest)
					n = max(n-1, 2)
					adopted = true
				}
			}
			if adopted {
				continue
			}
		}
		if n >= len(ctx.target) {
			ctx.Logf("ddmin: no single element can be removed")
			return nil
		}
		n = min(2*n, len(ctx.target))
	}
	return nil
}

func (ctx *reduceCtx[T]) halves() error {
	for len(ctx.target) >= 2 {
		half := len(ctx.target) / 2
		prefix, suffix := ctx.target[:half], ctx.target[half:]
		ctx.Logf("halves: %v elements, trying %v/%v", len(ctx.target), len(prefix), len(suffix))
		outcome, err := ctx.test(prefix, suffix)
		if err != nil {
			return err
		}
		switch outcome {
		case KeepPrefix:
			ctx.adopt(prefix)
		case KeepSuffix:
			ctx.adopt(suffix)
		default:
			ctx.Logf("halves: neither half reproduces alone")
			return nil
		}
	}
	return nil
}

func (ctx *reduceCtx[T]) test(prefix, suffix []T) (Outcome, error) {
	if ctx.MaxSteps > 0 && ctx.steps >= ctx.MaxSteps {
		ctx.Logf("we have reached the limit on oracle calls (%d)", ctx.MaxSteps)
		return NoFailure, ErrTooManySteps
	}
	ctx.steps++
	outcome, err := ctx.Oracle(slices.Clip(prefix), slices.Clip(suffix))
	if err != nil {
		return NoFailure, err
	}
	switch outcome {
	case NoFailure:
	case KeepPrefix:
		if len(prefix) == 0 {
			return NoFailure, fmt.Errorf("oracle kept an empty prefix")
		}
	case KeepSuffix:
		if len(suffix) == 0 {
			return NoFailure, fmt.Errorf("oracle kept an empty suffix")
		}
	default:
		return NoFailure, fmt.Errorf("oracle returned invalid outcome %v", outcome)
	}
	return outcome, nil
}

func (ctx *reduceCtx[T]) adopt(list []T) {
	ctx.target = slices.Clone(list)
}

// FromPredicate builds an oracle from a predicate that says whether a list alone reproduces the anomaly.
// The suffix is tested first, the prefix only if the suffix does not reproduce.
// Empty lists are never passed to pred.
func FromPredicate[T any](pred func([]T) (bool, error)) Oracle[T] {
	return func(prefix, suffix []T) (Outcome, error) {
		if len(suffix) > 0 {
			if ok, err := pred(suffix); err != nil {
				return NoFailure, err
			} else if ok {
				return KeepSuffix, nil
			}
		}
		if len(prefix) > 0 {
			if ok, err := pred(prefix); err != nil {
				return NoFailure, err
			} else if ok {
				return KeepPrefix, nil
			}
		}
		return NoFailure, nil
	}
}

// splitChunks splits list into n contiguous chunks of (almost) equal size.
// If n > len(list), every element gets its own chunk.
func splitChunks[T any](list []T, n int) [][]T {
	n = min(max(n, 1), len(list))
	var ret [][]T
	for i := 0; i < n; i++ {
		ret = append(ret, list[i*len(list)/n:(i+1)*len(list)/n])
	}
	return ret
}

func complement[T any](chunks [][]T, skip int) []T {
	var ret []T
	for i, chunk := range chunks {
		if i != skip {
			ret = append(ret, chunk...)
		}
	}
	return ret
}

func chunkInfo[T any](chunks [][]T) string {
	var parts []string
	for _, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("<%d>", len(chunk)))
	}
	return strings.Join(parts, ", ")
}

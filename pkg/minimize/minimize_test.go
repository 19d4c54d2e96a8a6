// Copyright 2023 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package minimize

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/bugreducer/bugreducer/pkg/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsAll(list []int, needed []int) bool {
	for _, x := range needed {
		if !slices.Contains(list, x) {
			return false
		}
	}
	return true
}

func TestReduceSingleCulprit(t *testing.T) {
	t.Parallel()
	for _, mode := range []Mode{ModeDDMin, ModeHalves} {
		res, err := Reduce(Config[string]{
			Mode: mode,
			Oracle: FromPredicate(func(list []string) (bool, error) {
				return slices.Contains(list, "C"), nil
			}),
			Logf: t.Logf,
		}, []string{"A", "B", "C", "D"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C"}, res.List, "mode %v", mode)
		assert.True(t, res.Reduced)
	}
}

func TestReduceNeverFails(t *testing.T) {
	t.Parallel()
	for _, mode := range []Mode{ModeDDMin, ModeHalves} {
		calls := 0
		res, err := Reduce(Config[string]{
			Mode: mode,
			Oracle: FromPredicate(func(list []string) (bool, error) {
				calls++
				assert.NotEmpty(t, list)
				return false, nil
			}),
			Logf: t.Logf,
		}, []string{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, res.List)
		assert.False(t, res.Reduced)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, res.Steps)
	}
}

func TestReduceTrivialInputs(t *testing.T) {
	t.Parallel()
	oracle := func(prefix, suffix []int) (Outcome, error) {
		t.Fatalf("oracle must not be called")
		return NoFailure, nil
	}
	for _, input := range [][]int{nil, {}, {1}} {
		res, err := Reduce(Config[int]{Oracle: oracle}, input)
		require.NoError(t, err)
		assert.Len(t, res.List, len(input))
		assert.False(t, res.Reduced)
		assert.Zero(t, res.Steps)
	}
}

func TestReduceOracleError(t *testing.T) {
	t.Parallel()
	errSetup := errors.New("extractor exited with status 1")
	for _, mode := range []Mode{ModeDDMin, ModeHalves} {
		calls := 0
		res, err := Reduce(Config[int]{
			Mode: mode,
			Oracle: func(prefix, suffix []int) (Outcome, error) {
				calls++
				return NoFailure, errSetup
			},
		}, []int{1, 2, 3, 4, 5})
		assert.ErrorIs(t, err, errSetup)
		assert.Nil(t, res)
		assert.Equal(t, 1, calls)
	}
}

func TestReduceBadOracle(t *testing.T) {
	t.Parallel()
	_, err := Reduce(Config[int]{}, []int{1, 2})
	assert.Error(t, err)
	_, err = Reduce(Config[int]{
		Oracle: func(prefix, suffix []int) (Outcome, error) { return Outcome(42), nil },
	}, []int{1, 2})
	assert.ErrorContains(t, err, "invalid outcome")
	_, err = Reduce(Config[int]{
		Mode:   Mode(7),
		Oracle: FromPredicate(func([]int) (bool, error) { return true, nil }),
	}, []int{1, 2})
	assert.Error(t, err)
}

func TestReduceMaxSteps(t *testing.T) {
	t.Parallel()
	input := make([]int, 64)
	for i := range input {
		input[i] = i
	}
	res, err := Reduce(Config[int]{
		MaxSteps: 3,
		Oracle: FromPredicate(func(list []int) (bool, error) {
			return containsAll(list, []int{5, 50}), nil
		}),
	}, input)
	assert.ErrorIs(t, err, ErrTooManySteps)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Steps)
	assert.True(t, containsAll(res.List, []int{5, 50}))
}

func TestFromPredicateWellFormed(t *testing.T) {
	t.Parallel()
	always := FromPredicate(func([]int) (bool, error) { return true, nil })
	outcome, err := always([]int{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, KeepPrefix, outcome)
	outcome, err = always(nil, []int{1})
	require.NoError(t, err)
	assert.Equal(t, KeepSuffix, outcome)
	outcome, err = always(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, NoFailure, outcome)

	var tested [][]int
	never := FromPredicate(func(list []int) (bool, error) {
		tested = append(tested, list)
		return false, nil
	})
	outcome, err = never([]int{1, 2}, []int{3})
	require.NoError(t, err)
	assert.Equal(t, NoFailure, outcome)
	// Suffix goes first.
	assert.Equal(t, [][]int{{3}, {1, 2}}, tested)
}

func TestReduceRandom(t *testing.T) {
	t.Parallel()
	r := rand.New(testutil.RandSource(t))
	for i := 0; i < testutil.IterCount(); i++ {
		size := r.Intn(40)
		input := r.Perm(size)
		var needed []int
		if size > 0 {
			needed = input[:r.Intn(min(size, 4))+1]
		}
		for _, mode := range []Mode{ModeDDMin, ModeHalves} {
			t.Run(fmt.Sprintf("%v/%v", i, mode), func(t *testing.T) {
				testReduceRandom(t, mode, input, needed)
			})
		}
	}
}

func testReduceRandom(t *testing.T, mode Mode, input, needed []int) {
	pred := func(list []int) bool {
		return containsAll(list, needed)
	}
	var reproducing [][]int
	calls := 0
	res, err := Reduce(Config[int]{
		Mode: mode,
		Oracle: FromPredicate(func(list []int) (bool, error) {
			calls++
			ok := pred(list)
			if ok {
				reproducing = append(reproducing, slices.Clone(list))
			}
			return ok, nil
		}),
	}, input)
	require.NoError(t, err)
	// The result is either the input itself or a list the oracle confirmed.
	if res.Reduced {
		assert.True(t, slices.ContainsFunc(reproducing, func(l []int) bool {
			return cmp.Equal(l, res.List)
		}))
	} else {
		assert.Equal(t, len(input), len(res.List))
	}
	assert.True(t, pred(res.List))
	// Order of the original list is preserved.
	assert.True(t, isSubsequence(res.List, input))
	n := max(len(input), 1)
	assert.LessOrEqual(t, res.Steps, n*n+2)
	assert.LessOrEqual(t, calls, 2*res.Steps)
	if mode == ModeDDMin && len(input) > 0 {
		// 1-minimality: no element can be dropped.
		for i := range res.List {
			without := slices.Delete(slices.Clone(res.List), i, i+1)
			assert.False(t, pred(without), "element %v of %v is not needed", res.List[i], res.List)
		}
		assert.ElementsMatch(t, needed, res.List)
	}
}

func isSubsequence(sub, list []int) bool {
	pos := 0
	for _, x := range list {
		if pos < len(sub) && sub[pos] == x {
			pos++
		}
	}
	return pos == len(sub)
}

func TestReduceTerminatesWhenNothingReproduces(t *testing.T) {
	t.Parallel()
	for _, size := range []int{2, 3, 7, 16, 100} {
		input := make([]int, size)
		res, err := Reduce(Config[int]{
			Oracle: FromPredicate(func([]int) (bool, error) { return false, nil }),
		}, input)
		require.NoError(t, err)
		assert.False(t, res.Reduced)
		assert.Len(t, res.List, size)
		// Granularity doubles up to n and every round tests chunks and complements,
		// so calls are bounded by 1+2*(4+8+...+n) < 5n.
		assert.LessOrEqual(t, res.Steps, 5*size+1)
	}
}

func TestReduceDuplicates(t *testing.T) {
	t.Parallel()
	res, err := Reduce(Config[string]{
		Oracle: FromPredicate(func(list []string) (bool, error) {
			cnt := 0
			for _, x := range list {
				if x == "dup" {
					cnt++
				}
			}
			return cnt >= 2, nil
		}),
	}, []string{"a", "dup", "b", "dup", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dup", "dup"}, res.List)
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()
	list := []int{1, 2, 3, 4, 5}
	assert.Equal(t, [][]int{{1, 2}, {3, 4, 5}}, splitChunks(list, 2))
	assert.Equal(t, [][]int{{1}, {2, 3}, {4, 5}}, splitChunks(list, 3))
	assert.Equal(t, [][]int{{1}, {2}, {3}, {4}, {5}}, splitChunks(list, 10))
	assert.Equal(t, []int{1, 4, 5}, complement(splitChunks(list, 3), 1))
}

func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{ModeDDMin, ModeHalves} {
		parsed, err := ParseMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}
	_, err := ParseMode("tree")
	assert.Error(t, err)
}

func TestReduceChunksBeforeComplements(t *testing.T) {
	t.Parallel()
	var tested [][]int
	res, err := Reduce(Config[int]{
		Oracle: func(prefix, suffix []int) (Outcome, error) {
			if len(prefix) != 0 && len(suffix) != 0 && len(prefix)+len(suffix) > 2 {
				// The first 2-way round.
				return NoFailure, nil
			}
			tested = append(tested, append(append([]int(nil), prefix...), suffix...))
			// Both chunk #2 and the complement of chunk #0 reproduce, the chunk wins.
			if slices.Equal(suffix, []int{2}) {
				return KeepSuffix, nil
			}
			if slices.Equal(prefix, []int{1, 2, 3}) {
				return KeepPrefix, nil
			}
			return NoFailure, nil
		},
	}, []int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, res.List)
	assert.Equal(t, [][]int{{0}, {1}, {2}}, tested)
}

// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOrderSensitive(t *testing.T) {
	a := List([]string{"foo", "bar"})
	b := List([]string{"bar", "foo"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, List([]string{"foo", "bar"}))
}

func TestListBoundaries(t *testing.T) {
	tests := [][2][]string{
		{{"ab"}, {"a", "b"}},
		{{"a", ""}, {"a"}},
		{{""}, nil},
		{{"a\nb"}, {"a", "b"}},
	}
	for _, test := range tests {
		assert.NotEqual(t, List(test[0]), List(test[1]), "%q vs %q", test[0], test[1])
	}
}

func TestFromString(t *testing.T) {
	sig := Hash([]byte("data"))
	parsed, err := FromString(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig, parsed)
	assert.Len(t, sig.Short(), 16)

	_, err = FromString("abcd")
	assert.Error(t, err)
	_, err = FromString("zz")
	assert.Error(t, err)
	assert.True(t, Sig{}.IsZero())
	assert.False(t, sig.IsZero())
}

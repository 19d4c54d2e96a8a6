// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := newSet()
	calls := s.New("calls", "number of calls")
	calls.Add(2)
	calls.Add(3)
	assert.Equal(t, 5, calls.Val())

	ms := s.New("latency", "call latency", Distribution{}, func(v int) string {
		return fmt.Sprintf("%v ms", v)
	})
	assert.Equal(t, 0, ms.Val())
	ms.Add(10)
	ms.Add(30)
	assert.Equal(t, 20, ms.Val())
	assert.InDelta(t, 30, ms.Quantile(1), 1)

	ui := s.Collect()
	require.Len(t, ui, 2)
	assert.Equal(t, "calls", ui[0].Name)
	assert.Equal(t, "5", ui[0].Value)
	assert.Equal(t, "latency", ui[1].Name)
	assert.Equal(t, "20 ms", ui[1].Value)
}

func TestPrometheusExport(t *testing.T) {
	s := newSet()
	v := s.New("exported", "exported metric", Prometheus("stat_test_exported"))
	v.Add(7)
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	found := false
	for _, fam := range families {
		if fam.GetName() != "stat_test_exported" {
			continue
		}
		found = true
		require.Len(t, fam.GetMetric(), 1)
		assert.Equal(t, 7.0, fam.GetMetric()[0].GetGauge().GetValue())
	}
	assert.True(t, found)
}

func TestUnknownOption(t *testing.T) {
	assert.Panics(t, func() { newSet().New("bad", "bad", 42) })
}

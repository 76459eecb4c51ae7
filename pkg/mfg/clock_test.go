// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func switchEvents(hz string) []string {
	return []string{
		"clock clk_mux parent clk_sub_parent",
		"clock clk_main_parent rate " + hz,
		"clock clk_mux parent clk_main_parent",
	}
}

func TestSetFrequency(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig("core0", "core1"))
	h.p.Reset()

	require.NoError(t, h.b.SetFrequency(ctx, 600000000))
	assert.Equal(t, switchEvents("600000000"), h.p.Events())
	assert.Equal(t, uint64(600000000), h.b.State().FrequencyHz)

	h.p.Reset()
	require.NoError(t, h.b.SetFrequency(ctx, 600000000))
	assert.Empty(t, h.p.Events(), "same frequency touched the clocks")
}

func TestSetFrequencyFailures(t *testing.T) {
	const start, target = 800000000, 400000000
	for _, tt := range []struct {
		fail     string
		stage    ClockStage
		events   []string
		freq     uint64
		parent   string
		degraded bool
	}{
		{
			fail:   "clock clk_mux parent clk_sub_parent",
			stage:  SourceSelectFailed,
			events: switchEvents("400000000")[:1],
			freq:   start,
			parent: "clk_main_parent",
		},
		{
			fail:     "clock clk_main_parent rate 400000000",
			stage:    RateSetFailed,
			events:   switchEvents("400000000")[:2],
			freq:     start,
			parent:   "clk_sub_parent",
			degraded: true,
		},
		{
			fail:     "clock clk_mux parent clk_main_parent",
			stage:    RestoreFailed,
			events:   switchEvents("400000000"),
			freq:     target,
			parent:   "clk_sub_parent",
			degraded: true,
		},
	} {
		t.Run(tt.stage.String(), func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, testConfig("core0", "core1"))
			require.NoError(t, h.b.PlatformInit(ctx))
			h.p.Reset()
			boom := errors.New("boom")
			h.p.Fail[tt.fail] = boom

			err := h.b.SetFrequency(ctx, target)
			var ce *ClockError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.stage, ce.Stage)
			assert.Equal(t, uint64(target), ce.Hz)
			assert.ErrorIs(t, err, boom)

			assert.Equal(t, tt.events, h.p.Events())
			assert.Equal(t, tt.freq, h.b.State().FrequencyHz)
			assert.Equal(t, tt.parent, h.p.FakeClock("clk_mux").Parent)
			assert.Equal(t, tt.degraded, h.b.Degraded())
			assert.Equal(t, float64(1), testutil.ToFloat64(h.b.metrics.clockErrors.WithLabelValues(tt.stage.String())))
		})
	}
}

func TestRestoreSource(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig("core0", "core1"))
	require.NoError(t, h.b.PlatformInit(ctx))
	h.p.Fail["clock clk_mux parent clk_main_parent"] = errors.New("busy")

	require.Error(t, h.b.SetFrequency(ctx, 400000000))
	require.True(t, h.b.Degraded())

	// The rate is recorded, asking for it again is a no-op.
	h.p.Reset()
	require.NoError(t, h.b.SetFrequency(ctx, 400000000))
	assert.Empty(t, h.p.Events())
	assert.True(t, h.b.Degraded())

	err := h.b.RestoreSource(ctx)
	var ce *ClockError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, RestoreFailed, ce.Stage)
	assert.True(t, h.b.Degraded())

	delete(h.p.Fail, "clock clk_mux parent clk_main_parent")
	h.p.Reset()
	require.NoError(t, h.b.RestoreSource(ctx))
	assert.Equal(t, []string{"clock clk_mux parent clk_main_parent"}, h.p.Events())
	assert.False(t, h.b.Degraded())
	assert.Equal(t, "clk_main_parent", h.p.FakeClock("clk_mux").Parent)
	assert.Equal(t, float64(0), testutil.ToFloat64(h.b.metrics.degraded))
}

func TestSwitchClearsDegraded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig("core0", "core1"))
	h.p.Fail["clock clk_main_parent rate 400000000"] = errors.New("out of range")
	require.Error(t, h.b.SetFrequency(ctx, 400000000))
	require.True(t, h.b.Degraded())

	require.NoError(t, h.b.SetFrequency(ctx, 500000000))
	assert.False(t, h.b.Degraded())
	assert.Equal(t, "clk_main_parent", h.p.FakeClock("clk_mux").Parent)
}

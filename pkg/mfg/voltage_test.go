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

	"github.com/u-root/mfgpm/config"
)

func TestVoltageRangeCheck(t *testing.T) {
	band := config.DefaultConfig.Device.Voltage
	for _, tt := range []struct {
		name string
		in   [2]int
		want [2]int
	}{
		{"in band", [2]int{800000, 900000}, [2]int{800000, 900000}},
		{"gap too small", [2]int{800000, 850000}, [2]int{800000, 900000}},
		{"gap too large", [2]int{600000, 950000}, [2]int{600000, 850000}},
		{"clamped high", [2]int{825000, 1000000}, [2]int{825000, 925000}},
		{"sram below core", [2]int{900000, 800000}, [2]int{900000, 925000}},
		{"clamped low", [2]int{500000, 600000}, [2]int{500000, 850000}},
		{"max bias", [2]int{675000, 925000}, [2]int{675000, 925000}},
		{"min bias", [2]int{750000, 850000}, [2]int{750000, 850000}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := VoltageRangeCheck(band, tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in[0], got[0], "core voltage changed")
		})
	}
}

func TestSetOperatingPoint(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig("core0", "core1"))
	require.NoError(t, h.b.PlatformInit(ctx))

	// Going down: clock first.
	h.p.Reset()
	require.NoError(t, h.b.SetOperatingPoint(ctx, 400000000, [2]int{600000, 650000}))
	assert.Equal(t, append(switchEvents("400000000"),
		"regulator mali voltage 600000",
		"regulator sram voltage 850000",
	), h.p.Events())
	assert.Equal(t, []int{600000, 850000}, h.b.State().Voltages)
	assert.Equal(t, 850000.0, testutil.ToFloat64(h.b.metrics.voltage.WithLabelValues("sram")))

	// Going up: voltage first.
	h.p.Reset()
	require.NoError(t, h.b.SetOperatingPoint(ctx, 800000000, [2]int{825000, 925000}))
	assert.Equal(t, append([]string{
		"regulator mali voltage 825000",
		"regulator sram voltage 925000",
	}, switchEvents("800000000")...), h.p.Events())
	assert.Equal(t, []int{825000, 925000}, h.b.State().Voltages)
	assert.Equal(t, uint64(800000000), h.b.State().FrequencyHz)
	assert.Equal(t, 925125, h.p.FakeRegulator("sram").Voltage.Max)
}

func TestSetOperatingPointVoltageFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testConfig("core0", "core1"))
	require.NoError(t, h.b.PlatformInit(ctx))
	h.p.Reset()
	h.p.Fail["regulator mali voltage 600000"] = errors.New("out of range")

	// Lowering the clock already happened and stays.
	err := h.b.SetOperatingPoint(ctx, 400000000, [2]int{600000, 700000})
	require.Error(t, err)
	assert.Equal(t, uint64(400000000), h.b.State().FrequencyHz)
	assert.Equal(t, []int{825000, 925000}, h.b.State().Voltages)

	// Raising does not touch the clock when the voltage cannot follow.
	h.p.Reset()
	h.p.Fail["regulator mali voltage 825000"] = errors.New("out of range")
	require.Error(t, h.b.SetOperatingPoint(ctx, 800000000, [2]int{825000, 925000}))
	assert.Equal(t, []string{"regulator mali voltage 825000"}, h.p.Events())
	assert.Equal(t, uint64(400000000), h.b.State().FrequencyHz)
}

// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-root/mfgpm/config"
)

func device(domains ...string) *config.Device {
	d := config.DefaultConfig.Clone().Device
	d.DomainNames = domains
	d.RequiredDomains = len(domains)
	return &d
}

func TestDiscover(t *testing.T) {
	p := NewFakeProvider()
	inv, err := Discover(context.Background(), device("core0", "core1"), p)
	require.NoError(t, err)
	require.Len(t, inv.Regulators, 2)
	require.Len(t, inv.Domains, 2)
	assert.Equal(t, Range{config.VgpuMaxVolt, config.VgpuMaxVolt + config.VoltTolerance}, inv.Regulators[0].Target)

	names := []string{}
	for _, c := range inv.Clocks.All() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"clk_main_parent", "clk_sub_parent", "clk_mux", "subsys_mfg_cg"}, names)
	assert.Equal(t, 2, p.Attached())

	inv.Release()
	inv.Release()
	assert.Equal(t, 0, p.Attached())
	ev := p.Events()
	assert.Equal(t, []string{"domain core1 detach", "domain core0 detach"}, ev[len(ev)-2:], "release order")
}

func TestDiscoverSingleDomainDelegated(t *testing.T) {
	for _, names := range [][]string{nil, {"mfg"}} {
		p := NewFakeProvider()
		inv, err := Discover(context.Background(), device(names...), p)
		require.NoError(t, err, names)
		assert.Empty(t, inv.Domains, names)
		assert.Empty(t, p.Events(), names)
	}
}

func TestDiscoverConfigErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		dev  func() *config.Device
		kind ConfigErrorKind
	}{
		{"names short of required", func() *config.Device {
			d := device("core0", "core1")
			d.RequiredDomains = 3
			return d
		}, CountMismatch},
		{"refs differ from names", func() *config.Device {
			d := device("core0", "core1", "core2")
			d.DomainRefs = 2
			return d
		}, CountMismatch},
		{"required but none declared", func() *config.Device {
			d := device()
			d.RequiredDomains = 2
			return d
		}, CountMismatch},
		{"too many domains", func() *config.Device {
			return device("a", "b", "c", "d", "e", "f")
		}, TooMany},
		{"too many regulators", func() *config.Device {
			d := device("core0", "core1")
			d.Regulators = append(d.Regulators, config.Regulator{Name: "extra", Microvolts: 1})
			return d
		}, TooMany},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFakeProvider()
			_, err := Discover(context.Background(), tt.dev(), p)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Empty(t, p.Events(), "hardware touched before validation")
		})
	}
}

func TestDiscoverUnresolved(t *testing.T) {
	p := NewFakeProvider()
	p.Missing["sram"] = errors.New("no supply")
	_, err := Discover(context.Background(), device("core0", "core1"), p)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, UnboundRegulator, ce.Kind)
	assert.Equal(t, "sram", ce.Name)

	p = NewFakeProvider()
	p.Missing["clk_mux"] = errors.New("no clock")
	_, err = Discover(context.Background(), device("core0", "core1"), p)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ClockUnavailable, ce.Kind)
	assert.Equal(t, "clk_mux", ce.Name)
	assert.Equal(t, 0, p.Attached(), "domains attached after clock failure")
}

func TestDiscoverAttachRollback(t *testing.T) {
	for _, tt := range []struct {
		name      string
		err       error
		retryable bool
	}{
		{"retryable", ErrNotReady, true},
		{"wrapped retryable", fmt.Errorf("genpd: %w", ErrNotReady), true},
		{"permanent", errors.New("no such domain"), false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFakeProvider()
			p.Fail["domain core2 attach"] = tt.err
			_, err := Discover(context.Background(), device("core0", "core1", "core2", "core3"), p)
			var ae *AttachError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, 2, ae.Index)
			assert.Equal(t, "core2", ae.Name)
			assert.Equal(t, tt.retryable, ae.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, 0, p.Attached(), "domains left attached")
			assert.Equal(t, []string{
				"domain core0 attach", "domain core1 attach", "domain core2 attach",
				"domain core1 detach", "domain core0 detach",
			}, p.Events())
		})
	}
}

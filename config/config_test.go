// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig.Validate())
	assert.Len(t, DefaultConfig.Device.DomainNames, DefaultConfig.Device.RequiredDomains)
	// The SRAM rail must sit inside the guard band of the core rail.
	v := DefaultConfig.Device.Voltage
	gap := VsramGpuMaxVolt - VgpuMaxVolt
	assert.GreaterOrEqual(t, gap, v.MinBias)
	assert.LessOrEqual(t, gap, v.MaxBias)
}

func TestCloneIsDeep(t *testing.T) {
	c := DefaultConfig.Clone()
	c.Device.DomainNames[0] = "changed"
	c.Device.Regulators[0].Microvolts = 1
	assert.NotEqual(t, "changed", DefaultConfig.Device.DomainNames[0], "Clone shares DomainNames")
	assert.NotEqual(t, 1, DefaultConfig.Device.Regulators[0].Microvolts, "Clone shares Regulators")
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative required", func(c *Config) { c.Device.RequiredDomains = -1 }},
		{"empty domain name", func(c *Config) { c.Device.DomainNames[1] = "" }},
		{"unnamed regulator", func(c *Config) { c.Device.Regulators[0].Name = "" }},
		{"zero voltage", func(c *Config) { c.Device.Regulators[1].Microvolts = 0 }},
		{"missing mux", func(c *Config) { c.Device.Clocks.Mux = "" }},
		{"no max frequency", func(c *Config) { c.Device.MaxFrequencyHz = 0 }},
		{"bias inverted", func(c *Config) { c.Device.Voltage.MinBias = 300000 }},
		{"sram inverted", func(c *Config) { c.Device.Voltage.SramMin = 1000000 }},
		{"no compatible", func(c *Config) { c.Device.Idle.Compatible = "" }},
		{"negative timeout", func(c *Config) { c.Device.Idle.Timeout = -time.Second }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig.Clone()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	y := `
device:
  domain_names: [core0, core1]
  required_domains: 2
  max_frequency_hz: 358000000
  idle:
    timeout: 250ms
service:
  listen: "[::1]:9000"
`
	require.NoError(t, afero.WriteFile(fs, "/etc/mfgd.yaml", []byte(y), 0644))
	c, err := Load(fs, "/etc/mfgd.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"core0", "core1"}, c.Device.DomainNames)
	assert.Equal(t, 2, c.Device.RequiredDomains)
	assert.Equal(t, uint64(358000000), c.Device.MaxFrequencyHz)
	assert.Equal(t, 250*time.Millisecond, c.Device.Idle.Timeout)
	assert.Equal(t, "[::1]:9000", c.Service.Listen)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultConfig.Device.Clocks, c.Device.Clocks)
	assert.Equal(t, DefaultConfig.Device.Idle.Compatible, c.Device.Idle.Compatible)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Load(fs, "/missing.yaml")
	assert.Error(t, err, "missing file")

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("device: [1, 2"), 0644))
	_, err = Load(fs, "/bad.yaml")
	assert.Error(t, err, "malformed file")

	require.NoError(t, afero.WriteFile(fs, "/invalid.yaml", []byte("device:\n  max_frequency_hz: 0\n"), 0644))
	_, err = Load(fs, "/invalid.yaml")
	assert.Error(t, err, "invalid config")

	c, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.Device.MaxFrequencyHz, c.Device.MaxFrequencyHz)
}

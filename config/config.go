// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"time"
)

type Version struct {
	Version string
	GitHash string
}

// Regulator describes one supply rail of the GPU and the voltage window it
// is programmed to at init.
type Regulator struct {
	Name       string `yaml:"name"`
	Microvolts int    `yaml:"microvolts"`
	Tolerance  int    `yaml:"tolerance"`
}

// Clocks holds the four fixed clock identifiers of the MFG clock tree.
type Clocks struct {
	Main string `yaml:"main"`
	Sub  string `yaml:"sub"`
	Mux  string `yaml:"mux"`
	CG   string `yaml:"cg"`
}

// Voltage is the band used by the companion (SRAM) voltage guard.
type Voltage struct {
	MinBias int `yaml:"min_bias"`
	MaxBias int `yaml:"max_bias"`
	SramMin int `yaml:"sram_min"`
	SramMax int `yaml:"sram_max"`
}

type Idle struct {
	// Compatible locates the MFGCFG register block in the device tree.
	Compatible string `yaml:"compatible"`
	// Timeout of zero waits forever for the bus to go idle.
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type Device struct {
	// DomainRefs is the number of power domain references of the GPU
	// node. Zero means one per entry of DomainNames.
	DomainRefs      int         `yaml:"domain_refs"`
	DomainNames     []string    `yaml:"domain_names"`
	RequiredDomains int         `yaml:"required_domains"`
	Regulators      []Regulator `yaml:"regulators"`
	Clocks          Clocks      `yaml:"clocks"`
	MaxFrequencyHz  uint64      `yaml:"max_frequency_hz"`
	Voltage         Voltage     `yaml:"voltage"`
	Idle            Idle        `yaml:"idle"`
}

type Sysfs struct {
	Root          string `yaml:"root"`
	DeviceTree    string `yaml:"device_tree"`
	RegulatorPath string `yaml:"regulator_path"`
	DomainPath    string `yaml:"domain_path"`
	ClockPath     string `yaml:"clock_path"`
}

type Service struct {
	Listen  string `yaml:"listen"`
	LogFile string `yaml:"log_file"`
}

type Config struct {
	Device  Device  `yaml:"device"`
	Sysfs   Sysfs   `yaml:"sysfs"`
	Service Service `yaml:"service"`
	Version Version `yaml:"-"`
}

const (
	VgpuMaxVolt     = 825000
	VsramGpuMaxVolt = 925000
	VsramGpuMinVolt = 850000
	MinVoltBias     = 100000
	MaxVoltBias     = 250000
	VoltTolerance   = 125

	GpuFreqKhzMax = 800000
)

// DefaultConfig describes the MT8192 MFG block.
var DefaultConfig = &Config{
	Device: Device{
		DomainNames:     []string{"core0", "core1", "core2", "core3", "core4"},
		RequiredDomains: 5,
		Regulators: []Regulator{
			{Name: "mali", Microvolts: VgpuMaxVolt, Tolerance: VoltTolerance},
			{Name: "sram", Microvolts: VsramGpuMaxVolt, Tolerance: VoltTolerance},
		},
		Clocks: Clocks{
			Main: "clk_main_parent",
			Sub:  "clk_sub_parent",
			Mux:  "clk_mux",
			CG:   "subsys_mfg_cg",
		},
		MaxFrequencyHz: GpuFreqKhzMax * 1000,
		Voltage: Voltage{
			MinBias: MinVoltBias,
			MaxBias: MaxVoltBias,
			SramMin: VsramGpuMinVolt,
			SramMax: VsramGpuMaxVolt,
		},
		Idle: Idle{
			Compatible:   "mediatek,mt8192-mfgcfg",
			PollInterval: time.Microsecond,
		},
	},
	Sysfs: Sysfs{
		Root:          "/",
		DeviceTree:    "/sys/firmware/fdt",
		RegulatorPath: "/sys/devices/platform",
		DomainPath:    "/sys/devices/genpd",
		ClockPath:     "/sys/kernel/debug/clk",
	},
	Service: Service{
		// Local only, the API can cut power to the GPU.
		Listen: "127.0.0.1:9371",
	},
	Version: Version{
		Version: gitVersion,
		GitHash: gitHash,
	},
}

var (
	gitVersion = "dev"
	gitHash    = "unknown"
)

// Clone returns a deep copy so callers can tweak defaults safely.
func (c *Config) Clone() *Config {
	n := *c
	n.Device.DomainNames = append([]string(nil), c.Device.DomainNames...)
	n.Device.Regulators = append([]Regulator(nil), c.Device.Regulators...)
	return &n
}

// Validate rejects configurations that cannot describe a usable device.
// Count checks against the hardware happen at discovery.
func (c *Config) Validate() error {
	d := &c.Device
	if d.RequiredDomains < 0 || d.DomainRefs < 0 {
		return fmt.Errorf("domain counts must not be negative, got refs %d required %d", d.DomainRefs, d.RequiredDomains)
	}
	for i, n := range d.DomainNames {
		if n == "" {
			return fmt.Errorf("domain %d has no name", i)
		}
	}
	for i, r := range d.Regulators {
		if r.Name == "" {
			return fmt.Errorf("regulator %d has no name", i)
		}
		if r.Microvolts <= 0 || r.Tolerance < 0 {
			return fmt.Errorf("regulator %s: invalid voltage %d (tolerance %d)", r.Name, r.Microvolts, r.Tolerance)
		}
	}
	for role, n := range map[string]string{
		"main": d.Clocks.Main, "sub": d.Clocks.Sub, "mux": d.Clocks.Mux, "cg": d.Clocks.CG,
	} {
		if n == "" {
			return fmt.Errorf("clock %s has no name", role)
		}
	}
	if d.MaxFrequencyHz == 0 {
		return fmt.Errorf("max_frequency_hz must be set")
	}
	v := d.Voltage
	if v.MinBias > v.MaxBias {
		return fmt.Errorf("voltage bias band inverted: [%d, %d]", v.MinBias, v.MaxBias)
	}
	if v.SramMin > v.SramMax {
		return fmt.Errorf("sram voltage range inverted: [%d, %d]", v.SramMin, v.SramMax)
	}
	if d.Idle.Compatible == "" {
		return fmt.Errorf("idle.compatible must be set")
	}
	if d.Idle.Timeout < 0 || d.Idle.PollInterval < 0 {
		return fmt.Errorf("idle timings must not be negative")
	}
	return nil
}

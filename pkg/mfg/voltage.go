// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"context"
	"fmt"

	"github.com/u-root/mfgpm/config"
)

// VoltageRangeCheck corrects a (core, sram) voltage pair in microvolts. The
// sram rail must sit between MinBias and MaxBias above the core rail,
// otherwise it is set to core+MinBias. It is then clamped to
// [SramMin, SramMax] in any case.
func VoltageRangeCheck(v config.Voltage, volts [2]int) [2]int {
	if d := volts[1] - volts[0]; d < v.MinBias || d > v.MaxBias {
		volts[1] = volts[0] + v.MinBias
	}
	if volts[1] < v.SramMin {
		volts[1] = v.SramMin
	}
	if volts[1] > v.SramMax {
		volts[1] = v.SramMax
	}
	return volts
}

// VoltageRangeCheck applies the device's voltage band.
func (b *Base) VoltageRangeCheck(volts [2]int) [2]int {
	return VoltageRangeCheck(b.dev.Voltage, volts)
}

// SetOperatingPoint moves to a new frequency and voltage pair. Voltages
// are range checked first. When the frequency goes up the regulators are
// raised before the clock, when it goes down the clock is lowered first.
func (b *Base) SetOperatingPoint(ctx context.Context, hz uint64, volts [2]int) error {
	regs := b.inv.Regulators
	if len(regs) == 0 {
		return b.SetFrequency(ctx, hz)
	}
	volts = b.VoltageRangeCheck(volts)
	if hz >= b.state.FrequencyHz {
		if err := b.setVoltages(volts); err != nil {
			return err
		}
		return b.SetFrequency(ctx, hz)
	}
	if err := b.SetFrequency(ctx, hz); err != nil {
		return err
	}
	return b.setVoltages(volts)
}

func (b *Base) setVoltages(volts [2]int) error {
	for i, r := range b.inv.Regulators {
		if i >= len(volts) {
			break
		}
		uv := volts[i]
		tol := r.Target.Max - r.Target.Min
		if err := r.Regulator.SetVoltage(uv, uv+tol); err != nil {
			return fmt.Errorf("regulator %s set voltage %d: %w", r.Name, uv, err)
		}
		for len(b.state.Voltages) <= i {
			b.state.Voltages = append(b.state.Voltages, 0)
		}
		b.state.Voltages[i] = uv
		b.metrics.voltage.WithLabelValues(r.Name).Set(float64(uv))
	}
	return nil
}

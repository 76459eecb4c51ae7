// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"context"
)

// SetFrequency changes the main clock rate without glitching the GPU: the
// mux is parked on the sub clock while the main PLL is reprogrammed. It
// does nothing if hz is already the recorded frequency.
//
// Failures are reported as *ClockError. After RateSetFailed or
// RestoreFailed consumers still run from the sub clock and Degraded
// reports true until RestoreSource or another switch succeeds. Only
// RestoreFailed records the new rate.
func (b *Base) SetFrequency(ctx context.Context, hz uint64) error {
	if hz == b.state.FrequencyHz {
		return nil
	}
	return b.switchClock(ctx, hz)
}

func (b *Base) switchClock(ctx context.Context, hz uint64) error {
	c := &b.clocks
	if err := c.Mux.SetParent(c.Sub); err != nil {
		b.log.Errorf("Failed to select sub clock src: %v", err)
		return b.clockFailed(SourceSelectFailed, hz, err)
	}

	if err := c.Main.SetRate(hz); err != nil {
		b.log.Errorf("Failed to set clock rate: %d (err: %v)", hz, err)
		b.setDegraded(true)
		return b.clockFailed(RateSetFailed, hz, err)
	}
	b.state.FrequencyHz = hz
	b.metrics.frequency.Set(float64(hz))

	if err := c.Mux.SetParent(c.Main); err != nil {
		b.log.Errorf("Failed to select main clock src: %v", err)
		b.setDegraded(true)
		return b.clockFailed(RestoreFailed, hz, err)
	}
	b.setDegraded(false)
	b.log.Debugf("MFG clock switched to %d Hz", hz)
	return nil
}

// RestoreSource moves the mux back to the main clock, the last step of a
// switch that failed with RestoreFailed.
func (b *Base) RestoreSource(ctx context.Context) error {
	if err := b.clocks.Mux.SetParent(b.clocks.Main); err != nil {
		b.log.Errorf("Failed to select main clock src: %v", err)
		return b.clockFailed(RestoreFailed, b.state.FrequencyHz, err)
	}
	if b.degraded {
		b.log.Infof("MFG clock source restored at %d Hz", b.state.FrequencyHz)
	}
	b.setDegraded(false)
	return nil
}

func (b *Base) setDegraded(v bool) {
	b.degraded = v
	boolGauge(b.metrics.degraded, v)
}

func (b *Base) clockFailed(stage ClockStage, hz uint64, err error) error {
	b.metrics.clockErrors.WithLabelValues(stage.String()).Inc()
	return &ClockError{Stage: stage, Hz: hz, Err: err}
}

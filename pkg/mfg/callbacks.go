// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"context"
)

// Callbacks are the hooks the power management core calls.
type Callbacks struct {
	PowerOn  func(ctx context.Context) (Result, error)
	PowerOff func(ctx context.Context) (Result, error)
	Suspend  func(ctx context.Context)
	Resume   func(ctx context.Context)

	RuntimeInit func(ctx context.Context) error
	RuntimeTerm func(ctx context.Context)
	RuntimeOn   func(ctx context.Context) error
	RuntimeOff  func(ctx context.Context)
}

// Callbacks returns the power management hooks of b. Suspend and resume
// map onto power off and on, the runtime hooks have nothing to do.
func (b *Base) Callbacks() Callbacks {
	return Callbacks{
		PowerOn:  b.PowerOn,
		PowerOff: b.PowerOff,
		Suspend: func(ctx context.Context) {
			if _, err := b.PowerOff(ctx); err != nil {
				b.log.Errorf("Suspend: %v", err)
			}
		},
		Resume: func(ctx context.Context) {
			if _, err := b.PowerOn(ctx); err != nil {
				b.log.Errorf("Resume: %v", err)
			}
		},
		RuntimeInit: func(ctx context.Context) error {
			b.log.Debugf("runtime pm init")
			return nil
		},
		RuntimeTerm: func(ctx context.Context) {
			b.log.Debugf("runtime pm term")
		},
		RuntimeOn:  func(ctx context.Context) error { return nil },
		RuntimeOff: func(ctx context.Context) {},
	}
}

// DevfreqOps are the hooks a frequency governor calls.
type DevfreqOps struct {
	SetFrequency      func(ctx context.Context, hz uint64) error
	VoltageRangeCheck func(volts [2]int) [2]int
}

func (b *Base) DevfreqOps() DevfreqOps {
	return DevfreqOps{
		SetFrequency:      b.SetFrequency,
		VoltageRangeCheck: b.VoltageRangeCheck,
	}
}

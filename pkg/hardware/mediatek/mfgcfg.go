// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mediatek drives the MFGCFG block of MediaTek SoCs, the glue
// between the Mali GPU and the SoC bus.
package mediatek

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmhodges/clock"

	"github.com/u-root/mfgpm/pkg/hardware/mmio"
)

// Register offsets from the MFGCFG base.
const (
	MFG_QCHANNEL_CON uintptr = 0xb4
	MFG_DEBUG_SEL    uintptr = 0x170
	MFG_DEBUG_TOP    uintptr = 0x178

	// MFG_QCHANNEL_CON bit [1:0] = 0x1 enables the bus idle handshake.
	QCHANNEL_BUS_IDLE_EN uint32 = 0x1
	// MFG_DEBUG_SEL bit [7:0] = 0x3 routes bus status to MFG_DEBUG_TOP.
	DEBUG_SEL_BUS_STATUS uint32 = 0x3
	// MFG_DEBUG_TOP bit 2: 1 for bus idle, 0 for bus busy.
	BUS_IDLE_BIT uint32 = 1 << 2
)

var ErrBusNotIdle = errors.New("mfg bus did not go idle")

type Mfgcfg struct {
	mem  mmio.Mem
	base uintptr
	clk  clock.Clock

	// Timeout of zero polls until the bus goes idle, however long.
	Timeout      time.Duration
	PollInterval time.Duration
}

func Open(mem mmio.Mem, base uintptr) *Mfgcfg {
	return OpenWithClock(mem, base, clock.New())
}

func OpenWithClock(mem mmio.Mem, base uintptr, clk clock.Clock) *Mfgcfg {
	return &Mfgcfg{mem: mem, base: base, clk: clk}
}

func (m *Mfgcfg) Base() uintptr {
	return m.base
}

func (m *Mfgcfg) Close() error {
	return m.mem.Close()
}

func (m *Mfgcfg) busIdle() bool {
	return m.mem.MustRead32(m.base+MFG_DEBUG_TOP)&BUS_IDLE_BIT == BUS_IDLE_BIT
}

// WaitBusIdle blocks until the GPU has no outstanding bus transactions.
// It must only run while the GPU is powered, before its clocks are cut.
// It returns how long the wait took.
func (m *Mfgcfg) WaitBusIdle(ctx context.Context) (time.Duration, error) {
	start := m.clk.Now()
	m.mem.MustWrite32(m.base+MFG_QCHANNEL_CON, QCHANNEL_BUS_IDLE_EN)
	m.mem.MustWrite32(m.base+MFG_DEBUG_SEL, DEBUG_SEL_BUS_STATUS)

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(m.PollInterval)
	if m.Timeout > 0 {
		b = backoff.WithContext(b, ctx)
	}
	err := backoff.Retry(func() error {
		if m.busIdle() {
			return nil
		}
		return ErrBusNotIdle
	}, b)
	elapsed := m.clk.Now().Sub(start)
	if err != nil {
		return elapsed, ErrBusNotIdle
	}
	return elapsed, nil
}

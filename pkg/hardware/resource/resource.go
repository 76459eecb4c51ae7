// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resource describes the regulators, power domains and clocks a GPU
// block depends on, and discovers them through a Provider.
package resource

import (
	"context"
	"errors"
	"time"
)

// Slot capacities of the platform context.
const (
	MaxDomainSlots    = 5
	MaxRegulatorSlots = 2
)

// AutosuspendDelay is applied to every power domain at platform init.
const AutosuspendDelay = 50 * time.Millisecond

// ErrNotReady is returned by a Provider when a resource exists but its
// driver has not probed yet. Discovery may be retried later.
var ErrNotReady = errors.New("resource not ready")

// Regulator is a controllable supply rail.
type Regulator interface {
	Enable() error
	Disable() error
	SetVoltage(minUV, maxUV int) error
}

// Domain is a power domain attached through the runtime PM framework,
// which keeps the usage count.
type Domain interface {
	// ResumeSync takes a usage reference and powers the domain up,
	// blocking until the hardware acknowledges.
	ResumeSync(ctx context.Context) error
	MarkLastBusy()
	// PutAutosuspend drops the usage reference, the domain powers down
	// after the autosuspend delay.
	PutAutosuspend(ctx context.Context) error
	SetAutosuspendDelay(time.Duration) error
	UseAutosuspend() error
	// Detach powers the domain off and releases it.
	Detach()
}

type Clock interface {
	Name() string
	PrepareEnable() error
	DisableUnprepare() error
	SetRate(hz uint64) error
	SetParent(parent Clock) error
}

// Provider resolves resources by name.
type Provider interface {
	Regulator(name string) (Regulator, error)
	Clock(name string) (Clock, error)
	AttachDomain(ctx context.Context, name string) (Domain, error)
}

// Range is a voltage window in microvolts.
type Range struct {
	Min int
	Max int
}

type RegulatorSlot struct {
	Name      string
	Regulator Regulator
	Target    Range
}

// RegulatorSet is enabled from index 0 up and disabled in reverse.
type RegulatorSet []RegulatorSlot

type DomainSlot struct {
	Name   string
	Domain Domain
}

// DomainSet is resumed from index 0 up and released in reverse.
type DomainSet []DomainSlot

// ClockSet holds the MFG clock tree by role.
type ClockSet struct {
	// Main is the PLL feeding the GPU core.
	Main Clock
	// Sub is a stable reference the mux is parked on while Main changes.
	Sub Clock
	// Mux selects between Main and Sub for the downstream consumers.
	Mux Clock
	// CG gates the MFG subsystem.
	CG Clock
}

// All returns the clocks in bulk enable order.
func (c *ClockSet) All() []Clock {
	return []Clock{c.Main, c.Sub, c.Mux, c.CG}
}

// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Result tells what a power request did.
type Result int

const (
	Transitioned Result = iota
	AlreadyOn
	AlreadyOff
	// Aborted: the request failed and Powered did not change.
	Aborted
)

func (r Result) String() string {
	switch r {
	case Transitioned:
		return "transitioned"
	case AlreadyOn:
		return "already on"
	case AlreadyOff:
		return "already off"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

type step struct {
	stage PowerStage
	index int
	name  string
	do    func() error
}

// failFast runs steps in order and stops at the first failure. Steps that
// already ran are not undone.
func failFast(steps []step) error {
	for _, s := range steps {
		if err := s.do(); err != nil {
			return &PowerSequenceError{Stage: s.stage, Index: s.index, Name: s.name, Err: err}
		}
	}
	return nil
}

// collectAll runs every step and returns the combined failures.
func collectAll(steps []step, failed func(step, error)) error {
	var errs error
	for _, s := range steps {
		if err := s.do(); err != nil {
			failed(s, err)
			errs = multierr.Append(errs, fmt.Errorf("%s %s(%d): %w", s.stage, s.name, s.index, err))
		}
	}
	return errs
}

// PowerOn enables the regulators, resumes the power domains and enables
// the clocks, in that order. The first failure is returned as a
// *PowerSequenceError and the block stays unpowered.
//
// Once started the sequence is not cancelled by ctx, a provider only sees
// its values.
func (b *Base) PowerOn(ctx context.Context) (Result, error) {
	if b.state.Powered {
		b.log.Debugf("mali_device is already powered")
		return AlreadyOn, nil
	}
	ctx = context.WithoutCancel(ctx)

	var steps []step
	for i, r := range b.inv.Regulators {
		steps = append(steps, step{Regulators, i, r.Name, r.Regulator.Enable})
	}
	for i, d := range b.inv.Domains {
		d := d
		steps = append(steps, step{Domains, i, d.Name, func() error {
			return d.Domain.ResumeSync(ctx)
		}})
	}
	err := failFast(steps)
	if err == nil {
		err = b.enableClocks()
	}
	if err != nil {
		b.log.Errorf("Power on failed: %v", err)
		b.metrics.transitions.WithLabelValues("on", "error").Inc()
		return Aborted, err
	}

	b.state.Powered = true
	b.metrics.powered.Set(1)
	b.metrics.transitions.WithLabelValues("on", "ok").Inc()
	return Transitioned, nil
}

// enableClocks enables the clock set as one bulk. On failure the clocks
// enabled by this call are disabled again.
func (b *Base) enableClocks() error {
	clks := b.clocks.All()
	for i, c := range clks {
		if err := c.PrepareEnable(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if derr := clks[j].DisableUnprepare(); derr != nil {
					b.log.Warnf("Unwinding clock %s: %v", clks[j].Name(), derr)
				}
			}
			return &PowerSequenceError{Stage: Clocks, Index: i, Name: c.Name(), Err: err}
		}
	}
	return nil
}

// PowerOff waits for the MFG bus to drain, then disables the clocks,
// releases the power domains and disables the regulators, each in reverse.
// Failures past the idle wait are logged and counted but do not stop the
// teardown.
//
// The block is marked unpowered before the wait so a PowerOn arriving
// meanwhile is not refused. If the wait times out nothing has been
// touched, the block is marked powered again and ErrBusNotIdle returned.
// ctx bounds only a timed idle wait, the teardown always runs through.
func (b *Base) PowerOff(ctx context.Context) (Result, error) {
	if !b.state.Powered {
		b.log.Debugf("mali_device is already powered off")
		return AlreadyOff, nil
	}
	b.state.Powered = false
	b.metrics.powered.Set(0)

	if err := b.waitBusIdle(ctx); err != nil {
		b.state.Powered = true
		b.metrics.powered.Set(1)
		b.metrics.transitions.WithLabelValues("off", "aborted").Inc()
		b.log.Errorf("Power off aborted, GPU left powered: %v", err)
		return Aborted, err
	}

	err := collectAll(b.teardownSteps(context.WithoutCancel(ctx)), func(s step, err error) {
		b.log.Errorf("Power off %s %s(%d) failed: %v", s.stage, s.name, s.index, err)
		b.metrics.teardown.WithLabelValues(s.stage.String()).Inc()
	})
	if err != nil {
		b.log.Warnf("Powered off with %d errors", len(multierr.Errors(err)))
		b.metrics.transitions.WithLabelValues("off", "error").Inc()
	} else {
		b.metrics.transitions.WithLabelValues("off", "ok").Inc()
	}
	return Transitioned, nil
}

func (b *Base) waitBusIdle(ctx context.Context) error {
	if b.mfgcfg == nil {
		return ErrIdleRegisterNotFound
	}
	d, err := b.mfgcfg.WaitBusIdle(ctx)
	b.metrics.idleWait.Observe(d.Seconds())
	return err
}

func (b *Base) teardownSteps(ctx context.Context) []step {
	var steps []step
	clks := b.clocks.All()
	for i := len(clks) - 1; i >= 0; i-- {
		steps = append(steps, step{Clocks, i, clks[i].Name(), clks[i].DisableUnprepare})
	}
	for i := len(b.inv.Domains) - 1; i >= 0; i-- {
		d := b.inv.Domains[i]
		steps = append(steps, step{Domains, i, d.Name, func() error {
			d.Domain.MarkLastBusy()
			return d.Domain.PutAutosuspend(ctx)
		}})
	}
	for i := len(b.inv.Regulators) - 1; i >= 0; i-- {
		r := b.inv.Regulators[i]
		steps = append(steps, step{Regulators, i, r.Name, r.Regulator.Disable})
	}
	return steps
}

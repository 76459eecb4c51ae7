// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mfg sequences power and clocks of the MediaTek MFG (Mali GPU)
// block.
//
// A Base is created once per device by Init and is not safe for
// concurrent use: callers serialise PowerOn, PowerOff and frequency
// changes the way the runtime PM core and the devfreq governor do.
package mfg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmhodges/clock"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/u-root/mfgpm/config"
	"github.com/u-root/mfgpm/pkg/hardware/mediatek"
	"github.com/u-root/mfgpm/pkg/hardware/resource"
	"github.com/u-root/mfgpm/pkg/logger"
	"github.com/u-root/mfgpm/pkg/metric"
)

// PowerState is the externally visible state of the block.
type PowerState struct {
	Powered bool
	// FrequencyHz is the last rate successfully applied to the main clock.
	FrequencyHz uint64
	// Voltages holds the lower bound last programmed per regulator.
	Voltages []int
}

type Base struct {
	dev    config.Device
	inv    *resource.Inventory
	clocks resource.ClockSet
	mfgcfg *mediatek.Mfgcfg
	state  PowerState

	// The mux was left on the sub clock by a failed switch.
	degraded bool

	log     *zap.SugaredLogger
	clk     clock.Clock
	metrics *metrics
}

type options struct {
	log     *zap.SugaredLogger
	clk     clock.Clock
	reg     *metric.Registry
	retry   *backoff.Backoff
	metrics *metrics
}

type Option func(*options)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.log = l }
}

// WithRegistry registers the block's collectors on r.
func WithRegistry(r *metric.Registry) Option {
	return func(o *options) { o.reg = r }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clk = c }
}

// WithRetry sets the schedule InitWithRetry sleeps by.
func WithRetry(b *backoff.Backoff) Option {
	return func(o *options) { o.retry = b }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.LogContainer.GetSimpleLogger()
	}
	if o.clk == nil {
		o.clk = clock.New()
	}
	if o.reg == nil {
		o.reg = metric.NewPedanticRegistry()
	}
	o.metrics = newMetrics(o.reg)
	if o.retry == nil {
		o.retry = &backoff.Backoff{
			Min:    10 * time.Millisecond,
			Max:    5 * time.Second,
			Factor: 2,
			Jitter: true,
		}
	}
	return o
}

// Init discovers the block's resources, programs every regulator to its
// nominal voltage and maps the MFGCFG registers. The block starts out
// unpowered. On error nothing stays attached.
func Init(ctx context.Context, cfg *config.Config, p resource.Provider, m Mapper, opts ...Option) (*Base, error) {
	return initBase(ctx, cfg, p, m, newOptions(opts))
}

func initBase(ctx context.Context, cfg *config.Config, p resource.Provider, m Mapper, o *options) (*Base, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	b := &Base{
		dev:     cfg.Clone().Device,
		log:     o.log,
		clk:     o.clk,
		metrics: o.metrics,
	}

	inv, err := resource.Discover(ctx, &b.dev, p)
	if err != nil {
		return nil, err
	}
	b.inv = inv
	b.clocks = inv.Clocks

	for i, r := range inv.Regulators {
		if r.Regulator == nil {
			b.Term()
			return nil, &resource.ConfigError{Kind: resource.UnboundRegulator, Name: r.Name}
		}
		if err := r.Regulator.SetVoltage(r.Target.Min, r.Target.Max); err != nil {
			b.log.Errorf("Regulator %d set voltage failed: %v", i, err)
			b.Term()
			return nil, fmt.Errorf("regulator %s set voltage [%d, %d]: %w", r.Name, r.Target.Min, r.Target.Max, err)
		}
		b.state.Voltages = append(b.state.Voltages, r.Target.Min)
		b.metrics.voltage.WithLabelValues(r.Name).Set(float64(r.Target.Min))
	}

	mem, w, err := m.Map(b.dev.Idle.Compatible)
	if err != nil {
		b.log.Errorf("Cannot find mfgcfg node: %v", err)
		b.Term()
		if !errors.Is(err, ErrIdleRegisterNotFound) {
			err = fmt.Errorf("%w: %v", ErrIdleRegisterNotFound, err)
		}
		return nil, err
	}
	b.mfgcfg = mediatek.OpenWithClock(mem, w.Base, b.clk)
	b.mfgcfg.Timeout = b.dev.Idle.Timeout
	b.mfgcfg.PollInterval = b.dev.Idle.PollInterval

	b.state.Powered = false
	b.metrics.powered.Set(0)
	b.log.Infof("MFG ready: %d regulators, %d pm-domains, mfgcfg at %#x",
		len(inv.Regulators), len(inv.Domains), w.Base)
	return b, nil
}

// InitWithRetry calls Init again while a power domain is not ready yet,
// sleeping between attempts, until ctx is done.
func InitWithRetry(ctx context.Context, cfg *config.Config, p resource.Provider, m Mapper, opts ...Option) (*Base, error) {
	o := newOptions(opts)
	o.retry.Reset()
	for {
		b, err := initBase(ctx, cfg, p, m, o)
		if err == nil || !resource.IsRetryable(err) {
			return b, err
		}
		delay := o.retry.Duration()
		o.log.Warnf("MFG init deferred (attempt %d), retrying in %v: %v", int(o.retry.Attempt()), delay, err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%v: %w", ctx.Err(), err)
		case <-o.clk.After(delay):
		}
	}
}

// PlatformInit enables autosuspend on every power domain and drives the
// clock tree to the maximum rated frequency.
func (b *Base) PlatformInit(ctx context.Context) error {
	for i, d := range b.inv.Domains {
		if err := d.Domain.SetAutosuspendDelay(resource.AutosuspendDelay); err != nil {
			return fmt.Errorf("pm-domain %s(%d) autosuspend delay: %w", d.Name, i, err)
		}
		if err := d.Domain.UseAutosuspend(); err != nil {
			return fmt.Errorf("pm-domain %s(%d) autosuspend: %w", d.Name, i, err)
		}
	}
	if err := b.switchClock(ctx, b.dev.MaxFrequencyHz); err != nil {
		return err
	}
	b.log.Infof("MFG clock at %d Hz", b.dev.MaxFrequencyHz)
	return nil
}

// Term detaches every power domain and unmaps the registers. It may be
// called on a nil or partially initialised Base, and more than once.
func (b *Base) Term() {
	if b == nil {
		return
	}
	b.inv.Release()
	if b.mfgcfg != nil {
		if err := b.mfgcfg.Close(); err != nil {
			b.log.Warnf("Unmapping mfgcfg: %v", err)
		}
		b.mfgcfg = nil
	}
}

// State returns a copy of the power state.
func (b *Base) State() PowerState {
	s := b.state
	s.Voltages = append([]int(nil), b.state.Voltages...)
	return s
}

// Degraded reports whether the mux was left on the sub clock by a failed
// switch.
func (b *Base) Degraded() bool {
	return b.degraded
}

func (b *Base) Inventory() *resource.Inventory {
	return b.inv
}

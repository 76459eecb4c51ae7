// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeProvider is an in-memory Provider that logs every hardware call in
// order. Calls fail when their event has an entry in Fail.
//
// Events look like "regulator mali enable", "domain core0 resume",
// "clock clk_mux parent clk_sub_parent" or "clock clk_main_parent rate 800000000".
type FakeProvider struct {
	m      sync.Mutex
	events []string
	// Fail maps an event to the error the call returns.
	Fail map[string]error
	// Missing resources cannot be resolved.
	Missing map[string]error

	regulators map[string]*FakeRegulator
	clocks     map[string]*FakeClock
	domains    map[string]*FakeDomain
	attached   int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Fail:       map[string]error{},
		Missing:    map[string]error{},
		regulators: map[string]*FakeRegulator{},
		clocks:     map[string]*FakeClock{},
		domains:    map[string]*FakeDomain{},
	}
}

// Record appends an event that did not come from a resource, e.g. a
// register poll, so it can be ordered against resource calls.
func (p *FakeProvider) Record(ev string) {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = append(p.events, ev)
}

func (p *FakeProvider) call(ev string) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = append(p.events, ev)
	return p.Fail[ev]
}

// Events returns the calls so far.
func (p *FakeProvider) Events() []string {
	p.m.Lock()
	defer p.m.Unlock()
	return append([]string(nil), p.events...)
}

// Reset forgets the recorded calls.
func (p *FakeProvider) Reset() {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = nil
}

// Attached is the number of domains currently attached.
func (p *FakeProvider) Attached() int {
	p.m.Lock()
	defer p.m.Unlock()
	return p.attached
}

func (p *FakeProvider) Regulator(name string) (Regulator, error) {
	p.m.Lock()
	defer p.m.Unlock()
	if err, ok := p.Missing[name]; ok {
		return nil, err
	}
	r, ok := p.regulators[name]
	if !ok {
		r = &FakeRegulator{p: p, name: name}
		p.regulators[name] = r
	}
	return r, nil
}

func (p *FakeProvider) Clock(name string) (Clock, error) {
	p.m.Lock()
	defer p.m.Unlock()
	if err, ok := p.Missing[name]; ok {
		return nil, err
	}
	c, ok := p.clocks[name]
	if !ok {
		c = &FakeClock{p: p, name: name}
		p.clocks[name] = c
	}
	return c, nil
}

func (p *FakeProvider) AttachDomain(ctx context.Context, name string) (Domain, error) {
	if err := p.call("domain " + name + " attach"); err != nil {
		return nil, err
	}
	p.m.Lock()
	defer p.m.Unlock()
	d := &FakeDomain{p: p, name: name}
	p.domains[name] = d
	p.attached++
	return d, nil
}

// FakeRegulator returns the regulator handed out under name, if any.
func (p *FakeProvider) FakeRegulator(name string) *FakeRegulator {
	p.m.Lock()
	defer p.m.Unlock()
	return p.regulators[name]
}

func (p *FakeProvider) FakeClock(name string) *FakeClock {
	p.m.Lock()
	defer p.m.Unlock()
	return p.clocks[name]
}

func (p *FakeProvider) FakeDomain(name string) *FakeDomain {
	p.m.Lock()
	defer p.m.Unlock()
	return p.domains[name]
}

type FakeRegulator struct {
	p        *FakeProvider
	name     string
	Enabled  int
	Voltage  Range
	Voltages []Range
}

func (r *FakeRegulator) Enable() error {
	if err := r.p.call("regulator " + r.name + " enable"); err != nil {
		return err
	}
	r.Enabled++
	return nil
}

func (r *FakeRegulator) Disable() error {
	if err := r.p.call("regulator " + r.name + " disable"); err != nil {
		return err
	}
	r.Enabled--
	return nil
}

func (r *FakeRegulator) SetVoltage(minUV, maxUV int) error {
	if err := r.p.call(fmt.Sprintf("regulator %s voltage %d", r.name, minUV)); err != nil {
		return err
	}
	r.Voltage = Range{minUV, maxUV}
	r.Voltages = append(r.Voltages, r.Voltage)
	return nil
}

type FakeDomain struct {
	p           *FakeProvider
	name        string
	Usage       int
	Delay       time.Duration
	Autosuspend bool
	Detached    bool
}

func (d *FakeDomain) ResumeSync(ctx context.Context) error {
	if err := d.p.call("domain " + d.name + " resume"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.Usage++
	return nil
}

func (d *FakeDomain) MarkLastBusy() {
	d.p.call("domain " + d.name + " busy")
}

func (d *FakeDomain) PutAutosuspend(ctx context.Context) error {
	if err := d.p.call("domain " + d.name + " put"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.Usage--
	return nil
}

func (d *FakeDomain) SetAutosuspendDelay(delay time.Duration) error {
	if err := d.p.call(fmt.Sprintf("domain %s delay %d", d.name, delay.Milliseconds())); err != nil {
		return err
	}
	d.Delay = delay
	return nil
}

func (d *FakeDomain) UseAutosuspend() error {
	if err := d.p.call("domain " + d.name + " autosuspend"); err != nil {
		return err
	}
	d.Autosuspend = true
	return nil
}

func (d *FakeDomain) Detach() {
	d.p.call("domain " + d.name + " detach")
	if d.Detached {
		return
	}
	d.Detached = true
	d.p.m.Lock()
	d.p.attached--
	d.p.m.Unlock()
}

type FakeClock struct {
	p       *FakeProvider
	name    string
	Enabled bool
	Rate    uint64
	Parent  string
}

func (c *FakeClock) Name() string {
	return c.name
}

func (c *FakeClock) PrepareEnable() error {
	if err := c.p.call("clock " + c.name + " enable"); err != nil {
		return err
	}
	c.Enabled = true
	return nil
}

func (c *FakeClock) DisableUnprepare() error {
	if err := c.p.call("clock " + c.name + " disable"); err != nil {
		return err
	}
	c.Enabled = false
	return nil
}

func (c *FakeClock) SetRate(hz uint64) error {
	if err := c.p.call(fmt.Sprintf("clock %s rate %d", c.name, hz)); err != nil {
		return err
	}
	c.Rate = hz
	return nil
}

func (c *FakeClock) SetParent(parent Clock) error {
	if err := c.p.call("clock " + c.name + " parent " + parent.Name()); err != nil {
		return err
	}
	c.Parent = parent.Name()
	return nil
}

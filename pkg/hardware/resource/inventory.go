// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/u-root/mfgpm/config"
	"github.com/u-root/mfgpm/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

// Inventory is the set of resources of one GPU block.
type Inventory struct {
	Regulators RegulatorSet
	Domains    DomainSet
	Clocks     ClockSet
}

// Discover validates the device description and resolves every resource
// through p. Counts are checked before p is called. On error nothing stays
// attached.
func Discover(ctx context.Context, dev *config.Device, p Provider) (*Inventory, error) {
	names, err := domainNames(dev)
	if err != nil {
		return nil, err
	}
	if n := len(dev.Regulators); n > MaxRegulatorSlots {
		return nil, &ConfigError{Kind: TooMany, Name: "regulators",
			Detail: fmt.Sprintf("%d declared, %d slots", n, MaxRegulatorSlots)}
	}

	inv := &Inventory{}
	for _, r := range dev.Regulators {
		reg, err := p.Regulator(r.Name)
		if err != nil || reg == nil {
			return nil, &ConfigError{Kind: UnboundRegulator, Name: r.Name, Err: err}
		}
		inv.Regulators = append(inv.Regulators, RegulatorSlot{
			Name:      r.Name,
			Regulator: reg,
			Target:    Range{Min: r.Microvolts, Max: r.Microvolts + r.Tolerance},
		})
	}

	roles := []struct {
		name string
		c    *Clock
	}{
		{dev.Clocks.Main, &inv.Clocks.Main},
		{dev.Clocks.Sub, &inv.Clocks.Sub},
		{dev.Clocks.Mux, &inv.Clocks.Mux},
		{dev.Clocks.CG, &inv.Clocks.CG},
	}
	for _, r := range roles {
		c, err := p.Clock(r.name)
		if err != nil || c == nil {
			return nil, &ConfigError{Kind: ClockUnavailable, Name: r.name, Err: err}
		}
		*r.c = c
	}

	for i, n := range names {
		d, err := p.AttachDomain(ctx, n)
		if err == nil && d == nil {
			err = errors.New("no domain returned")
		}
		if err != nil {
			ae := &AttachError{Index: i, Name: n, Retryable: errors.Is(err, ErrNotReady), Err: err}
			if ae.Retryable {
				log.Debugf("Probe deferral for pm-domain %s(%d)", n, i)
			} else {
				log.Errorf("Failed to get pm-domain %s(%d): %v", n, i, err)
			}
			inv.Release()
			return nil, ae
		}
		inv.Domains = append(inv.Domains, DomainSlot{Name: n, Domain: d})
	}
	return inv, nil
}

// domainNames returns the domains that need explicit sequencing. A single
// domain is left to the runtime PM framework.
func domainNames(dev *config.Device) ([]string, error) {
	declared := dev.DomainRefs
	if declared == 0 {
		declared = len(dev.DomainNames)
	}
	if declared < 2 && dev.RequiredDomains < 2 {
		return nil, nil
	}
	if declared != len(dev.DomainNames) {
		return nil, &ConfigError{Kind: CountMismatch, Name: "power domains",
			Detail: fmt.Sprintf("%d references, %d names", declared, len(dev.DomainNames))}
	}
	if declared != dev.RequiredDomains {
		return nil, &ConfigError{Kind: CountMismatch, Name: "power domains",
			Detail: fmt.Sprintf("%d provided, %d needed", declared, dev.RequiredDomains)}
	}
	if declared > MaxDomainSlots {
		return nil, &ConfigError{Kind: TooMany, Name: "power domains",
			Detail: fmt.Sprintf("%d declared, %d slots", declared, MaxDomainSlots)}
	}
	return dev.DomainNames, nil
}

// Release detaches every attached domain, last first. It is safe to call
// more than once.
func (inv *Inventory) Release() {
	if inv == nil {
		return
	}
	for i := len(inv.Domains) - 1; i >= 0; i-- {
		if d := inv.Domains[i].Domain; d != nil {
			d.Detach()
		}
	}
	inv.Domains = nil
}

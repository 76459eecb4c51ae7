// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sysfs

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"

	"github.com/u-root/mfgpm/pkg/hardware/resource"
)

type domain struct {
	fs       afero.Fs
	dir      string
	name     string
	timeout  time.Duration
	interval time.Duration
	delay    time.Duration
}

// AttachDomain returns resource.ErrNotReady while the domain's device has
// not been registered yet.
func (p *Provider) AttachDomain(ctx context.Context, name string) (resource.Domain, error) {
	dir := path.Join(p.cfg.DomainPath, name)
	if !exists(p.fs, dir) {
		return nil, fmt.Errorf("pm-domain %s: %w", name, resource.ErrNotReady)
	}
	if !exists(p.fs, path.Join(dir, "power", "control")) {
		return nil, fmt.Errorf("pm-domain %s: runtime PM not supported", name)
	}
	return &domain{
		fs:       p.fs,
		dir:      dir,
		name:     name,
		timeout:  p.ResumeTimeout,
		interval: p.pollInterval,
		delay:    resource.AutosuspendDelay,
	}, nil
}

func (d *domain) attr(name string) string {
	return path.Join(d.dir, "power", name)
}

func (d *domain) ResumeSync(ctx context.Context) error {
	if err := writeAttr(d.fs, d.attr("control"), "on"); err != nil {
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.interval
	b.MaxElapsedTime = d.timeout
	var status string
	err := backoff.Retry(func() error {
		s, err := readAttr(d.fs, d.attr("runtime_status"))
		if err != nil {
			return backoff.Permanent(err)
		}
		status = s
		switch s {
		case "active":
			return nil
		case "error", "unsupported":
			return backoff.Permanent(fmt.Errorf("runtime status %s", s))
		}
		return fmt.Errorf("runtime status %s", s)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("pm-domain %s resume (last status %q): %w", d.name, status, err)
	}
	return nil
}

// MarkLastBusy has no sysfs counterpart, the kernel stamps last_busy when
// control returns to auto.
func (d *domain) MarkLastBusy() {
	log.Debugf("pm-domain %s: last busy", d.name)
}

func (d *domain) PutAutosuspend(ctx context.Context) error {
	return writeAttr(d.fs, d.attr("control"), "auto")
}

func (d *domain) SetAutosuspendDelay(delay time.Duration) error {
	d.delay = delay
	return writeAttr(d.fs, d.attr("autosuspend_delay_ms"), strconv.FormatInt(delay.Milliseconds(), 10))
}

// UseAutosuspend writes the delay again, a negative delay read back means
// autosuspend is blocked for the device.
func (d *domain) UseAutosuspend() error {
	if err := d.SetAutosuspendDelay(d.delay); err != nil {
		return err
	}
	v, err := readIntAttr(d.fs, d.attr("autosuspend_delay_ms"))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("pm-domain %s: autosuspend blocked (delay %d)", d.name, v)
	}
	return nil
}

func (d *domain) Detach() {
	if err := writeAttr(d.fs, d.attr("control"), "auto"); err != nil {
		log.Errorf("pm-domain %s detach: %v", d.name, err)
	}
}

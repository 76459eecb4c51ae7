// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sysfs

import (
	"fmt"
	"path"
	"strconv"

	"github.com/spf13/afero"

	"github.com/u-root/mfgpm/pkg/hardware/resource"
)

type clock struct {
	fs   afero.Fs
	dir  string
	name string
}

func (c *clock) Name() string {
	return c.name
}

func (c *clock) PrepareEnable() error {
	return writeAttr(c.fs, path.Join(c.dir, "clk_prepare_enable"), "1")
}

func (c *clock) DisableUnprepare() error {
	return writeAttr(c.fs, path.Join(c.dir, "clk_prepare_enable"), "0")
}

// SetRate reads the rate back, the clock framework rounds silently.
func (c *clock) SetRate(hz uint64) error {
	f := path.Join(c.dir, "clk_rate")
	if err := writeAttr(c.fs, f, strconv.FormatUint(hz, 10)); err != nil {
		return err
	}
	got, err := readIntAttr(c.fs, f)
	if err != nil {
		return err
	}
	if uint64(got) != hz {
		return fmt.Errorf("clock %s: rate %d requested, %d applied", c.name, hz, got)
	}
	return nil
}

func (c *clock) SetParent(parent resource.Clock) error {
	f := path.Join(c.dir, "clk_parent")
	if err := writeAttr(c.fs, f, parent.Name()); err != nil {
		return err
	}
	got, err := readAttr(c.fs, f)
	if err != nil {
		return err
	}
	if got != parent.Name() {
		return fmt.Errorf("clock %s: parent %s requested, %s selected", c.name, parent.Name(), got)
	}
	return nil
}

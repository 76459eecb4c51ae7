// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/u-root/mfgpm/pkg/hardware/devicetree"
	"github.com/u-root/mfgpm/pkg/hardware/mmio"
)

// Mapper locates a register block by its device tree compatible string
// and maps it.
type Mapper interface {
	Map(compatible string) (mmio.Mem, mmio.Window, error)
}

// MapperFunc adapts a function to Mapper.
type MapperFunc func(compatible string) (mmio.Mem, mmio.Window, error)

func (f MapperFunc) Map(compatible string) (mmio.Mem, mmio.Window, error) {
	return f(compatible)
}

// DeviceTreeMapper looks the block up in a flattened device tree blob and
// maps it through /dev/mem.
type DeviceTreeMapper struct {
	Fs   afero.Fs
	Path string
	// Open maps the window, mmio.OpenHostMemory when nil.
	Open func(w mmio.Window) (mmio.Mem, error)
}

func (d *DeviceTreeMapper) Map(compatible string) (mmio.Mem, mmio.Window, error) {
	t, err := devicetree.Load(d.Fs, d.Path)
	if err != nil {
		return nil, mmio.Window{}, err
	}
	w, err := t.FindCompatible(compatible)
	if errors.Is(err, devicetree.ErrNotFound) {
		return nil, mmio.Window{}, fmt.Errorf("%w: %v", ErrIdleRegisterNotFound, err)
	}
	if err != nil {
		return nil, mmio.Window{}, err
	}
	open := d.Open
	if open == nil {
		open = mmio.OpenHostMemory
	}
	mem, err := open(w)
	if err != nil {
		return nil, mmio.Window{}, fmt.Errorf("map %s at %#x: %w", compatible, w.Base, err)
	}
	return mem, w, nil
}

// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devicetree finds register windows of device tree nodes by their
// compatible string.
package devicetree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platinasystems/fdt"
	"github.com/spf13/afero"

	"github.com/u-root/mfgpm/pkg/hardware/mmio"
)

var ErrNotFound = errors.New("no compatible node")

// Default cell sizes of a 64-bit SoC root node.
const (
	defaultAddressCells = 2
	defaultSizeCells    = 2
)

type Tree struct {
	t *fdt.Tree
}

// Load parses a flattened device tree blob, usually /sys/firmware/fdt.
func Load(fs afero.Fs, path string) (t *Tree, err error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (t *Tree, err error) {
	// The parser indexes the blob without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("malformed device tree: %v", r)
		}
	}()
	ft := &fdt.Tree{Debug: false, IsLittleEndian: false}
	if err := ft.Parse(b); err != nil {
		return nil, err
	}
	if ft.RootNode == nil {
		return nil, fmt.Errorf("device tree has no root node")
	}
	return &Tree{ft}, nil
}

// FindCompatible returns the first reg window of the node whose compatible
// list holds the given string.
func (t *Tree) FindCompatible(compatible string) (mmio.Window, error) {
	var found *fdt.Node
	t.t.EachProperty("compatible", compatible, func(n *fdt.Node, _ string, value string) {
		if found != nil {
			return
		}
		for _, c := range strings.Split(value, "\x00") {
			if c == compatible {
				found = n
				return
			}
		}
	})
	if found == nil {
		return mmio.Window{}, fmt.Errorf("%w: %s", ErrNotFound, compatible)
	}
	reg, ok := found.Properties["reg"]
	if !ok {
		return mmio.Window{}, fmt.Errorf("node %s has no reg property", found.Name)
	}
	ac, sc := defaultAddressCells, defaultSizeCells
	if p := parentOf(t.t.RootNode, found); p != nil {
		ac, sc = cells(t.t, p)
	}
	v := t.t.PropUint32Slice(reg)
	if len(v) < ac+sc {
		return mmio.Window{}, fmt.Errorf("node %s: reg has %d cells, want %d", found.Name, len(v), ac+sc)
	}
	return mmio.Window{
		Base: uintptr(join(v[:ac])),
		Size: uintptr(join(v[ac : ac+sc])),
	}, nil
}

func parentOf(n, target *fdt.Node) *fdt.Node {
	for _, c := range n.Children {
		if c == target {
			return n
		}
		if p := parentOf(c, target); p != nil {
			return p
		}
	}
	return nil
}

func cells(t *fdt.Tree, n *fdt.Node) (int, int) {
	ac, sc := defaultAddressCells, defaultSizeCells
	if b, ok := n.Properties["#address-cells"]; ok && len(b) == 4 {
		ac = int(t.PropUint32(b))
	}
	if b, ok := n.Properties["#size-cells"]; ok && len(b) == 4 {
		sc = int(t.PropUint32(b))
	}
	return ac, sc
}

func join(v []uint32) uint64 {
	var r uint64
	for _, c := range v {
		r = r<<32 | uint64(c)
	}
	return r
}

// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmio gives 32-bit access to memory mapped register blocks.
//
// Addresses are absolute physical addresses. Accessors panic on faults the
// same way a bad bus access would take the machine down, callers that need
// to recover have to do so explicitly.
package mmio

// Mem is a window of memory mapped registers.
type Mem interface {
	MustRead32(uintptr) uint32
	MustWrite32(uintptr, uint32)
	Close() error
}

// Window describes a physical register range.
type Window struct {
	Base uintptr
	Size uintptr
}

func (w Window) Contains(a uintptr, n uintptr) bool {
	return a >= w.Base && a+n <= w.Base+w.Size
}

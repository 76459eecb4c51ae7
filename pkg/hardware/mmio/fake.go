// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmio

import (
	"fmt"
	"sync"
)

// Reporter is the part of testing.TB the fakes need.
type Reporter interface {
	Errorf(format string, args ...interface{})
}

type op struct {
	write   bool
	address uintptr
	data    uint32
}

func (o *op) String() string {
	t := "read"
	if o.write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ %08x = %08x}", t, o.address, o.data)
}

// FakeMem checks accesses against an ordered script of expected
// operations.
type FakeMem struct {
	t   Reporter
	ops []op
}

func NewFakeMem(t Reporter) *FakeMem {
	return &FakeMem{t: t}
}

func (m *FakeMem) next(a uintptr) (op, bool) {
	if len(m.ops) == 0 {
		m.t.Errorf("Unexpected access on %08x, script exhausted", a)
		return op{}, false
	}
	o := m.ops[0]
	m.ops = m.ops[1:]
	return o, true
}

func (m *FakeMem) MustRead32(a uintptr) uint32 {
	o, ok := m.next(a)
	if ok && (o.write || o.address != a) {
		m.t.Errorf("Expected %s, got 32 bit read on %08x", o.String(), a)
	}
	return o.data
}

func (m *FakeMem) MustWrite32(a uintptr, d uint32) {
	o, ok := m.next(a)
	if ok && (!o.write || o.address != a || o.data != d) {
		m.t.Errorf("Expected %s, got 32 bit write of %08x on %08x", o.String(), d, a)
	}
}

func (m *FakeMem) ExpectWrite32(a uintptr, d uint32) {
	m.ops = append(m.ops, op{true, a, d})
}

func (m *FakeMem) FakeRead32(a uintptr, d uint32) {
	m.ops = append(m.ops, op{false, a, d})
}

// Done reports scripted operations that never happened.
func (m *FakeMem) Done() {
	for i := range m.ops {
		m.t.Errorf("Expected %s, never happened", m.ops[i].String())
	}
	m.ops = nil
}

func (m *FakeMem) Close() error {
	return nil
}

// RegisterFile is a plain register map. Unwritten registers read as zero.
// OnRead, when set, computes the value of a read instead.
type RegisterFile struct {
	m      sync.Mutex
	regs   map[uintptr]uint32
	writes []uintptr
	reads  int
	OnRead func(a uintptr, n int) uint32
}

func NewRegisterFile() *RegisterFile {
	return &RegisterFile{regs: make(map[uintptr]uint32)}
}

func (r *RegisterFile) MustRead32(a uintptr) uint32 {
	r.m.Lock()
	defer r.m.Unlock()
	r.reads++
	if r.OnRead != nil {
		return r.OnRead(a, r.reads)
	}
	return r.regs[a]
}

func (r *RegisterFile) MustWrite32(a uintptr, d uint32) {
	r.m.Lock()
	defer r.m.Unlock()
	r.regs[a] = d
	r.writes = append(r.writes, a)
}

func (r *RegisterFile) Set(a uintptr, d uint32) {
	r.m.Lock()
	defer r.m.Unlock()
	r.regs[a] = d
}

func (r *RegisterFile) Get(a uintptr) uint32 {
	r.m.Lock()
	defer r.m.Unlock()
	return r.regs[a]
}

// Reads returns the number of reads so far.
func (r *RegisterFile) Reads() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reads
}

// Writes returns the written addresses in order.
func (r *RegisterFile) Writes() []uintptr {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]uintptr(nil), r.writes...)
}

func (r *RegisterFile) Close() error {
	return nil
}

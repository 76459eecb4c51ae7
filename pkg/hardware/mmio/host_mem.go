// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package mmio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

type hostMem struct {
	mf     *os.File
	w      Window
	page   uintptr
	mapped []byte
}

// OpenHostMemory maps the window from /dev/mem. The mapping stays alive
// until Close, unlike per access mapping it is cheap enough for polling.
func OpenHostMemory(w Window) (Mem, error) {
	return openHostMemory("/dev/mem", w)
}

func openHostMemory(path string, w Window) (*hostMem, error) {
	if w.Size == 0 {
		return nil, fmt.Errorf("empty register window at %#x", w.Base)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0600)
	if err != nil {
		return nil, err
	}
	ps := uintptr(unix.Getpagesize())
	page := w.Base &^ (ps - 1)
	length := (w.Base + w.Size - page + ps - 1) &^ (ps - 1)
	mem, err := unix.Mmap(int(f.Fd()), int64(page), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %#x+%#x: %w", page, length, err)
	}
	return &hostMem{mf: f, w: w, page: page, mapped: mem}, nil
}

func (m *hostMem) ptr(address uintptr) *uint32 {
	if !m.w.Contains(address, 4) || address&3 != 0 {
		panic(fmt.Sprintf("register access %#x outside window %#x+%#x", address, m.w.Base, m.w.Size))
	}
	return (*uint32)(unsafe.Pointer(&m.mapped[address-m.page]))
}

func (m *hostMem) MustRead32(address uintptr) uint32 {
	return atomic.LoadUint32(m.ptr(address))
}

func (m *hostMem) MustWrite32(address uintptr, data uint32) {
	atomic.StoreUint32(m.ptr(address), data)
}

func (m *hostMem) Close() error {
	err := unix.Munmap(m.mapped)
	if cerr := m.mf.Close(); err == nil {
		err = cerr
	}
	return err
}

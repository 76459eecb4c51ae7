// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mfg

import (
	"errors"
	"fmt"
)

// ErrIdleRegisterNotFound means the MFGCFG block could not be located or
// mapped. Without it power-off cannot wait for the bus, so init fails.
var ErrIdleRegisterNotFound = errors.New("mfgcfg register block not found")

type ClockStage int

const (
	// SourceSelectFailed: the mux could not be parked on the sub clock.
	// The recorded frequency and the active source are unchanged.
	SourceSelectFailed ClockStage = iota
	// RateSetFailed: the main clock rejected the rate. The mux stays on
	// the sub clock.
	RateSetFailed
	// RestoreFailed: the new rate is applied and recorded but the mux is
	// still on the sub clock. RestoreSource retries the last step.
	RestoreFailed
)

func (s ClockStage) String() string {
	switch s {
	case SourceSelectFailed:
		return "select sub clock source"
	case RateSetFailed:
		return "set main clock rate"
	case RestoreFailed:
		return "select main clock source"
	}
	return fmt.Sprintf("ClockStage(%d)", int(s))
}

type ClockError struct {
	Stage ClockStage
	Hz    uint64
	Err   error
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("switch to %d Hz: %s failed: %v", e.Hz, e.Stage, e.Err)
}

func (e *ClockError) Unwrap() error {
	return e.Err
}

type PowerStage int

const (
	Regulators PowerStage = iota
	Domains
	Clocks
)

func (s PowerStage) String() string {
	switch s {
	case Regulators:
		return "regulator"
	case Domains:
		return "pm-domain"
	case Clocks:
		return "clock"
	}
	return fmt.Sprintf("PowerStage(%d)", int(s))
}

// PowerSequenceError is the first failure of a power-on sequence. Earlier
// stages are left powered.
type PowerSequenceError struct {
	Stage PowerStage
	Index int
	Name  string
	Err   error
}

func (e *PowerSequenceError) Error() string {
	return fmt.Sprintf("power on %s %s(%d) failed: %v", e.Stage, e.Name, e.Index, e.Err)
}

func (e *PowerSequenceError) Unwrap() error {
	return e.Err
}

// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"errors"
	"fmt"
)

type ConfigErrorKind int

const (
	CountMismatch ConfigErrorKind = iota
	TooMany
	ClockUnavailable
	UnboundRegulator
)

func (k ConfigErrorKind) String() string {
	switch k {
	case CountMismatch:
		return "count mismatch"
	case TooMany:
		return "too many"
	case ClockUnavailable:
		return "clock unavailable"
	case UnboundRegulator:
		return "unbound regulator"
	}
	return fmt.Sprintf("ConfigErrorKind(%d)", int(k))
}

// ConfigError is a fatal mismatch between configuration and hardware.
type ConfigError struct {
	Kind   ConfigErrorKind
	Name   string
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	s := e.Kind.String()
	if e.Name != "" {
		s += " " + e.Name
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AttachError reports a power domain that could not be attached. All
// domains attached before it have been detached again.
type AttachError struct {
	Index     int
	Name      string
	Retryable bool
	Err       error
}

func (e *AttachError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("attach pm-domain %s(%d) failed (%s): %v", e.Name, e.Index, kind, e.Err)
}

func (e *AttachError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a retryable AttachError.
func IsRetryable(err error) bool {
	var ae *AttachError
	return errors.As(err, &ae) && ae.Retryable
}

// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sysfs

import (
	"fmt"
	"path"
	"strconv"

	"github.com/spf13/afero"
)

type regulator struct {
	fs   afero.Fs
	dir  string
	name string
}

func (r *regulator) Enable() error {
	return writeAttr(r.fs, path.Join(r.dir, "state"), "enabled")
}

func (r *regulator) Disable() error {
	return writeAttr(r.fs, path.Join(r.dir, "state"), "disabled")
}

// SetVoltage widens the window before narrowing it so the consumer never
// sees min above max.
func (r *regulator) SetVoltage(minUV, maxUV int) error {
	if minUV > maxUV {
		return fmt.Errorf("regulator %s: min %d above max %d", r.name, minUV, maxUV)
	}
	cur, err := readIntAttr(r.fs, path.Join(r.dir, "max_microvolts"))
	if err != nil {
		cur = 0
	}
	order := []struct {
		attr string
		v    int
	}{
		{"min_microvolts", minUV},
		{"max_microvolts", maxUV},
	}
	if int64(minUV) > cur {
		order[0], order[1] = order[1], order[0]
	}
	for _, o := range order {
		if err := writeAttr(r.fs, path.Join(r.dir, o.attr), strconv.Itoa(o.v)); err != nil {
			return fmt.Errorf("regulator %s: %w", r.name, err)
		}
	}
	return nil
}

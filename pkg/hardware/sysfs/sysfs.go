// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sysfs drives GPU resources through the kernel's sysfs and debugfs
// attributes:
//
//	regulators  <RegulatorPath>/<name>/{state,min_microvolts,max_microvolts}
//	            (reg-userspace-consumer style)
//	domains     <DomainPath>/<name>/power/{control,runtime_status,autosuspend_delay_ms}
//	clocks      <ClockPath>/<name>/{clk_prepare_enable,clk_rate,clk_parent}
//	            (debugfs built with write access)
package sysfs

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/u-root/mfgpm/config"
	"github.com/u-root/mfgpm/pkg/hardware/resource"
	"github.com/u-root/mfgpm/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

type Provider struct {
	fs  afero.Fs
	cfg config.Sysfs
	// ResumeTimeout bounds the wait for a domain to report active.
	ResumeTimeout time.Duration
	pollInterval  time.Duration
}

// New returns a Provider over the real filesystem rooted at cfg.Root.
func New(cfg config.Sysfs) *Provider {
	root := cfg.Root
	if root == "" {
		root = "/"
	}
	return NewWithFs(afero.NewBasePathFs(afero.NewOsFs(), root), cfg)
}

func NewWithFs(fs afero.Fs, cfg config.Sysfs) *Provider {
	return &Provider{
		fs:            fs,
		cfg:           cfg,
		ResumeTimeout: time.Second,
		pollInterval:  time.Millisecond,
	}
}

// Fs exposes the filesystem the provider works on.
func (p *Provider) Fs() afero.Fs {
	return p.fs
}

func readAttr(fs afero.Fs, file string) (string, error) {
	b, err := afero.ReadFile(fs, file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readIntAttr(fs afero.Fs, file string) (int64, error) {
	s, err := readAttr(fs, file)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

// writeAttr never creates the attribute, a missing file is an error.
func writeAttr(fs afero.Fs, file string, v string) error {
	f, err := fs.OpenFile(file, os.O_WRONLY|os.O_TRUNC, 0200)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write([]byte(v)); err != nil {
		return fmt.Errorf("write %q to %s: %w", v, file, err)
	}
	return nil
}

func exists(fs afero.Fs, p string) bool {
	ok, err := afero.Exists(fs, p)
	return ok && err == nil
}

func (p *Provider) Regulator(name string) (resource.Regulator, error) {
	dir := path.Join(p.cfg.RegulatorPath, name)
	if !exists(p.fs, path.Join(dir, "state")) {
		return nil, fmt.Errorf("regulator %s: no consumer at %s", name, dir)
	}
	return &regulator{fs: p.fs, dir: dir, name: name}, nil
}

func (p *Provider) Clock(name string) (resource.Clock, error) {
	dir := path.Join(p.cfg.ClockPath, name)
	if !exists(p.fs, path.Join(dir, "clk_rate")) {
		return nil, fmt.Errorf("clock %s: not found at %s", name, dir)
	}
	return &clock{fs: p.fs, dir: dir, name: name}, nil
}

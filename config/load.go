// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file on top of DefaultConfig. Keys absent from the
// file keep their default values.
func Load(fs afero.Fs, path string) (*Config, error) {
	c := DefaultConfig.Clone()
	if path == "" {
		return c, c.Validate()
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

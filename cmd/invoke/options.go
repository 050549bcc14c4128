// Copyright 2021 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"os"

	"gopkg.in/yaml.v2"
)

// optionsBag is the YAML-loadable shape of the option bags that flow into
// config.CommandOptions and device.Options. It exists so invoke users can
// check a reusable option set into a file rather than repeat flags.
type optionsBag struct {
	ReportHostLoad    bool              `yaml:"report_host_load"`
	DesiredShardCount int               `yaml:"desired_shard_count"`
	DeviceSerial      string            `yaml:"device_serial"`
	Extra             map[string]string `yaml:"extra"`
}

// loadOptionsBag reads and unmarshals the YAML option bag at path. An
// empty path returns the zero-value bag.
func loadOptionsBag(path string) (optionsBag, error) {
	var bag optionsBag
	if path == "" {
		return bag, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return bag, err
	}
	if err := yaml.Unmarshal(data, &bag); err != nil {
		return bag, err
	}
	return bag, nil
}

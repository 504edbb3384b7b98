/*
Copyright (c) The clockprobe authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config stores user defaults and named presets. A preset is a saved
// argument list; the CLI splices it in before flag parsing, so anything the
// command line accepts can be preset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/clocktools/clockprobe/probe"
)

// Defaults are values applied when the corresponding flag is not given.
// Pointer fields distinguish "unset" from a zero value.
type Defaults struct {
	// TimeoutSec is the probe timeout in seconds.
	TimeoutSec *float64 `yaml:"timeout_sec,omitempty"`
	// Format is the default output format.
	Format string `yaml:"format,omitempty"`
	// IPv6Only restricts resolution to IPv6.
	IPv6Only *bool `yaml:"ipv6_only,omitempty"`
	// IntervalSec is the default sampling interval in seconds.
	IntervalSec *float64 `yaml:"interval_sec,omitempty"`
}

// Preset is a saved argument list.
type Preset struct {
	Args []string `yaml:"args"`
}

// Config is the on-disk configuration.
type Config struct {
	Defaults Defaults          `yaml:"defaults,omitempty"`
	Presets  map[string]Preset `yaml:"presets,omitempty"`
}

// DefaultPath is the per-user config location, created on first save.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "clockprobe", "config.yaml"), nil
}

// Load reads the config file. A missing file is not an error; it simply
// yields an empty config.
func Load(path string) (*Config, error) {
	c := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("no config at %s", path)
			return c, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// Save writes the config, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Preset looks up a named preset.
func (c *Config) Preset(name string) (Preset, error) {
	p, ok := c.Presets[name]
	if !ok {
		names := make([]string, 0, len(c.Presets))
		for n := range c.Presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Preset{}, probe.Errorf(probe.KindUsage, "unknown preset %q (have: %v)", name, names)
	}
	return p, nil
}

// SetPreset stores or replaces a named preset.
func (c *Config) SetPreset(name string, args []string) {
	if c.Presets == nil {
		c.Presets = map[string]Preset{}
	}
	c.Presets[name] = Preset{Args: args}
}

// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"gvisor.dev/mtegate/pkg/compartment"
	"gvisor.dev/mtegate/pkg/mte"
)

// Manifest is the set of compartments of a process, as written in TOML:
//
//	[[compartment]]
//	name  = "net"
//	color = "red"
type Manifest struct {
	Compartments []compartment.Compartment `toml:"compartment"`
}

// LoadManifest loads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("manifest %q: %w", path, err)
	}
	return &m, nil
}

// ParseManifest parses a manifest from its TOML text.
func ParseManifest(text string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(text, &m)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	return &m, nil
}

// checkUndecoded rejects keys that do not map to any manifest field, which
// are most likely misspelled.
func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Apply defines every compartment of m in reg.
func (m *Manifest) Apply(reg *compartment.Registry) error {
	for _, c := range m.Compartments {
		if _, err := reg.Define(c.Name, c.Color); err != nil {
			return err
		}
	}
	return nil
}

// DefaultManifest is used when no manifest is configured.
func DefaultManifest() *Manifest {
	return &Manifest{
		Compartments: []compartment.Compartment{
			{Name: "main", Color: mte.Red},
			{Name: "guest", Color: mte.Green},
		},
	}
}

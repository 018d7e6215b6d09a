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

// Package cmd holds implementations of the mtectl commands.
package cmd

import (
	"fmt"

	"gvisor.dev/mtegate/mtectl/config"
	"gvisor.dev/mtegate/pkg/compartment"
	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/mte"
)

// system is the allocator, call counter and compartments configured for a
// command.
type system struct {
	alloc   *mte.Allocator
	counter *compartment.CallCounter
	reg     *compartment.Registry
}

// newSystem opens tag storage and defines the configured compartments.
func newSystem(conf *config.Config) (*system, error) {
	alloc, err := mte.Open(conf.TagMode, mte.AllocatorOptions{Tagger: conf.TaggerOptions()})
	if err != nil {
		return nil, fmt.Errorf("opening tag storage in mode %v: %w", conf.TagMode, err)
	}
	counter := compartment.NewCallCounter(log.BasicRateLimitedLogger(conf.TelemetryLogEvery))
	reg := compartment.NewRegistry(compartment.NewGateway(counter))

	manifest := config.DefaultManifest()
	if conf.Manifest != "" {
		if manifest, err = config.LoadManifest(conf.Manifest); err != nil {
			return nil, err
		}
	}
	if err := manifest.Apply(reg); err != nil {
		return nil, err
	}
	log.Debugf("Compartments: %v", reg.All())
	return &system{alloc: alloc, counter: counter, reg: reg}, nil
}

// storeKind describes how store keeps tags.
func storeKind(store mte.TagStore) string {
	if store.Enforced() {
		return "hardware"
	}
	return "shadow"
}

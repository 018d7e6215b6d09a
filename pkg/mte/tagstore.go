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

package mte

import (
	"errors"

	"gvisor.dev/mtegate/pkg/hostarch"
)

// ErrNotSupported is returned when hardware memory tagging is unavailable.
var ErrNotSupported = errors.New("hardware memory tagging is not supported")

// TagStore is the allocation tag storage of tag-checking memory.
type TagStore interface {
	// StoreTag sets the allocation tag of the granule containing addr to
	// the tag encoded in addr (the STG instruction).
	//
	// Precondition: addr is in memory obtained from a Mapper matching this
	// store. Storing tags anywhere else is undefined.
	StoreTag(addr hostarch.Addr)

	// LoadTag returns the allocation tag of the granule containing addr
	// (the LDG instruction).
	LoadTag(addr hostarch.Addr) Color

	// Fence makes every preceding StoreTag visible to all threads before
	// any subsequent memory access through a pointer carrying a new tag.
	Fence()

	// Enforced reports whether the hardware checks tags on every access.
	// If false, Pointer accessors check tags in software.
	Enforced() bool
}

// RangeStorer is implemented by TagStores that can tag a range of granules
// more efficiently than one StoreTag per granule.
type RangeStorer interface {
	// StoreTagRange stores the tag encoded in start on every granule in
	// [start, end). Both bounds are granule aligned and carry the same tag.
	StoreTagRange(start, end hostarch.Addr)
}

// Mode selects a TagStore implementation.
type Mode int

const (
	// ModeAuto uses hardware tagging when the host supports it, and the
	// shadow store otherwise.
	ModeAuto Mode = iota

	// ModeHardware requires hardware tagging.
	ModeHardware

	// ModeShadow uses the software shadow store.
	ModeShadow
)

// String implements fmt.Stringer.String.
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeHardware:
		return "hardware"
	case ModeShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// Set implements flag.Value.Set.
func (m *Mode) Set(s string) error {
	switch s {
	case "auto":
		*m = ModeAuto
	case "hardware":
		*m = ModeHardware
	case "shadow":
		*m = ModeShadow
	default:
		return errors.New("invalid tag mode, must be auto, hardware or shadow")
	}
	return nil
}

// Get implements flag.Getter.Get.
func (m *Mode) Get() any {
	return *m
}

// NewTagStore returns the TagStore selected by mode.
func NewTagStore(mode Mode) (TagStore, error) {
	switch mode {
	case ModeShadow:
		return NewShadowTagStore(), nil
	case ModeHardware:
		return NewHardwareTagStore()
	case ModeAuto:
		ts, err := NewHardwareTagStore()
		if errors.Is(err, ErrNotSupported) {
			return NewShadowTagStore(), nil
		}
		return ts, err
	default:
		return nil, errors.New("invalid tag mode")
	}
}

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
	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/log"
)

const (
	// TagShift is the position of the lowest bit of the tag field.
	TagShift = 56

	// TagBits is the width of the tag field.
	TagBits = 4

	// TagMask selects the tag field of an address.
	TagMask = hostarch.Addr((1<<TagBits)-1) << TagShift

	// GranuleSize is the number of bytes covered by one allocation tag.
	GranuleSize = 16

	// GranuleMask is the mask for the offset within a granule.
	GranuleMask = GranuleSize - 1
)

// Encode returns addr with its tag field replaced by c.
//
// Colors that do not fit in the tag field are masked to its width, and a
// warning is logged; callers must not rely on this.
func Encode(addr hostarch.Addr, c Color) hostarch.Addr {
	if !c.Valid() {
		log.Warningf("mte: color %d does not fit in %d tag bits, using %d", uint8(c), TagBits, uint8(c)&(NumColors-1))
		c &= NumColors - 1
	}
	return (addr &^ TagMask) | hostarch.Addr(c)<<TagShift
}

// Decode splits addr into its untagged address and its tag.
//
// Decode(Encode(a, c)) == (Strip(a), c) for every valid c.
func Decode(addr hostarch.Addr) (hostarch.Addr, Color) {
	return addr &^ TagMask, Color((addr & TagMask) >> TagShift)
}

// Strip returns addr with its tag field cleared.
func Strip(addr hostarch.Addr) hostarch.Addr {
	return addr &^ TagMask
}

// GranuleRoundDown returns addr rounded down to the start of its granule.
// The tag field is preserved.
func GranuleRoundDown(addr hostarch.Addr) hostarch.Addr {
	return addr &^ GranuleMask
}

// granuleRange returns the granule-aligned range [start, end) covering
// [addr, addr+size), carrying addr's tag. Both bounds round outward, so the
// granule holding a trailing partial byte is included.
func granuleRange(addr hostarch.Addr, size uint64) (start, end hostarch.Addr) {
	start = GranuleRoundDown(addr)
	end = GranuleRoundDown(addr + hostarch.Addr(size) + GranuleMask)
	return start, end
}

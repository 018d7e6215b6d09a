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
	"fmt"

	"gvisor.dev/mtegate/pkg/atomicbitops"
	"gvisor.dev/mtegate/pkg/gate"
	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/sync"
)

var (
	// ErrFreed is returned by operations on a region that has been freed.
	ErrFreed = errors.New("region has been freed")

	// ErrOutOfRange is returned for accesses or retags outside a region.
	ErrOutOfRange = errors.New("range is outside the region")
)

// Region is a span of tagged memory owned by an Allocator.
//
// A Region's memory is mapped in whole pages, but Len reports only the
// requested size, and tagging and access are limited to it.
type Region struct {
	alloc *Allocator

	// base is the untagged start of the mapping. It is page aligned.
	base hostarch.Addr

	// length is the requested size in bytes.
	length uint64

	// mapped is length rounded up to a page.
	mapped uint64

	// mu serializes compartment transitions of the region.
	mu sync.Mutex

	// gate is entered by every operation touching the region's memory or
	// tags, and closed by Free.
	gate gate.Gate

	freed atomicbitops.Bool
}

// RegionInfo is a snapshot of a Region's state.
type RegionInfo struct {
	Base      hostarch.Addr
	Len       uint64
	MappedLen uint64
	Color     Color
	Freed     bool
}

// String implements fmt.Stringer.String.
func (ri RegionInfo) String() string {
	if ri.Freed {
		return fmt.Sprintf("region %v+%d (freed)", ri.Base, ri.Len)
	}
	return fmt.Sprintf("region %v+%d [mapped %d] %v", ri.Base, ri.Len, ri.MappedLen, ri.Color)
}

// Base returns the untagged start address of r.
func (r *Region) Base() hostarch.Addr {
	return r.base
}

// Len returns the size of r in bytes, as requested from the allocator.
func (r *Region) Len() uint64 {
	return r.length
}

// MappedLen returns the size of r's mapping.
func (r *Region) MappedLen() uint64 {
	return r.mapped
}

// Freed reports whether r has been freed.
func (r *Region) Freed() bool {
	return r.freed.Load()
}

// Enter prevents r from being freed until the matching Leave. It returns
// ErrFreed if r has already been freed or a Free is in progress.
func (r *Region) Enter() error {
	if !r.gate.Enter() {
		return fmt.Errorf("%w: %v", ErrFreed, r.base)
	}
	return nil
}

// Leave ends a successful Enter.
func (r *Region) Leave() {
	r.gate.Leave()
}

// Lock acquires r's transition lock. The lock orders changes of r's color
// by compartment transitions; it does not protect r's memory.
func (r *Region) Lock() {
	r.mu.Lock()
}

// TryLock acquires r's transition lock if it is free, and reports whether
// it did.
func (r *Region) TryLock() bool {
	return r.mu.TryLock()
}

// Unlock releases r's transition lock.
func (r *Region) Unlock() {
	r.mu.Unlock()
}

// Color returns the allocation tag of r's first granule, or NoColor if r
// has been freed.
func (r *Region) Color() Color {
	if !r.gate.Enter() {
		return NoColor
	}
	defer r.gate.Leave()
	return r.alloc.store.LoadTag(r.base)
}

// ColorAt returns the allocation tag of the granule at offset off in r, or
// NoColor if off is outside r or r has been freed.
func (r *Region) ColorAt(off uint64) Color {
	if off >= r.length || !r.gate.Enter() {
		return NoColor
	}
	defer r.gate.Leave()
	return r.alloc.store.LoadTag(r.base + hostarch.Addr(off))
}

// Pointer returns a pointer to the start of r carrying r's current color.
func (r *Region) Pointer() Pointer {
	return Pointer{r: r, addr: Encode(r.base, r.Color())}
}

// Tag tags all of r with c and returns a pointer to its start carrying c.
//
// Tag panics if r has been freed.
func (r *Region) Tag(c Color) Pointer {
	if err := r.Enter(); err != nil {
		panic(err)
	}
	defer r.Leave()
	return Pointer{r: r, addr: r.alloc.tagger.SetTag(r.base, c, r.length)}
}

// Retag tags the size bytes starting at p with c and returns p carrying c.
// If p is not granule aligned, the whole granule containing p is tagged, as
// is the granule containing the last byte.
func (r *Region) Retag(p Pointer, size uint64, c Color) (Pointer, error) {
	if err := r.checkRange(p, 0, size); err != nil {
		return Pointer{}, err
	}
	if err := r.Enter(); err != nil {
		return Pointer{}, err
	}
	defer r.Leave()
	return Pointer{r: r, addr: r.alloc.tagger.SetTag(p.Base(), c, size)}, nil
}

// CheckColor returns a *TagCheckFault for the first granule overlapping the
// size bytes starting at p whose allocation tag is not c, and nil if every
// granule carries c. Granules are those Retag would tag for the same range.
func (r *Region) CheckColor(p Pointer, size uint64, c Color) error {
	if err := r.checkRange(p, 0, size); err != nil {
		return err
	}
	if err := r.Enter(); err != nil {
		return err
	}
	defer r.Leave()
	start, end := granuleRange(p.Base(), size)
	for g := start; g < end; g += GranuleSize {
		if got := r.alloc.store.LoadTag(g); got != c {
			return &TagCheckFault{Addr: Encode(g, c), PointerTag: c, MemoryTag: got}
		}
	}
	return nil
}

// checkRange returns ErrOutOfRange unless [p+off, p+off+size) is a
// non-empty range within r.
func (r *Region) checkRange(p Pointer, off, size uint64) error {
	if p.r != r {
		return fmt.Errorf("%w: pointer %v does not belong to %v", ErrOutOfRange, p.addr, r.base)
	}
	start := p.Offset() + off
	end := start + size
	if size == 0 || start < off || end < start || end > r.length {
		return fmt.Errorf("%w: [%d, %d+%d) in region of %d bytes", ErrOutOfRange, p.Offset(), off, size, r.length)
	}
	return nil
}

// Info returns a snapshot of r's state.
func (r *Region) Info() RegionInfo {
	return RegionInfo{
		Base:      r.base,
		Len:       r.length,
		MappedLen: r.mapped,
		Color:     r.Color(),
		Freed:     r.freed.Load(),
	}
}

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
	"encoding/binary"
	"fmt"

	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/memutil"
)

// Pointer is a tagged pointer into a Region. Pointers are obtained from
// Region.Tag, Region.Retag and Region.Pointer; the zero Pointer is nil.
//
// Accesses through a Pointer are bounds checked against its region, and its
// tag is checked against the memory's allocation tags, by the hardware when
// the TagStore is enforced and in software otherwise. A tag mismatch is
// fatal: a SIGSEGV on hardware, a *TagCheckFault panic in software.
type Pointer struct {
	r    *Region
	addr hostarch.Addr
}

// Addr returns the tagged address.
func (p Pointer) Addr() hostarch.Addr {
	return p.addr
}

// Base returns the untagged address.
func (p Pointer) Base() hostarch.Addr {
	return Strip(p.addr)
}

// Color returns the pointer's tag.
func (p Pointer) Color() Color {
	_, c := Decode(p.addr)
	return c
}

// Region returns the region p points into.
func (p Pointer) Region() *Region {
	return p.r
}

// Offset returns the offset of p from the start of its region.
func (p Pointer) Offset() uint64 {
	if p.r == nil {
		return 0
	}
	return uint64(Strip(p.addr) - p.r.base)
}

// IsNil reports whether p is the zero Pointer.
func (p Pointer) IsNil() bool {
	return p.r == nil
}

// Add returns p advanced by n bytes with the same tag. The result is not
// checked until it is used for an access.
func (p Pointer) Add(n uint64) Pointer {
	return Pointer{r: p.r, addr: p.addr + hostarch.Addr(n)}
}

// String implements fmt.Stringer.String.
func (p Pointer) String() string {
	if p.r == nil {
		return "nil"
	}
	return fmt.Sprintf("%v(%v)", p.Base(), p.Color())
}

// access returns a slice aliasing the size bytes at p+off after checking
// bounds and tags. The caller must be inside p's region gate.
func (p Pointer) access(off, size uint64) ([]byte, error) {
	if p.r == nil {
		return nil, fmt.Errorf("%w: nil pointer", ErrOutOfRange)
	}
	if size == 0 {
		return nil, nil
	}
	if err := p.r.checkRange(p, off, size); err != nil {
		return nil, err
	}
	addr := p.addr + hostarch.Addr(off)
	store := p.r.alloc.store
	if !store.Enforced() {
		p.checkTags(store, addr, size)
		addr = Strip(addr)
	}
	return memutil.Slice(uintptr(addr), uintptr(size)), nil
}

// checkTags panics with a *TagCheckFault if any granule overlapping
// [addr, addr+size) has an allocation tag other than addr's tag.
func (p Pointer) checkTags(store TagStore, addr hostarch.Addr, size uint64) {
	start, end := granuleRange(addr, size)
	want := p.Color()
	for g := start; g < end; g += GranuleSize {
		if got := store.LoadTag(g); got != want {
			panic(&TagCheckFault{Addr: g, PointerTag: want, MemoryTag: got})
		}
	}
}

// enter enters p's region, panicking if it has been freed.
func (p Pointer) enter() {
	if p.r == nil {
		return
	}
	if err := p.r.Enter(); err != nil {
		panic(fmt.Errorf("use after free through %v: %w", p, err))
	}
}

func (p Pointer) leave() {
	if p.r != nil {
		p.r.Leave()
	}
}

// ReadAt copies len(b) bytes at p+off into b.
func (p Pointer) ReadAt(b []byte, off uint64) error {
	p.enter()
	defer p.leave()
	src, err := p.access(off, uint64(len(b)))
	if err != nil {
		return err
	}
	copy(b, src)
	return nil
}

// WriteAt copies b to p+off.
func (p Pointer) WriteAt(b []byte, off uint64) error {
	p.enter()
	defer p.leave()
	dst, err := p.access(off, uint64(len(b)))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// Load64 returns the 64-bit value at p+off.
func (p Pointer) Load64(off uint64) (uint64, error) {
	p.enter()
	defer p.leave()
	src, err := p.access(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(src), nil
}

// Store64 stores v at p+off.
func (p Pointer) Store64(off uint64, v uint64) error {
	p.enter()
	defer p.leave()
	dst, err := p.access(off, 8)
	if err != nil {
		return err
	}
	binary.NativeEndian.PutUint64(dst, v)
	return nil
}

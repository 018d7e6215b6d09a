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
	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/metric"
)

var (
	// ErrOutOfMemory is returned when memory for a region cannot be mapped.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidSize is returned for zero-sized allocations.
	ErrInvalidSize = errors.New("invalid allocation size")

	errForeignRegion = errors.New("region was not allocated by this allocator")
)

var (
	regionsAllocated = metric.MustCreateNewUint64Metric("/mte/regions_allocated", "Number of tagged regions allocated.")
	regionsFreed     = metric.MustCreateNewUint64Metric("/mte/regions_freed", "Number of tagged regions freed.")
)

// AllocatorOptions configures an Allocator.
type AllocatorOptions struct {
	// Mapper provides region memory. If nil, NewMmapMapper is used, tagged
	// iff the TagStore is enforced.
	Mapper Mapper

	// Tagger configures the allocator's Tagger.
	Tagger TaggerOptions
}

// Allocator hands out tagged regions.
//
// Allocator is safe for concurrent use.
type Allocator struct {
	store  TagStore
	mapper Mapper
	tagger *Tagger

	live atomicbitops.Uint64
}

// NewAllocator returns an Allocator tagging memory through store.
func NewAllocator(store TagStore, opts AllocatorOptions) *Allocator {
	mapper := opts.Mapper
	if mapper == nil {
		mapper = NewMmapMapper(store.Enforced())
	}
	return &Allocator{
		store:  store,
		mapper: mapper,
		tagger: NewTagger(store, opts.Tagger),
	}
}

// Open returns an Allocator using the TagStore selected by mode.
func Open(mode Mode, opts AllocatorOptions) (*Allocator, error) {
	store, err := NewTagStore(mode)
	if err != nil {
		return nil, err
	}
	log.Debugf("mte: allocator using %T (enforced=%t)", store, store.Enforced())
	return NewAllocator(store, opts), nil
}

// Store returns the allocator's TagStore.
func (a *Allocator) Store() TagStore {
	return a.store
}

// Tagger returns the allocator's Tagger.
func (a *Allocator) Tagger() *Tagger {
	return a.tagger
}

// Live returns the number of regions allocated and not yet freed.
func (a *Allocator) Live() uint64 {
	return a.live.Load()
}

// Allocate maps a new region of size bytes. Its memory is zeroed and
// untagged (NoColor).
func (a *Allocator) Allocate(size uint64) (*Region, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}
	mapped, ok := hostarch.PageRoundUp(size)
	if !ok {
		return nil, fmt.Errorf("%w: size %d overflows", ErrOutOfMemory, size)
	}
	base, err := a.mapper.Map(mapped)
	if err != nil {
		return nil, fmt.Errorf("%w: mapping %d bytes: %v", ErrOutOfMemory, mapped, err)
	}
	a.live.Add(1)
	regionsAllocated.Increment()
	return &Region{
		alloc:  a,
		base:   base,
		length: size,
		mapped: mapped,
	}, nil
}

// Malloc allocates a region of size bytes, tags it with c, and returns the
// region with a pointer to it.
func (a *Allocator) Malloc(size uint64, c Color) (*Region, Pointer, error) {
	r, err := a.Allocate(size)
	if err != nil {
		return nil, Pointer{}, err
	}
	return r, r.Tag(c), nil
}

// Free retags all of r's mapping to NoColor and unmaps it. Free waits for
// accesses and compartment transitions of r in progress; calling it from
// within a call that was passed r deadlocks.
//
// A second Free of r returns ErrFreed.
func (a *Allocator) Free(r *Region) error {
	if r.alloc != a {
		return errForeignRegion
	}
	if r.freed.Swap(true) {
		return fmt.Errorf("%w: %v", ErrFreed, r.base)
	}
	r.gate.Close()
	a.tagger.SetTag(r.base, NoColor, r.mapped)
	a.live.Add(^uint64(0))
	regionsFreed.Increment()
	if err := a.mapper.Unmap(r.base, r.mapped); err != nil {
		return fmt.Errorf("unmapping %v: %w", r.base, err)
	}
	return nil
}

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
	"golang.org/x/sync/errgroup"

	"gvisor.dev/mtegate/pkg/hostarch"
)

// DefaultParallelThreshold is the default TaggerOptions.ParallelThreshold.
const DefaultParallelThreshold = 4 << 20

// TaggerOptions configures a Tagger.
type TaggerOptions struct {
	// ParallelThreshold is the range length in bytes at or above which
	// tagging is split across goroutines. If zero, DefaultParallelThreshold
	// is used.
	ParallelThreshold uint64

	// Chunks is the maximum number of goroutines tagging one range. If
	// zero or one, ranges are always tagged serially.
	Chunks int
}

// Tagger assigns colors to memory ranges.
type Tagger struct {
	store TagStore
	opts  TaggerOptions
}

// NewTagger returns a Tagger storing tags to store.
func NewTagger(store TagStore, opts TaggerOptions) *Tagger {
	if opts.ParallelThreshold == 0 {
		opts.ParallelThreshold = DefaultParallelThreshold
	}
	return &Tagger{store: store, opts: opts}
}

// Store returns the Tagger's TagStore.
func (t *Tagger) Store() TagStore {
	return t.store
}

// SetTag tags every granule overlapping [base, base+size) with c and
// returns base encoded with c. Tags of base are ignored. A partial trailing
// granule is tagged whole.
//
// All tag stores are complete and fenced when SetTag returns, so the
// returned address may be dereferenced immediately by any thread.
//
// Preconditions:
//   - [base, base+size) lies within memory mapped by a Mapper matching the
//     Tagger's TagStore.
//   - No other goroutine is tagging an overlapping range.
func (t *Tagger) SetTag(base hostarch.Addr, c Color, size uint64) hostarch.Addr {
	tagged := Encode(base, c)
	if size == 0 {
		return tagged
	}
	start, end := granuleRange(tagged, size)
	length := uint64(end - start)
	if t.opts.Chunks > 1 && length >= t.opts.ParallelThreshold {
		t.storeParallel(start, end)
	} else {
		t.storeRange(start, end)
	}
	t.store.Fence()
	return tagged
}

// storeRange tags [start, end). Both bounds are granule aligned.
func (t *Tagger) storeRange(start, end hostarch.Addr) {
	if rs, ok := t.store.(RangeStorer); ok {
		rs.StoreTagRange(start, end)
		return
	}
	for g := start; g < end; g += GranuleSize {
		t.store.StoreTag(g)
	}
}

// storeParallel splits [start, end) into at most t.opts.Chunks
// granule-aligned pieces and tags them concurrently.
func (t *Tagger) storeParallel(start, end hostarch.Addr) {
	granules := uint64(end-start) / GranuleSize
	per := (granules + uint64(t.opts.Chunks) - 1) / uint64(t.opts.Chunks)
	var g errgroup.Group
	g.SetLimit(t.opts.Chunks)
	for s := start; s < end; {
		e := s + hostarch.Addr(per*GranuleSize)
		if e > end || e < s {
			e = end
		}
		cs, ce := s, e
		g.Go(func() error {
			t.storeRange(cs, ce)
			return nil
		})
		s = e
	}
	// storeRange cannot fail.
	_ = g.Wait()
}

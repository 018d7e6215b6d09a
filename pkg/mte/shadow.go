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
	"github.com/google/btree"

	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/sync"
)

// granuleTag is one tagged granule in a ShadowTagStore.
type granuleTag struct {
	// addr is the untagged granule address.
	addr  hostarch.Addr
	color Color
}

func granuleLess(a, b granuleTag) bool {
	return a.addr < b.addr
}

// ShadowTagStore keeps allocation tags in process memory, for hosts without
// MTE and for tests. Granules that were never tagged, or were tagged with
// NoColor, are not stored.
//
// Tags are not enforced by hardware; Pointer accessors check them instead,
// so only accesses made through Pointer are checked.
//
// ShadowTagStore is safe for concurrent use.
type ShadowTagStore struct {
	mu sync.RWMutex

	// tags is ordered by address so that retagging a region to NoColor can
	// delete its range.
	//
	// +checklocks:mu
	tags *btree.BTreeG[granuleTag]
}

// NewShadowTagStore returns an empty ShadowTagStore.
func NewShadowTagStore() *ShadowTagStore {
	return &ShadowTagStore{
		tags: btree.NewG(16, granuleLess),
	}
}

// StoreTag implements TagStore.StoreTag.
func (s *ShadowTagStore) StoreTag(addr hostarch.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeLocked(addr)
}

// +checklocks:s.mu
func (s *ShadowTagStore) storeLocked(addr hostarch.Addr) {
	base, c := Decode(GranuleRoundDown(addr))
	if c == NoColor {
		s.tags.Delete(granuleTag{addr: base})
		return
	}
	s.tags.ReplaceOrInsert(granuleTag{addr: base, color: c})
}

// StoreTagRange implements RangeStorer.StoreTagRange.
func (s *ShadowTagStore) StoreTagRange(start, end hostarch.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base, c := Decode(start)
	limit := Strip(end)
	if c != NoColor {
		for g := base; g < limit; g += GranuleSize {
			s.tags.ReplaceOrInsert(granuleTag{addr: g, color: c})
		}
		return
	}
	var stale []granuleTag
	s.tags.AscendRange(granuleTag{addr: base}, granuleTag{addr: limit}, func(gt granuleTag) bool {
		stale = append(stale, gt)
		return true
	})
	for _, gt := range stale {
		s.tags.Delete(gt)
	}
}

// LoadTag implements TagStore.LoadTag.
func (s *ShadowTagStore) LoadTag(addr hostarch.Addr) Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gt, ok := s.tags.Get(granuleTag{addr: Strip(GranuleRoundDown(addr))})
	if !ok {
		return NoColor
	}
	return gt.color
}

// Fence implements TagStore.Fence. Tag stores are published by s.mu.
func (s *ShadowTagStore) Fence() {}

// Enforced implements TagStore.Enforced.
func (s *ShadowTagStore) Enforced() bool {
	return false
}

// Len returns the number of granules holding a tag other than NoColor.
func (s *ShadowTagStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.Len()
}

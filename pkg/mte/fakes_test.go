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
	"sync/atomic"

	"gvisor.dev/mtegate/pkg/hostarch"
)

// countingStore counts tag stores and hides any RangeStorer implementation
// of the wrapped store, so that every granule is stored individually.
type countingStore struct {
	TagStore
	stores atomic.Int64
	fences atomic.Int64
}

func newCountingStore() *countingStore {
	return &countingStore{TagStore: NewShadowTagStore()}
}

func (s *countingStore) StoreTag(addr hostarch.Addr) {
	s.stores.Add(1)
	s.TagStore.StoreTag(addr)
}

func (s *countingStore) Fence() {
	s.fences.Add(1)
	s.TagStore.Fence()
}

// failingMapper fails every Map.
type failingMapper struct {
	err error
}

func (m failingMapper) Map(uint64) (hostarch.Addr, error) {
	return 0, m.err
}

func (m failingMapper) Unmap(hostarch.Addr, uint64) error {
	return errors.New("nothing is mapped")
}

// newShadowAllocator returns an allocator backed by a fresh ShadowTagStore.
func newShadowAllocator(opts AllocatorOptions) (*Allocator, *ShadowTagStore) {
	store := NewShadowTagStore()
	return NewAllocator(store, opts), store
}

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
	"golang.org/x/sys/unix"

	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/memutil"
)

// Mapper obtains and releases page-granular memory for regions.
type Mapper interface {
	// Map returns the address of length bytes of zeroed, readable and
	// writable memory. length is a multiple of hostarch.PageSize.
	Map(length uint64) (hostarch.Addr, error)

	// Unmap releases memory returned by Map.
	Unmap(addr hostarch.Addr, length uint64) error
}

// mmapMapper maps private anonymous memory.
type mmapMapper struct {
	prot int
}

// NewMmapMapper returns a Mapper using anonymous mmap. If tagged is true,
// mappings are created with PROT_MTE so that the hardware stores and checks
// their allocation tags.
func NewMmapMapper(tagged bool) Mapper {
	prot := unix.PROT_READ | unix.PROT_WRITE
	if tagged {
		prot |= PROT_MTE
	}
	return mmapMapper{prot: prot}
}

// Map implements Mapper.Map.
func (m mmapMapper) Map(length uint64) (hostarch.Addr, error) {
	addr, err := memutil.MapAnon(uintptr(length), m.prot)
	if err != nil {
		return 0, err
	}
	return hostarch.Addr(addr), nil
}

// Unmap implements Mapper.Unmap.
func (m mmapMapper) Unmap(addr hostarch.Addr, length uint64) error {
	return memutil.Unmap(uintptr(addr), uintptr(length))
}

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

// Package memutil provides utilities for working with anonymous memory
// mappings outside the Go heap.
package memutil

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// MapAnon maps length bytes of private anonymous memory with the given
// protection and returns its address. The mapping is zero-filled.
func MapAnon(length uintptr, prot int) (uintptr, error) {
	addr, _, errno := unix.RawSyscall6(
		unix.SYS_MMAP,
		0, // addr
		length,
		uintptr(prot),
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
		^uintptr(0), // fd
		0)           // offset
	if errno != 0 {
		return 0, errno
	}
	return addr, nil
}

// Unmap unmaps a mapping returned by MapAnon.
func Unmap(addr, length uintptr) error {
	if _, _, errno := unix.RawSyscall(unix.SYS_MUNMAP, addr, length, 0); errno != 0 {
		return errno
	}
	return nil
}

// Slice returns a byte slice aliasing length bytes of memory starting at
// addr. The memory must not be owned by the Go heap and must outlive the
// slice.
func Slice(addr, length uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length))
}

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

//go:build linux && arm64
// +build linux,arm64

package mte

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"

	"gvisor.dev/mtegate/pkg/cpuid"
	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/sync"
)

// stg stores the tag of addr to the granule at addr.
//
//go:noescape
func stg(addr uintptr)

// ldg returns addr with its tag replaced by the allocation tag of the
// granule at addr.
//
//go:noescape
func ldg(addr uintptr) uintptr

// stgRange stores the tag of start on every granule in [start, end).
//
//go:noescape
func stgRange(start, end uintptr)

// fence is a full inner shareable data memory barrier.
func fence()

var (
	enableOnce sync.Once
	enableErr  error
)

// enableTagChecks enables tagged addresses and synchronous tag check faults
// on every thread of the process.
func enableTagChecks() error {
	enableOnce.Do(func() {
		if !cpuid.HostFeatureSet().HasMTE() {
			enableErr = fmt.Errorf("%w: host features %v", ErrNotSupported, cpuid.HostFeatureSet())
			return
		}
		_, _, errno := syscall.AllThreadsSyscall6(unix.SYS_PRCTL, _PR_SET_TAGGED_ADDR_CTRL, taggedAddrCtrl, 0, 0, 0, 0)
		switch errno {
		case 0:
			log.Infof("mte: synchronous tag checking enabled")
		case syscall.ENOTSUP:
			// AllThreadsSyscall is unavailable when cgo is linked.
			enableErr = fmt.Errorf("%w: cannot set tagged address control on all threads", ErrNotSupported)
		default:
			enableErr = fmt.Errorf("prctl(PR_SET_TAGGED_ADDR_CTRL): %w", errno)
		}
	})
	return enableErr
}

// hardwareTagStore uses the MTE instructions directly.
type hardwareTagStore struct{}

// NewHardwareTagStore returns a TagStore backed by MTE hardware, enabling
// synchronous tag checking for the process on first use. It returns an error
// wrapping ErrNotSupported if the host lacks MTE.
func NewHardwareTagStore() (TagStore, error) {
	if err := enableTagChecks(); err != nil {
		return nil, err
	}
	return hardwareTagStore{}, nil
}

// StoreTag implements TagStore.StoreTag.
func (hardwareTagStore) StoreTag(addr hostarch.Addr) {
	stg(uintptr(GranuleRoundDown(addr)))
}

// StoreTagRange implements RangeStorer.StoreTagRange.
func (hardwareTagStore) StoreTagRange(start, end hostarch.Addr) {
	stgRange(uintptr(start), uintptr(end))
}

// LoadTag implements TagStore.LoadTag.
func (hardwareTagStore) LoadTag(addr hostarch.Addr) Color {
	_, c := Decode(hostarch.Addr(ldg(uintptr(Strip(GranuleRoundDown(addr))))))
	return c
}

// Fence implements TagStore.Fence.
func (hardwareTagStore) Fence() {
	fence()
}

// Enforced implements TagStore.Enforced.
func (hardwareTagStore) Enforced() bool {
	return true
}

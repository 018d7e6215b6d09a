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

// Package cpuid provides the host CPU features relevant to memory tagging.
//
// On arm64, features are read from the ELF auxiliary vector (AT_HWCAP and
// AT_HWCAP2) as defined by arch/arm64/include/uapi/asm/hwcap.h.
package cpuid

import (
	"encoding/binary"
	"fmt"
)

// FeatureSet holds the hardware capability words reported by the kernel.
type FeatureSet struct {
	hwCap  uint64
	hwCap2 uint64
}

// NewFeatureSet returns a FeatureSet with the given capability words.
func NewFeatureSet(hwCap, hwCap2 uint64) *FeatureSet {
	return &FeatureSet{hwCap: hwCap, hwCap2: hwCap2}
}

// HWCap returns the AT_HWCAP word.
func (fs *FeatureSet) HWCap() uint64 {
	return fs.hwCap
}

// HWCap2 returns the AT_HWCAP2 word.
func (fs *FeatureSet) HWCap2() uint64 {
	return fs.hwCap2
}

// String implements fmt.Stringer.String.
func (fs *FeatureSet) String() string {
	return fmt.Sprintf("hwcap=%#x hwcap2=%#x mte=%t", fs.hwCap, fs.hwCap2, fs.HasMTE())
}

// HostFeatureSet returns a FeatureSet that matches that of the host machine.
// Callers must not mutate the returned FeatureSet.
func HostFeatureSet() *FeatureSet {
	return hostFeatureSet
}

var hostFeatureSet = &FeatureSet{}

const (
	_AT_NULL   = 0  // end of vector.
	_AT_HWCAP  = 16 // hardware capability bit vector.
	_AT_HWCAP2 = 26 // extension of AT_HWCAP.
)

// parseAuxv extracts the capability words from the contents of
// /proc/self/auxv.
//
// Tags and values are stored as 8-byte native-endian pairs on 64-bit
// systems; both supported architectures are little-endian.
//
// $ od -t d8 /proc/self/auxv
//
//	0000000                   33      140734615224320
//	0000020                   16           3219913727
//	0000040                    6                 4096
//	...
//	0000460                    0                    0
func parseAuxv(auxv []byte) (hwCap, hwCap2 uint64) {
	l := len(auxv) / 16
	for i := 0; i < l; i++ {
		tag := binary.LittleEndian.Uint64(auxv[i*16:])
		val := binary.LittleEndian.Uint64(auxv[i*16+8:])
		switch tag {
		case _AT_NULL:
			return
		case _AT_HWCAP:
			hwCap = val
		case _AT_HWCAP2:
			hwCap2 = val
		}
	}
	return
}

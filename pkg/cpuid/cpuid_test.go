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

package cpuid

import (
	"encoding/binary"
	"testing"
)

func auxv(pairs ...uint64) []byte {
	b := make([]byte, 8*len(pairs))
	for i, v := range pairs {
		binary.LittleEndian.PutUint64(b[i*8:], v)
	}
	return b
}

func TestParseAuxv(t *testing.T) {
	for _, tc := range []struct {
		name   string
		auxv   []byte
		hwCap  uint64
		hwCap2 uint64
	}{
		{
			name: "empty",
		},
		{
			name:   "both words",
			auxv:   auxv(33, 0x7ffc, 16, 0xefffffbb, 6, 4096, 26, 1<<18, 0, 0),
			hwCap:  0xefffffbb,
			hwCap2: 1 << 18,
		},
		{
			name:  "stops at AT_NULL",
			auxv:  auxv(16, 0x3, 0, 0, 26, 0xff),
			hwCap: 0x3,
		},
		{
			name:  "truncated trailing pair",
			auxv:  append(auxv(16, 0x7), 1, 2, 3),
			hwCap: 0x7,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			hwCap, hwCap2 := parseAuxv(tc.auxv)
			if hwCap != tc.hwCap || hwCap2 != tc.hwCap2 {
				t.Errorf("parseAuxv() = %#x, %#x, want %#x, %#x", hwCap, hwCap2, tc.hwCap, tc.hwCap2)
			}
		})
	}
}

func TestHostFeatureSet(t *testing.T) {
	fs := HostFeatureSet()
	if fs == nil {
		t.Fatalf("HostFeatureSet() returned nil")
	}
	t.Logf("host features: %v", fs)
}

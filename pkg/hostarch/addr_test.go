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

package hostarch

import (
	"testing"
)

func TestPageRounding(t *testing.T) {
	for _, tc := range []struct {
		in       uint64
		down, up uint64
	}{
		{0, 0, 0},
		{1, 0, PageSize},
		{64, 0, PageSize},
		{PageSize, PageSize, PageSize},
		{PageSize + 1, PageSize, 2 * PageSize},
	} {
		if got := PageRoundDown(tc.in); got != tc.down {
			t.Errorf("PageRoundDown(%d) = %d, want %d", tc.in, got, tc.down)
		}
		if got, ok := PageRoundUp(tc.in); !ok || got != tc.up {
			t.Errorf("PageRoundUp(%d) = %d, %t, want %d, true", tc.in, got, ok, tc.up)
		}
	}
	if _, ok := PageRoundUp(^uint64(0)); ok {
		t.Errorf("PageRoundUp(max) did not report wraparound")
	}
}

func TestRoundUpTo(t *testing.T) {
	for _, tc := range []struct {
		in, align, want uint64
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{63, 16, 64},
	} {
		if got, ok := RoundUpTo(tc.in, tc.align); !ok || got != tc.want {
			t.Errorf("RoundUpTo(%d, %d) = %d, %t, want %d, true", tc.in, tc.align, got, ok, tc.want)
		}
	}
}

func TestAddrRange(t *testing.T) {
	ar, ok := Addr(0x1000).ToRange(0x40)
	if !ok {
		t.Fatalf("ToRange overflowed")
	}
	if ar.Length() != 0x40 {
		t.Errorf("Length() = %#x, want 0x40", ar.Length())
	}
	if !ar.Contains(0x103f) || ar.Contains(0x1040) {
		t.Errorf("Contains is wrong at the range end for %v", ar)
	}
	if !ar.IsSupersetOf(AddrRange{0x1010, 0x1020}) {
		t.Errorf("%v should contain [0x1010, 0x1020)", ar)
	}
	if _, ok := Addr(^uintptr(0)).AddLength(2); ok {
		t.Errorf("AddLength did not report overflow")
	}
}

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
	"testing"

	"gvisor.dev/mtegate/pkg/hostarch"
)

func TestShadowStoreLoad(t *testing.T) {
	s := NewShadowTagStore()
	s.StoreTag(Encode(0x1000, Red))
	s.StoreTag(Encode(0x1018, Green)) // Within the second granule.

	for _, tc := range []struct {
		addr hostarch.Addr
		want Color
	}{
		{addr: 0x1000, want: Red},
		{addr: 0x100f, want: Red},
		{addr: Encode(0x1004, Blue), want: Red},
		{addr: 0x1010, want: Green},
		{addr: 0x1020, want: NoColor},
		{addr: 0xff0, want: NoColor},
	} {
		if got := s.LoadTag(tc.addr); got != tc.want {
			t.Errorf("LoadTag(%v) = %v, want %v", tc.addr, got, tc.want)
		}
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	if s.Enforced() {
		t.Errorf("shadow store reports enforced tags")
	}
}

func TestShadowStoreNoColorDeletes(t *testing.T) {
	s := NewShadowTagStore()
	s.StoreTag(Encode(0x1000, Red))
	s.StoreTag(0x1000)
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d after storing NoColor, want 0", got)
	}
}

func TestShadowStoreRange(t *testing.T) {
	s := NewShadowTagStore()
	s.StoreTagRange(Encode(0x1000, Magenta), Encode(0x1100, Magenta))
	s.StoreTagRange(Encode(0x2000, Pink), Encode(0x2040, Pink))
	if got := s.Len(); got != 0x100/GranuleSize+4 {
		t.Errorf("Len() = %d, want %d", got, 0x100/GranuleSize+4)
	}

	// Clearing the first range leaves the second.
	s.StoreTagRange(0x1000, 0x1100)
	if got := s.Len(); got != 4 {
		t.Errorf("Len() = %d after clearing, want 4", got)
	}
	if got := s.LoadTag(0x2030); got != Pink {
		t.Errorf("LoadTag(0x2030) = %v, want %v", got, Pink)
	}
}

func TestModeFlag(t *testing.T) {
	for _, want := range []Mode{ModeAuto, ModeHardware, ModeShadow} {
		var m Mode
		if err := m.Set(want.String()); err != nil {
			t.Errorf("Set(%q): %v", want, err)
		}
		if m != want {
			t.Errorf("Set(%q) = %v", want, m)
		}
	}
	var m Mode
	if err := m.Set("software"); err == nil {
		t.Errorf("Set(\"software\") succeeded")
	}
}

func TestNewTagStoreAuto(t *testing.T) {
	store, err := NewTagStore(ModeAuto)
	if err != nil {
		t.Fatalf("NewTagStore(ModeAuto): %v", err)
	}
	if _, shadow := store.(*ShadowTagStore); shadow == store.Enforced() {
		t.Errorf("store %T reports Enforced() = %t", store, store.Enforced())
	}
}

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
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gvisor.dev/mtegate/pkg/hostarch"
)

var sampleAddrs = []hostarch.Addr{
	0,
	0x10,
	0x1000,
	0x7fff_ffff_f000,
	0xffff_ffff_ffff,
	0x00ff_ffff_ffff_fff0,
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, addr := range sampleAddrs {
		for c := Color(0); c < NumColors; c++ {
			t.Run(fmt.Sprintf("%v/%v", addr, c), func(t *testing.T) {
				got, gotColor := Decode(Encode(addr, c))
				if got != addr || gotColor != c {
					t.Errorf("Decode(Encode(%v, %v)) = (%v, %v), want (%v, %v)", addr, c, got, gotColor, addr, c)
				}
			})
		}
	}
}

func TestEncodeReplacesTag(t *testing.T) {
	a := Encode(0x1000, Red)
	b := Encode(a, Green)
	if got, want := b, hostarch.Addr(0x1000)|hostarch.Addr(Green)<<TagShift; got != want {
		t.Errorf("Encode(%v, Green) = %v, want %v", a, got, want)
	}
	if got := Strip(b); got != 0x1000 {
		t.Errorf("Strip(%v) = %v, want 0x1000", b, got)
	}
}

func TestDecodeUntagged(t *testing.T) {
	for _, addr := range sampleAddrs {
		got, c := Decode(addr)
		if got != addr || c != NoColor {
			t.Errorf("Decode(%v) = (%v, %v), want (%v, no)", addr, got, c, addr)
		}
	}
}

func TestEncodeMasksInvalidColor(t *testing.T) {
	got := Encode(0x1000, Color(0x13))
	if _, c := Decode(got); c != Red {
		t.Errorf("Encode(0x1000, 0x13) has color %v, want %v", c, Red)
	}
	if got&^TagMask != 0x1000 {
		t.Errorf("Encode(0x1000, 0x13) = %v, clobbered address bits", got)
	}
}

func TestGranuleRange(t *testing.T) {
	for _, tc := range []struct {
		addr       hostarch.Addr
		size       uint64
		start, end hostarch.Addr
	}{
		{addr: 0x1000, size: 1, start: 0x1000, end: 0x1010},
		{addr: 0x1000, size: 16, start: 0x1000, end: 0x1010},
		{addr: 0x1000, size: 17, start: 0x1000, end: 0x1020},
		{addr: 0x1008, size: 16, start: 0x1000, end: 0x1020},
		{addr: 0x1000, size: 64, start: 0x1000, end: 0x1040},
	} {
		start, end := granuleRange(tc.addr, tc.size)
		if start != tc.start || end != tc.end {
			t.Errorf("granuleRange(%v, %d) = [%v, %v), want [%v, %v)", tc.addr, tc.size, start, end, tc.start, tc.end)
		}
	}
}

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "red", want: Red},
		{in: "Green", want: Green},
		{in: "grey", want: Grey},
		{in: "no", want: NoColor},
		{in: "7", want: Cyan},
		{in: "15", want: Color(15)},
		{in: "16", wantErr: true},
		{in: "chartreuse", wantErr: true},
		{in: "", wantErr: true},
	} {
		got, err := ParseColor(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseColor(%q) got error %v, want error %t", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestColorNamesRoundTrip(t *testing.T) {
	var got []Color
	for _, name := range Names() {
		c, err := ParseColor(name)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", name, err)
		}
		if c.String() != name {
			t.Errorf("%v.String() = %q, want %q", c, c.String(), name)
		}
		got = append(got, c)
	}
	want := []Color{NoColor, Black, White, Red, Green, Blue, Yellow, Cyan, Magenta, Pink, Brown, Orange, Purple, Gold, Grey}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

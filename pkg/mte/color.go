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

// Package mte implements memory regions protected by the ARM Memory Tagging
// Extension.
//
// Every 16-byte granule of a region carries a 4-bit allocation tag, and every
// pointer into it carries a 4-bit logical tag in bits 56 to 59. An access
// whose logical tag differs from the granule's allocation tag faults. A tag
// value is called a Color: each compartment of a process owns one color and
// can only dereference memory stamped with it.
//
// Tagged pointers are represented by Pointer, which can only be obtained from
// a Region, so the tag encoded in a Pointer is always one that the tagging
// engine stored on the granules it addresses.
//
// Tag mismatches are not errors. With hardware tag checking they raise a
// synchronous SIGSEGV which terminates the process; with the software
// ShadowTagStore they raise a *TagCheckFault panic. Neither is recovered
// anywhere in this module: an escape from a compartment must crash.
package mte

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a compartment color, the 4-bit value stored in both a pointer's
// tag field and its granules' allocation tags.
type Color uint8

// Named colors. NoColor is the tag of freshly mapped and freed memory and
// does not belong to any compartment.
const (
	NoColor Color = iota
	Black
	White
	Red
	Green
	Blue
	Yellow
	Cyan
	Magenta
	Pink
	Brown
	Orange
	Purple
	Gold
	Grey
)

// NumColors is the number of values the tag field can hold.
const NumColors = 1 << TagBits

var colorNames = [...]string{
	NoColor: "no",
	Black:   "black",
	White:   "white",
	Red:     "red",
	Green:   "green",
	Blue:    "blue",
	Yellow:  "yellow",
	Cyan:    "cyan",
	Magenta: "magenta",
	Pink:    "pink",
	Brown:   "brown",
	Orange:  "orange",
	Purple:  "purple",
	Gold:    "gold",
	Grey:    "grey",
}

// Valid reports whether c fits in the tag field.
func (c Color) Valid() bool {
	return c < NumColors
}

// String implements fmt.Stringer.String.
func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// Names returns the names of every named color, in value order. They are
// the allowed values of color-valued metric fields.
func Names() []string {
	return append([]string(nil), colorNames[:]...)
}

// ParseColor parses a color name, as returned by Color.String, or a decimal
// tag value.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range colorNames {
		if s == name {
			return Color(c), nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || !Color(v).Valid() {
		return NoColor, fmt.Errorf("invalid color %q", s)
	}
	return Color(v), nil
}

// Set implements flag.Value.Set.
func (c *Color) Set(s string) error {
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so that colors can be
// written by name in TOML manifests.
func (c *Color) UnmarshalText(text []byte) error {
	return c.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid color %d", uint8(c))
	}
	return []byte(c.String()), nil
}

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

// Package compartment implements calls between memory-tagging compartments.
//
// A compartment is a color. Code running in a compartment holds pointers
// carrying its color and can only dereference memory tagged with it. To
// hand memory to another compartment, code calls through a Gateway, which
// retags every pointer argument to the callee's color for the duration of
// the call and restores the caller's color afterwards, whether the callee
// returns or panics:
//
//	gw := compartment.NewGateway(compartment.NewCallCounter(log.Log()))
//	parse := compartment.NewCallee("parse", func(f *compartment.Frame) error {
//		buf := f.Pointer(0) // Carries mte.Green.
//		...
//	}, compartment.KindPointer)
//	err := gw.Call(parse, mte.Red, mte.Green, compartment.Whole(region))
//
// Calls between regions are serialized per region: a region is crossed by
// at most one call at a time, and calls made from within a callee through
// Frame.Call reuse the regions already held by the enclosing call. A nested
// call never waits for a region held elsewhere; it fails with ErrWouldBlock.
package compartment

import (
	"errors"
	"fmt"
	"sort"

	"gvisor.dev/mtegate/pkg/cleanup"
	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/mte"
)

var (
	// ErrColorMismatch is returned when a pointer argument does not carry
	// the caller's color, or any granule it covers is not tagged with it.
	ErrColorMismatch = errors.New("pointer does not carry the caller's color")

	// ErrWouldBlock is returned by Frame.Call when a region it needs is held
	// by another call in progress.
	ErrWouldBlock = errors.New("region is held by another call")
)

// Gateway performs cross-compartment calls.
//
// Gateway is safe for concurrent use.
type Gateway struct {
	telemetry Telemetry
}

// NewGateway returns a Gateway reporting crossings to t. t may be nil.
func NewGateway(t Telemetry) *Gateway {
	if t == nil {
		t = noTelemetry{}
	}
	return &Gateway{telemetry: t}
}

// Call invokes c on behalf of compartment from, in compartment to.
//
// If from == to, c is invoked directly: arguments are checked against c's
// signature, but nothing is retagged or counted. Otherwise every region
// referenced by a pointer argument is locked, each pointer argument must
// carry from and every granule of its range must be tagged with from, and
// the range is retagged to to before c runs and back to from after. Only
// calls that reach the retag are reported to the Gateway's Telemetry.
//
// Call blocks while another call holds a region it needs. A callee passing
// memory on must use Frame.Call, not Call.
//
// Call returns c's error. If c panics, tags are restored and the panic
// continues.
func (g *Gateway) Call(c *Callee, from, to mte.Color, args ...Arg) error {
	return g.call(nil, c, from, to, args)
}

func (g *Gateway) call(parent *Frame, c *Callee, from, to mte.Color, args []Arg) error {
	if err := c.check(args); err != nil {
		return err
	}
	if from == to {
		return c.Fn(&Frame{gw: g, callee: c, color: to, args: args, held: parent.heldRegions()})
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: call from %v to %v", ErrColorMismatch, from, to)
	}
	for i, a := range args {
		if a.kind == KindPointer && a.ptr.Color() != from {
			return fmt.Errorf("%w: %s argument %d is %v, caller is %v", ErrColorMismatch, c.Name, i, a.ptr, from)
		}
	}

	var cu cleanup.Cleanup
	defer cu.Clean()

	held := make(map[*mte.Region]struct{})
	for r := range parent.heldRegions() {
		held[r] = struct{}{}
	}
	// Regions are locked in address order. Once any region is held,
	// an enclosing call may hold regions outside that order, so waiting
	// could deadlock.
	nested := len(held) != 0
	for _, r := range regionsOf(args) {
		if err := r.Enter(); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		cu.Add(r.Leave)
		if _, ok := held[r]; ok {
			continue
		}
		if !nested {
			r.Lock()
		} else if !r.TryLock() {
			return fmt.Errorf("%w: %s: %v", ErrWouldBlock, c.Name, r.Base())
		}
		cu.Add(r.Unlock)
		held[r] = struct{}{}
	}

	// Check every range before retagging any, so that overlapping
	// arguments are checked against the caller's tags.
	for i, a := range args {
		if a.kind != KindPointer {
			continue
		}
		r, off := a.ptr.Region(), a.ptr.Offset()
		if off >= r.Len() || a.size > r.Len()-off {
			return fmt.Errorf("%w: %s argument %d is %v in a region of %d bytes", mte.ErrOutOfRange, c.Name, i, a, r.Len())
		}
		if err := r.CheckColor(a.ptr, a.size, from); err != nil {
			return fmt.Errorf("%w: %s argument %d: %v", ErrColorMismatch, c.Name, i, err)
		}
	}
	g.telemetry.CrossCall(from, to)

	frameArgs := append([]Arg(nil), args...)
	for i, a := range args {
		if a.kind != KindPointer {
			continue
		}
		r := a.ptr.Region()
		in, err := r.Retag(a.ptr, a.size, to)
		if err != nil {
			return fmt.Errorf("%s argument %d: %w", c.Name, i, err)
		}
		size := a.size
		cu.Add(func() {
			if _, err := r.Retag(in, size, from); err != nil {
				log.Warningf("compartment: restoring %v to %v: %v", in, from, err)
			}
		})
		frameArgs[i].ptr = in
	}

	return c.Fn(&Frame{gw: g, callee: c, color: to, args: frameArgs, held: held})
}

// regionsOf returns the distinct regions referenced by pointer arguments,
// ordered by base address.
func regionsOf(args []Arg) []*mte.Region {
	var regions []*mte.Region
	seen := make(map[*mte.Region]struct{})
	for _, a := range args {
		if a.kind != KindPointer {
			continue
		}
		r := a.ptr.Region()
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Base() < regions[j].Base() })
	return regions
}

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

package compartment

import (
	"fmt"

	"gvisor.dev/mtegate/pkg/mte"
)

// Frame is a callee's view of a call in progress. It is only valid until the
// callee returns.
type Frame struct {
	gw     *Gateway
	callee *Callee
	color  mte.Color
	args   []Arg

	// held is the set of regions locked by this call and the calls
	// enclosing it.
	held map[*mte.Region]struct{}
}

// Color returns the compartment the callee runs in.
func (f *Frame) Color() mte.Color {
	return f.color
}

// Callee returns the function being called.
func (f *Frame) Callee() *Callee {
	return f.callee
}

// NumArgs returns the number of arguments.
func (f *Frame) NumArgs() int {
	return len(f.args)
}

// Arg returns argument i, for forwarding to a nested call.
func (f *Frame) Arg(i int) Arg {
	return f.args[i]
}

// Pointer returns pointer argument i, carrying the callee's color.
func (f *Frame) Pointer(i int) mte.Pointer {
	return f.argOfKind(i, KindPointer).ptr
}

// Size returns the size of pointer argument i.
func (f *Frame) Size(i int) uint64 {
	return f.argOfKind(i, KindPointer).size
}

// Scalar returns scalar argument i.
func (f *Frame) Scalar(i int) uint64 {
	return f.argOfKind(i, KindScalar).scalar
}

func (f *Frame) argOfKind(i int, kind ArgKind) Arg {
	a := f.args[i]
	if a.kind != kind {
		panic(fmt.Sprintf("%s: argument %d is a %v, not a %v", f.callee.Name, i, a.kind, kind))
	}
	return a
}

// Call calls c in compartment to on behalf of the callee. Regions held by
// the enclosing calls are not locked again, so a callee may pass its own
// arguments on. While the enclosing calls hold any region, Call does not
// wait for others: if one is held by another call, Call returns an error
// wrapping ErrWouldBlock.
//
// Call must be made from the goroutine running the callee.
func (f *Frame) Call(c *Callee, to mte.Color, args ...Arg) error {
	return f.gw.call(f, c, f.color, to, args)
}

// heldRegions returns the regions held by f. f may be nil.
func (f *Frame) heldRegions() map[*mte.Region]struct{} {
	if f == nil {
		return nil
	}
	return f.held
}

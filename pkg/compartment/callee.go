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
	"errors"
	"fmt"

	"gvisor.dev/mtegate/pkg/mte"
)

var (
	// ErrArityMismatch is returned when a call passes a different number of
	// arguments than the callee's signature declares.
	ErrArityMismatch = errors.New("argument count does not match callee signature")

	// ErrArgumentKind is returned when an argument's kind differs from the
	// callee's signature, or a tagged argument is unusable.
	ErrArgumentKind = errors.New("argument kind does not match callee signature")
)

// ArgKind is the role of an argument in a cross-compartment call.
type ArgKind int

const (
	// KindPointer is a tagged pointer with a size. The gateway retags the
	// pointed-to range to the callee's color for the duration of the call.
	KindPointer ArgKind = iota

	// KindScalar is a plain value passed through unchanged.
	KindScalar
)

// String implements fmt.Stringer.String.
func (k ArgKind) String() string {
	switch k {
	case KindPointer:
		return "pointer"
	case KindScalar:
		return "scalar"
	default:
		return fmt.Sprintf("ArgKind(%d)", int(k))
	}
}

// Arg is one argument of a call.
type Arg struct {
	kind   ArgKind
	ptr    mte.Pointer
	size   uint64
	scalar uint64
}

// Tagged returns a pointer argument covering the size bytes at p.
func Tagged(p mte.Pointer, size uint64) Arg {
	return Arg{kind: KindPointer, ptr: p, size: size}
}

// Whole returns a pointer argument covering all of r, through r's current
// pointer.
func Whole(r *mte.Region) Arg {
	return Tagged(r.Pointer(), r.Len())
}

// Scalar returns a scalar argument.
func Scalar(v uint64) Arg {
	return Arg{kind: KindScalar, scalar: v}
}

// Kind returns the argument's kind.
func (a Arg) Kind() ArgKind {
	return a.kind
}

// String implements fmt.Stringer.String.
func (a Arg) String() string {
	if a.kind == KindScalar {
		return fmt.Sprintf("%#x", a.scalar)
	}
	return fmt.Sprintf("%v+%d", a.ptr, a.size)
}

// Callee describes a function that may be called across compartments.
type Callee struct {
	// Name identifies the callee in errors and logs.
	Name string

	// Signature declares the kind of each argument.
	Signature []ArgKind

	// Fn is the callee's body. Pointer arguments carry the callee's color
	// while Fn runs.
	Fn func(*Frame) error
}

// NewCallee returns a Callee.
func NewCallee(name string, fn func(*Frame) error, sig ...ArgKind) *Callee {
	return &Callee{Name: name, Signature: sig, Fn: fn}
}

// check verifies args against c's signature.
func (c *Callee) check(args []Arg) error {
	if c == nil || c.Fn == nil {
		return errors.New("callee has no function")
	}
	if len(args) != len(c.Signature) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrArityMismatch, c.Name, len(c.Signature), len(args))
	}
	for i, a := range args {
		if a.kind != c.Signature[i] {
			return fmt.Errorf("%w: %s argument %d is a %v, want %v", ErrArgumentKind, c.Name, i, a.kind, c.Signature[i])
		}
		if a.kind == KindPointer && (a.ptr.IsNil() || a.size == 0) {
			return fmt.Errorf("%w: %s argument %d is %v", ErrArgumentKind, c.Name, i, a)
		}
	}
	return nil
}

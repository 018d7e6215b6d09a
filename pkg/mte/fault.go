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

	"gvisor.dev/mtegate/pkg/hostarch"
)

// TagCheckFault is the panic value raised when an access through a Pointer
// reaches a granule whose allocation tag differs from the pointer's tag and
// the TagStore does not enforce tags in hardware. It corresponds to a
// synchronous SEGV_MTESERR on hardware.
//
// Code in this module never recovers a TagCheckFault.
type TagCheckFault struct {
	// Addr is the tagged address of the faulting granule.
	Addr hostarch.Addr

	// PointerTag is the tag of the pointer used for the access.
	PointerTag Color

	// MemoryTag is the allocation tag of the granule.
	MemoryTag Color
}

// Error implements error.Error.
func (f *TagCheckFault) Error() string {
	return fmt.Sprintf("tag check fault at %v: pointer tag %v, memory tag %v", f.Addr, f.PointerTag, f.MemoryTag)
}

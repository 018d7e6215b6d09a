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

// Linux ABI constants for MTE. These are not yet exported by
// golang.org/x/sys/unix for every architecture.
const (
	// PROT_MTE enables allocation tag storage and checking on a mapping.
	PROT_MTE = 0x20

	_PR_SET_TAGGED_ADDR_CTRL = 55
	_PR_GET_TAGGED_ADDR_CTRL = 56

	_PR_TAGGED_ADDR_ENABLE = 1 << 0

	_PR_MTE_TCF_SHIFT = 1
	_PR_MTE_TCF_NONE  = 0 << _PR_MTE_TCF_SHIFT
	_PR_MTE_TCF_SYNC  = 1 << _PR_MTE_TCF_SHIFT
	_PR_MTE_TCF_ASYNC = 2 << _PR_MTE_TCF_SHIFT

	// _PR_MTE_TAG_SHIFT is the position of the mask of tags that IRG may
	// generate. Every non-zero tag is included.
	_PR_MTE_TAG_SHIFT = 3
	_PR_MTE_TAG_MASK  = 0xfffe << _PR_MTE_TAG_SHIFT

	// taggedAddrCtrl enables tagged addresses with synchronous tag check
	// faults.
	taggedAddrCtrl = _PR_TAGGED_ADDR_ENABLE | _PR_MTE_TCF_SYNC | _PR_MTE_TAG_MASK
)

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

package memutil

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func TestMapAnon(t *testing.T) {
	const length = 2 * 4096
	addr, err := MapAnon(length, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		t.Fatalf("MapAnon failed: %v", err)
	}
	defer func() {
		if err := Unmap(addr, length); err != nil {
			t.Errorf("Unmap failed: %v", err)
		}
	}()

	b := Slice(addr, length)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %d, want zero-filled mapping", i, v)
		}
	}
	b[length-1] = 0xff
	if b[length-1] != 0xff {
		t.Errorf("write to mapping was lost")
	}
}

func TestMapAnonTooLarge(t *testing.T) {
	_, err := MapAnon(1<<62, unix.PROT_READ|unix.PROT_WRITE)
	if !errors.Is(err, unix.ENOMEM) {
		t.Errorf("MapAnon(1<<62) got err %v, want ENOMEM", err)
	}
}

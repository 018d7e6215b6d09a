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

package cleanup

import "testing"

func TestCleanup(t *testing.T) {
	cleaned, cleanedAdd := false, false
	func() {
		var cu Cleanup
		defer cu.Clean()
		cu.Add(func() { cleaned = true })
		cu.Add(func() { cleanedAdd = true })
	}()
	if !cleaned {
		t.Fatalf("cleanup function was not called.")
	}
	if !cleanedAdd {
		t.Fatalf("added cleanup function was not called.")
	}
}

func TestCleanOnce(t *testing.T) {
	calls := 0
	var cu Cleanup
	cu.Add(func() { calls++ })
	cu.Clean()
	cu.Clean()
	if calls != 1 {
		t.Errorf("cleanup function called %d times, want 1", calls)
	}
	if cu.Len() != 0 {
		t.Errorf("Len() = %d after Clean, want 0", cu.Len())
	}
}

func TestCleanOrder(t *testing.T) {
	var order []int
	var cu Cleanup
	for i := 0; i < 3; i++ {
		i := i
		cu.Add(func() { order = append(order, i) })
	}
	if cu.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", cu.Len())
	}
	cu.Clean()
	if len(order) != 3 || order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Errorf("cleanup order got %v, want [2 1 0]", order)
	}
}

func TestCleanOnPanic(t *testing.T) {
	cleaned := false
	func() {
		defer func() { recover() }()
		var cu Cleanup
		defer cu.Clean()
		cu.Add(func() { cleaned = true })
		panic("abnormal exit")
	}()
	if !cleaned {
		t.Fatalf("cleanup function was not called on panic.")
	}
}

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

package gate_test

import (
	"testing"
	"time"

	"gvisor.dev/mtegate/pkg/gate"
)

func TestBasicEnter(t *testing.T) {
	var g gate.Gate

	if !g.Enter() {
		t.Fatalf("Failed to enter when it should be allowed")
	}

	g.Leave()

	g.Close()

	if g.Enter() {
		t.Fatalf("Allowed to enter when it should fail")
	}
	if !g.Closed() {
		t.Fatalf("Closed() = false after Close")
	}
}

func TestCloseWaitsForUsers(t *testing.T) {
	var g gate.Gate
	if !g.Enter() {
		t.Fatalf("Failed to enter when it should be allowed")
	}

	closed := make(chan struct{})
	go func() {
		g.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatalf("Close returned while a user was still inside the gate")
	case <-time.After(50 * time.Millisecond):
	}

	g.Leave()
	<-closed
}

func TestNilGate(t *testing.T) {
	var g *gate.Gate
	if g.Enter() {
		t.Fatalf("Entered a nil gate")
	}
}

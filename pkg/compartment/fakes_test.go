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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gvisor.dev/mtegate/pkg/hostarch"
	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/mte"
)

// countingStore counts tag stores made through it.
type countingStore struct {
	mte.TagStore
	stores atomic.Int64
}

func (s *countingStore) StoreTag(addr hostarch.Addr) {
	s.stores.Add(1)
	s.TagStore.StoreTag(addr)
}

// crossing is one recorded Telemetry.CrossCall.
type crossing struct {
	From, To mte.Color
}

// recordingTelemetry records every crossing.
type recordingTelemetry struct {
	mu    sync.Mutex
	calls []crossing
}

func (r *recordingTelemetry) CrossCall(from, to mte.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, crossing{from, to})
}

func (r *recordingTelemetry) crossings() []crossing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]crossing(nil), r.calls...)
}

// recordingEmitter keeps formatted log lines.
type recordingEmitter struct {
	mu    sync.Mutex
	lines []string
}

func (e *recordingEmitter) Emit(_ int, _ log.Level, _ time.Time, format string, v ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = append(e.lines, fmt.Sprintf(format, v...))
}

// testEnv is an allocator over a counting shadow store and a gateway
// recording its crossings.
type testEnv struct {
	alloc     *mte.Allocator
	store     *countingStore
	telemetry *recordingTelemetry
	gw        *Gateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &countingStore{TagStore: mte.NewShadowTagStore()}
	tel := &recordingTelemetry{}
	return &testEnv{
		alloc:     mte.NewAllocator(store, mte.AllocatorOptions{}),
		store:     store,
		telemetry: tel,
		gw:        NewGateway(tel),
	}
}

// malloc allocates a region freed when t ends.
func (e *testEnv) malloc(t *testing.T, size uint64, c mte.Color) (*mte.Region, mte.Pointer) {
	t.Helper()
	r, p, err := e.alloc.Malloc(size, c)
	if err != nil {
		t.Fatalf("Malloc(%d, %v): %v", size, c, err)
	}
	t.Cleanup(func() {
		if err := e.alloc.Free(r); err != nil {
			t.Errorf("Free: %v", err)
		}
	})
	return r, p
}

// mustPanic runs f and returns the value it panicked with, failing t if it
// returned normally.
func mustPanic(t *testing.T, f func()) (v any) {
	t.Helper()
	defer func() {
		v = recover()
		if v == nil {
			t.Errorf("function returned normally, want panic")
		}
	}()
	f()
	return nil
}

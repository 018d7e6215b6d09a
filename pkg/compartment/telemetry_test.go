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
	"testing"

	"github.com/google/go-cmp/cmp"

	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/mte"
)

func TestCallCounterLogs(t *testing.T) {
	rec := &recordingEmitter{}
	counter := NewCallCounter(&log.BasicLogger{Level: log.Debug, Emitter: rec})
	counter.CrossCall(mte.Red, mte.Green)
	counter.CrossCall(mte.Green, mte.Red)

	if got := counter.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	want := []string{"Calls: 1", "Calls: 2"}
	if diff := cmp.Diff(want, rec.lines); diff != "" {
		t.Errorf("log lines (-want +got):\n%s", diff)
	}
}

func TestCallCounterQuietAtInfo(t *testing.T) {
	rec := &recordingEmitter{}
	counter := NewCallCounter(&log.BasicLogger{Level: log.Info, Emitter: rec})
	counter.CrossCall(mte.Red, mte.Green)
	if len(rec.lines) != 0 {
		t.Errorf("logged %v at info level", rec.lines)
	}
	if got := counter.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestCallCounterMetric(t *testing.T) {
	counter := NewCallCounter(nil)
	green, other := crossCalls.Value("green"), crossCalls.Value(otherColor)
	counter.CrossCall(mte.Red, mte.Green)
	counter.CrossCall(mte.Red, mte.Color(15))
	if got := crossCalls.Value("green") - green; got != 1 {
		t.Errorf("green crossings increased by %d, want 1", got)
	}
	if got := crossCalls.Value(otherColor) - other; got != 1 {
		t.Errorf("other crossings increased by %d, want 1", got)
	}
}

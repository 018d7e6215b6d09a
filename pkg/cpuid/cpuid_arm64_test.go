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

//go:build arm64

package cpuid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHasMTE(t *testing.T) {
	withMTE := NewFeatureSet(HWCAP_FP|HWCAP_ASIMD, HWCAP2_MTE)
	if !withMTE.HasMTE() {
		t.Errorf("HasMTE failed, %v should contain MTE", withMTE)
	}
	if withMTE.HasMTE3() {
		t.Errorf("HasMTE3 failed, %v should not contain MTE3", withMTE)
	}

	justFP := NewFeatureSet(HWCAP_FP, 0)
	if justFP.HasMTE() {
		t.Errorf("HasMTE failed, %v should not contain MTE", justFP)
	}
}

func TestIsolationFeatures(t *testing.T) {
	for _, tc := range []struct {
		name   string
		hwCap  uint64
		hwCap2 uint64
		want   []string
	}{
		{name: "none", hwCap: HWCAP_FP | HWCAP_ASIMD},
		{name: "mte", hwCap2: HWCAP2_MTE, want: []string{"mte"}},
		{
			name:   "all",
			hwCap:  HWCAP_FP | HWCAP_PACA | HWCAP_PACG,
			hwCap2: HWCAP2_BTI | HWCAP2_MTE | HWCAP2_MTE3,
			want:   []string{"paca", "pacg", "bti", "mte", "mte3"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := NewFeatureSet(tc.hwCap, tc.hwCap2).IsolationFeatures()
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("IsolationFeatures() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

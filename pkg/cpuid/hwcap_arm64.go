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

// Capability bits consulted here, from arch/arm64/include/uapi/asm/hwcap.h.
const (
	// HWCAP flags for AT_HWCAP.
	HWCAP_FP    = 1 << 0
	HWCAP_ASIMD = 1 << 1
	HWCAP_PACA  = 1 << 30
	HWCAP_PACG  = 1 << 31

	// HWCAP2 flags for AT_HWCAP2.
	HWCAP2_BTI  = 1 << 17
	HWCAP2_MTE  = 1 << 18
	HWCAP2_MTE3 = 1 << 22
)

// isolationFeatures are the pointer-integrity features reported by probe,
// in HWCAP2 order after the HWCAP ones.
var isolationFeatures = []struct {
	name  string
	hwcap bool
	bit   uint64
}{
	{"paca", true, HWCAP_PACA},
	{"pacg", true, HWCAP_PACG},
	{"bti", false, HWCAP2_BTI},
	{"mte", false, HWCAP2_MTE},
	{"mte3", false, HWCAP2_MTE3},
}

// HasMTE reports whether fs includes the Memory Tagging Extension (FEAT_MTE2,
// which provides allocation tags and tag checking to EL0).
func (fs *FeatureSet) HasMTE() bool {
	return fs.hwCap2&HWCAP2_MTE != 0
}

// HasMTE3 reports whether fs includes asymmetric tag checking (FEAT_MTE3).
func (fs *FeatureSet) HasMTE3() bool {
	return fs.hwCap2&HWCAP2_MTE3 != 0
}

// IsolationFeatures returns the names of the pointer authentication, branch
// target and memory tagging features present in fs.
func (fs *FeatureSet) IsolationFeatures() []string {
	var names []string
	for _, f := range isolationFeatures {
		word := fs.hwCap2
		if f.hwcap {
			word = fs.hwCap
		}
		if word&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

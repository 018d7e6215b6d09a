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

//go:build !arm64

package cpuid

// HasMTE reports whether fs includes the Memory Tagging Extension. It is
// never available outside arm64.
func (fs *FeatureSet) HasMTE() bool {
	return false
}

// HasMTE3 reports whether fs includes asymmetric tag checking.
func (fs *FeatureSet) HasMTE3() bool {
	return false
}

// IsolationFeatures returns the names of the pointer integrity features
// present in fs. There are none outside arm64.
func (fs *FeatureSet) IsolationFeatures() []string {
	return nil
}

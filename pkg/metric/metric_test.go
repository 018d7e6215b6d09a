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

package metric

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/common/expfmt"

	"gvisor.dev/mtegate/pkg/prometheus"
)

var (
	testPlain  = MustCreateNewUint64Metric("/metric_test/plain", "A metric without fields.")
	testFields = MustCreateNewUint64Metric("/metric_test/fields", "A metric with fields.",
		NewField("from", []string{"red", "green"}),
		NewField("to", []string{"red", "green", "blue"}))
)

func TestIncrement(t *testing.T) {
	before := testPlain.Value()
	testPlain.Increment()
	testPlain.IncrementBy(4)
	if got, want := testPlain.Value(), before+5; got != want {
		t.Errorf("Value() = %d, want %d", got, want)
	}
}

func TestFieldKeys(t *testing.T) {
	for idx := range testFields.values {
		vals := testFields.fieldValues(idx)
		if got := testFields.key(vals); got != idx {
			t.Errorf("key(fieldValues(%d) = %v) = %d", idx, vals, got)
		}
	}

	before := testFields.Value("green", "blue")
	testFields.Increment("green", "blue")
	if got := testFields.Value("green", "blue"); got != before+1 {
		t.Errorf("Value(green, blue) = %d, want %d", got, before+1)
	}
}

func TestBadFieldValuePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Increment with a disallowed value did not panic")
		}
	}()
	testFields.Increment("purple", "red")
}

func TestRegistrationErrors(t *testing.T) {
	if _, err := NewUint64Metric("/metric_test/plain", ""); !errors.Is(err, ErrNameInUse) {
		t.Errorf("duplicate registration got err %v, want ErrNameInUse", err)
	}
	for _, name := range []string{"", "no_slash", "/Upper", "/dash-ed"} {
		if _, err := NewUint64Metric(name, ""); !errors.Is(err, ErrInvalidMetricName) {
			t.Errorf("NewUint64Metric(%q) got err %v, want ErrInvalidMetricName", name, err)
		}
	}
}

func TestSnapshot(t *testing.T) {
	testFields.Increment("red", "green")
	var buf bytes.Buffer
	if _, err := Snapshot().Write(&buf, prometheus.ExportOptions{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	families, err := (&expfmt.TextParser{}).TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("snapshot does not parse: %v", err)
	}
	fam, ok := families["metric_test_fields"]
	if !ok {
		t.Fatalf("snapshot is missing metric_test_fields: %v", families)
	}
	var labels []string
	for _, m := range fam.GetMetric() {
		var from, to string
		for _, l := range m.GetLabel() {
			switch l.GetName() {
			case "from":
				from = l.GetValue()
			case "to":
				to = l.GetValue()
			}
		}
		labels = append(labels, from+">"+to)
		if from == "red" && to == "green" && m.GetCounter().GetValue() < 1 {
			t.Errorf("red>green counter = %v, want >= 1", m.GetCounter().GetValue())
		}
	}
	sort.Strings(labels)
	want := []string{"green>blue", "green>green", "green>red", "red>blue", "red>green", "red>red"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("label combinations mismatch (-want +got):\n%s", diff)
	}
}

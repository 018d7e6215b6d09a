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

// Package metric provides primitives for collecting metrics.
//
// Metrics are registered process-wide when they are created, normally from
// package-level variable initializers, and are exported together through
// Snapshot.
package metric

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gvisor.dev/mtegate/pkg/atomicbitops"
	"gvisor.dev/mtegate/pkg/prometheus"
	"gvisor.dev/mtegate/pkg/sync"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrInvalidMetricName indicates that a metric name is not valid.
	ErrInvalidMetricName = errors.New("metric name is not valid")

	// ErrFieldValueNotAllowed indicates that a field value is not part of
	// the field's allowed values.
	ErrFieldValueNotAllowed = errors.New("field value not allowed")
)

// Field contains the field name and allowed values for the metric which is
// used in registration of the metric.
type Field struct {
	// name is the metric field name.
	name string

	// allowedValues is the list of allowed values for the field.
	allowedValues []string
}

// NewField defines a new Field that can be used to break down a metric.
func NewField(name string, allowedValues []string) Field {
	return Field{name: name, allowedValues: allowedValues}
}

// Uint64Metric encapsulates a uint64 that represents some kind of metric to be
// monitored. It is always cumulative.
//
// All metric values are pre-allocated at creation time, one per combination
// of field values, so that Increment never allocates.
type Uint64Metric struct {
	name        string
	description string
	fields      []Field

	// values holds one counter per combination of field values, in the
	// order defined by key.
	values []atomicbitops.Uint64
}

// key maps field values to an index into m.values. It panics if a value is
// not allowed or the number of values does not match the fields, which is a
// programming error at the call site.
func (m *Uint64Metric) key(fieldValues []string) int {
	if len(fieldValues) != len(m.fields) {
		panic(fmt.Sprintf("metric %s: got %d field values, want %d", m.name, len(fieldValues), len(m.fields)))
	}
	idx := 0
	for i, f := range m.fields {
		pos := -1
		for j, allowed := range f.allowedValues {
			if allowed == fieldValues[i] {
				pos = j
				break
			}
		}
		if pos < 0 {
			panic(fmt.Sprintf("metric %s: %v: %q for field %q", m.name, ErrFieldValueNotAllowed, fieldValues[i], f.name))
		}
		idx = idx*len(f.allowedValues) + pos
	}
	return idx
}

// fieldValues is the inverse of key.
func (m *Uint64Metric) fieldValues(idx int) []string {
	vals := make([]string, len(m.fields))
	for i := len(m.fields) - 1; i >= 0; i-- {
		n := len(m.fields[i].allowedValues)
		vals[i] = m.fields[i].allowedValues[idx%n]
		idx /= n
	}
	return vals
}

// Value returns the current value of the metric for the given set of fields.
func (m *Uint64Metric) Value(fieldValues ...string) uint64 {
	return m.values[m.key(fieldValues)].Load()
}

// Increment increments the metric by 1.
func (m *Uint64Metric) Increment(fieldValues ...string) {
	m.IncrementBy(1, fieldValues...)
}

// IncrementBy increments the metric by v.
func (m *Uint64Metric) IncrementBy(v uint64, fieldValues ...string) {
	m.values[m.key(fieldValues)].Add(v)
}

// Name returns the metric name.
func (m *Uint64Metric) Name() string {
	return m.name
}

var (
	// registryMu protects registry.
	registryMu sync.Mutex

	// registry is the set of all registered metrics, by name.
	registry = make(map[string]*Uint64Metric)
)

func verifyName(name string) error {
	if len(name) == 0 || name[0] != '/' {
		return fmt.Errorf("%w: %q must start with '/'", ErrInvalidMetricName, name)
	}
	for _, r := range name[1:] {
		if !(r == '/' || r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9')) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidMetricName, name, r)
		}
	}
	return nil
}

// NewUint64Metric creates and registers a new cumulative metric with the given
// name.
//
// Metrics must be statically defined (i.e., at init).
func NewUint64Metric(name, description string, fields ...Field) (*Uint64Metric, error) {
	if err := verifyName(name); err != nil {
		return nil, err
	}
	n := 1
	for _, f := range fields {
		if len(f.allowedValues) == 0 {
			return nil, fmt.Errorf("metric %s: field %q has no allowed values", name, f.name)
		}
		n *= len(f.allowedValues)
	}
	m := &Uint64Metric{
		name:        name,
		description: description,
		fields:      fields,
		values:      make([]atomicbitops.Uint64, n),
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNameInUse, name)
	}
	registry[name] = m
	return m, nil
}

// MustCreateNewUint64Metric calls NewUint64Metric and panics if it returns
// an error.
func MustCreateNewUint64Metric(name, description string, fields ...Field) *Uint64Metric {
	m, err := NewUint64Metric(name, description, fields...)
	if err != nil {
		panic(fmt.Sprintf("Unable to create metric %q: %s", name, err))
	}
	return m
}

// prometheusName converts a metric name such as "/mte/cross_compartment_calls"
// to "mte_cross_compartment_calls".
func prometheusName(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, "/"), "/", "_")
}

// Snapshot returns the current value of every registered metric. Metrics with
// fields contribute one data point per combination of field values.
func Snapshot() *prometheus.Snapshot {
	registryMu.Lock()
	metrics := make([]*Uint64Metric, 0, len(registry))
	for _, m := range registry {
		metrics = append(metrics, m)
	}
	registryMu.Unlock()
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].name < metrics[j].name })

	s := prometheus.NewSnapshot()
	for _, m := range metrics {
		pm := &prometheus.Metric{
			Name: prometheusName(m.name),
			Type: prometheus.TypeCounter,
			Help: m.description,
		}
		if len(m.fields) == 0 {
			s.Add(prometheus.NewIntData(pm, m.values[0].Load()))
			continue
		}
		for idx := range m.values {
			labels := make(map[string]string, len(m.fields))
			for i, v := range m.fieldValues(idx) {
				labels[m.fields[i].name] = v
			}
			s.Add(prometheus.LabeledIntData(pm, labels, m.values[idx].Load()))
		}
	}
	return s
}

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

// Package prometheus contains Prometheus-compliant metric data structures and
// the text exposition writer used to export gateway metrics.
package prometheus

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// timeNow is the time.Now() function. Can be mocked in tests.
var timeNow = time.Now

// Type is a Prometheus metric type.
type Type int

// List of supported Prometheus metric types.
const (
	TypeUntyped = Type(iota)
	TypeGauge
	TypeCounter
)

// Metric is a Prometheus metric metadata.
type Metric struct {
	// Name is the Prometheus metric name.
	Name string `json:"name"`

	// Type is the type of the metric.
	Type Type `json:"type"`

	// Help is an optional helpful string explaining what the metric is about.
	Help string `json:"help"`
}

// writeHeaderTo writes the metric comment header to the given writer.
func (m *Metric) writeHeaderTo(w io.Writer, prefix string) error {
	if m.Help != "" {
		// Prometheus metric description escape rules: Only backslashes and line breaks need escaping.
		if _, err := fmt.Fprintf(w, "# HELP %s%s %s\n", prefix, m.Name, strings.ReplaceAll(strings.ReplaceAll(m.Help, "\\", "\\\\"), "\n", "\\n")); err != nil {
			return err
		}
	}
	var metricType string
	switch m.Type {
	case TypeGauge:
		metricType = "gauge"
	case TypeCounter:
		metricType = "counter"
	case TypeUntyped:
		metricType = "untyped"
	default:
		return fmt.Errorf("unknown metric type for metric %s: %v", m.Name, m.Type)
	}
	_, err := fmt.Fprintf(w, "# TYPE %s%s %s\n", prefix, m.Name, metricType)
	return err
}

// Data is an observation of the value of a single metric at a certain point
// in time.
type Data struct {
	// Metric is the metric for which the value is being reported.
	Metric *Metric `json:"metric"`

	// Labels is a key-value pair representing the labels set on this metric.
	// This may be merged with other labels during export.
	Labels map[string]string `json:"labels,omitempty"`

	// Value is the integer value of the metric. Counters exported by this
	// module are integral.
	Value uint64 `json:"value"`
}

// NewIntData returns a new Data struct with the given metric and value.
func NewIntData(metric *Metric, val uint64) *Data {
	return &Data{Metric: metric, Value: val}
}

// LabeledIntData returns a new Data struct with the given metric, labels, and
// value.
func LabeledIntData(metric *Metric, labels map[string]string, val uint64) *Data {
	return &Data{Metric: metric, Labels: labels, Value: val}
}

// OrderedLabels returns the list of 'label_key="label_value"' in sorted order.
func OrderedLabels(labels ...map[string]string) ([]string, error) {
	keys := make(map[string]struct{})
	var ordered []string
	for _, labelMap := range labels {
		for k, v := range labelMap {
			if _, found := keys[k]; found {
				return nil, fmt.Errorf("duplicate label name %q", k)
			}
			keys[k] = struct{}{}
			ordered = append(ordered, fmt.Sprintf("%s=%q", k, v))
		}
	}
	sort.Strings(ordered)
	return ordered, nil
}

// writeTo writes the Data to the given writer in Prometheus format.
func (d *Data) writeTo(w io.Writer, when time.Time, options ExportOptions) error {
	if _, err := io.WriteString(w, options.ExporterPrefix+d.Metric.Name); err != nil {
		return err
	}
	labels, err := OrderedLabels(d.Labels, options.ExtraLabels)
	if err != nil {
		return err
	}
	if len(labels) != 0 {
		if _, err := fmt.Fprintf(w, "{%s}", strings.Join(labels, ",")); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, " %d %d\n", d.Value, when.UnixMilli())
	return err
}

// ExportOptions contains options that control how metric data is exported in
// Prometheus format.
type ExportOptions struct {
	// ExporterPrefix is prepended to all metric names.
	ExporterPrefix string

	// ExtraLabels is added as labels for all metric values.
	ExtraLabels map[string]string
}

// Snapshot is a snapshot of the values of all the metrics at a certain point in time.
type Snapshot struct {
	// When is the timestamp at which the snapshot was taken.
	// Note that Prometheus ultimately encodes timestamps as millisecond-precision int64s from epoch.
	When time.Time `json:"when,omitempty"`

	// Data is the whole snapshot data.
	// Each Data must be a unique combination of (Metric, Labels) within a Snapshot.
	Data []*Data `json:"data,omitempty"`
}

// NewSnapshot returns a new Snapshot at the current time.
func NewSnapshot() *Snapshot {
	return &Snapshot{When: timeNow()}
}

// Add data point(s) to the snapshot.
// Returns itself for chainability.
func (s *Snapshot) Add(data ...*Data) *Snapshot {
	s.Data = append(s.Data, data...)
	return s
}

// countingWriter implements io.Writer, and counts the number of bytes
// written to it.
type countingWriter struct {
	w       io.Writer
	written int64
}

// Write implements io.Writer.Write.
func (w *countingWriter) Write(b []byte) (int, error) {
	written, err := w.w.Write(b)
	w.written += int64(written)
	return written, err
}

// Write writes the snapshot to w in Prometheus text format, grouping data
// points by metric name in sorted order. It returns the number of bytes
// written.
func (s *Snapshot) Write(w io.Writer, options ExportOptions) (int64, error) {
	cw := &countingWriter{w: w}
	byName := make(map[string][]*Data)
	var names []string
	for _, d := range s.Data {
		if _, ok := byName[d.Metric.Name]; !ok {
			names = append(names, d.Metric.Name)
		}
		byName[d.Metric.Name] = append(byName[d.Metric.Name], d)
	}
	sort.Strings(names)
	for _, name := range names {
		data := byName[name]
		if err := data[0].Metric.writeHeaderTo(cw, options.ExporterPrefix); err != nil {
			return cw.written, err
		}
		for _, d := range data {
			if err := d.writeTo(cw, s.When, options); err != nil {
				return cw.written, err
			}
		}
	}
	return cw.written, nil
}

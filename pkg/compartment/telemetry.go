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
	"gvisor.dev/mtegate/pkg/atomicbitops"
	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/metric"
	"gvisor.dev/mtegate/pkg/mte"
)

// otherColor labels crossings into colors without a name.
const otherColor = "other"

var (
	colorLabels = mte.Names()

	crossCalls = metric.MustCreateNewUint64Metric(
		"/mte/cross_compartment_calls",
		"Number of calls between compartments, by destination color.",
		metric.NewField("to", append(mte.Names(), otherColor)),
	)
)

// colorLabel returns the metric field value for c.
func colorLabel(c mte.Color) string {
	if int(c) < len(colorLabels) {
		return colorLabels[c]
	}
	return otherColor
}

// Telemetry observes cross-compartment calls.
type Telemetry interface {
	// CrossCall is called once per call between different compartments,
	// before any argument is retagged. It may be called concurrently.
	CrossCall(from, to mte.Color)
}

type noTelemetry struct{}

// CrossCall implements Telemetry.CrossCall.
func (noTelemetry) CrossCall(mte.Color, mte.Color) {}

// CallCounter counts cross-compartment calls.
type CallCounter struct {
	count  atomicbitops.Uint64
	logger log.Logger
}

// NewCallCounter returns a CallCounter logging the running count to logger
// at debug level. If logger is nil, the global logger is used.
func NewCallCounter(logger log.Logger) *CallCounter {
	if logger == nil {
		logger = log.Log()
	}
	return &CallCounter{logger: logger}
}

// CrossCall implements Telemetry.CrossCall.
func (c *CallCounter) CrossCall(from, to mte.Color) {
	n := c.count.Add(1)
	crossCalls.Increment(colorLabel(to))
	if c.logger.IsLogging(log.Debug) {
		c.logger.Debugf("Calls: %d", n)
	}
}

// Count returns the number of calls counted so far.
func (c *CallCounter) Count() uint64 {
	return c.count.Load()
}

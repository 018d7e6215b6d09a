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

// Package config holds the mtectl configuration, populated from flags and
// from a compartment manifest.
package config

import (
	"flag"
	"fmt"
	"reflect"
	"time"

	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/mte"
)

// Config holds configuration that is shared by all mtectl commands.
type Config struct {
	// Debug enables debug logging.
	Debug bool `flag:"debug"`

	// LogFormat is the format of log messages on stderr: text, json or
	// logrus.
	LogFormat string `flag:"log-format"`

	// DebugLog is an additional location for logs. It may contain
	// %TIMESTAMP% and %COMMAND%, and names a directory if it ends in '/'.
	DebugLog string `flag:"debug-log"`

	// TagMode selects hardware or shadow tag storage.
	TagMode mte.Mode `flag:"tag-mode"`

	// ParallelThreshold is the range size in bytes from which tagging is
	// split across goroutines.
	ParallelThreshold uint64 `flag:"parallel-threshold"`

	// TagChunks is the maximum number of goroutines tagging one range.
	TagChunks int `flag:"tag-chunks"`

	// Manifest is the path of a TOML file defining compartments.
	Manifest string `flag:"manifest"`

	// TelemetryLogEvery limits the call counter's debug lines to one per
	// interval. Zero logs every call.
	TelemetryLogEvery time.Duration `flag:"telemetry-log-every"`
}

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	// Debugging flags.
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.String("log-format", "text", "log format: text (default), json, or logrus.")
	flagSet.String("debug-log", "", "additional location for logs. If it ends with '/', log files are created inside the directory with default names. The following variables are available: %TIMESTAMP%, %COMMAND%.")
	flagSet.Duration("telemetry-log-every", 0, "log the cross-compartment call count at most once per interval. 0 logs every call.")

	// Tagging flags.
	mode := mte.ModeAuto
	flagSet.Var(&mode, "tag-mode", "tag storage: auto (hardware if available), hardware, or shadow.")
	flagSet.Uint64("parallel-threshold", mte.DefaultParallelThreshold, "size in bytes from which a range is tagged by several goroutines.")
	flagSet.Int("tag-chunks", 4, "maximum number of goroutines tagging one range. 1 disables parallel tagging.")

	// Compartment flags.
	flagSet.String("manifest", "", "path to a TOML file defining compartments.")
}

// NewFromFlags creates a new Config with values coming from the given flag
// set. This function must be called after the flag set has been parsed.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := &Config{}

	obj := reflect.ValueOf(conf).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		x := reflect.ValueOf(fl.Value.(flag.Getter).Get())
		obj.Field(i).Set(x)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json", "logrus":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'logrus'", c.LogFormat)
	}
	if c.TagChunks < 1 {
		return fmt.Errorf("tag-chunks must be at least 1, got %d", c.TagChunks)
	}
	if c.TelemetryLogEvery < 0 {
		return fmt.Errorf("telemetry-log-every must not be negative, got %v", c.TelemetryLogEvery)
	}
	return nil
}

// ToFlags returns a slice of flags that correspond to the given Config.
// Flags left at their default value are omitted.
func (c *Config) ToFlags() []string {
	var rv []string

	defaults := flag.NewFlagSet("defaults", flag.ContinueOnError)
	RegisterFlags(defaults)

	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			continue
		}
		val := fmt.Sprintf("%v", obj.Field(i).Interface())
		if def := defaults.Lookup(name); def != nil && def.DefValue == val {
			continue
		}
		rv = append(rv, fmt.Sprintf("--%s=%s", name, val))
	}
	return rv
}

// Log logs the configuration, one non-default flag per line.
func (c *Config) Log() {
	log.Infof("Config:")
	for _, f := range c.ToFlags() {
		log.Infof("  %s", f)
	}
}

// TaggerOptions returns the tagging options selected by c.
func (c *Config) TaggerOptions() mte.TaggerOptions {
	return mte.TaggerOptions{
		ParallelThreshold: c.ParallelThreshold,
		Chunks:            c.TagChunks,
	}
}

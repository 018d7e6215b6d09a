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

// Package cli is the main entrypoint for mtectl.
package cli

import (
	"context"
	"flag"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"gvisor.dev/mtegate/mtectl/cmd"
	"gvisor.dev/mtegate/mtectl/cmd/util"
	"gvisor.dev/mtegate/mtectl/config"
	"gvisor.dev/mtegate/pkg/log"
)

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// Register with the main command line.
	config.RegisterFlags(flag.CommandLine)

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	// Create a new Config from the flags.
	conf, err := config.NewFromFlags(flag.CommandLine)
	if err != nil {
		util.Fatalf("%v", err)
	}
	util.ErrorLogger = os.Stderr

	subcommand := flag.CommandLine.Arg(0)

	// Set up logging.
	if conf.Debug {
		log.SetLevel(log.Debug)
	}

	emitters := log.MultiEmitter{newEmitter(conf.LogFormat, os.Stderr)}
	if len(conf.DebugLog) > 0 {
		f, err := log.OpenFile(conf.DebugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, log.FileOpts{
			Command: subcommand,
			Start:   time.Now(),
		})
		if err != nil {
			util.Fatalf("error opening debug log file in %q: %v", conf.DebugLog, err)
		}
		emitters = append(emitters, newEmitter(conf.LogFormat, f))
	}
	if len(emitters) == 1 {
		log.SetTarget(emitters[0])
	} else {
		log.SetTarget(&emitters)
	}

	log.Debugf("mtectl %s, %s/%s, %d CPUs, PID %d", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), os.Getpid())
	log.Debugf("Args: %v", os.Args)
	if log.IsLogging(log.Debug) {
		conf.Log()
	}

	// Call the subcommand and pass in the configuration.
	os.Exit(int(subcommands.Execute(context.Background(), conf)))
}

// forEachCmd invokes the passed callback for each command supported by mtectl.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")
	cb(subcommands.CommandsCommand(), "")

	cb(new(cmd.Probe), "")
	cb(new(cmd.Demo), "")
	cb(new(cmd.Bench), "")
	cb(new(cmd.Manifest), "")
}

func newEmitter(format string, logFile io.Writer) log.Emitter {
	switch format {
	case "text":
		return log.GoogleEmitter{Emitter: &log.Writer{Next: logFile}}
	case "json":
		return log.JSONEmitter{Writer: &log.Writer{Next: logFile}}
	case "logrus":
		l := logrus.New()
		l.SetOutput(logFile)
		l.SetLevel(logrus.DebugLevel)
		return log.LogrusEmitter{Logger: l}
	}
	util.Fatalf("invalid log format %q, must be 'text', 'json', or 'logrus'", format)
	panic("unreachable")
}

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

// Package util groups helpers shared by mtectl commands.
package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"gvisor.dev/mtegate/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages
// are consumed by scripts driving mtectl, so they are written as JSON.
var ErrorLogger io.Writer

// Writer writes to log and stdout.
type Writer struct{}

// Write implements io.Writer.
func (i *Writer) Write(data []byte) (n int, err error) {
	log.Infof("%s", data)
	return os.Stdout.Write(data)
}

// Infof writes message to log and stdout.
func Infof(format string, args ...any) {
	log.Infof(format, args...)
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// errorMessage is a message to be written to ErrorLogger.
type errorMessage struct {
	Level string    `json:"level"`
	Msg   string    `json:"msg"`
	Time  time.Time `json:"time"`
}

func writeError(format string, args ...any) {
	if ErrorLogger == nil {
		return
	}
	b, err := json.Marshal(errorMessage{
		Level: "error",
		Msg:   fmt.Sprintf(format, args...),
		Time:  time.Now(),
	})
	if err != nil {
		return
	}
	ErrorLogger.Write(append(b, '\n'))
}

// Errorf logs error to ErrorLogger, to stderr, and to the debug log. It
// returns subcommands.ExitFailure for convenience with subcommand.Execute()
// methods:
//
//	return Errorf("Danger! Danger!")
func Errorf(format string, args ...any) subcommands.ExitStatus {
	// If we have a debug log, write it there.
	log.Warningf(format, args...)

	// Write to stderr.
	fmt.Fprintf(os.Stderr, format+"\n", args...)

	writeError(format, args...)
	return subcommands.ExitFailure
}

// Fatalf logs the same way as Errorf() does, plus *exits* the process.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	// Return an error that is unlikely to be used by the application.
	os.Exit(128)
}

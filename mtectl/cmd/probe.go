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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/google/subcommands"

	"gvisor.dev/mtegate/mtectl/cmd/util"
	"gvisor.dev/mtegate/mtectl/config"
	"gvisor.dev/mtegate/pkg/cpuid"
	"gvisor.dev/mtegate/pkg/mte"
)

// Probe implements subcommands.Command for the "probe" command.
type Probe struct{}

// Name implements subcommands.Command.Name.
func (*Probe) Name() string {
	return "probe"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Probe) Synopsis() string {
	return "report memory tagging support of the host"
}

// Usage implements subcommands.Command.Usage.
func (*Probe) Usage() string {
	return `probe - report memory tagging support of the host and the tag storage selected by --tag-mode.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Probe) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Probe) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	if err := probe(os.Stdout, conf, cpuid.HostFeatureSet()); err != nil {
		return util.Errorf("probe failed: %v", err)
	}
	return subcommands.ExitSuccess
}

func probe(w io.Writer, conf *config.Config, fs *cpuid.FeatureSet) error {
	fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "features: %v\n", fs)
	fmt.Fprintf(w, "mte: %t\n", fs.HasMTE())
	fmt.Fprintf(w, "mte3: %t\n", fs.HasMTE3())
	fmt.Fprintf(w, "isolation features: %s\n", strings.Join(fs.IsolationFeatures(), " "))
	store, err := mte.NewTagStore(conf.TagMode)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "tag mode: %v (%s tags)\n", conf.TagMode, storeKind(store))
	return nil
}

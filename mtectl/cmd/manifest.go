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
	"text/tabwriter"

	"github.com/google/subcommands"

	"gvisor.dev/mtegate/mtectl/cmd/util"
	"gvisor.dev/mtegate/mtectl/config"
	"gvisor.dev/mtegate/pkg/compartment"
)

// Manifest implements subcommands.Command for the "manifest" command.
type Manifest struct{}

// Name implements subcommands.Command.Name.
func (*Manifest) Name() string {
	return "manifest"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Manifest) Synopsis() string {
	return "validate and list a compartment manifest"
}

// Usage implements subcommands.Command.Usage.
func (*Manifest) Usage() string {
	return `manifest [path] - validate and list the compartments of a manifest.

If path is omitted, the manifest given by --manifest is used, or the built-in
default if there is none.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Manifest) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Manifest) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	path := conf.Manifest
	if f.NArg() == 1 {
		path = f.Arg(0)
	}
	if err := listManifest(os.Stdout, path); err != nil {
		return util.Errorf("invalid manifest: %v", err)
	}
	return subcommands.ExitSuccess
}

// listManifest loads the manifest at path, or the default one if path is
// empty, and lists its compartments.
func listManifest(w io.Writer, path string) error {
	m := config.DefaultManifest()
	if path != "" {
		var err error
		if m, err = config.LoadManifest(path); err != nil {
			return err
		}
	}
	reg := compartment.NewRegistry(compartment.NewGateway(nil))
	if err := m.Apply(reg); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprint(tw, "NAME\tCOLOR\tTAG\n")
	for _, c := range reg.All() {
		fmt.Fprintf(tw, "%s\t%v\t%d\n", c.Name, c.Color, uint8(c.Color))
	}
	return tw.Flush()
}

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
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"gvisor.dev/mtegate/mtectl/cmd/util"
	"gvisor.dev/mtegate/mtectl/config"
	"gvisor.dev/mtegate/pkg/compartment"
	"gvisor.dev/mtegate/pkg/log"
)

// demoSize is the size of the region handed between compartments.
const demoSize = 64

// Demo implements subcommands.Command for the "demo" command.
type Demo struct {
	from string
	to   string
}

// Name implements subcommands.Command.Name.
func (*Demo) Name() string {
	return "demo"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Demo) Synopsis() string {
	return "hand a tagged region to another compartment and back"
}

// Usage implements subcommands.Command.Usage.
func (*Demo) Usage() string {
	return `demo [flags] - allocate a 64-byte region in one compartment, call a function in another
compartment with it, and show the region's color at each step.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Demo) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.from, "from", "main", "compartment owning the region.")
	f.StringVar(&d.to, "to", "guest", "compartment called with the region.")
}

// Execute implements subcommands.Command.Execute.
func (d *Demo) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	sys, err := newSystem(conf)
	if err != nil {
		return util.Errorf("demo failed: %v", err)
	}
	if err := d.run(os.Stdout, sys); err != nil {
		return util.Errorf("demo failed: %v", err)
	}
	return subcommands.ExitSuccess
}

func (d *Demo) run(w io.Writer, sys *system) error {
	from, err := sys.reg.Lookup(d.from)
	if err != nil {
		return err
	}
	to, err := sys.reg.Lookup(d.to)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "tag storage: %s\n", storeKind(sys.alloc.Store()))

	r, p, err := sys.alloc.Malloc(demoSize, from.Color)
	if err != nil {
		return err
	}
	defer func() {
		if err := sys.alloc.Free(r); err != nil {
			log.Warningf("Freeing %v: %v", r.Info(), err)
		}
	}()
	msg := []byte("hello from " + from.Name)
	if err := p.WriteAt(msg, 0); err != nil {
		return err
	}
	fmt.Fprintf(w, "allocated %v in %v\n", r.Info(), from)
	fmt.Fprintf(w, "calls: %d\n", sys.counter.Count())

	upper := compartment.NewCallee("upper", func(f *compartment.Frame) error {
		fmt.Fprintf(w, "in %v: region is %v\n", to, r.Color())
		buf := make([]byte, len(msg))
		if err := f.Pointer(0).ReadAt(buf, 0); err != nil {
			return err
		}
		return f.Pointer(0).WriteAt(bytes.ToUpper(buf), 0)
	}, compartment.KindPointer)
	if err := sys.reg.Call(upper, from.Name, to.Name, compartment.Whole(r)); err != nil {
		return err
	}

	got := make([]byte, len(msg))
	if err := p.ReadAt(got, 0); err != nil {
		return err
	}
	fmt.Fprintf(w, "returned to %v: region is %v, contents %q\n", from, r.Color(), got)
	fmt.Fprintf(w, "calls: %d\n", sys.counter.Count())
	return nil
}

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
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"gvisor.dev/mtegate/mtectl/cmd/util"
	"gvisor.dev/mtegate/mtectl/config"
	"gvisor.dev/mtegate/pkg/compartment"
	"gvisor.dev/mtegate/pkg/log"
	"gvisor.dev/mtegate/pkg/metric"
	"gvisor.dev/mtegate/pkg/mte"
	"gvisor.dev/mtegate/pkg/prometheus"
)

// Bench implements subcommands.Command for the "bench" command.
type Bench struct {
	goroutines int
	calls      int
	regions    int
	size       uint64
	metrics    bool
}

// Name implements subcommands.Command.Name.
func (*Bench) Name() string {
	return "bench"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Bench) Synopsis() string {
	return "measure cross-compartment calls on shared regions"
}

// Usage implements subcommands.Command.Usage.
func (*Bench) Usage() string {
	return `bench [flags] - make cross-compartment calls from several goroutines on shared regions.

Regions are owned by the first compartment in color order, and calls go to the
others in turn.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Bench) SetFlags(f *flag.FlagSet) {
	f.IntVar(&b.goroutines, "goroutines", 8, "number of goroutines making calls.")
	f.IntVar(&b.calls, "calls", 1000, "number of calls per goroutine.")
	f.IntVar(&b.regions, "regions", 4, "number of shared regions.")
	f.Uint64Var(&b.size, "size", 4096, "size of each region in bytes.")
	f.BoolVar(&b.metrics, "metrics", true, "print metrics in Prometheus format after the run.")
}

// Execute implements subcommands.Command.Execute.
func (b *Bench) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || b.goroutines < 1 || b.calls < 0 || b.regions < 1 || b.size < 8 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	sys, err := newSystem(conf)
	if err != nil {
		return util.Errorf("bench failed: %v", err)
	}
	if err := b.run(ctx, os.Stdout, sys); err != nil {
		return util.Errorf("bench failed: %v", err)
	}
	return subcommands.ExitSuccess
}

func (b *Bench) run(ctx context.Context, w io.Writer, sys *system) error {
	comps := sys.reg.All()
	if len(comps) < 2 {
		return fmt.Errorf("need at least 2 compartments, have %d", len(comps))
	}
	owner, callees := comps[0], comps[1:]

	regions := make([]*mte.Region, 0, b.regions)
	pointers := make([]mte.Pointer, 0, b.regions)
	defer func() {
		for _, r := range regions {
			if err := sys.alloc.Free(r); err != nil {
				log.Warningf("Freeing %v: %v", r.Info(), err)
			}
		}
	}()
	for i := 0; i < b.regions; i++ {
		r, p, err := sys.alloc.Malloc(b.size, owner.Color)
		if err != nil {
			return err
		}
		regions = append(regions, r)
		pointers = append(pointers, p)
	}

	touch := compartment.NewCallee("touch", func(f *compartment.Frame) error {
		p := f.Pointer(0)
		v, err := p.Load64(0)
		if err != nil {
			return err
		}
		return p.Store64(0, v+f.Scalar(1))
	}, compartment.KindPointer, compartment.KindScalar)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < b.goroutines; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < b.calls; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				k := (i + j) % len(pointers)
				to := callees[(i+j)%len(callees)]
				if err := sys.reg.Gateway().Call(touch, owner.Color, to.Color, compartment.Tagged(pointers[k], b.size), compartment.Scalar(1)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	var total uint64
	for _, p := range pointers {
		v, err := p.Load64(0)
		if err != nil {
			return err
		}
		total += v
	}
	n := b.goroutines * b.calls
	fmt.Fprintf(w, "%d calls from %v to %d compartments on %d regions in %v", n, owner, len(callees), len(regions), elapsed)
	if n > 0 {
		fmt.Fprintf(w, " (%v/call)", elapsed/time.Duration(n))
	}
	fmt.Fprintf(w, "\ncounted %d calls, %d updates\n", sys.counter.Count(), total)

	if b.metrics {
		if _, err := metric.Snapshot().Write(w, prometheus.ExportOptions{}); err != nil {
			return err
		}
	}
	return nil
}

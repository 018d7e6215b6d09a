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
	"errors"
	"fmt"
	"sort"

	"gvisor.dev/mtegate/pkg/mte"
	"gvisor.dev/mtegate/pkg/sync"
)

var (
	// ErrUnknownCompartment is returned for names that were never defined.
	ErrUnknownCompartment = errors.New("unknown compartment")

	// ErrDuplicate is returned when a compartment name or color is defined
	// twice.
	ErrDuplicate = errors.New("compartment already defined")

	// ErrReservedColor is returned when defining a compartment with NoColor
	// or a color outside the tag field.
	ErrReservedColor = errors.New("color cannot be assigned to a compartment")
)

// Compartment is a named color.
type Compartment struct {
	Name  string    `toml:"name"`
	Color mte.Color `toml:"color"`
}

// String implements fmt.Stringer.String.
func (c Compartment) String() string {
	return fmt.Sprintf("%s(%v)", c.Name, c.Color)
}

// Registry is the set of compartments of a process, with the gateway used
// to call between them.
type Registry struct {
	gw *Gateway

	mu      sync.RWMutex
	byName  map[string]Compartment
	byColor map[mte.Color]Compartment
}

// NewRegistry returns an empty Registry calling through gw.
func NewRegistry(gw *Gateway) *Registry {
	return &Registry{
		gw:      gw,
		byName:  make(map[string]Compartment),
		byColor: make(map[mte.Color]Compartment),
	}
}

// Gateway returns the registry's gateway.
func (r *Registry) Gateway() *Gateway {
	return r.gw
}

// Define adds the compartment name with color c.
func (r *Registry) Define(name string, c mte.Color) (Compartment, error) {
	if name == "" {
		return Compartment{}, errors.New("empty compartment name")
	}
	if c == mte.NoColor || !c.Valid() {
		return Compartment{}, fmt.Errorf("%w: %v for %q", ErrReservedColor, c, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byName[name]; ok {
		return Compartment{}, fmt.Errorf("%w: name %q is %v", ErrDuplicate, name, old)
	}
	if old, ok := r.byColor[c]; ok {
		return Compartment{}, fmt.Errorf("%w: color %v is %v", ErrDuplicate, c, old)
	}
	comp := Compartment{Name: name, Color: c}
	r.byName[name] = comp
	r.byColor[c] = comp
	return comp, nil
}

// Lookup returns the compartment called name.
func (r *Registry) Lookup(name string) (Compartment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comp, ok := r.byName[name]
	if !ok {
		return Compartment{}, fmt.Errorf("%w: %q", ErrUnknownCompartment, name)
	}
	return comp, nil
}

// ByColor returns the compartment with color c.
func (r *Registry) ByColor(c mte.Color) (Compartment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comp, ok := r.byColor[c]
	return comp, ok
}

// All returns every compartment, ordered by color.
func (r *Registry) All() []Compartment {
	r.mu.RLock()
	all := make([]Compartment, 0, len(r.byColor))
	for _, comp := range r.byColor {
		all = append(all, comp)
	}
	r.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].Color < all[j].Color })
	return all
}

// Call calls c in compartment to on behalf of compartment from.
func (r *Registry) Call(c *Callee, from, to string, args ...Arg) error {
	src, err := r.Lookup(from)
	if err != nil {
		return err
	}
	dst, err := r.Lookup(to)
	if err != nil {
		return err
	}
	return r.gw.Call(c, src.Color, dst.Color, args...)
}

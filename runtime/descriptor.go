package runtime

import (
	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/engine"
	"github.com/simforge/sim-runtime/errors"
)

// Descriptor is an immutable view of one loaded module: its name and its
// declared variable table. One descriptor backs any number of instances.
type Descriptor struct {
	name   string
	module *engine.Module
	vars   []simruntime.Variable
	byName map[string]int
}

func newDescriptor(name string, mod *engine.Module) *Descriptor {
	vars := mod.Variables()
	byName := make(map[string]int, len(vars))
	for i, v := range vars {
		byName[v.Name] = i
	}
	return &Descriptor{name: name, module: mod, vars: vars, byName: byName}
}

// Name returns the module name the descriptor was loaded under.
func (d *Descriptor) Name() string {
	return d.name
}

// Variables returns the declared variable table in declaration order.
// The returned slice is shared; callers must not mutate it.
func (d *Descriptor) Variables() []simruntime.Variable {
	return d.vars
}

// Slot is a resolved variable binding: the checked coordinates of one
// variable of one module. Slots are plain values, valid for every instance
// of the descriptor they were resolved against.
type Slot struct {
	Name      string
	Type      simruntime.VarType
	Direction simruntime.Direction
	Index     uint32
}

// Resolve looks up a variable by name and checks the requested type against
// the declared one. Resolving the same name and type twice yields identical
// slots.
func (d *Descriptor) Resolve(name string, t simruntime.VarType) (Slot, error) {
	i, ok := d.byName[name]
	if !ok {
		return Slot{}, errors.VariableNotFound(d.name, name)
	}
	v := d.vars[i]
	if v.Type != t {
		return Slot{}, errors.TypeMismatch(name, v.Type, t)
	}
	return Slot{Name: v.Name, Type: v.Type, Direction: v.Direction, Index: v.Index}, nil
}

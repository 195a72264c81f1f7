package runtime

import (
	"context"
	"sync"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/engine"
	"github.com/simforge/sim-runtime/errors"
)

// Instance is one running simulation with private native state.
//
// All methods are safe for concurrent use; access to the native state is
// serialized per instance. Distinct instances share nothing and can be
// driven from different goroutines freely.
type Instance struct {
	id     string
	desc   *Descriptor
	native *engine.Instance

	mu            sync.Mutex
	status        simruntime.Status
	simTime       float64
	steps         uint64
	divergeStreak int
	released      bool
}

// ID returns the instance's unique id.
func (i *Instance) ID() string {
	return i.id
}

// Descriptor returns the descriptor the instance was created from.
func (i *Instance) Descriptor() *Descriptor {
	return i.desc
}

// Status returns the instance's current lifecycle status.
func (i *Instance) Status() simruntime.Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// SimulatedTime returns the accumulated simulated seconds. It advances only
// when a native step actually ran, so rejected timesteps leave it unchanged.
func (i *Instance) SimulatedTime() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.simTime
}

// StepCount returns the number of completed native steps.
func (i *Instance) StepCount() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.steps
}

// guard is the common access precondition: the instance must not be
// released, and must not be in the terminal Failed state. Unstable
// instances remain fully accessible. Callers hold i.mu.
func (i *Instance) guard() *errors.Error {
	if i.released {
		return errors.Released(i.id)
	}
	if i.status == simruntime.Failed {
		return errors.Terminal(i.id)
	}
	return nil
}

// Set writes a value through a resolved slot. Only Input and Parameter
// slots are writable; the value's type must match the slot's.
func (i *Instance) Set(ctx context.Context, slot Slot, v simruntime.Value) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.guard(); err != nil {
		return err
	}
	if slot.Direction == simruntime.Output {
		return errors.WrongDirection(slot.Name, slot.Direction, "write").WithInstance(i.id)
	}
	if v.Type != slot.Type {
		return errors.TypeMismatch(slot.Name, slot.Type, v.Type).WithInstance(i.id)
	}
	return i.writeValue(ctx, slot.Index, v)
}

// Get reads a value through a resolved slot. Only Output and Parameter
// slots are readable.
func (i *Instance) Get(ctx context.Context, slot Slot) (simruntime.Value, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.guard(); err != nil {
		return simruntime.Value{}, err
	}
	if slot.Direction == simruntime.Input {
		return simruntime.Value{},
			errors.WrongDirection(slot.Name, slot.Direction, "read").WithInstance(i.id)
	}
	return i.readValue(ctx, slot.Index, slot.Type)
}

// SetByName resolves name against the descriptor and writes v. This is the
// convenience path; hosts exchanging values every step should resolve a
// Slot once and use Set.
func (i *Instance) SetByName(ctx context.Context, name string, v simruntime.Value) error {
	slot, err := i.desc.Resolve(name, v.Type)
	if err != nil {
		return err
	}
	return i.Set(ctx, slot, v)
}

// GetByName resolves name with the given type and reads its value.
func (i *Instance) GetByName(ctx context.Context, name string, t simruntime.VarType) (simruntime.Value, error) {
	slot, err := i.desc.Resolve(name, t)
	if err != nil {
		return simruntime.Value{}, err
	}
	return i.Get(ctx, slot)
}

// Outputs reads every Output variable in declaration order. The snapshot is
// always complete: it either returns all outputs or an error.
func (i *Instance) Outputs(ctx context.Context) ([]simruntime.NamedValue, error) {
	return i.snapshot(ctx, simruntime.Output)
}

// Parameters reads every Parameter variable in declaration order.
func (i *Instance) Parameters(ctx context.Context) ([]simruntime.NamedValue, error) {
	return i.snapshot(ctx, simruntime.Parameter)
}

func (i *Instance) snapshot(ctx context.Context, dir simruntime.Direction) ([]simruntime.NamedValue, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.guard(); err != nil {
		return nil, err
	}

	var out []simruntime.NamedValue
	for _, v := range i.desc.vars {
		if v.Direction != dir {
			continue
		}
		val, err := i.readValue(ctx, v.Index, v.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, simruntime.NamedValue{Name: v.Name, Value: val})
	}
	return out, nil
}

// Reset tears down the native state, re-runs native init, re-seeds declared
// start values and returns the instance to Ready with zeroed time and step
// counters. Works from any non-released state, including Failed.
func (i *Instance) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.released {
		return errors.Released(i.id)
	}

	if err := i.native.Teardown(ctx); err != nil {
		i.status = simruntime.Failed
		return errors.InitFailed("teardown during reset", err).WithInstance(i.id)
	}
	if err := i.native.Init(ctx); err != nil {
		i.status = simruntime.Failed
		return errors.InitFailed("reinit during reset", err).WithInstance(i.id)
	}
	if err := i.seedStartsLocked(ctx); err != nil {
		i.status = simruntime.Failed
		return err
	}

	i.status = simruntime.Ready
	i.simTime = 0
	i.steps = 0
	i.divergeStreak = 0
	return nil
}

// seedStarts writes declared start values for inputs and parameters.
// Output start values are the module's own business via native init.
func (i *Instance) seedStarts(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.seedStartsLocked(ctx)
}

func (i *Instance) seedStartsLocked(ctx context.Context) error {
	for _, v := range i.desc.vars {
		if !v.HasStart || v.Direction == simruntime.Output {
			continue
		}
		if err := i.writeValue(ctx, v.Index, v.Start); err != nil {
			return err
		}
	}
	return nil
}

func (i *Instance) writeValue(ctx context.Context, index uint32, v simruntime.Value) error {
	var err error
	switch v.Type {
	case simruntime.Real:
		err = i.native.SetReal(ctx, index, v.Real)
	case simruntime.Boolean:
		err = i.native.SetBool(ctx, index, v.Bool)
	case simruntime.Integer:
		err = i.native.SetInt(ctx, index, v.Int)
	}
	if err != nil {
		i.status = simruntime.Failed
		return errors.NativeFault(i.id, "variable write trapped", err)
	}
	return nil
}

func (i *Instance) readValue(ctx context.Context, index uint32, t simruntime.VarType) (simruntime.Value, error) {
	var (
		val simruntime.Value
		err error
	)
	switch t {
	case simruntime.Real:
		var f float64
		if f, err = i.native.GetReal(ctx, index); err == nil {
			val = simruntime.RealValue(f)
		}
	case simruntime.Boolean:
		var b bool
		if b, err = i.native.GetBool(ctx, index); err == nil {
			val = simruntime.BoolValue(b)
		}
	case simruntime.Integer:
		var n int32
		if n, err = i.native.GetInt(ctx, index); err == nil {
			val = simruntime.IntValue(n)
		}
	}
	if err != nil {
		i.status = simruntime.Failed
		return simruntime.Value{}, errors.NativeFault(i.id, "variable read trapped", err)
	}
	return val, nil
}

// release is the idempotent teardown used by Registry.Release. The first
// return reports whether this call performed the release.
func (i *Instance) release(ctx context.Context) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.released {
		return false, nil
	}
	i.released = true

	err := i.native.Teardown(ctx)
	if closeErr := i.native.Close(ctx); err == nil {
		err = closeErr
	}
	return true, err
}

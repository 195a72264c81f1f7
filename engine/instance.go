package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Instance is one running simulation module instantiation.
//
// It is NOT safe for concurrent use from multiple goroutines. The runtime
// layer above serializes access per instance; two distinct instances can be
// driven in parallel because they share no memory.
type Instance struct {
	module   api.Module
	mem      api.Memory
	maxIndex int64
	state    uint32 // native state handle returned by sim_init
	stack    []uint64

	initFn     api.Function
	stepFn     api.Function
	getRealFn  api.Function
	setRealFn  api.Function
	getBoolFn  api.Function
	setBoolFn  api.Function
	getIntFn   api.Function
	setIntFn   api.Function
	teardownFn api.Function
}

// Init calls the module's native init entry point and records the returned
// state handle. A zero handle means the module reported failure. The handle
// is bounds-checked against the instance memory so every declared variable
// cell is addressable ("inconsistent state size").
func (i *Instance) Init(ctx context.Context) error {
	if err := i.initFn.CallWithStack(ctx, i.stack[:1]); err != nil {
		return fmt.Errorf("native init trapped: %w", err)
	}
	handle := api.DecodeU32(i.stack[0])
	if handle == 0 {
		return fmt.Errorf("native init reported failure")
	}

	if i.maxIndex >= 0 {
		need := uint64(handle) + uint64(CellSize)*uint64(i.maxIndex+1)
		if need > uint64(i.mem.Size()) {
			return fmt.Errorf("state handle %d leaves %d declared cells outside the %d-byte memory",
				handle, i.maxIndex+1, i.mem.Size())
		}
	}

	i.state = handle
	return nil
}

// State returns the native state handle. Zero until Init succeeds.
func (i *Instance) State() uint32 {
	return i.state
}

// Step advances the native state by dt seconds. The returned code is the
// module's solver status: 0 on success, non-zero on non-convergence.
func (i *Instance) Step(ctx context.Context, dt float64) (int32, error) {
	i.stack[0] = api.EncodeU32(i.state)
	i.stack[1] = api.EncodeF64(dt)
	if err := i.stepFn.CallWithStack(ctx, i.stack[:2]); err != nil {
		return 0, fmt.Errorf("native step trapped: %w", err)
	}
	return int32(api.DecodeU32(i.stack[0])), nil
}

// GetReal reads the real variable at the given native index.
func (i *Instance) GetReal(ctx context.Context, index uint32) (float64, error) {
	i.stack[0] = api.EncodeU32(i.state)
	i.stack[1] = api.EncodeU32(index)
	if err := i.getRealFn.CallWithStack(ctx, i.stack[:2]); err != nil {
		return 0, fmt.Errorf("native get_real trapped: %w", err)
	}
	return api.DecodeF64(i.stack[0]), nil
}

// SetReal writes the real variable at the given native index.
func (i *Instance) SetReal(ctx context.Context, index uint32, v float64) error {
	i.stack[0] = api.EncodeU32(i.state)
	i.stack[1] = api.EncodeU32(index)
	i.stack[2] = api.EncodeF64(v)
	if err := i.setRealFn.CallWithStack(ctx, i.stack[:3]); err != nil {
		return fmt.Errorf("native set_real trapped: %w", err)
	}
	return nil
}

// GetBool reads the boolean variable at the given native index.
func (i *Instance) GetBool(ctx context.Context, index uint32) (bool, error) {
	i.stack[0] = api.EncodeU32(i.state)
	i.stack[1] = api.EncodeU32(index)
	if err := i.getBoolFn.CallWithStack(ctx, i.stack[:2]); err != nil {
		return false, fmt.Errorf("native get_bool trapped: %w", err)
	}
	return api.DecodeU32(i.stack[0]) != 0, nil
}

// SetBool writes the boolean variable at the given native index.
func (i *Instance) SetBool(ctx context.Context, index uint32, v bool) error {
	i.stack[0] = api.EncodeU32(i.state)
	i.stack[1] = api.EncodeU32(index)
	if v {
		i.stack[2] = 1
	} else {
		i.stack[2] = 0
	}
	if err := i.setBoolFn.CallWithStack(ctx, i.stack[:3]); err != nil {
		return fmt.Errorf("native set_bool trapped: %w", err)
	}
	return nil
}

// GetInt reads the integer variable at the given native index.
func (i *Instance) GetInt(ctx context.Context, index uint32) (int32, error) {
	i.stack[0] = api.EncodeU32(i.state)
	i.stack[1] = api.EncodeU32(index)
	if err := i.getIntFn.CallWithStack(ctx, i.stack[:2]); err != nil {
		return 0, fmt.Errorf("native get_int trapped: %w", err)
	}
	return int32(api.DecodeU32(i.stack[0])), nil
}

// SetInt writes the integer variable at the given native index.
func (i *Instance) SetInt(ctx context.Context, index uint32, v int32) error {
	i.stack[0] = api.EncodeU32(i.state)
	i.stack[1] = api.EncodeU32(index)
	i.stack[2] = api.EncodeI32(v)
	if err := i.setIntFn.CallWithStack(ctx, i.stack[:3]); err != nil {
		return fmt.Errorf("native set_int trapped: %w", err)
	}
	return nil
}

// Teardown calls the module's native teardown entry point.
func (i *Instance) Teardown(ctx context.Context) error {
	i.stack[0] = api.EncodeU32(i.state)
	if err := i.teardownFn.CallWithStack(ctx, i.stack[:1]); err != nil {
		return fmt.Errorf("native teardown trapped: %w", err)
	}
	i.state = 0
	return nil
}

// Close releases the instance and its linear memory.
func (i *Instance) Close(ctx context.Context) error {
	if i.module == nil {
		return nil
	}
	err := i.module.Close(ctx)
	i.module = nil
	i.mem = nil
	i.initFn = nil
	i.stepFn = nil
	i.getRealFn = nil
	i.setRealFn = nil
	i.getBoolFn = nil
	i.setBoolFn = nil
	i.getIntFn = nil
	i.setIntFn = nil
	i.teardownFn = nil
	i.stack = nil
	return err
}

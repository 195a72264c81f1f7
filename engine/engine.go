package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/vartab"
	"github.com/simforge/sim-runtime/wasm"
)

// Engine wraps a wazero runtime configured for simulation modules.
type Engine struct {
	runtime wazero.Runtime
}

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages caps the linear memory of every instance, in 64KiB
	// pages. 0 means the wazero default (4GiB).
	MemoryLimitPages uint32
}

// New creates a wazero-backed engine.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}, nil
}

// Close releases the underlying runtime. All instances must be closed first.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Module is a compiled simulation module: the wazero compilation unit plus
// the decoded variable table. One Module may back many instances.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	vars     []simruntime.Variable
	maxIndex int64
}

// LoadModule compiles a simulation module binary, verifies its entry-point
// contract and decodes its variable table.
func (e *Engine) LoadModule(ctx context.Context, wasmBytes []byte) (*Module, error) {
	section, err := wasm.CustomSection(wasmBytes, vartab.SectionName)
	if err != nil {
		return nil, fmt.Errorf("variable table: %w", err)
	}
	vars, err := vartab.Decode(section)
	if err != nil {
		return nil, fmt.Errorf("variable table: %w", err)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}
	if err := validateExports(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("entry-point contract: %w", err)
	}

	Logger().Debug("module compiled",
		zap.Int("variables", len(vars)))

	return &Module{
		engine:   e,
		compiled: compiled,
		vars:     vars,
		maxIndex: vartab.MaxIndex(vars),
	}, nil
}

// Variables returns the module's declared variable table in declaration order.
// The returned slice is shared; callers must not mutate it.
func (m *Module) Variables() []simruntime.Variable {
	return m.vars
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates a fresh instance with its own linear memory.
// The native init entry point is not called yet; see Instance.Init.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	// Anonymous name so many instances of one module can coexist.
	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled,
		wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}

	inst := &Instance{
		module:   mod,
		mem:      mod.Memory(),
		maxIndex: m.maxIndex,
		stack:    make([]uint64, 4),

		initFn:     mod.ExportedFunction(ExportInit),
		stepFn:     mod.ExportedFunction(ExportStep),
		getRealFn:  mod.ExportedFunction(ExportGetReal),
		setRealFn:  mod.ExportedFunction(ExportSetReal),
		getBoolFn:  mod.ExportedFunction(ExportGetBool),
		setBoolFn:  mod.ExportedFunction(ExportSetBool),
		getIntFn:   mod.ExportedFunction(ExportGetInt),
		setIntFn:   mod.ExportedFunction(ExportSetInt),
		teardownFn: mod.ExportedFunction(ExportTeardown),
	}
	return inst, nil
}

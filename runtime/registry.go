package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/xid"
	"go.uber.org/zap"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/engine"
	"github.com/simforge/sim-runtime/errors"
	"github.com/simforge/sim-runtime/sink"
)

// ArtifactExt is the file extension of compiled simulation modules.
const ArtifactExt = ".wasm"

// DefaultTimestep is the scheduler timestep used when none is configured.
const DefaultTimestep = 1.0 / 60

// Options configures a Registry.
type Options struct {
	// SearchPaths are the directories scanned for module artifacts, in
	// order. Empty means the current directory.
	SearchPaths []string

	// MemoryLimitPages caps each instance's linear memory in 64KiB pages.
	// 0 means the engine default.
	MemoryLimitPages uint32

	// ErrorRetention bounds the per-instance history of the error sink.
	// 0 means sink.DefaultRetention.
	ErrorRetention int

	// Logger receives runtime logs. Nil means no logging.
	Logger *zap.Logger
}

// Registry loads simulation modules and creates instances from them.
// Descriptors are cached per module name; loading the same name twice
// returns the same Descriptor. Safe for concurrent use.
type Registry struct {
	engine *engine.Engine
	paths  []string
	log    *zap.Logger
	sink   *sink.Log

	mu    sync.RWMutex
	cache map[string]*Descriptor
}

// NewRegistry creates a registry backed by a fresh engine.
func NewRegistry(ctx context.Context, opts Options) (*Registry, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	eng, err := engine.New(ctx, &engine.Config{MemoryLimitPages: opts.MemoryLimitPages})
	if err != nil {
		return nil, errors.LoadFailed("engine creation failed", err)
	}

	paths := opts.SearchPaths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	return &Registry{
		engine: eng,
		paths:  paths,
		log:    log,
		sink:   sink.New(opts.ErrorRetention),
		cache:  make(map[string]*Descriptor),
	}, nil
}

// Sink returns the registry's error sink.
func (r *Registry) Sink() *sink.Log {
	return r.sink
}

// Load resolves a module name to an artifact on the search paths, compiles
// it and returns its descriptor. Results are cached: a second Load of the
// same name returns the descriptor of the first, so identity comparisons
// on descriptors are meaningful.
//
// A name containing a path separator or the artifact extension is treated
// as a direct file path instead of a search-path lookup.
func (r *Registry) Load(ctx context.Context, name string) (*Descriptor, error) {
	r.mu.RLock()
	d, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	path, err := r.resolveArtifact(name)
	if err != nil {
		return nil, err
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, errors.LoadFailed(fmt.Sprintf("reading %s", path), readErr)
	}

	mod, loadErr := r.engine.LoadModule(ctx, raw)
	if loadErr != nil {
		return nil, errors.LoadFailed(fmt.Sprintf("module %q rejected", name), loadErr)
	}

	desc := newDescriptor(name, mod)

	r.mu.Lock()
	if raced, ok := r.cache[name]; ok {
		// Another goroutine loaded the same name first; keep its
		// descriptor so identity stays stable.
		r.mu.Unlock()
		_ = mod.Close(ctx)
		return raced, nil
	}
	r.cache[name] = desc
	r.mu.Unlock()

	r.log.Info("module loaded",
		zap.String("module", name),
		zap.String("path", path),
		zap.Int("variables", len(desc.Variables())))
	return desc, nil
}

func (r *Registry) resolveArtifact(name string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) || strings.HasSuffix(name, ArtifactExt) {
		if _, err := os.Stat(name); err != nil {
			return "", errors.LoadFailed(fmt.Sprintf("artifact %s not found", name), err)
		}
		return name, nil
	}

	for _, dir := range r.paths {
		path := filepath.Join(dir, name+ArtifactExt)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.LoadFailed(
		fmt.Sprintf("module %q not found in search path %v", name, r.paths), nil)
}

// Instantiate creates a fresh instance of the described module, runs its
// native init and seeds declared start values for inputs and parameters.
// Outputs are left to the module's own init.
func (r *Registry) Instantiate(ctx context.Context, desc *Descriptor) (*Instance, error) {
	native, err := desc.module.Instantiate(ctx)
	if err != nil {
		return nil, errors.InitFailed(fmt.Sprintf("module %q", desc.Name()), err)
	}
	if err := native.Init(ctx); err != nil {
		_ = native.Close(ctx)
		return nil, errors.InitFailed(fmt.Sprintf("module %q", desc.Name()), err)
	}

	inst := &Instance{
		id:     xid.New().String(),
		desc:   desc,
		native: native,
		status: simruntime.Ready,
	}

	if err := inst.seedStarts(ctx); err != nil {
		_ = native.Close(ctx)
		return nil, err
	}

	r.log.Debug("instance created",
		zap.String("module", desc.Name()),
		zap.String("instance", inst.id))
	return inst, nil
}

// Release tears down the instance's native state and frees its memory.
// Releasing an already-released instance is a no-op. Errors from native
// teardown are logged and reported to the sink, never returned: release
// always completes.
func (r *Registry) Release(ctx context.Context, inst *Instance) {
	released, err := inst.release(ctx)
	if !released {
		return
	}
	if err != nil {
		simErr := errors.InitFailed("teardown failed", err).WithInstance(inst.id)
		r.sink.Record(inst.id, simErr)
		r.log.Warn("instance teardown failed",
			zap.String("instance", inst.id),
			zap.Error(err))
		return
	}
	r.log.Debug("instance released", zap.String("instance", inst.id))
}

// Close releases the engine and every compiled module. All instances must
// be released first.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.cache = make(map[string]*Descriptor)
	r.mu.Unlock()
	return r.engine.Close(ctx)
}

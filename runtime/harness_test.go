package runtime_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	stderrors "errors"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/errors"
	"github.com/simforge/sim-runtime/modgen"
	simrt "github.com/simforge/sim-runtime/runtime"
)

// newRegistry writes the given module artifacts into a temp directory and
// returns a registry searching it.
func newRegistry(t *testing.T, modules map[string][]byte) (*simrt.Registry, context.Context) {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	for name, raw := range modules {
		path := filepath.Join(dir, name+simrt.ArtifactExt)
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reg, err := simrt.NewRegistry(ctx, simrt.Options{SearchPaths: []string{dir}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close(ctx) })
	return reg, ctx
}

func mustInstance(t *testing.T, reg *simrt.Registry, ctx context.Context, name string) *simrt.Instance {
	t.Helper()
	desc, err := reg.Load(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := reg.Instantiate(ctx, desc)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Release(ctx, inst) })
	return inst
}

func mustSlot(t *testing.T, inst *simrt.Instance, name string, typ simruntime.VarType) simrt.Slot {
	t.Helper()
	slot, err := inst.Descriptor().Resolve(name, typ)
	if err != nil {
		t.Fatal(err)
	}
	return slot
}

// wantKind asserts err matches the given error kind.
func wantKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !stderrors.Is(err, &errors.Error{Kind: kind}) {
		t.Fatalf("expected %s error, got: %v", kind, err)
	}
}

// standardModules is the artifact set most tests share.
func standardModules() map[string][]byte {
	return map[string][]byte{
		"thermostat":  modgen.Thermostat(modgen.DefaultThermostat()),
		"accumulator": modgen.Accumulator(),
		"divergent":   modgen.Divergent(3),
		"nonconv":     modgen.NonConverging(3),
	}
}

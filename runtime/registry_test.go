package runtime_test

import (
	"testing"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/errors"
)

func TestLoadReturnsCachedDescriptor(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())

	first, err := reg.Load(ctx, "thermostat")
	if err != nil {
		t.Fatal(err)
	}
	second, err := reg.Load(ctx, "thermostat")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("loading the same name twice must return the same descriptor")
	}
	if first.Name() != "thermostat" {
		t.Fatalf("descriptor name = %q", first.Name())
	}
}

func TestLoadUnknownModule(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())

	_, err := reg.Load(ctx, "no-such-module")
	wantKind(t, err, errors.KindLoad)
}

func TestLoadMalformedArtifact(t *testing.T) {
	reg, ctx := newRegistry(t, map[string][]byte{
		"broken": []byte("not a wasm binary"),
	})

	_, err := reg.Load(ctx, "broken")
	wantKind(t, err, errors.KindLoad)
}

func TestResolveSlots(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	desc, err := reg.Load(ctx, "thermostat")
	if err != nil {
		t.Fatal(err)
	}

	slot, err := desc.Resolve("temperature", simruntime.Real)
	if err != nil {
		t.Fatal(err)
	}
	if slot.Direction != simruntime.Output || slot.Index != 1 {
		t.Fatalf("slot = %+v", slot)
	}

	// Resolution is idempotent: same coordinates every time.
	again, err := desc.Resolve("temperature", simruntime.Real)
	if err != nil {
		t.Fatal(err)
	}
	if slot != again {
		t.Fatalf("repeated resolve differs: %+v vs %+v", slot, again)
	}
}

func TestResolveUnknownName(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	desc, err := reg.Load(ctx, "thermostat")
	if err != nil {
		t.Fatal(err)
	}

	_, err = desc.Resolve("pressure", simruntime.Real)
	wantKind(t, err, errors.KindVariableNotFound)
}

func TestResolveTypeMismatch(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	desc, err := reg.Load(ctx, "thermostat")
	if err != nil {
		t.Fatal(err)
	}

	// temperature is declared Real.
	_, err = desc.Resolve("temperature", simruntime.Boolean)
	wantKind(t, err, errors.KindTypeMismatch)
}

func TestInstantiateSeedsDeclaredStarts(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")

	params, err := inst.Parameters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{
		"supplyTemp":  45,
		"ambientTemp": 10,
		"heatRate":    1.2,
		"coolRate":    0.25,
	}
	if len(params) != len(want) {
		t.Fatalf("parameter count = %d, want %d", len(params), len(want))
	}
	for _, p := range params {
		if p.Value.Real != want[p.Name] {
			t.Errorf("%s = %g, want %g", p.Name, p.Value.Real, want[p.Name])
		}
	}

	outs, err := inst.Outputs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 1 || outs[0].Name != "temperature" || outs[0].Value.Real != 15 {
		t.Fatalf("outputs = %v", outs)
	}
}

func TestInstanceIDsAreUnique(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	a := mustInstance(t, reg, ctx, "accumulator")
	b := mustInstance(t, reg, ctx, "accumulator")

	if a.ID() == b.ID() {
		t.Fatal("two instances share an id")
	}
	if a.Status() != simruntime.Ready || b.Status() != simruntime.Ready {
		t.Fatal("fresh instances must be Ready")
	}
}

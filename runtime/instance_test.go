package runtime_test

import (
	"math"
	"testing"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/errors"
	simrt "github.com/simforge/sim-runtime/runtime"
)

func TestSetRejectsOutputWrites(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")

	slot := mustSlot(t, inst, "temperature", simruntime.Real)
	err := inst.Set(ctx, slot, simruntime.RealValue(99))
	wantKind(t, err, errors.KindWrongDirection)
}

func TestGetRejectsInputReads(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")

	slot := mustSlot(t, inst, "heaterOn", simruntime.Boolean)
	_, err := inst.Get(ctx, slot)
	wantKind(t, err, errors.KindWrongDirection)
}

func TestSetRejectsMismatchedValueType(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")

	slot := mustSlot(t, inst, "heaterOn", simruntime.Boolean)
	err := inst.Set(ctx, slot, simruntime.RealValue(1))
	wantKind(t, err, errors.KindTypeMismatch)
}

func TestParameterReadWrite(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")

	slot := mustSlot(t, inst, "supplyTemp", simruntime.Real)
	if err := inst.Set(ctx, slot, simruntime.RealValue(55)); err != nil {
		t.Fatal(err)
	}
	got, err := inst.Get(ctx, slot)
	if err != nil {
		t.Fatal(err)
	}
	if got.Real != 55 {
		t.Fatalf("supplyTemp = %g, want 55", got.Real)
	}
}

func TestSetByNameResolvesAndChecks(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")

	if err := inst.SetByName(ctx, "heaterOn", simruntime.BoolValue(true)); err != nil {
		t.Fatal(err)
	}
	err := inst.SetByName(ctx, "missing", simruntime.RealValue(0))
	wantKind(t, err, errors.KindVariableNotFound)
}

func TestThermostatClosedLoop(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")
	stepper := simrt.NewStepper(nil)

	heater := mustSlot(t, inst, "heaterOn", simruntime.Boolean)
	temp := mustSlot(t, inst, "temperature", simruntime.Real)

	if err := inst.Set(ctx, heater, simruntime.BoolValue(true)); err != nil {
		t.Fatal(err)
	}

	prev := 15.0
	for i := 0; i < 100; i++ {
		if err := stepper.Step(ctx, inst, 0.1); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		v, err := inst.Get(ctx, temp)
		if err != nil {
			t.Fatal(err)
		}
		if v.Real <= prev {
			t.Fatalf("step %d: temperature %g did not rise from %g", i, v.Real, prev)
		}
		if v.Real >= 45 {
			t.Fatalf("step %d: temperature %g overshot the supply temperature", i, v.Real)
		}
		prev = v.Real
	}

	// After 10s of heating the trajectory has settled close to the supply
	// temperature.
	if prev < 43 {
		t.Fatalf("after 10s of heating, temperature = %g, want within 2 of 45", prev)
	}
	if got := inst.SimulatedTime(); math.Abs(got-10) > 1e-9 {
		t.Fatalf("simulated time = %g, want 10", got)
	}
	if got := inst.StepCount(); got != 100 {
		t.Fatalf("step count = %d, want 100", got)
	}

	// Heater off: the trajectory turns around toward ambient.
	if err := inst.Set(ctx, heater, simruntime.BoolValue(false)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		if err := stepper.Step(ctx, inst, 0.1); err != nil {
			t.Fatal(err)
		}
	}
	v, err := inst.Get(ctx, temp)
	if err != nil {
		t.Fatal(err)
	}
	if v.Real >= prev {
		t.Fatalf("temperature %g did not fall after heater off (was %g)", v.Real, prev)
	}
	if v.Real <= 10 {
		t.Fatalf("temperature %g undershot ambient", v.Real)
	}
}

func TestInstanceIndependence(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	a := mustInstance(t, reg, ctx, "accumulator")
	b := mustInstance(t, reg, ctx, "accumulator")
	stepper := simrt.NewStepper(nil)

	rateA := mustSlot(t, a, "rate", simruntime.Real)
	rateB := mustSlot(t, b, "rate", simruntime.Real)
	if err := a.Set(ctx, rateA, simruntime.RealValue(2)); err != nil {
		t.Fatal(err)
	}
	if err := b.Set(ctx, rateB, simruntime.RealValue(3)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		if err := stepper.Step(ctx, a, 0.25); err != nil {
			t.Fatal(err)
		}
		if err := stepper.Step(ctx, b, 0.25); err != nil {
			t.Fatal(err)
		}
	}

	total := mustSlot(t, a, "total", simruntime.Real)
	va, err := a.Get(ctx, total)
	if err != nil {
		t.Fatal(err)
	}
	vb, err := b.Get(ctx, total)
	if err != nil {
		t.Fatal(err)
	}
	if va.Real != 4 { // 8 * 0.25 * 2
		t.Fatalf("instance a total = %g, want 4", va.Real)
	}
	if vb.Real != 6 { // 8 * 0.25 * 3
		t.Fatalf("instance b total = %g, want 6", vb.Real)
	}
}

func TestFailureDoesNotSpreadAcrossInstances(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	bad := mustInstance(t, reg, ctx, "nonconv")
	good := mustInstance(t, reg, ctx, "accumulator")
	stepper := simrt.NewStepper(nil)

	// Drive the failing instance into its terminal state.
	for i := 0; i < 2; i++ {
		if err := stepper.Step(ctx, bad, 0.1); err != nil {
			t.Fatal(err)
		}
	}
	err := stepper.Step(ctx, bad, 0.1)
	wantKind(t, err, errors.KindStepFailure)
	if bad.Status() != simruntime.Failed {
		t.Fatalf("bad status = %s, want failed", bad.Status())
	}

	if good.Status() != simruntime.Ready {
		t.Fatalf("unrelated instance status = %s, want ready", good.Status())
	}
	if err := stepper.Step(ctx, good, 0.1); err != nil {
		t.Fatalf("unrelated instance cannot step: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	desc, err := reg.Load(ctx, "accumulator")
	if err != nil {
		t.Fatal(err)
	}
	inst, err := reg.Instantiate(ctx, desc)
	if err != nil {
		t.Fatal(err)
	}

	reg.Release(ctx, inst)
	reg.Release(ctx, inst) // second release is a no-op

	stepper := simrt.NewStepper(nil)
	wantKind(t, stepper.Step(ctx, inst, 0.1), errors.KindReleased)

	slot := simrt.Slot{Name: "rate", Type: simruntime.Real, Direction: simruntime.Input}
	wantKind(t, inst.Set(ctx, slot, simruntime.RealValue(1)), errors.KindReleased)
	_, err = inst.Outputs(ctx)
	wantKind(t, err, errors.KindReleased)
	wantKind(t, inst.Reset(ctx), errors.KindReleased)
}

func TestResetRestoresInitialConditions(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "thermostat")
	stepper := simrt.NewStepper(nil)

	initial, err := inst.Outputs(ctx)
	if err != nil {
		t.Fatal(err)
	}

	heater := mustSlot(t, inst, "heaterOn", simruntime.Boolean)
	supply := mustSlot(t, inst, "supplyTemp", simruntime.Real)

	if err := inst.Set(ctx, heater, simruntime.BoolValue(true)); err != nil {
		t.Fatal(err)
	}
	if err := inst.Set(ctx, supply, simruntime.RealValue(80)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if err := stepper.Step(ctx, inst, 0.1); err != nil {
			t.Fatal(err)
		}
	}

	if err := inst.Reset(ctx); err != nil {
		t.Fatal(err)
	}

	if inst.Status() != simruntime.Ready {
		t.Fatalf("status after reset = %s, want ready", inst.Status())
	}
	if inst.SimulatedTime() != 0 || inst.StepCount() != 0 {
		t.Fatalf("time/steps after reset = %g/%d, want 0/0",
			inst.SimulatedTime(), inst.StepCount())
	}

	// The full output mapping round-trips exactly.
	after, err := inst.Outputs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(initial) {
		t.Fatalf("output count after reset = %d, want %d", len(after), len(initial))
	}
	for i := range after {
		if after[i].Name != initial[i].Name || !after[i].Value.Equal(initial[i].Value) {
			t.Fatalf("output %d after reset = %v, want %v", i, after[i], initial[i])
		}
	}
	// Host-tuned parameters return to their declared starts.
	sv, err := inst.Get(ctx, supply)
	if err != nil {
		t.Fatal(err)
	}
	if sv.Real != 45 {
		t.Fatalf("supplyTemp after reset = %g, want declared start 45", sv.Real)
	}
}

func TestResetRevivesFailedInstance(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	inst := mustInstance(t, reg, ctx, "nonconv")
	stepper := simrt.NewStepper(nil)

	for i := 0; i < 2; i++ {
		if err := stepper.Step(ctx, inst, 0.1); err != nil {
			t.Fatal(err)
		}
	}
	wantKind(t, stepper.Step(ctx, inst, 0.1), errors.KindStepFailure)
	wantKind(t, stepper.Step(ctx, inst, 0.1), errors.KindTerminalState)

	if err := inst.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if err := stepper.Step(ctx, inst, 0.1); err != nil {
		t.Fatalf("step after reset: %v", err)
	}
	if inst.StepCount() != 1 {
		t.Fatalf("step count after reset+step = %d, want 1", inst.StepCount())
	}
}

package runtime_test

import (
	"testing"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/errors"
	simrt "github.com/simforge/sim-runtime/runtime"
)

func newScheduler(reg *simrt.Registry, opts simrt.SchedulerOptions) *simrt.Scheduler {
	return simrt.NewScheduler(simrt.NewStepper(nil), reg.Sink(), nil, opts)
}

func TestTickAdvancesAllRegistered(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	sched := newScheduler(reg, simrt.SchedulerOptions{Dt: 0.1})

	insts := []*simrt.Instance{
		mustInstance(t, reg, ctx, "accumulator"),
		mustInstance(t, reg, ctx, "accumulator"),
		mustInstance(t, reg, ctx, "accumulator"),
	}
	for _, inst := range insts {
		sched.Register(inst)
	}

	for i := 0; i < 5; i++ {
		if failures := sched.Tick(ctx); failures != 0 {
			t.Fatalf("tick %d reported %d failures", i, failures)
		}
	}
	for n, inst := range insts {
		if got := inst.StepCount(); got != 5 {
			t.Fatalf("instance %d step count = %d, want 5", n, got)
		}
	}
}

func TestTickOrderIsRegistrationOrder(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	sched := newScheduler(reg, simrt.SchedulerOptions{})

	a := mustInstance(t, reg, ctx, "accumulator")
	b := mustInstance(t, reg, ctx, "thermostat")
	c := mustInstance(t, reg, ctx, "accumulator")
	sched.Register(a)
	sched.Register(b)
	sched.Register(c)
	sched.Register(b) // duplicate registration is a no-op

	got := sched.Instances()
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
		t.Fatalf("tick order ids = %v", ids(got))
	}

	// Order is preserved across deregistration of a middle element.
	sched.Deregister(b)
	got = sched.Instances()
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Fatalf("tick order after deregister = %v", ids(got))
	}
}

func ids(insts []*simrt.Instance) []string {
	out := make([]string, len(insts))
	for i, inst := range insts {
		out[i] = inst.ID()
	}
	return out
}

func TestDeregisteredInstanceIsNotStepped(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	sched := newScheduler(reg, simrt.SchedulerOptions{Dt: 0.1})

	kept := mustInstance(t, reg, ctx, "accumulator")
	dropped := mustInstance(t, reg, ctx, "accumulator")
	sched.Register(kept)
	sched.Register(dropped)
	sched.Deregister(dropped)

	sched.Tick(ctx)
	if got := kept.StepCount(); got != 1 {
		t.Fatalf("kept step count = %d, want 1", got)
	}
	if got := dropped.StepCount(); got != 0 {
		t.Fatalf("dropped step count = %d, want 0", got)
	}
}

func TestTickContainsFailures(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	sched := newScheduler(reg, simrt.SchedulerOptions{Dt: 0.1})

	bad := mustInstance(t, reg, ctx, "divergent") // diverges at step 3
	good := mustInstance(t, reg, ctx, "accumulator")
	sched.Register(bad)
	sched.Register(good)

	for i := 0; i < 2; i++ {
		if failures := sched.Tick(ctx); failures != 0 {
			t.Fatalf("tick %d reported %d failures", i, failures)
		}
	}

	// The divergent instance fails; the tick still steps the healthy one.
	if failures := sched.Tick(ctx); failures != 1 {
		t.Fatal("expected exactly one failure")
	}
	if got := good.StepCount(); got != 3 {
		t.Fatalf("healthy step count = %d, want 3", got)
	}

	rec, ok := reg.Sink().Last(bad.ID())
	if !ok {
		t.Fatal("failure was not reported to the sink")
	}
	if rec.Err.Kind != errors.KindNumericDivergence {
		t.Fatalf("sink record kind = %q, want %q", rec.Err.Kind, errors.KindNumericDivergence)
	}

	// Second divergence escalates; after that every tick records a
	// terminal-state error but keeps going.
	sched.Tick(ctx)
	if bad.Status() != simruntime.Failed {
		t.Fatalf("status = %s, want failed", bad.Status())
	}
	sched.Tick(ctx)
	rec, _ = reg.Sink().Last(bad.ID())
	if rec.Err.Kind != errors.KindTerminalState {
		t.Fatalf("sink record kind = %q, want %q", rec.Err.Kind, errors.KindTerminalState)
	}
	if got := good.StepCount(); got != 5 {
		t.Fatalf("healthy step count = %d, want 5", got)
	}
}

func TestParallelTicksMatchSequential(t *testing.T) {
	reg, ctx := newRegistry(t, standardModules())
	sched := newScheduler(reg, simrt.SchedulerOptions{Dt: 0.1, Workers: 4})

	var insts []*simrt.Instance
	for i := 0; i < 8; i++ {
		insts = append(insts, mustInstance(t, reg, ctx, "accumulator"))
	}
	for _, inst := range insts {
		sched.Register(inst)
	}

	for i := 0; i < 10; i++ {
		if failures := sched.Tick(ctx); failures != 0 {
			t.Fatalf("tick %d reported %d failures", i, failures)
		}
	}
	for n, inst := range insts {
		if got := inst.StepCount(); got != 10 {
			t.Fatalf("instance %d step count = %d, want 10", n, got)
		}
	}
}

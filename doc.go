// Package simruntime provides a runtime for natively-compiled continuous-time
// simulation modules. Modules are core WebAssembly binaries produced by an
// external modeling toolchain; the runtime loads them, manages per-instance
// state, steps them forward in time, and exposes a uniform typed variable
// interface to a real-time host application.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	simruntime/          Root package with the shared variable type vocabulary
//	├── runtime/         High-level API: registry, instances, stepper, scheduler
//	├── engine/          Low-level wazero integration and the module ABI
//	├── vartab/          Variable table codec for the "simvars" custom section
//	├── wasm/            Core WASM binary builder and section extraction
//	├── sink/            Per-instance error log with bounded retention
//	├── modgen/          Reference simulation modules assembled in-process
//	├── config/          YAML runtime configuration
//	└── errors/          Structured error types for the whole runtime
//
// # Quick Start
//
// Load a module from the search path, instantiate it and step it:
//
//	reg, err := runtime.NewRegistry(ctx, runtime.Options{SearchPaths: []string{"./models"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close(ctx)
//
//	desc, err := reg.Load(ctx, "thermostat")
//	inst, err := reg.Instantiate(ctx, desc)
//	defer reg.Release(ctx, inst)
//
//	heater, _ := desc.Resolve("heaterOn", simruntime.Boolean)
//	inst.Set(ctx, heater, simruntime.BoolValue(true))
//
//	stepper := runtime.NewStepper(nil)
//	stepper.Step(ctx, inst, 0.1)
//
//	outs, _ := inst.Outputs(ctx)
//	for _, out := range outs {
//	    fmt.Println(out.Name, out.Value)
//	}
//
// # Module ABI
//
// A simulation module is a core WebAssembly binary exporting a fixed entry-point
// contract (sim_init, sim_step, typed sim_get/sim_set accessors, sim_teardown)
// plus a "simvars" custom section describing every variable's name, type,
// direction, native index and optional start value. Export signatures are
// verified at load time; the variable table is decoded once and cached with the
// descriptor. See the engine and vartab packages for the exact contract.
package simruntime

// Package modgen assembles reference simulation modules in-process using the
// wasm builder. The modules implement the full entry-point contract and carry
// a simvars variable table, so the runtime can be exercised and tested
// without the external modeling-language compiler. The CLI's gen command
// writes them out as sample artifacts.
package modgen

import (
	"math"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/engine"
	"github.com/simforge/sim-runtime/vartab"
	"github.com/simforge/sim-runtime/wasm"
)

// stateBase is the linear-memory address sim_init hands back as the state
// handle. Variable cells live at stateBase + engine.CellSize*index.
const stateBase = 1024

// build assembles a complete module: the shared accessor entry points, the
// module-specific init and step bodies, and the encoded variable table.
func build(vars []simruntime.Variable, init, step *wasm.Code) []byte {
	table, err := vartab.Encode(vars)
	if err != nil {
		// Tables in this package are fixed at compile time; an encode
		// failure is a programming error.
		panic("modgen: " + err.Error())
	}

	b := wasm.NewBuilder()
	b.Memory(1, engine.ExportMemory)

	i32 := wasm.I32
	f64 := wasm.F64

	b.Func(engine.ExportInit, wasm.FuncType{Results: []wasm.ValType{i32}}, nil, init)
	b.Func(engine.ExportStep,
		wasm.FuncType{Params: []wasm.ValType{i32, f64}, Results: []wasm.ValType{i32}},
		[]wasm.ValType{f64, f64, f64}, step)

	// Typed accessors: cell address is state + 8*index for every type.
	cellAddr := func(c *wasm.Code) *wasm.Code {
		return c.LocalGet(0).LocalGet(1).I32Const(3).I32Shl().I32Add()
	}

	b.Func(engine.ExportGetReal,
		wasm.FuncType{Params: []wasm.ValType{i32, i32}, Results: []wasm.ValType{f64}},
		nil, cellAddr(wasm.NewCode()).F64Load(0))
	b.Func(engine.ExportSetReal,
		wasm.FuncType{Params: []wasm.ValType{i32, i32, f64}}, nil,
		cellAddr(wasm.NewCode()).LocalGet(2).F64Store(0))
	b.Func(engine.ExportGetBool,
		wasm.FuncType{Params: []wasm.ValType{i32, i32}, Results: []wasm.ValType{i32}},
		nil, cellAddr(wasm.NewCode()).I32Load(0))
	b.Func(engine.ExportSetBool,
		wasm.FuncType{Params: []wasm.ValType{i32, i32, i32}}, nil,
		cellAddr(wasm.NewCode()).LocalGet(2).I32Store(0))
	b.Func(engine.ExportGetInt,
		wasm.FuncType{Params: []wasm.ValType{i32, i32}, Results: []wasm.ValType{i32}},
		nil, cellAddr(wasm.NewCode()).I32Load(0))
	b.Func(engine.ExportSetInt,
		wasm.FuncType{Params: []wasm.ValType{i32, i32, i32}}, nil,
		cellAddr(wasm.NewCode()).LocalGet(2).I32Store(0))

	// State lives inside the instance's own linear memory; nothing to free.
	b.Func(engine.ExportTeardown, wasm.FuncType{Params: []wasm.ValType{i32}}, nil,
		wasm.NewCode())

	b.Custom(vartab.SectionName, table)
	return b.Encode()
}

// cell returns the memory offset of a variable cell relative to the state
// handle (which step bodies carry in local 0).
func cell(index uint32) uint32 {
	return index * engine.CellSize
}

// initReal emits an absolute store of v into the cell at index, for use in
// sim_init bodies where the handle is the compile-time constant stateBase.
func initReal(c *wasm.Code, index uint32, v float64) {
	c.I32Const(0).F64Const(v).F64Store(stateBase + cell(index))
}

func initDone(c *wasm.Code) *wasm.Code {
	return c.I32Const(stateBase)
}

// ThermostatConfig parameterizes the thermostat sample module.
// Zero values fall back to DefaultThermostat.
type ThermostatConfig struct {
	InitialTemp float64 // temperature at init
	SupplyTemp  float64 // asymptote while the heater is on
	AmbientTemp float64 // asymptote while the heater is off
	HeatRate    float64 // 1/s approach rate, heater on
	CoolRate    float64 // 1/s approach rate, heater off
}

// DefaultThermostat returns the configuration the gen command ships.
func DefaultThermostat() ThermostatConfig {
	return ThermostatConfig{
		InitialTemp: 15,
		SupplyTemp:  45,
		AmbientTemp: 10,
		HeatRate:    1.2,
		CoolRate:    0.25,
	}
}

// Thermostat builds a first-order thermal module: the temperature output
// relaxes toward the supply temperature while heaterOn is set and toward
// ambient otherwise.
//
//	dT/dt = rate * (drive - T)
func Thermostat(cfg ThermostatConfig) []byte {
	if cfg == (ThermostatConfig{}) {
		cfg = DefaultThermostat()
	}

	vars := []simruntime.Variable{
		{Name: "heaterOn", Type: simruntime.Boolean, Direction: simruntime.Input, Index: 0,
			HasStart: true, Start: simruntime.BoolValue(false)},
		{Name: "temperature", Type: simruntime.Real, Direction: simruntime.Output, Index: 1},
		{Name: "supplyTemp", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 2,
			HasStart: true, Start: simruntime.RealValue(cfg.SupplyTemp)},
		{Name: "ambientTemp", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 3,
			HasStart: true, Start: simruntime.RealValue(cfg.AmbientTemp)},
		{Name: "heatRate", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 4,
			HasStart: true, Start: simruntime.RealValue(cfg.HeatRate)},
		{Name: "coolRate", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 5,
			HasStart: true, Start: simruntime.RealValue(cfg.CoolRate)},
	}

	init := wasm.NewCode()
	initReal(init, 1, cfg.InitialTemp)
	initDone(init)

	// locals: 2 = T, 3 = rate, 4 = drive
	step := wasm.NewCode()
	step.LocalGet(0).F64Load(cell(1)).LocalSet(2)
	step.LocalGet(0).I32Load(cell(0)).If()
	step.LocalGet(0).F64Load(cell(4)).LocalSet(3)
	step.LocalGet(0).F64Load(cell(2)).LocalSet(4)
	step.Else()
	step.LocalGet(0).F64Load(cell(5)).LocalSet(3)
	step.LocalGet(0).F64Load(cell(3)).LocalSet(4)
	step.End()
	// T += dt * rate * (drive - T)
	step.LocalGet(2).
		LocalGet(1).LocalGet(3).F64Mul().
		LocalGet(4).LocalGet(2).F64Sub().F64Mul().
		F64Add().LocalSet(2)
	step.LocalGet(0).LocalGet(2).F64Store(cell(1))
	step.I32Const(0)

	return build(vars, init, step)
}

// SpringMassConfig parameterizes the damped oscillator sample module.
type SpringMassConfig struct {
	InitialPosition float64
	Stiffness       float64
	Damping         float64
	Mass            float64
}

// DefaultSpringMass returns the configuration the gen command ships.
func DefaultSpringMass() SpringMassConfig {
	return SpringMassConfig{InitialPosition: 1, Stiffness: 10, Damping: 0.5, Mass: 1}
}

// SpringMass builds a damped spring-mass module integrated with
// semi-implicit Euler:
//
//	a = (force - k*x - c*v) / m
//	v += dt*a; x += dt*v
func SpringMass(cfg SpringMassConfig) []byte {
	if cfg == (SpringMassConfig{}) {
		cfg = DefaultSpringMass()
	}

	vars := []simruntime.Variable{
		{Name: "force", Type: simruntime.Real, Direction: simruntime.Input, Index: 0,
			HasStart: true, Start: simruntime.RealValue(0)},
		{Name: "position", Type: simruntime.Real, Direction: simruntime.Output, Index: 1},
		{Name: "velocity", Type: simruntime.Real, Direction: simruntime.Output, Index: 2},
		{Name: "stiffness", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 3,
			HasStart: true, Start: simruntime.RealValue(cfg.Stiffness)},
		{Name: "damping", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 4,
			HasStart: true, Start: simruntime.RealValue(cfg.Damping)},
		{Name: "mass", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 5,
			HasStart: true, Start: simruntime.RealValue(cfg.Mass)},
	}

	init := wasm.NewCode()
	initReal(init, 1, cfg.InitialPosition)
	initReal(init, 2, 0)
	initDone(init)

	// locals: 2 = x, 3 = v, 4 = a
	step := wasm.NewCode()
	step.LocalGet(0).F64Load(cell(1)).LocalSet(2)
	step.LocalGet(0).F64Load(cell(2)).LocalSet(3)
	// a = (force - k*x - c*v) / m
	step.LocalGet(0).F64Load(cell(0)).
		LocalGet(0).F64Load(cell(3)).LocalGet(2).F64Mul().F64Sub().
		LocalGet(0).F64Load(cell(4)).LocalGet(3).F64Mul().F64Sub().
		LocalGet(0).F64Load(cell(5)).F64Div().
		LocalSet(4)
	// v += dt*a
	step.LocalGet(3).LocalGet(1).LocalGet(4).F64Mul().F64Add().LocalSet(3)
	// x += dt*v
	step.LocalGet(2).LocalGet(1).LocalGet(3).F64Mul().F64Add().LocalSet(2)
	step.LocalGet(0).LocalGet(2).F64Store(cell(1))
	step.LocalGet(0).LocalGet(3).F64Store(cell(2))
	step.I32Const(0)

	return build(vars, init, step)
}

// Accumulator builds a trivial integrator module: total += dt*rate*gain.
// Useful for instance-independence tests since the output is a pure function
// of this instance's own input history.
func Accumulator() []byte {
	vars := []simruntime.Variable{
		{Name: "rate", Type: simruntime.Real, Direction: simruntime.Input, Index: 0,
			HasStart: true, Start: simruntime.RealValue(0)},
		{Name: "total", Type: simruntime.Real, Direction: simruntime.Output, Index: 1},
		{Name: "gain", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 2,
			HasStart: true, Start: simruntime.RealValue(1)},
	}

	init := wasm.NewCode()
	initReal(init, 1, 0)
	initDone(init)

	step := wasm.NewCode()
	step.LocalGet(0).
		LocalGet(0).F64Load(cell(1)).
		LocalGet(1).
		LocalGet(0).F64Load(cell(0)).F64Mul().
		LocalGet(0).F64Load(cell(2)).F64Mul().
		F64Add().
		F64Store(cell(1))
	step.I32Const(0)

	return build(vars, init, step)
}

// counterCell is the internal step counter used by the fault-injection
// modules. It sits one cell past the declared table.
const counterCell = 2

// Divergent builds a module whose level output grows by dt per step until
// fuse steps have elapsed, then turns to NaN. Exercises the runtime's
// divergence containment.
func Divergent(fuse int32) []byte {
	vars := []simruntime.Variable{
		{Name: "level", Type: simruntime.Real, Direction: simruntime.Output, Index: 0},
		{Name: "fuse", Type: simruntime.Integer, Direction: simruntime.Parameter, Index: 1,
			HasStart: true, Start: simruntime.IntValue(fuse)},
	}

	init := wasm.NewCode()
	initReal(init, 0, 0)
	init.I32Const(0).I32Const(0).I32Store(stateBase + cell(counterCell))
	initDone(init)

	step := wasm.NewCode()
	incrementCounter(step)
	step.LocalGet(0).I32Load(cell(counterCell)).
		LocalGet(0).I32Load(cell(1)).
		I32GeS().If()
	step.LocalGet(0).F64Const(math.NaN()).F64Store(cell(0))
	step.Else()
	advanceLevel(step)
	step.End()
	step.I32Const(0)

	return build(vars, init, step)
}

// NonConverging builds a module whose native step reports solver failure
// (status 1) once fuse steps have elapsed. Exercises StepFailure handling.
func NonConverging(fuse int32) []byte {
	vars := []simruntime.Variable{
		{Name: "level", Type: simruntime.Real, Direction: simruntime.Output, Index: 0},
		{Name: "fuse", Type: simruntime.Integer, Direction: simruntime.Parameter, Index: 1,
			HasStart: true, Start: simruntime.IntValue(fuse)},
	}

	init := wasm.NewCode()
	initReal(init, 0, 0)
	init.I32Const(0).I32Const(0).I32Store(stateBase + cell(counterCell))
	initDone(init)

	step := wasm.NewCode()
	incrementCounter(step)
	step.LocalGet(0).I32Load(cell(counterCell)).
		LocalGet(0).I32Load(cell(1)).
		I32GeS().If()
	step.I32Const(1).Return()
	step.End()
	advanceLevel(step)
	step.I32Const(0)

	return build(vars, init, step)
}

func incrementCounter(c *wasm.Code) {
	c.LocalGet(0).
		LocalGet(0).I32Load(cell(counterCell)).I32Const(1).I32Add().
		I32Store(cell(counterCell))
}

func advanceLevel(c *wasm.Code) {
	c.LocalGet(0).
		LocalGet(0).F64Load(cell(0)).LocalGet(1).F64Add().
		F64Store(cell(0))
}

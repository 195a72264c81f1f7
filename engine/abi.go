package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Entry-point export names of the simulation module ABI.
const (
	ExportMemory   = "memory"
	ExportInit     = "sim_init"
	ExportStep     = "sim_step"
	ExportGetReal  = "sim_get_real"
	ExportSetReal  = "sim_set_real"
	ExportGetBool  = "sim_get_bool"
	ExportSetBool  = "sim_set_bool"
	ExportGetInt   = "sim_get_int"
	ExportSetInt   = "sim_set_int"
	ExportTeardown = "sim_teardown"
)

// CellSize is the width in bytes of one variable cell in module memory.
// Variable cells live at state+CellSize*index regardless of type.
const CellSize = 8

type entryPoint struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// entryPoints is the full export contract, fixed signatures included.
var entryPoints = []entryPoint{
	{ExportInit, nil, []api.ValueType{api.ValueTypeI32}},
	{ExportStep, []api.ValueType{api.ValueTypeI32, api.ValueTypeF64}, []api.ValueType{api.ValueTypeI32}},
	{ExportGetReal, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeF64}},
	{ExportSetReal, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeF64}, nil},
	{ExportGetBool, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}},
	{ExportSetBool, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil},
	{ExportGetInt, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}},
	{ExportSetInt, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil},
	{ExportTeardown, []api.ValueType{api.ValueTypeI32}, nil},
}

// validateExports verifies the compiled module exports every ABI entry point
// with the exact expected signature, plus a memory.
func validateExports(compiled wazero.CompiledModule) error {
	funcs := compiled.ExportedFunctions()
	for _, ep := range entryPoints {
		def, ok := funcs[ep.name]
		if !ok {
			return fmt.Errorf("missing export %q", ep.name)
		}
		if !valueTypesEqual(def.ParamTypes(), ep.params) ||
			!valueTypesEqual(def.ResultTypes(), ep.results) {
			return fmt.Errorf("export %q has signature %s, want %s",
				ep.name,
				signatureString(def.ParamTypes(), def.ResultTypes()),
				signatureString(ep.params, ep.results))
		}
	}

	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return fmt.Errorf("missing exported memory %q", ExportMemory)
	}
	return nil
}

func valueTypesEqual(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func signatureString(params, results []api.ValueType) string {
	name := func(ts []api.ValueType) string {
		s := "("
		for i, t := range ts {
			if i > 0 {
				s += ", "
			}
			s += api.ValueTypeName(t)
		}
		return s + ")"
	}
	return name(params) + " -> " + name(results)
}

package simruntime

import (
	"fmt"
	"strconv"
)

// VarType is the declared type of a simulation variable.
type VarType uint8

const (
	Real    VarType = 0 // 64-bit float
	Boolean VarType = 1
	Integer VarType = 2 // 32-bit signed integer
)

func (t VarType) String() string {
	switch t {
	case Real:
		return "real"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	default:
		return fmt.Sprintf("vartype(%d)", uint8(t))
	}
}

// Valid reports whether t is a well-formed type tag.
func (t VarType) Valid() bool {
	return t <= Integer
}

// Direction is the declared data-flow direction of a variable.
type Direction uint8

const (
	Input     Direction = 0 // written by the host before stepping
	Output    Direction = 1 // computed by the module, read by the host
	Parameter Direction = 2 // tunable constant, written by the host
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Parameter:
		return "parameter"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Valid reports whether d is a well-formed direction tag.
func (d Direction) Valid() bool {
	return d <= Parameter
}

// Status is the lifecycle state of a simulation instance.
//
// Transitions only move forward: Ready -> Unstable -> Failed or Ready -> Failed.
// Reset reinitializes native state and returns the instance to Ready.
type Status uint8

const (
	Ready    Status = 0
	Unstable Status = 1 // a step produced non-finite values; stepping continues
	Failed   Status = 2 // terminal until reset
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Unstable:
		return "unstable"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Variable is one row of a module's declared variable table.
type Variable struct {
	Name      string
	Type      VarType
	Direction Direction
	Index     uint32 // native index used by the module's accessor entry points

	// Start is the declared start value, seeded at instantiation when HasStart
	// is set. Only Start's field matching Type is meaningful.
	HasStart bool
	Start    Value
}

// Value is a tagged scalar crossing the host/module boundary.
// Only the field matching Type carries the value.
type Value struct {
	Type VarType
	Real float64
	Bool bool
	Int  int32
}

// RealValue returns a Real-typed value.
func RealValue(v float64) Value { return Value{Type: Real, Real: v} }

// BoolValue returns a Boolean-typed value.
func BoolValue(v bool) Value { return Value{Type: Boolean, Bool: v} }

// IntValue returns an Integer-typed value.
func IntValue(v int32) Value { return Value{Type: Integer, Int: v} }

func (v Value) String() string {
	switch v.Type {
	case Real:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(v.Bool)
	case Integer:
		return strconv.FormatInt(int64(v.Int), 10)
	default:
		return "<invalid>"
	}
}

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case Real:
		return v.Real == o.Real
	case Boolean:
		return v.Bool == o.Bool
	case Integer:
		return v.Int == o.Int
	}
	return false
}

// NamedValue pairs a variable name with its current value. Enumeration
// operations return NamedValue slices in descriptor-declared order so the
// result is deterministic.
type NamedValue struct {
	Name  string
	Value Value
}

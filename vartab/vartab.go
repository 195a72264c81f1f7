// Package vartab encodes and decodes the static variable table a simulation
// module carries in its "simvars" custom section. The table is read once at
// load time and describes every variable's name, type, direction, native
// index and optional start value.
package vartab

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/wasm"
)

// SectionName is the custom section holding the encoded variable table.
const SectionName = "simvars"

// Encode serializes a variable table into the simvars wire layout.
// The table is validated first; encoding an invalid table fails.
func Encode(vars []simruntime.Variable) ([]byte, error) {
	if err := Validate(vars); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	wasm.WriteLEB128u(&buf, uint32(len(vars)))
	for _, v := range vars {
		wasm.WriteLEB128u(&buf, uint32(len(v.Name)))
		buf.WriteString(v.Name)
		buf.WriteByte(byte(v.Type))
		buf.WriteByte(byte(v.Direction))
		wasm.WriteLEB128u(&buf, v.Index)
		if !v.HasStart {
			buf.WriteByte(0)
			continue
		}
		buf.WriteByte(1)
		switch v.Type {
		case simruntime.Real:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.Start.Real))
			buf.Write(b[:])
		case simruntime.Boolean:
			if v.Start.Bool {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		case simruntime.Integer:
			wasm.WriteLEB128s(&buf, v.Start.Int)
		}
	}
	return buf.Bytes(), nil
}

// Decode parses a simvars payload and validates the resulting table.
func Decode(data []byte) ([]simruntime.Variable, error) {
	r := bytes.NewReader(data)

	count, err := wasm.ReadLEB128u(r)
	if err != nil {
		return nil, fmt.Errorf("vartab: variable count: %w", err)
	}
	if uint64(count) > uint64(len(data)) {
		return nil, fmt.Errorf("vartab: implausible variable count %d", count)
	}

	vars := make([]simruntime.Variable, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := decodeVariable(r)
		if err != nil {
			return nil, fmt.Errorf("vartab: variable %d: %w", i, err)
		}
		vars = append(vars, v)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("vartab: %d trailing bytes after table", r.Len())
	}
	if err := Validate(vars); err != nil {
		return nil, err
	}
	return vars, nil
}

func decodeVariable(r *bytes.Reader) (simruntime.Variable, error) {
	var v simruntime.Variable

	nameLen, err := wasm.ReadLEB128u(r)
	if err != nil {
		return v, fmt.Errorf("name length: %w", err)
	}
	if uint32(r.Len()) < nameLen {
		return v, io.ErrUnexpectedEOF
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return v, err
	}
	v.Name = string(name)

	typ, err := r.ReadByte()
	if err != nil {
		return v, err
	}
	v.Type = simruntime.VarType(typ)

	dir, err := r.ReadByte()
	if err != nil {
		return v, err
	}
	v.Direction = simruntime.Direction(dir)

	if v.Index, err = wasm.ReadLEB128u(r); err != nil {
		return v, fmt.Errorf("index: %w", err)
	}

	hasStart, err := r.ReadByte()
	if err != nil {
		return v, err
	}
	if hasStart == 0 {
		return v, nil
	}
	if hasStart != 1 {
		return v, fmt.Errorf("bad start marker %d", hasStart)
	}

	v.HasStart = true
	v.Start.Type = v.Type
	switch v.Type {
	case simruntime.Real:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return v, err
		}
		v.Start.Real = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
	case simruntime.Boolean:
		bit, err := r.ReadByte()
		if err != nil {
			return v, err
		}
		v.Start.Bool = bit != 0
	case simruntime.Integer:
		if v.Start.Int, err = wasm.ReadLEB128s(r); err != nil {
			return v, fmt.Errorf("start value: %w", err)
		}
	default:
		// Start payload layout depends on the type tag; an unknown tag makes
		// the rest of the stream unreadable.
		return v, fmt.Errorf("start value for unknown type tag %d", typ)
	}
	return v, nil
}

// Validate checks structural invariants of a variable table: well-formed
// type and direction tags, non-empty unique names, unique native indices.
func Validate(vars []simruntime.Variable) error {
	names := make(map[string]struct{}, len(vars))
	indices := make(map[uint32]string, len(vars))

	for _, v := range vars {
		if v.Name == "" {
			return fmt.Errorf("vartab: unnamed variable at index %d", v.Index)
		}
		if !v.Type.Valid() {
			return fmt.Errorf("vartab: variable %q: invalid type tag %d", v.Name, uint8(v.Type))
		}
		if !v.Direction.Valid() {
			return fmt.Errorf("vartab: variable %q: invalid direction tag %d", v.Name, uint8(v.Direction))
		}
		if _, dup := names[v.Name]; dup {
			return fmt.Errorf("vartab: duplicate variable name %q", v.Name)
		}
		names[v.Name] = struct{}{}
		if other, dup := indices[v.Index]; dup {
			return fmt.Errorf("vartab: variables %q and %q share native index %d", other, v.Name, v.Index)
		}
		indices[v.Index] = v.Name
		if v.HasStart && v.Start.Type != v.Type {
			return fmt.Errorf("vartab: variable %q: start value type %s differs from declared %s",
				v.Name, v.Start.Type, v.Type)
		}
	}
	return nil
}

// MaxIndex returns the largest native index declared by the table,
// or -1 for an empty table.
func MaxIndex(vars []simruntime.Variable) int64 {
	max := int64(-1)
	for _, v := range vars {
		if int64(v.Index) > max {
			max = int64(v.Index)
		}
	}
	return max
}

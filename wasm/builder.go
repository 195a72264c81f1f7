package wasm

import (
	"bytes"
	"encoding/binary"
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) equal(o FuncType) bool {
	if len(ft.Params) != len(o.Params) || len(ft.Results) != len(o.Results) {
		return false
	}
	for i, p := range ft.Params {
		if p != o.Params[i] {
			return false
		}
	}
	for i, r := range ft.Results {
		if r != o.Results[i] {
			return false
		}
	}
	return true
}

type funcEntry struct {
	typeIdx uint32
	locals  []ValType
	body    []byte
	export  string
}

type customEntry struct {
	name string
	data []byte
}

// Builder assembles a core module binary: function types, function bodies,
// one optional exported memory, and custom sections.
type Builder struct {
	types   []FuncType
	funcs   []funcEntry
	customs []customEntry
	memMin  uint32
	memName string
	hasMem  bool
}

// NewBuilder returns an empty module builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Memory declares a memory of minPages 64KiB pages, exported under name.
// At most one memory is supported.
func (b *Builder) Memory(minPages uint32, name string) *Builder {
	b.hasMem = true
	b.memMin = minPages
	b.memName = name
	return b
}

// Func adds a function with the given signature, extra locals and body.
// A non-empty export name exports the function under that name.
// Returns the function index.
func (b *Builder) Func(export string, ft FuncType, locals []ValType, body *Code) uint32 {
	typeIdx := b.typeIndex(ft)
	idx := uint32(len(b.funcs))
	b.funcs = append(b.funcs, funcEntry{
		typeIdx: typeIdx,
		locals:  locals,
		body:    body.Bytes(),
		export:  export,
	})
	return idx
}

// Custom appends a custom section with the given name and payload.
func (b *Builder) Custom(name string, data []byte) *Builder {
	b.customs = append(b.customs, customEntry{name: name, data: data})
	return b
}

func (b *Builder) typeIndex(ft FuncType) uint32 {
	for i, existing := range b.types {
		if existing.equal(ft) {
			return uint32(i)
		}
	}
	b.types = append(b.types, ft)
	return uint32(len(b.types) - 1)
}

// Encode encodes the module to WebAssembly binary format.
func (b *Builder) Encode() []byte {
	var w bytes.Buffer

	var header [8]byte
	binary.LittleEndian.PutUint32(header[:4], Magic)
	binary.LittleEndian.PutUint32(header[4:], Version)
	w.Write(header[:])

	// Type section
	if len(b.types) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(b.types)))
		for _, ft := range b.types {
			sec.WriteByte(FuncTypeByte)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, SectionType, sec.Bytes())
	}

	// Function section
	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			WriteLEB128u(&sec, f.typeIdx)
		}
		writeSection(&w, SectionFunction, sec.Bytes())
	}

	// Memory section
	if b.hasMem {
		var sec bytes.Buffer
		WriteLEB128u(&sec, 1)
		sec.WriteByte(0x00) // limits: min only
		WriteLEB128u(&sec, b.memMin)
		writeSection(&w, SectionMemory, sec.Bytes())
	}

	// Export section
	var exports bytes.Buffer
	var exportCount uint32
	for i, f := range b.funcs {
		if f.export == "" {
			continue
		}
		writeName(&exports, f.export)
		exports.WriteByte(KindFunc)
		WriteLEB128u(&exports, uint32(i))
		exportCount++
	}
	if b.hasMem && b.memName != "" {
		writeName(&exports, b.memName)
		exports.WriteByte(KindMemory)
		WriteLEB128u(&exports, 0)
		exportCount++
	}
	if exportCount > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, exportCount)
		sec.Write(exports.Bytes())
		writeSection(&w, SectionExport, sec.Bytes())
	}

	// Code section
	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			var body bytes.Buffer
			writeLocals(&body, f.locals)
			body.Write(f.body)
			body.WriteByte(opEnd)

			WriteLEB128u(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&w, SectionCode, sec.Bytes())
	}

	// Custom sections
	for _, c := range b.customs {
		var sec bytes.Buffer
		writeName(&sec, c.name)
		sec.Write(c.data)
		writeSection(&w, SectionCustom, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	WriteLEB128u(w, uint32(len(data)))
	w.Write(data)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	WriteLEB128u(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

func writeName(w *bytes.Buffer, name string) {
	WriteLEB128u(w, uint32(len(name)))
	w.WriteString(name)
}

// writeLocals encodes the locals vector, grouping consecutive equal types.
func writeLocals(w *bytes.Buffer, locals []ValType) {
	type group struct {
		count uint32
		typ   ValType
	}
	var groups []group
	for _, l := range locals {
		if n := len(groups); n > 0 && groups[n-1].typ == l {
			groups[n-1].count++
			continue
		}
		groups = append(groups, group{count: 1, typ: l})
	}
	WriteLEB128u(w, uint32(len(groups)))
	for _, g := range groups {
		WriteLEB128u(w, g.count)
		w.WriteByte(byte(g.typ))
	}
}

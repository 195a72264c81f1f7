package wasm

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Code accumulates the instruction sequence of one function body.
// The terminating end opcode is appended when the module is encoded,
// so callers only emit the expression itself.
type Code struct {
	buf bytes.Buffer
}

// NewCode returns an empty function body.
func NewCode() *Code {
	return &Code{}
}

// Bytes returns the encoded instruction sequence without the trailing end.
func (c *Code) Bytes() []byte {
	return c.buf.Bytes()
}

func (c *Code) LocalGet(idx uint32) *Code {
	c.buf.WriteByte(opLocalGet)
	WriteLEB128u(&c.buf, idx)
	return c
}

func (c *Code) LocalSet(idx uint32) *Code {
	c.buf.WriteByte(opLocalSet)
	WriteLEB128u(&c.buf, idx)
	return c
}

func (c *Code) LocalTee(idx uint32) *Code {
	c.buf.WriteByte(opLocalTee)
	WriteLEB128u(&c.buf, idx)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(opI32Const)
	WriteLEB128s(&c.buf, v)
	return c
}

func (c *Code) F64Const(v float64) *Code {
	c.buf.WriteByte(opF64Const)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	c.buf.Write(b[:])
	return c
}

// memory access; align is fixed at the natural alignment of the type

func (c *Code) I32Load(offset uint32) *Code {
	c.buf.WriteByte(opI32Load)
	WriteLEB128u(&c.buf, 2)
	WriteLEB128u(&c.buf, offset)
	return c
}

func (c *Code) I32Store(offset uint32) *Code {
	c.buf.WriteByte(opI32Store)
	WriteLEB128u(&c.buf, 2)
	WriteLEB128u(&c.buf, offset)
	return c
}

func (c *Code) F64Load(offset uint32) *Code {
	c.buf.WriteByte(opF64Load)
	WriteLEB128u(&c.buf, 3)
	WriteLEB128u(&c.buf, offset)
	return c
}

func (c *Code) F64Store(offset uint32) *Code {
	c.buf.WriteByte(opF64Store)
	WriteLEB128u(&c.buf, 3)
	WriteLEB128u(&c.buf, offset)
	return c
}

// integer ops

func (c *Code) I32Add() *Code  { c.buf.WriteByte(opI32Add); return c }
func (c *Code) I32Sub() *Code  { c.buf.WriteByte(opI32Sub); return c }
func (c *Code) I32Shl() *Code  { c.buf.WriteByte(opI32Shl); return c }
func (c *Code) I32Eqz() *Code  { c.buf.WriteByte(opI32Eqz); return c }
func (c *Code) I32Eq() *Code   { c.buf.WriteByte(opI32Eq); return c }
func (c *Code) I32Ne() *Code   { c.buf.WriteByte(opI32Ne); return c }
func (c *Code) I32LtS() *Code  { c.buf.WriteByte(opI32LtS); return c }
func (c *Code) I32GeS() *Code  { c.buf.WriteByte(opI32GeS); return c }

// float ops

func (c *Code) F64Add() *Code { c.buf.WriteByte(opF64Add); return c }
func (c *Code) F64Sub() *Code { c.buf.WriteByte(opF64Sub); return c }
func (c *Code) F64Mul() *Code { c.buf.WriteByte(opF64Mul); return c }
func (c *Code) F64Div() *Code { c.buf.WriteByte(opF64Div); return c }
func (c *Code) F64Lt() *Code  { c.buf.WriteByte(opF64Lt); return c }
func (c *Code) F64Gt() *Code  { c.buf.WriteByte(opF64Gt); return c }

// control flow

// If opens a result-less conditional block.
func (c *Code) If() *Code {
	c.buf.WriteByte(opIf)
	c.buf.WriteByte(blockVoid)
	return c
}

func (c *Code) Else() *Code   { c.buf.WriteByte(opElse); return c }
func (c *Code) End() *Code    { c.buf.WriteByte(opEnd); return c }
func (c *Code) Return() *Code { c.buf.WriteByte(opReturn); return c }
func (c *Code) Drop() *Code   { c.buf.WriteByte(opDrop); return c }

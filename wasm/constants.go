package wasm

// WebAssembly binary magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported binary format version.
	Version uint32 = 0x01
)

// Section IDs. Sections must appear in increasing order by ID, except custom
// sections which can appear anywhere.
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionExport   byte = 7
	SectionCode     byte = 10
)

// Export descriptor kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
)

// ValType is a WebAssembly value type encoding.
type ValType byte

// Value types used by the simulation module ABI.
const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
	F32 ValType = 0x7D
	F64 ValType = 0x7C
)

// FuncTypeByte prefixes a function type in the type section.
const FuncTypeByte byte = 0x60

// blockVoid is the block type immediate for a result-less block.
const blockVoid byte = 0x40

// Opcodes used by the builder.
const (
	opIf     byte = 0x04
	opElse   byte = 0x05
	opEnd    byte = 0x0B
	opReturn byte = 0x0F
	opDrop   byte = 0x1A

	opLocalGet byte = 0x20
	opLocalSet byte = 0x21
	opLocalTee byte = 0x22

	opI32Load byte = 0x28
	opF64Load byte = 0x2B
	opI32Store byte = 0x36
	opF64Store byte = 0x39

	opI32Const byte = 0x41
	opI64Const byte = 0x42
	opF64Const byte = 0x44

	opI32Eqz byte = 0x45
	opI32Eq  byte = 0x46
	opI32Ne  byte = 0x47
	opI32LtS byte = 0x48
	opI32GeS byte = 0x4E

	opF64Lt byte = 0x63
	opF64Gt byte = 0x64

	opI32Add byte = 0x6A
	opI32Sub byte = 0x6B
	opI32Shl byte = 0x74

	opF64Add byte = 0xA0
	opF64Sub byte = 0xA1
	opF64Mul byte = 0xA2
	opF64Div byte = 0xA3
)

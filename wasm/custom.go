package wasm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ErrNotWasm is returned when a buffer does not start with the module header.
var ErrNotWasm = fmt.Errorf("wasm: not a WebAssembly module")

// ErrSectionNotFound is returned when no custom section with the requested
// name exists in the module.
var ErrSectionNotFound = fmt.Errorf("wasm: custom section not found")

// CustomSection returns the payload of the first custom section with the
// given name. The module is scanned section by section; nothing is
// instantiated or validated beyond the section framing.
func CustomSection(data []byte, name string) ([]byte, error) {
	if len(data) < 8 {
		return nil, ErrNotWasm
	}
	if binary.LittleEndian.Uint32(data[:4]) != Magic ||
		binary.LittleEndian.Uint32(data[4:8]) != Version {
		return nil, ErrNotWasm
	}

	r := bytes.NewReader(data[8:])
	for {
		id, err := r.ReadByte()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
		}
		if err != nil {
			return nil, err
		}

		size, err := ReadLEB128u(r)
		if err != nil {
			return nil, fmt.Errorf("wasm: section %d size: %w", id, err)
		}
		if uint32(r.Len()) < size {
			return nil, fmt.Errorf("wasm: section %d truncated", id)
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		if id != SectionCustom {
			continue
		}

		pr := bytes.NewReader(payload)
		nameLen, err := ReadLEB128u(pr)
		if err != nil || uint32(pr.Len()) < nameLen {
			return nil, fmt.Errorf("wasm: malformed custom section name")
		}
		secName := make([]byte, nameLen)
		if _, err := io.ReadFull(pr, secName); err != nil {
			return nil, err
		}
		if string(secName) != name {
			continue
		}

		rest := make([]byte, pr.Len())
		if _, err := io.ReadFull(pr, rest); err != nil {
			return nil, err
		}
		return rest, nil
	}
}

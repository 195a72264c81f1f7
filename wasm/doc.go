// Package wasm provides the minimal core-WebAssembly binary layer the
// simulation runtime needs: a module builder used to assemble simulation
// modules in-process (scalar i32/f64 functions, one exported memory, custom
// sections) and an extractor that pulls a named custom section out of a
// compiled artifact without instantiating it.
//
// The builder intentionally covers only the subset of the binary format the
// module ABI uses. It is not a general-purpose assembler.
package wasm

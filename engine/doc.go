// Package engine integrates the wazero WebAssembly runtime with the
// simulation module ABI.
//
// An Engine owns one wazero runtime. Loading a module compiles the binary,
// verifies the fixed entry-point contract (sim_init, sim_step, typed
// accessors, sim_teardown, an exported memory) against the compiled export
// signatures, and decodes the simvars variable table. Each Instance is an
// independent instantiation with its own linear memory; instances never share
// or alias state.
//
// The engine exposes raw index-addressed access only. Name resolution,
// direction checks and the instance status machine live in the runtime
// package above it.
package engine

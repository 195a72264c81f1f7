// Package runtime is the host-facing layer of the simulation runtime.
//
// A Registry loads compiled simulation modules from its search paths and
// hands out Descriptors (one per module name) and Instances (as many as the
// host asks for). Variable access goes through resolved Slots so the
// name/type/direction checks happen once, not on every exchange. A Stepper
// advances instances one bounded timestep at a time and translates every
// native failure into a structured error; a Scheduler drives a set of
// registered instances in a stable order and reports contained failures to
// the error sink.
//
// Instances are independent: each one owns a private native state, and a
// fault in one never disturbs another.
package runtime

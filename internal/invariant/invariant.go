// Package invariant provides internal consistency assertions for the
// Covenant toolchain itself. These are Go-level sanity checks on the
// compiler and VM's own bookkeeping (constant pool indices, jump patch
// lists, call-frame bounds) — not to be confused with the Covenant
// language's own precondition/postcondition clauses, which are data the
// VM enforces at contract-call boundaries (see internal/vm).
//
// All functions panic on violation: a violation here means the toolchain
// itself has a bug, not that the user's program is invalid.
package invariant

import "fmt"

// Check panics with a formatted message if condition is false.
func Check(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("INVARIANT VIOLATION: "+format, args...))
	}
}

// NotNil panics if value is nil.
func NotNil(value interface{}, name string) {
	if value == nil {
		panic(fmt.Sprintf("INVARIANT VIOLATION: %s must not be nil", name))
	}
}

// InRange panics if value is outside [min, max].
func InRange(value, min, max int, name string) {
	if value < min || value > max {
		panic(fmt.Sprintf("INVARIANT VIOLATION: %s must be in range [%d, %d], got %d", name, min, max, value))
	}
}

// Unreachable panics unconditionally; used in exhaustive switch defaults.
func Unreachable(format string, args ...interface{}) {
	panic(fmt.Sprintf("INVARIANT VIOLATION: unreachable: "+format, args...))
}

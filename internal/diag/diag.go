// Package diag defines the toolchain's two fatal error kinds (§7): compile
// errors and runtime assertions. The third kind, the allocator-leak warning,
// is logged by the VM at the end of a run and has no type here. Nothing in
// this package exits the process; the cmd/vmcore driver turns a returned
// error into exit status 1.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// CompileError reports a problem found while lowering a tree to bytecode:
// unknown identifier, unknown operator, duplicate type, unresolved overload,
// break/continue outside a loop, or a type mismatch in assignment.
type CompileError struct {
	// Location is a token/position description supplied by the front end;
	// empty when the caller has none (e.g. synthesized trees in tests).
	Location string
	cause    error
}

// NewCompileError wraps cause with the given location string.
func NewCompileError(location string, cause error) *CompileError {
	return &CompileError{Location: location, cause: cause}
}

// Compilef is a convenience constructor matching errors.Errorf's call shape.
func Compilef(location, format string, args ...any) *CompileError {
	return NewCompileError(location, errors.Errorf(format, args...))
}

func (e *CompileError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("compile error: %s", e.cause)
	}
	return fmt.Sprintf("compile error at %s: %s", e.Location, e.cause)
}

func (e *CompileError) Unwrap() error { return e.cause }

// RuntimeError reports a fatal assertion failure discovered while executing
// bytecode: an out-of-range Save, a Deallocate of a stack pointer, or a Load
// from an unmapped heap region.
type RuntimeError struct {
	PC    uint64
	cause error
}

// NewRuntimeError wraps cause with the program counter where it fired.
func NewRuntimeError(pc uint64, cause error) *RuntimeError {
	return &RuntimeError{PC: pc, cause: cause}
}

// Runtimef is a convenience constructor matching errors.Errorf's call shape.
func Runtimef(pc uint64, format string, args ...any) *RuntimeError {
	return NewRuntimeError(pc, errors.Errorf(format, args...))
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at pc=%d: %s", e.PC, e.cause)
}

func (e *RuntimeError) Unwrap() error { return e.cause }

// Wrap attaches additional context to err using pkg/errors, preserving its
// type for errors.As callers further up the stack.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, context)
}

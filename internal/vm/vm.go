// Package vm implements the stack-machine interpreter (§4.5): instruction
// dispatch, call-frame management, and the combined byte-addressable
// stack/heap that builtins and compiled code both read and write through
// tagged pointers.
package vm

import (
	"io"

	"github.com/rs/zerolog"

	"vmcore/internal/builtins"
	"vmcore/internal/bytecode"
	"vmcore/internal/diag"
	"vmcore/internal/heap"
	"vmcore/internal/value"
)

// VM is the runtime context (§3's "Runtime context"): program counter, base
// pointer, the combined stack, a separate heap byte buffer, and the
// allocator handle governing it. One VM executes exactly one Program once;
// it is not reused across runs.
type VM struct {
	pc uint64
	bp uint64

	stack *builtins.ByteStack
	heap  []byte
	alloc *heap.Allocator

	program  *bytecode.Program
	registry *builtins.Registry

	stdout io.Writer
	log    zerolog.Logger
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStdout sets the writer Stdout reports; defaults to io.Discard if never
// set. The VM itself writes nothing to it: print/println write to the writer
// their registry was built with (builtins.Standard).
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.stdout = w }
}

// WithLogger attaches the structured logger used for Debug-opcode tracing
// (see AMBIENT STACK's logging split between program stdout and VM trace).
func WithLogger(l zerolog.Logger) Option {
	return func(vm *VM) { vm.log = l }
}

// New constructs a VM ready to execute program, with empty stack, bp=0,
// pc=0 per §4.5.
func New(program *bytecode.Program, registry *builtins.Registry, opts ...Option) *VM {
	vm := &VM{
		stack:    builtins.NewByteStack(),
		alloc:    heap.NewAllocator(),
		program:  program,
		registry: registry,
		stdout:   io.Discard,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Stack implements builtins.Machine.
func (vm *VM) Stack() *builtins.ByteStack { return vm.stack }

// ReadPtr implements builtins.Machine: reads n bytes starting at the
// region/offset p addresses, picking stack or heap by its tag bit.
func (vm *VM) ReadPtr(p value.Ptr, n uint64) []byte {
	off := p.Offset()
	if p.IsHeap() {
		return vm.heap[off : off+n]
	}
	return vm.stack.At(off, n)
}

// writePtr mirrors ReadPtr for Save's destination side.
func (vm *VM) writePtr(p value.Ptr, b []byte) error {
	off := p.Offset()
	if p.IsHeap() {
		vm.growHeap(off + uint64(len(b)))
		copy(vm.heap[off:off+uint64(len(b))], b)
		return nil
	}
	if off+uint64(len(b)) > vm.stack.Len() {
		return diag.Runtimef(vm.pc, "stack save out of range: offset=%d size=%d stack_len=%d", off, len(b), vm.stack.Len())
	}
	vm.stack.Put(off, b)
	return nil
}

func (vm *VM) growHeap(n uint64) {
	if uint64(len(vm.heap)) >= n {
		return
	}
	grown := make([]byte, n)
	copy(grown, vm.heap)
	vm.heap = grown
}

// BytesInUse exposes the allocator's live-byte counter, checked at shutdown
// for the resource-leak warning (§7.3).
func (vm *VM) BytesInUse() uint64 { return vm.alloc.BytesInUse() }

// PC and BP are exposed read-only for debug tracing and tests.
func (vm *VM) PC() uint64 { return vm.pc }
func (vm *VM) BP() uint64 { return vm.bp }

// Stdout returns the writer set by WithStdout (io.Discard if none). It is not
// linked to the writer the print/println builtins were constructed against.
func (vm *VM) Stdout() io.Writer { return vm.stdout }

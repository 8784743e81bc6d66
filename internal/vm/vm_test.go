package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"vmcore/internal/builtins"
	"vmcore/internal/bytecode"
	"vmcore/internal/types"
	"vmcore/internal/value"
)

// buildArithProgram hand-assembles scenario 1 from the testable-properties
// list: let x: i64 = 40 + 2; println(x); - without a compiler yet, the
// instruction stream is built directly to pin down VM semantics.
func buildArithProgram(registry *builtins.Registry) *bytecode.Program {
	p := bytecode.NewProgram()
	p.Append(bytecode.NewLoadBytes(value.EncodeI64(40)))
	p.Append(bytecode.NewLoadBytes(value.EncodeI64(2)))
	p.Append(bytecode.NewBuiltinCall(builtins.Key("+", []types.Name{types.I64Type(), types.I64Type()})))
	p.Append(bytecode.NewBuiltinCall(builtins.Key("println", []types.Name{types.I64Type()})))
	p.Append(bytecode.NewPop(1)) // discard println's null result
	return p
}

func addI64(r *builtins.Registry) {
	r.Register("+", []types.Name{types.I64Type(), types.I64Type()}, types.I64Type(), func(m builtins.Machine) error {
		b := value.DecodeI64(m.Stack().Pop(8))
		a := value.DecodeI64(m.Stack().Pop(8))
		m.Stack().Push(value.EncodeI64(a + b))
		return nil
	})
}

func TestArithmeticAndPrintln(t *testing.T) {
	var out bytes.Buffer
	registry := builtins.Standard(&out)
	addI64(registry)

	program := buildArithProgram(registry)
	machine := New(program, registry)

	require.NoError(t, machine.Run())
	require.Equal(t, "42\n", out.String())
	require.Equal(t, uint64(0), machine.Stack().Len())
	require.Equal(t, uint64(0), machine.BytesInUse())
}

// TestAllocateAndDeallocateBalances exercises the allocate/free half of
// scenario 2's heap lifecycle: new i32[3], then delete it straight away.
func TestAllocateAndDeallocateBalances(t *testing.T) {
	var out bytes.Buffer
	registry := builtins.Standard(&out)

	p := bytecode.NewProgram()
	p.Append(bytecode.NewLoadBytes(value.EncodeU64(3)))
	p.Append(bytecode.NewAllocate(4)) // p = new i32[3], pointer left on stack
	p.Append(bytecode.NewDeallocate())

	machine := New(p, registry)
	require.NoError(t, machine.Run())
	require.Equal(t, uint64(0), machine.BytesInUse())
}

func TestDeallocateOfStackPointerIsRuntimeError(t *testing.T) {
	registry := builtins.NewRegistry()
	p := bytecode.NewProgram()
	p.Append(bytecode.NewPushLocalAddr(0))
	p.Append(bytecode.NewDeallocate())

	machine := New(p, registry)
	err := machine.Run()
	require.Error(t, err)
}

func TestFunctionCallAndReturn(t *testing.T) {
	registry := builtins.NewRegistry()

	p := bytecode.NewProgram()
	// main: reserve header, push args 1 and 2, call add, then halt (falls
	// off the end).
	p.Append(bytecode.NewLoadBytes(make([]byte, frameHeaderSize)))
	p.Append(bytecode.NewLoadBytes(value.EncodeI64(1)))
	p.Append(bytecode.NewLoadBytes(value.EncodeI64(2)))
	callPC := p.Append(bytecode.NewFunctionCall(0, 16)) // patched below

	// add(a, b) function body, placed after main's call site.
	headerPC := p.Append(bytecode.NewFunctionHeader(0))
	bodyStart := p.Len()
	p.Append(bytecode.NewPushLocalAddr(16)) // &a
	p.Append(bytecode.NewLoad(8))
	p.Append(bytecode.NewPushLocalAddr(24)) // &b
	p.Append(bytecode.NewLoad(8))
	addFn := func() bytecode.Instruction {
		return bytecode.NewBuiltinCall(builtins.Key("+", []types.Name{types.I64Type(), types.I64Type()}))
	}
	p.Append(addFn())
	p.Append(bytecode.NewReturn(8))
	bodyEnd := p.Len()

	p.Patch(callPC, bytecode.NewFunctionCall(bodyStart, 16))
	p.Patch(headerPC, bytecode.NewFunctionHeader(bodyEnd))

	addI64(registry)
	machine := New(p, registry)
	require.NoError(t, machine.Run())
	require.Equal(t, int64(3), value.DecodeI64(machine.Stack().Pop(8)))
}

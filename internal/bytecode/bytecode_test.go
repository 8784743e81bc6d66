package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgramAppendReturnsPC(t *testing.T) {
	p := NewProgram()

	pc0 := p.Append(NewPushGlobalAddr(0))
	pc1 := p.Append(NewLoad(8))

	require.Equal(t, uint64(0), pc0)
	require.Equal(t, uint64(1), pc1)
	require.Equal(t, uint64(2), p.Len())
}

func TestProgramPatchRewritesJumpDelta(t *testing.T) {
	p := NewProgram()
	p.Append(NewPushLocalAddr(16))
	jumpPC := p.Append(NewJumpIfFalse(0))
	p.Append(NewPop(8))
	target := p.Len()

	p.Patch(jumpPC, NewJumpIfFalse(int64(target-jumpPC)))

	require.Equal(t, int64(2), p.Instructions[jumpPC].Delta)
}

func TestInstructionStringRendersFields(t *testing.T) {
	require.Equal(t, "push_local_addr 16", NewPushLocalAddr(16).String())
	require.Equal(t, "function_call 10 24", NewFunctionCall(10, 24).String())
	require.Equal(t, "jump +3", NewJump(3).String())
	require.Equal(t, "jump_if_false -2", NewJumpIfFalse(-2).String())
	require.Equal(t, `debug "entering loop"`, NewDebug("entering loop").String())
}

func TestProgramSymbolsTrackFunctionHeaders(t *testing.T) {
	p := NewProgram()
	p.Append(NewFunctionHeader(5))
	p.Symbols["main"] = 0

	require.Equal(t, uint64(0), p.Symbols["main"])
}

func TestOpStringUnknown(t *testing.T) {
	var o Op = 255
	require.Equal(t, "?unknown?", o.String())
}

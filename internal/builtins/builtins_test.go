package builtins

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"vmcore/internal/types"
	"vmcore/internal/value"
)

// fakeMachine backs Machine with a single flat buffer standing in for the
// combined stack/heap space, enough to exercise list_at's pointer read.
type fakeMachine struct {
	stack *ByteStack
	mem   []byte
}

func (f *fakeMachine) Stack() *ByteStack { return f.stack }

func (f *fakeMachine) ReadPtr(p value.Ptr, n uint64) []byte {
	off := p.Offset()
	return f.mem[off : off+n]
}

func TestPrintI64WritesDecimal(t *testing.T) {
	var buf bytes.Buffer
	r := Standard(&buf)

	entry, err := r.Lookup("println", []types.Name{types.I64Type()})
	require.NoError(t, err)

	m := &fakeMachine{stack: NewByteStack()}
	m.stack.Push(value.EncodeI64(42))
	require.NoError(t, entry.Routine(m))

	require.Equal(t, "42\n", buf.String())
	require.Equal(t, uint64(1), m.stack.Len(), "null return value left on stack")
}

func TestOverloadResolutionIsExactMatch(t *testing.T) {
	r := Standard(&bytes.Buffer{})

	_, err := r.Lookup("print", []types.Name{types.I32Type()})
	require.NoError(t, err)

	_, err = r.Lookup("print", []types.Name{types.Pointer(types.I32Type())})
	require.Error(t, err)
}

func TestStringPrintOverload(t *testing.T) {
	var buf bytes.Buffer
	r := Standard(&buf)
	EnsureStringPrintOverloads(r, &buf, 2)

	strType := types.List(types.CharType(), 2)
	entry, err := r.Lookup("println", []types.Name{strType})
	require.NoError(t, err)

	m := &fakeMachine{stack: NewByteStack()}
	m.stack.Push([]byte("hi"))
	require.NoError(t, entry.Routine(m))
	require.Equal(t, "hi\n", buf.String())
}

func TestListInstantiationSizeAndAt(t *testing.T) {
	r := NewRegistry()
	store := types.NewStore()
	require.NoError(t, EnsureListInstantiation(r, store, types.I32Type(), 3))

	listType := types.List(types.I32Type(), 3)
	ptrType := types.Pointer(listType)

	sizeEntry, err := r.Lookup("list_size", []types.Name{ptrType})
	require.NoError(t, err)

	mem := make([]byte, 0, 32)
	mem = append(mem, value.EncodeI32(7)...)
	mem = append(mem, value.EncodeI32(8)...)
	mem = append(mem, value.EncodeI32(9)...)
	m := &fakeMachine{stack: NewByteStack(), mem: mem}

	ptr := value.NewHeapPtr(0)
	ptrBytes := ptr.Bytes()
	m.stack.Push(ptrBytes[:])
	require.NoError(t, sizeEntry.Routine(m))
	require.Equal(t, uint64(3), value.DecodeU64(m.stack.Pop(8)))

	atEntry, err := r.Lookup("list_at", []types.Name{ptrType, types.U64Type()})
	require.NoError(t, err)

	m.stack.Push(ptrBytes[:])
	m.stack.Push(value.EncodeU64(1))
	require.NoError(t, atEntry.Routine(m))
	require.Equal(t, int32(8), value.DecodeI32(m.stack.Pop(4)))
}

func TestRegistryHasAvoidsDuplicateWork(t *testing.T) {
	r := NewRegistry()
	store := types.NewStore()
	require.NoError(t, EnsureListInstantiation(r, store, types.I32Type(), 3))
	require.True(t, r.Has("list_size", []types.Name{types.Pointer(types.List(types.I32Type(), 3))}))
}

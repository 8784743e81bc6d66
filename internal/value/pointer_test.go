package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointerRoundTrip(t *testing.T) {
	stack := NewStackPtr(120)
	require.False(t, stack.IsHeap())
	require.Equal(t, uint64(120), stack.Offset())

	heap := NewHeapPtr(8)
	require.True(t, heap.IsHeap())
	require.Equal(t, uint64(8), heap.Offset())

	encoded := heap.Bytes()
	decoded := PtrFromBytes(encoded[:])
	require.Equal(t, heap, decoded)
}

func TestPointerAddPreservesRegionTag(t *testing.T) {
	heap := NewHeapPtr(16)
	moved := heap.Add(24)
	require.True(t, moved.IsHeap())
	require.Equal(t, uint64(40), moved.Offset())

	stack := NewStackPtr(16)
	movedStack := stack.Add(24)
	require.False(t, movedStack.IsHeap())
	require.Equal(t, uint64(40), movedStack.Offset())
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	require.Equal(t, int32(-42), DecodeI32(EncodeI32(-42)))
	require.Equal(t, int64(-4200), DecodeI64(EncodeI64(-4200)))
	require.Equal(t, uint64(4200), DecodeU64(EncodeU64(4200)))
	require.InDelta(t, 3.14, DecodeF64(EncodeF64(3.14)), 1e-12)
	require.Equal(t, true, DecodeBool(EncodeBool(true)))
	require.Equal(t, false, DecodeBool(EncodeBool(false)))
	require.Equal(t, []byte{0x00}, Null())
}

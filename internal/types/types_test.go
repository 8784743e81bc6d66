package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualStructural(t *testing.T) {
	a := List(I64Type(), 3)
	b := List(I64Type(), 3)
	require.True(t, Equal(a, b))

	c := List(I64Type(), 4)
	require.False(t, Equal(a, c))

	p1 := Pointer(I32Type())
	p2 := Pointer(I32Type())
	require.True(t, Equal(p1, p2))
	require.False(t, Equal(p1, Pointer(F64Type())))
}

func TestStoreSizeOfFundamentals(t *testing.T) {
	s := NewStore()

	sizes := map[Name]uint64{
		I32Type():  4,
		I64Type():  8,
		U64Type():  8,
		F64Type():  8,
		CharType(): 1,
		BoolType(): 1,
		NullType(): 1,
	}
	for typ, want := range sizes {
		got, err := s.SizeOf(typ)
		require.NoError(t, err)
		require.Equal(t, want, got, "size of %s", typ)
	}
}

func TestStoreSizeOfListAndPointer(t *testing.T) {
	s := NewStore()

	listSize, err := s.SizeOf(List(I32Type(), 3))
	require.NoError(t, err)
	require.Equal(t, uint64(12), listSize)

	ptrSize, err := s.SizeOf(Pointer(I64Type()))
	require.NoError(t, err)
	require.Equal(t, uint64(8), ptrSize)
}

func TestStoreRecordRoundTrip(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add("V", []Field{
		{Name: "x", Type: I64Type()},
		{Name: "y", Type: I64Type()},
	}))

	size, err := s.SizeOf(Simple("V"))
	require.NoError(t, err)
	require.Equal(t, uint64(16), size)

	offset, err := s.OffsetOf(Simple("V"), "y")
	require.NoError(t, err)
	require.Equal(t, uint64(8), offset)

	require.Error(t, s.Add("V", nil), "duplicate record names must be rejected")
}

func TestStoreUnknownType(t *testing.T) {
	s := NewStore()
	_, err := s.SizeOf(Simple("DoesNotExist"))
	require.Error(t, err)
}

package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateGrowsWhenFreeListEmpty(t *testing.T) {
	a := NewAllocator()

	off1 := a.Allocate(16)
	off2 := a.Allocate(8)

	require.Equal(t, uint64(0), off1)
	require.Equal(t, uint64(16), off2)
	require.Equal(t, uint64(24), a.BytesInUse())
	require.Equal(t, uint64(24), a.End())
}

func TestFreeThenAllocateReusesRegion(t *testing.T) {
	a := NewAllocator()

	off1 := a.Allocate(16)
	_ = a.Allocate(16)

	require.NoError(t, a.Free(off1, 16))
	require.Equal(t, uint64(16), a.BytesInUse())

	reused := a.Allocate(16)
	require.Equal(t, off1, reused)
	require.Equal(t, uint64(32), a.BytesInUse())
	require.Equal(t, uint64(32), a.End(), "reuse must not grow the arena")
}

func TestFreeSplitsLargerRegion(t *testing.T) {
	a := NewAllocator()

	off := a.Allocate(32)
	require.NoError(t, a.Free(off, 32))

	small := a.Allocate(8)
	require.Equal(t, off, small)
	require.Equal(t, uint64(8), a.BytesInUse())

	// the remaining 24 bytes of the freed region should still be available
	rest := a.Allocate(24)
	require.Equal(t, off+8, rest)
	require.Equal(t, uint64(32), a.BytesInUse())
	require.Equal(t, uint64(32), a.End())
}

func TestFreeCoalescesAdjacentRegions(t *testing.T) {
	a := NewAllocator()

	off1 := a.Allocate(16)
	off2 := a.Allocate(16)
	off3 := a.Allocate(16)

	require.NoError(t, a.Free(off1, 16))
	require.NoError(t, a.Free(off3, 16))
	require.NoError(t, a.Free(off2, 16))

	// all three regions should have coalesced into one contiguous free
	// span, satisfying a single 48-byte allocation without growing.
	whole := a.Allocate(48)
	require.Equal(t, off1, whole)
	require.Equal(t, uint64(48), a.End())
}

func TestFreeOutOfRangeErrors(t *testing.T) {
	a := NewAllocator()
	_ = a.Allocate(8)

	err := a.Free(100, 16)
	require.Error(t, err)
}

func TestZeroSizeAllocationsAreNoops(t *testing.T) {
	a := NewAllocator()

	off := a.Allocate(0)
	require.Equal(t, uint64(0), off)
	require.Equal(t, uint64(0), a.BytesInUse())
	require.NoError(t, a.Free(off, 0))
}

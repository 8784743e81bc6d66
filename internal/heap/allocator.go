// Package heap implements the VM's explicit, garbage-collector-free heap: a
// free-list allocator over a growable byte buffer.
package heap

import (
	"sort"

	"github.com/pkg/errors"
)

// freeRegion is a single free-list entry: a byte range [Offset, Offset+Size)
// currently available for allocation.
type freeRegion struct {
	Offset uint64
	Size   uint64
}

// Allocator is a free-list heap allocator. It owns no backing storage
// itself - the VM's combined byte buffer is the arena; the allocator only
// tracks which byte ranges within it are free.
type Allocator struct {
	free       []freeRegion
	bytesInUse uint64
	// end is the offset one past the highest byte ever handed out; End
	// reports it, telling the VM how far its backing buffer must extend.
	end uint64
}

// NewAllocator returns an allocator over an initially-empty heap region.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// BytesInUse returns the number of bytes currently allocated (not freed).
func (a *Allocator) BytesInUse() uint64 { return a.bytesInUse }

// End returns one past the highest byte offset the allocator has ever
// handed out or reserved as free space - the VM grows its heap buffer to at
// least this length.
func (a *Allocator) End() uint64 { return a.end }

// Allocate reserves a region of exactly size bytes and returns its offset.
// It first looks for a free region big enough to carve size bytes from
// (splitting the remainder back into the free list); if none fits, it grows
// the heap by extending End().
func (a *Allocator) Allocate(size uint64) uint64 {
	if size == 0 {
		return a.end
	}

	for i, r := range a.free {
		if r.Size < size {
			continue
		}
		offset := r.Offset
		if r.Size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = freeRegion{Offset: r.Offset + size, Size: r.Size - size}
		}
		a.bytesInUse += size
		return offset
	}

	offset := a.end
	a.end += size
	a.bytesInUse += size
	return offset
}

// Free releases the region [offset, offset+size) back to the free list,
// coalescing it with any adjacent free regions. size must match the size
// originally passed to Allocate for this offset - the allocator has no way
// to verify this itself and trusts the caller (the VM, which read it back
// out of the Deallocate instruction's size header).
func (a *Allocator) Free(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	if offset+size > a.end {
		return errors.Errorf("heap: free of [%d, %d) exceeds allocated range [0, %d)", offset, offset+size, a.end)
	}

	a.free = append(a.free, freeRegion{Offset: offset, Size: size})
	a.bytesInUse -= size
	a.coalesce()
	return nil
}

// coalesce merges adjacent free regions after sorting the free list by
// offset. Called after every Free so the list never accumulates splittable
// neighbors.
func (a *Allocator) coalesce() {
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].Offset < a.free[j].Offset })

	merged := a.free[:0:0]
	for _, r := range a.free {
		if n := len(merged); n > 0 && merged[n-1].Offset+merged[n-1].Size == r.Offset {
			merged[n-1].Size += r.Size
			continue
		}
		merged = append(merged, r)
	}
	a.free = merged
}

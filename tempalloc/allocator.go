// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tempalloc

import (
	"errors"
	"fmt"
)

// Allocation errors.
var (
	// ErrInvalidAlignment is returned when the alignment is zero or not a
	// power of two.
	ErrInvalidAlignment = errors.New("tempalloc: alignment must be a power of two")

	// ErrAllocationTooLarge is returned when a request does not fit even in a
	// fresh block.
	ErrAllocationTooLarge = errors.New("tempalloc: allocation larger than block")
)

// Block is a contiguous region handed out by a BlockSource.
type Block[H any] struct {
	// Data is the CPU-visible memory of the block. It may be nil when the
	// backing has no CPU mapping; allocations then carry no Bytes.
	Data []byte

	// Backing identifies the resource behind the block, typically a GPU buffer.
	Backing H

	// Capacity is the size of the block in bytes.
	Capacity uint64
}

// Allocation is a window into a block.
type Allocation[H any] struct {
	// Backing is the Backing of the block the window lives in.
	Backing H

	// Offset is the byte offset of the window within the block.
	Offset uint64

	// Bytes is the window itself, or nil when the block has no Data.
	// Its capacity is clipped to the window.
	Bytes []byte
}

// BlockSource supplies blocks to a TempAllocator.
type BlockSource[H any] interface {
	// NextFreeBlock returns a block the allocator may write from offset 0.
	NextFreeBlock() (Block[H], error)
}

// BlockSizer is implemented by sources whose blocks all have the same size.
// An allocator over such a source rejects oversized requests without
// fetching a block.
type BlockSizer interface {
	BlockSize() uint64
}

// Stats contains allocator counters.
type Stats struct {
	// Blocks is the number of blocks fetched from the source.
	Blocks uint64

	// Allocations is the number of successful Allocate calls.
	Allocations uint64

	// Bytes is the total size of all successful allocations.
	Bytes uint64

	// Wasted is the number of bytes abandoned at the end of blocks, including
	// alignment padding.
	Wasted uint64
}

// String returns a human-readable summary of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("TempAllocator[%d blocks, %d allocations, %d bytes, %d wasted]",
		s.Blocks, s.Allocations, s.Bytes, s.Wasted)
}

// TempAllocator is a bump allocator over blocks from a BlockSource.
type TempAllocator[H any] struct {
	source BlockSource[H]

	block    Block[H]
	hasBlock bool
	offset   uint64
	// limit is the largest request a block can hold: the source's block size,
	// or the capacity of the last block fetched. Zero means not known yet.
	limit uint64

	stats Stats
}

// New creates an allocator that fetches its blocks from source.
// The first block is fetched by the first Allocate.
func New[H any](source BlockSource[H]) *TempAllocator[H] {
	a := &TempAllocator[H]{source: source}
	if s, ok := source.(BlockSizer); ok {
		a.limit = s.BlockSize()
	}
	return a
}

// Allocate returns a window of size bytes whose offset is a multiple of align.
//
// If the window does not fit in the active block, a new block is fetched and
// the window starts at offset 0 of it. The remainder of the old block is not
// reused. Once the block size is known, a request larger than a block fails
// without touching the active block or the source.
func (a *TempAllocator[H]) Allocate(size, align uint64) (Allocation[H], error) {
	if align == 0 || align&(align-1) != 0 {
		return Allocation[H]{}, fmt.Errorf("%w: got %d", ErrInvalidAlignment, align)
	}
	if a.limit > 0 && size > a.limit {
		return Allocation[H]{}, tooLarge(size, a.limit)
	}

	if a.hasBlock {
		start := alignUp(a.offset, align)
		if start <= a.block.Capacity && size <= a.block.Capacity-start {
			a.stats.Wasted += start - a.offset
			return a.take(start, size), nil
		}
		a.stats.Wasted += a.block.Capacity - a.offset
	}

	block, err := a.source.NextFreeBlock()
	if err != nil {
		a.Release()
		return Allocation[H]{}, fmt.Errorf("tempalloc: next block: %w", err)
	}
	a.block = block
	a.hasBlock = true
	a.offset = 0
	a.limit = block.Capacity
	a.stats.Blocks++

	if size > block.Capacity {
		return Allocation[H]{}, tooLarge(size, block.Capacity)
	}
	return a.take(0, size), nil
}

func tooLarge(size, capacity uint64) error {
	return fmt.Errorf("%w: %d bytes requested, block holds %d",
		ErrAllocationTooLarge, size, capacity)
}

// take hands out [start, start+size) of the active block.
func (a *TempAllocator[H]) take(start, size uint64) Allocation[H] {
	end := start + size
	a.offset = end
	a.stats.Allocations++
	a.stats.Bytes += size

	alloc := Allocation[H]{Backing: a.block.Backing, Offset: start}
	if a.block.Data != nil {
		alloc.Bytes = a.block.Data[start:end:end]
	}
	return alloc
}

// Release drops the active block. The next Allocate fetches a new one.
func (a *TempAllocator[H]) Release() {
	if a.hasBlock {
		a.stats.Wasted += a.block.Capacity - a.offset
	}
	a.block = Block[H]{}
	a.hasBlock = false
	a.offset = 0
}

// Offset returns the current offset into the active block.
func (a *TempAllocator[H]) Offset() uint64 {
	return a.offset
}

// Stats returns allocator counters.
func (a *TempAllocator[H]) Stats() Stats {
	return a.stats
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

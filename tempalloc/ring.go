// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tempalloc

import (
	"errors"
	"fmt"

	"github.com/eapache/queue"

	"github.com/gogpu/respool"
)

// ErrInvalidBlockSize is returned by a RingSource created with a zero block size.
var ErrInvalidBlockSize = errors.New("tempalloc: block size must be positive")

// BlockFactory creates a new block of the given size.
type BlockFactory[H any] func(size uint64) (Block[H], error)

// stampedBlock is a block in flight together with the frame it was handed out in.
type stampedBlock[H any] struct {
	block Block[H]
	frame uint64
}

// RingStats contains block counts for a RingSource.
type RingStats struct {
	// BlockSize is the size of every block.
	BlockSize uint64

	// Created is the number of blocks created through the factory.
	Created int

	// InFlight is the number of blocks handed out and not yet retired.
	InFlight int

	// Free is the number of retired blocks ready for reuse.
	Free int
}

// String returns a human-readable summary of the stats.
func (s RingStats) String() string {
	return fmt.Sprintf("RingSource[%d in flight, %d free, %d created, %d bytes each]",
		s.InFlight, s.Free, s.Created, s.BlockSize)
}

// RingSource is a BlockSource that recycles blocks once the frame that used
// them has retired.
//
// Blocks handed out are queued in FIFO order with the frame set by the last
// BeginFrame. Frames must be non-decreasing, so Retire only ever has to look
// at the head of the queue.
type RingSource[H any] struct {
	size   uint64
	create BlockFactory[H]

	inFlight *queue.Queue
	free     []Block[H]
	frame    uint64

	created int
}

// NewRingSource creates a source of blocks of blockSize bytes made by create.
func NewRingSource[H any](blockSize uint64, create BlockFactory[H]) (*RingSource[H], error) {
	if blockSize == 0 {
		return nil, ErrInvalidBlockSize
	}
	return &RingSource[H]{
		size:     blockSize,
		create:   create,
		inFlight: queue.New(),
	}, nil
}

// BlockSize returns the size of the blocks handed out.
func (r *RingSource[H]) BlockSize() uint64 {
	return r.size
}

// BeginFrame sets the frame stamped on blocks handed out from now on.
func (r *RingSource[H]) BeginFrame(frame uint64) {
	r.frame = frame
}

// NextFreeBlock returns a recycled block if one is free, otherwise a new one.
func (r *RingSource[H]) NextFreeBlock() (Block[H], error) {
	var b Block[H]
	if n := len(r.free); n > 0 {
		b = r.free[n-1]
		r.free[n-1] = Block[H]{}
		r.free = r.free[:n-1]
	} else {
		var err error
		b, err = r.create(r.size)
		if err != nil {
			return Block[H]{}, fmt.Errorf("tempalloc: create block: %w", err)
		}
		r.created++
		respool.Logger().Debug("tempalloc: block created",
			"size", r.size, "created", r.created, "frame", r.frame)
	}
	r.inFlight.Add(stampedBlock[H]{block: b, frame: r.frame})
	return b, nil
}

// Retire makes every block handed out in frame or earlier free for reuse.
// It returns the number of blocks retired.
func (r *RingSource[H]) Retire(frame uint64) int {
	n := 0
	for r.inFlight.Length() > 0 {
		s := r.inFlight.Peek().(stampedBlock[H]) //nolint:errcheck // only stampedBlock values are queued
		if s.frame > frame {
			break
		}
		r.inFlight.Remove()
		r.free = append(r.free, s.block)
		n++
	}
	return n
}

// Destroy calls fn for every block the source created, in flight or free,
// and forgets them.
func (r *RingSource[H]) Destroy(fn func(Block[H])) {
	for r.inFlight.Length() > 0 {
		s := r.inFlight.Remove().(stampedBlock[H]) //nolint:errcheck // only stampedBlock values are queued
		if fn != nil {
			fn(s.block)
		}
	}
	for i, b := range r.free {
		if fn != nil {
			fn(b)
		}
		r.free[i] = Block[H]{}
	}
	r.free = r.free[:0]
	r.created = 0
}

// Stats returns current block counts.
func (r *RingSource[H]) Stats() RingStats {
	return RingStats{
		BlockSize: r.size,
		Created:   r.created,
		InFlight:  r.inFlight.Length(),
		Free:      len(r.free),
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package respool

import "fmt"

// InvalidGeneration is the reserved generation value carried by invalid handles.
// It is never issued by a Pool.
const InvalidGeneration uint16 = 0xFFFF

// pendingGeneration marks a slot that is free or waiting for physical deletion.
// Like InvalidGeneration it is never issued by a Pool.
const pendingGeneration uint16 = 0

// Handle identifies a slot in a Pool by index and generation.
//
// The type parameter tags the handle with the kind of resource it refers to,
// so a Handle[Texture] cannot be passed where a Handle[Buffer] is expected.
// Handles are plain values: copying one does not affect the resource, and a
// copy goes stale at the same moment as the original.
//
// The zero Handle is invalid.
type Handle[T any] struct {
	index uint16
	// gen stores generation+1 so that the zero value decodes to InvalidGeneration.
	gen uint16
}

// NewHandle builds a handle from raw parts. Pools are the only source of live
// handles; this is mostly useful in tests and for decoding debug output.
func NewHandle[T any](index, generation uint16) Handle[T] {
	return Handle[T]{index: index, gen: generation + 1}
}

// InvalidHandle returns the invalid handle for T. It is equal to Handle[T]{}.
func InvalidHandle[T any]() Handle[T] {
	return Handle[T]{}
}

// Index returns the slot index.
func (h Handle[T]) Index() uint16 {
	return h.index
}

// Generation returns the slot generation the handle was issued with.
func (h Handle[T]) Generation() uint16 {
	return h.gen - 1
}

// IsInvalid reports whether h carries the reserved InvalidGeneration.
func (h Handle[T]) IsInvalid() bool {
	return h.Generation() == InvalidGeneration
}

// String returns a human-readable representation of the handle.
func (h Handle[T]) String() string {
	if h.IsInvalid() {
		return "Handle(invalid)"
	}
	return fmt.Sprintf("Handle(%d:%d)", h.index, h.Generation())
}

// NextGeneration returns the generation that follows g.
//
// Generations count up from 1 and wrap from 0xFFFE back to 1, skipping both
// InvalidGeneration and the pending marker 0. After 65534 reuses of one slot a
// very old stale handle can match again; that aliasing window is accepted.
func NextGeneration(g uint16) uint16 {
	g++
	if g == InvalidGeneration || g == pendingGeneration {
		g = 1
	}
	return g
}

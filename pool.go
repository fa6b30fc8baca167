// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package respool

import "fmt"

// deletionBuckets is the size of the deferred-deletion ring. A slot marked in
// one frame is finalized by the Cleanup that runs two frames later.
const deletionBuckets = 3

// MaxCapacity is the largest number of slots a Pool can hold; handle indices
// are 16 bits wide.
const MaxCapacity = 1 << 16

// Finalizer releases the backend resource held by a slot. It is called exactly
// once per slot, right before the slot returns to the free list. Both pointers
// are only valid for the duration of the call.
type Finalizer[P, M any] func(payload *P, meta *M)

// PoolOption configures a Pool during creation.
type PoolOption func(*poolOptions)

type poolOptions struct {
	name string
}

// WithName sets the name used for the pool in log output and Stats.
func WithName(name string) PoolOption {
	return func(o *poolOptions) {
		o.name = name
	}
}

// Pool is a growable slot table addressed by generation-checked handles.
//
// Every slot is either free, live, or pending. Insert moves a free slot to
// live and returns a handle for it. MarkForDelete moves a live slot to pending:
// every copy of its handle stops resolving at once, but the payload is kept
// until Cleanup has been called often enough for in-flight GPU work to retire.
// Cleanup then runs the finalizer and returns the slot to the free list.
//
// Slots never move. Growth reallocates the backing slices but keeps every
// slot at its index, so handles stay valid across Grow; pointers returned by
// Get and GetMetadata, however, only stay valid until the next Insert or Grow.
//
// Handles are typed by the payload type P, so a Handle[P] from one pool is
// accepted by any other pool with the same payload type. Give each resource
// kind its own payload type, or a defined type over a shared one, to keep
// their handles apart.
//
// Pool is NOT safe for concurrent use. It is meant to be driven from the
// single goroutine that runs the frame loop.
type Pool[P, M any] struct {
	name string

	metadata []M
	payloads []P
	// handles holds the handle currently owning each slot. Free slots hold the
	// invalid handle, pending slots hold generation 0.
	handles []Handle[P]
	// issued is the last generation handed out for each slot, so a recycled
	// slot continues counting where it left off.
	issued []uint16
	// freeList[:free] is a LIFO stack of free indices.
	freeList []uint16
	free     int

	deleted [deletionBuckets][]Handle[P]
	active  int
	pending int

	grows     uint64
	finalized uint64
}

// NewPool creates a pool with room for capacity slots, all free.
// It panics if capacity is not in [1, MaxCapacity].
func NewPool[P, M any](capacity int, opts ...PoolOption) *Pool[P, M] {
	if capacity <= 0 || capacity > MaxCapacity {
		violation("pool capacity %d out of range [1, %d]", capacity, MaxCapacity)
	}
	var o poolOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool[P, M]{
		name:     o.name,
		metadata: make([]M, capacity),
		payloads: make([]P, capacity),
		handles:  make([]Handle[P], capacity),
		issued:   make([]uint16, capacity),
		freeList: make([]uint16, capacity),
	}
	p.pushFreeRange(0, capacity)
	return p
}

// Name returns the pool name set with WithName.
func (p *Pool[P, M]) Name() string {
	return p.name
}

// Cap returns the number of slots.
func (p *Pool[P, M]) Cap() int {
	return len(p.handles)
}

// Len returns the number of live slots.
func (p *Pool[P, M]) Len() int {
	return len(p.handles) - p.free - p.pending
}

// Pending returns the number of slots marked for deletion but not yet finalized.
func (p *Pool[P, M]) Pending() int {
	return p.pending
}

// Grow enlarges the pool to newCapacity slots. Existing slots keep their
// indices and contents; the new slots are free and will be handed out in
// ascending order once the current free slots are used up.
//
// It panics if newCapacity does not exceed the current capacity or is larger
// than MaxCapacity.
func (p *Pool[P, M]) Grow(newCapacity int) {
	oldCapacity := len(p.handles)
	if newCapacity <= oldCapacity {
		violation("grow %q from %d to %d slots does not grow", p.name, oldCapacity, newCapacity)
	}
	if newCapacity > MaxCapacity {
		panic(fmt.Errorf("%w: %q cannot grow to %d slots", ErrPoolFull, p.name, newCapacity))
	}

	p.metadata = growSlice(p.metadata, newCapacity)
	p.payloads = growSlice(p.payloads, newCapacity)
	p.handles = growSlice(p.handles, newCapacity)
	p.issued = growSlice(p.issued, newCapacity)

	// New indices go underneath the existing free entries so that slots freed
	// before the growth are still reused first.
	freeList := make([]uint16, newCapacity)
	added := newCapacity - oldCapacity
	copy(freeList[added:], p.freeList[:p.free])
	p.freeList = freeList
	oldFree := p.free
	p.free = 0
	p.pushFreeRange(oldCapacity, newCapacity)
	p.free += oldFree

	p.grows++
	Logger().Debug("respool: pool grown",
		"pool", p.name, "from", oldCapacity, "to", newCapacity)
}

// growSlice returns a slice of length n holding s at the same indices.
func growSlice[T any](s []T, n int) []T {
	out := make([]T, n)
	copy(out, s)
	return out
}

// pushFreeRange writes indices [lo, hi) to the bottom of the free stack so
// that lo is popped first.
func (p *Pool[P, M]) pushFreeRange(lo, hi int) {
	for i := hi - 1; i >= lo; i-- {
		p.freeList[p.free] = uint16(i) //nolint:gosec // G115: i < MaxCapacity
		p.free++
	}
}

// ValidateHandle reports whether h refers to a live slot of this pool.
func (p *Pool[P, M]) ValidateHandle(h Handle[P]) bool {
	g := h.Generation()
	if g == InvalidGeneration || g == pendingGeneration {
		return false
	}
	if int(h.index) >= len(p.handles) {
		return false
	}
	return p.handles[h.index].Generation() == g
}

// Get returns the payload of the slot h refers to.
// It returns (nil, false) when h is stale or invalid.
func (p *Pool[P, M]) Get(h Handle[P]) (*P, bool) {
	if !p.ValidateHandle(h) {
		return nil, false
	}
	return &p.payloads[h.index], true
}

// GetMetadata returns the metadata of the slot h refers to.
// It returns (nil, false) when h is stale or invalid.
func (p *Pool[P, M]) GetMetadata(h Handle[P]) (*M, bool) {
	if !p.ValidateHandle(h) {
		return nil, false
	}
	return &p.metadata[h.index], true
}

// Insert stores meta and payload in a free slot and returns its handle.
// When no slot is free the pool doubles in size first.
func (p *Pool[P, M]) Insert(meta M, payload P) Handle[P] {
	if p.free == 0 {
		newCapacity := min(len(p.handles)*2, MaxCapacity)
		if newCapacity == len(p.handles) {
			panic(fmt.Errorf("%w: %q holds %d slots", ErrPoolFull, p.name, len(p.handles)))
		}
		p.Grow(newCapacity)
	}

	p.free--
	index := p.freeList[p.free]

	gen := NextGeneration(p.issued[index])
	p.issued[index] = gen
	h := NewHandle[P](index, gen)
	p.handles[index] = h
	p.metadata[index] = meta
	p.payloads[index] = payload
	return h
}

// MarkForDelete invalidates h and schedules its slot for finalization.
// Marking a stale or invalid handle, including marking the same handle
// twice, does nothing. It reports whether the slot was scheduled.
func (p *Pool[P, M]) MarkForDelete(h Handle[P]) bool {
	if !p.ValidateHandle(h) {
		return false
	}
	p.handles[h.index] = NewHandle[P](h.index, pendingGeneration)
	p.deleted[p.active] = append(p.deleted[p.active], h)
	p.pending++
	return true
}

// Cleanup finalizes the slots marked two Cleanup calls ago and returns them
// to the free list, then rotates the deletion ring. Call it once per frame.
// It returns the number of slots finalized.
//
// finalize may be nil when the payloads own nothing that needs releasing.
func (p *Pool[P, M]) Cleanup(finalize Finalizer[P, M]) int {
	stale := (p.active + 1) % deletionBuckets
	bucket := p.deleted[stale]

	if finalize != nil {
		for _, h := range bucket {
			finalize(&p.payloads[h.index], &p.metadata[h.index])
		}
	}
	for _, h := range bucket {
		p.delete(h)
	}

	n := len(bucket)
	clear(bucket)
	p.deleted[stale] = bucket[:0]
	p.active = stale

	if n > 0 {
		Logger().Debug("respool: pool cleanup",
			"pool", p.name, "finalized", n, "pending", p.pending)
	}
	return n
}

// delete returns the slot of a handle taken from the deletion ring to the
// free list. The slot must be pending.
func (p *Pool[P, M]) delete(h Handle[P]) {
	i := h.index
	if int(i) >= len(p.handles) || p.handles[i].Generation() != pendingGeneration {
		violation("delete of %s in %q, which was not marked for deletion", h, p.name)
	}
	p.release(i)
	p.pending--
}

// release clears slot i and pushes it onto the free stack.
func (p *Pool[P, M]) release(i uint16) {
	var (
		zeroP P
		zeroM M
	)
	p.payloads[i] = zeroP
	p.metadata[i] = zeroM
	p.handles[i] = Handle[P]{}
	p.freeList[p.free] = i
	p.free++
	p.finalized++
}

// Each calls fn for every live slot in index order. fn must not insert into
// or delete from the pool.
func (p *Pool[P, M]) Each(fn func(h Handle[P], payload *P, meta *M)) {
	for i := range p.handles {
		h := p.handles[i]
		g := h.Generation()
		if g == InvalidGeneration || g == pendingGeneration {
			continue
		}
		fn(h, &p.payloads[i], &p.metadata[i])
	}
}

// Drain finalizes every live and pending slot immediately, ignoring the
// deletion window, and leaves the pool with every slot free. Generations are
// kept, so handles issued before Drain stay stale afterwards. It returns the
// number of slots finalized.
//
// Drain is meant for shutdown, once no GPU work can reference the payloads.
func (p *Pool[P, M]) Drain(finalize Finalizer[P, M]) int {
	n := 0
	for i := range p.handles {
		if p.handles[i].IsInvalid() {
			continue
		}
		if finalize != nil {
			finalize(&p.payloads[i], &p.metadata[i])
		}
		n++
	}

	for b := range p.deleted {
		clear(p.deleted[b])
		p.deleted[b] = p.deleted[b][:0]
	}
	clear(p.payloads)
	clear(p.metadata)
	clear(p.handles)
	p.free = 0
	p.pending = 0
	p.active = 0
	p.pushFreeRange(0, len(p.handles))
	p.finalized += uint64(n) //nolint:gosec // G115: n is non-negative

	if n > 0 {
		Logger().Debug("respool: pool drained", "pool", p.name, "finalized", n)
	}
	return n
}

// PoolStats contains slot usage statistics for a Pool.
type PoolStats struct {
	// Name is the pool name set with WithName.
	Name string

	// Capacity is the number of slots.
	Capacity int

	// Live is the number of slots holding a resource.
	Live int

	// Pending is the number of slots waiting for finalization.
	Pending int

	// Free is the number of slots available to Insert without growing.
	Free int

	// Grows is the number of times the pool has grown.
	Grows uint64

	// Finalized is the total number of slots returned to the free list.
	Finalized uint64
}

// String returns a human-readable summary of the stats.
func (s PoolStats) String() string {
	return fmt.Sprintf("Pool[%s: %d live, %d pending, %d free of %d, %d grows, %d finalized]",
		s.Name, s.Live, s.Pending, s.Free, s.Capacity, s.Grows, s.Finalized)
}

// Stats returns current slot usage statistics.
func (p *Pool[P, M]) Stats() PoolStats {
	return PoolStats{
		Name:      p.name,
		Capacity:  len(p.handles),
		Live:      p.Len(),
		Pending:   p.pending,
		Free:      p.free,
		Grows:     p.grows,
		Finalized: p.finalized,
	}
}

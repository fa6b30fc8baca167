// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tempalloc provides a linear allocator for per-frame scratch data
// such as uniforms and dynamic vertices.
//
// A [TempAllocator] carves aligned windows out of the block it was last
// handed by its [BlockSource]. When a request does not fit, the rest of the
// block is abandoned and the next block is fetched. There is no per-allocation
// free: blocks come back only when the source recycles them.
//
// [RingSource] is a BlockSource that stamps every block it hands out with the
// current frame and recycles it once that frame is known to be retired:
//
//	src := tempalloc.NewRingSource(1<<20, newUploadBlock)
//	alloc := tempalloc.New[*uploadBlock](src)
//
//	// each frame
//	src.Retire(frame - framesInFlight)
//	src.BeginFrame(frame)
//	alloc.Release()
//	a, err := alloc.Allocate(256, 256)
//
// Neither type is safe for concurrent use.
package tempalloc

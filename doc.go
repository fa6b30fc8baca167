// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package respool provides generation-checked handle pools for GPU resources
// with frame-deferred deletion.
//
// # Overview
//
// A renderer creates and destroys textures, buffers and command objects
// while earlier frames are still executing on the GPU. respool lets the
// frame loop refer to those objects through small copyable handles and
// delays the actual release until the GPU can no longer be using them.
//
//	pool := respool.NewPool[Texture, TextureInfo](64, respool.WithName("textures"))
//
//	h := pool.Insert(info, tex)      // Handle(0:1)
//	if t, ok := pool.Get(h); ok { ... }
//
//	pool.MarkForDelete(h)            // every copy of h is stale from here on
//	...
//	pool.Cleanup(destroyTexture)     // once per frame
//
// # Handles
//
// A [Handle] is an index plus a 16-bit generation. The zero Handle is the
// invalid handle. Every time a slot is reused it gets the next generation
// from [NextGeneration], so a handle kept past MarkForDelete never resolves
// to the object that later takes over its slot. Lookups with a stale handle
// report not-found; they never panic.
//
// # Deferred deletion
//
// MarkForDelete puts the handle into a three-bucket ring. Each Cleanup call
// finalizes the bucket filled two calls earlier, so a resource marked during
// frame N is finalized by the Cleanup at the end of frame N+2. Drain skips
// the window and finalizes everything; it is meant for shutdown.
//
// # Growth
//
// Insert doubles the pool when it runs out of free slots. Slots keep their
// indices across growth, so handles stay valid. Pointers returned by Get
// and GetMetadata are only valid until the next Insert.
//
// # Errors
//
// Misuse that would corrupt the bookkeeping, such as deleting a slot that was
// never marked, panics with an error wrapping [ErrProtocolViolation].
// Running out of 16-bit indices panics with [ErrPoolFull].
//
// # Sub-packages
//
//   - tempalloc: per-frame linear allocator over recycled upload blocks.
//   - resource: Manager owning one pool per GPU resource kind on top of a
//     gogpu/wgpu HAL device.
//
// # Logging
//
// respool is silent by default. Call [SetLogger] to receive debug records
// about growth and cleanup and lifecycle records from the Manager.
//
// # Concurrency
//
// Pools, allocators and the Manager are not safe for concurrent use. They
// are driven from the goroutine that runs the frame loop.
package respool

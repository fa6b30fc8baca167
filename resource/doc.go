// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resource manages GPU resources behind generation-checked handles.
//
// A [Manager] owns one [respool.Pool] per resource kind (textures, buffers,
// render passes, command pools and command buffers) and a per-frame
// temporary upload allocator. Resources are created through a [Backend];
// [HALBackend] drives a github.com/gogpu/wgpu HAL device directly.
//
//	m, err := resource.NewHAL(device, queue, resource.Config{})
//	defer m.Close()
//
//	tex, err := m.CreateTexture(resource.TextureDesc{
//	    Label:  "albedo",
//	    Width:  512,
//	    Height: 512,
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	})
//
//	for frame := uint64(0); running; frame++ {
//	    m.StartFrame(frame)
//	    uniforms, _ := m.AllocateTemp(256, 256)
//	    ...
//	    m.Submit(cmd)
//	    m.EndFrame(frame)
//	}
//
// # Deferred release
//
// DestroyX marks a handle stale at once, but the backend object is released
// by the EndFrame two frames later. Frames must therefore be driven with
// StartFrame and EndFrame even when nothing is drawn. Close releases
// everything immediately after waiting for the device to go idle.
//
// # Errors
//
// Invalid descriptors fail with [ErrInvalidDescriptor] before the backend is
// called. Stale handles passed to operations that need a live resource fail
// with [ErrInvalidHandle]; getters report them with a false result. Backend
// failures are wrapped and returned, and nothing is inserted. Misusing the
// frame protocol panics with an error wrapping [respool.ErrProtocolViolation].
//
// # Memory budget
//
// With Config.MaxMemoryMB set, the manager estimates the memory of every
// texture, buffer and temporary block and refuses creations that would go
// over the budget with [ErrMemoryBudgetExceeded]. Memory is returned when
// the backend object is released, not when the handle is destroyed.
package resource

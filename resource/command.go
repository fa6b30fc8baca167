// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/respool"
)

// CommandPoolDesc describes a command pool.
type CommandPoolDesc struct {
	Label string
}

// CommandPool is the payload of a command pool slot: the HAL encoder command
// buffers of the pool are recorded with.
type CommandPool struct {
	Encoder hal.CommandEncoder
}

// CommandPoolInfo is the metadata of a command pool slot.
type CommandPoolInfo struct {
	Label string

	// Recorded is the number of command buffers recorded from the pool.
	Recorded uint64
}

// CommandBufferDesc describes a command buffer and how to record it.
type CommandBufferDesc struct {
	Label string

	// Pool is the command pool to record with.
	Pool CommandPoolHandle

	// Record writes the commands. Encoding has begun when it is called and is
	// ended by the manager. If it returns an error the encoding is discarded.
	Record func(enc hal.CommandEncoder) error
}

// CommandBuffer is the payload of a command buffer slot.
type CommandBuffer struct {
	Raw  hal.CommandBuffer
	Pool CommandPoolHandle
}

// CommandBufferInfo is the metadata of a command buffer slot.
type CommandBufferInfo struct {
	Label string
	Pool  CommandPoolHandle

	// Frame is the frame the buffer was recorded in.
	Frame uint64

	// Submission is the index of the last Submit that included the buffer,
	// or 0 if it was never submitted.
	Submission uint64
}

// CreateCommandPool creates a command pool.
func (m *Manager) CreateCommandPool(desc CommandPoolDesc) (CommandPoolHandle, error) {
	if err := m.checkOpen(); err != nil {
		return respool.InvalidHandle[CommandPool](), err
	}
	enc, err := m.backend.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: desc.Label})
	if err != nil {
		respool.Logger().Warn("resource: command pool creation failed", "label", desc.Label, "err", err)
		return respool.InvalidHandle[CommandPool](), fmt.Errorf("resource: create command pool %q: %w", desc.Label, err)
	}
	return m.commandPools.Insert(CommandPoolInfo{Label: desc.Label}, CommandPool{Encoder: enc}), nil
}

// DestroyCommandPool schedules the pool for release. Command buffers recorded
// from it must be destroyed no later than the pool. Stale handles are ignored.
func (m *Manager) DestroyCommandPool(h CommandPoolHandle) {
	m.commandPools.MarkForDelete(h)
}

// CommandPool returns the pool h refers to, or false if h is stale.
func (m *Manager) CommandPool(h CommandPoolHandle) (*CommandPool, bool) {
	return m.commandPools.Get(h)
}

// CommandPoolInfo returns the metadata of the pool h refers to, or false if
// h is stale.
func (m *Manager) CommandPoolInfo(h CommandPoolHandle) (*CommandPoolInfo, bool) {
	return m.commandPools.GetMetadata(h)
}

func (m *Manager) finalizeCommandPool(p *CommandPool, _ *CommandPoolInfo) {
	if p.Encoder != nil {
		p.Encoder.Destroy()
	}
}

// CreateCommandBuffer records a command buffer from desc.Pool.
func (m *Manager) CreateCommandBuffer(desc CommandBufferDesc) (CommandBufferHandle, error) {
	invalid := respool.InvalidHandle[CommandBuffer]()
	if err := m.checkOpen(); err != nil {
		return invalid, err
	}
	if desc.Record == nil {
		return invalid, invalidDesc("command buffer", desc.Label, "no Record function")
	}
	pool, ok := m.commandPools.Get(desc.Pool)
	if !ok {
		return invalid, fmt.Errorf("%w: command buffer %q pool %s", ErrInvalidHandle, desc.Label, desc.Pool)
	}
	enc := pool.Encoder

	if err := enc.BeginEncoding(desc.Label); err != nil {
		respool.Logger().Warn("resource: begin encoding failed", "label", desc.Label, "err", err)
		return invalid, fmt.Errorf("resource: begin command buffer %q: %w", desc.Label, err)
	}
	if err := desc.Record(enc); err != nil {
		enc.DiscardEncoding()
		return invalid, fmt.Errorf("resource: record command buffer %q: %w", desc.Label, err)
	}
	raw, err := enc.EndEncoding()
	if err != nil {
		respool.Logger().Warn("resource: end encoding failed", "label", desc.Label, "err", err)
		return invalid, fmt.Errorf("resource: end command buffer %q: %w", desc.Label, err)
	}

	if info, ok := m.commandPools.GetMetadata(desc.Pool); ok {
		info.Recorded++
	}
	info := CommandBufferInfo{Label: desc.Label, Pool: desc.Pool, Frame: m.frame}
	return m.commandBuffers.Insert(info, CommandBuffer{Raw: raw, Pool: desc.Pool}), nil
}

// DestroyCommandBuffer schedules the command buffer for release. Stale
// handles are ignored.
func (m *Manager) DestroyCommandBuffer(h CommandBufferHandle) {
	m.commandBuffers.MarkForDelete(h)
}

// CommandBuffer returns the command buffer h refers to, or false if h is stale.
func (m *Manager) CommandBuffer(h CommandBufferHandle) (*CommandBuffer, bool) {
	return m.commandBuffers.Get(h)
}

// CommandBufferInfo returns the metadata of the command buffer h refers to,
// or false if h is stale.
func (m *Manager) CommandBufferInfo(h CommandBufferHandle) (*CommandBufferInfo, bool) {
	return m.commandBuffers.GetMetadata(h)
}

func (m *Manager) finalizeCommandBuffer(cb *CommandBuffer, _ *CommandBufferInfo) {
	if cb.Raw != nil {
		m.backend.FreeCommandBuffer(cb.Raw)
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/respool"
)

// copyBufferAlignment is the size granularity of buffers.
const copyBufferAlignment uint64 = 4

// BufferDesc describes a GPU buffer.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size in bytes. Rounded up to a multiple of 4.
	Size uint64

	// Usage flags. Must not be empty.
	Usage gputypes.BufferUsage

	// MappedAtCreation requests a CPU mapping at creation time. It requires
	// MapWrite or CopyDst usage.
	MappedAtCreation bool
}

// Buffer is the payload of a buffer slot.
type Buffer struct {
	Raw hal.Buffer
}

// BufferInfo is the metadata of a buffer slot.
type BufferInfo struct {
	Label            string
	Size             uint64
	Usage            gputypes.BufferUsage
	MappedAtCreation bool
}

// String returns a short description of the buffer.
func (i BufferInfo) String() string {
	return fmt.Sprintf("Buffer[%s %d bytes usage=%#x]", i.Label, i.Size, uint64(i.Usage))
}

// CreateBuffer creates a buffer.
func (m *Manager) CreateBuffer(desc BufferDesc) (BufferHandle, error) {
	if err := m.checkOpen(); err != nil {
		return respool.InvalidHandle[Buffer](), err
	}

	switch {
	case desc.Size == 0:
		return respool.InvalidHandle[Buffer](), invalidDesc("buffer", desc.Label, "size is 0")
	case desc.Usage == 0:
		return respool.InvalidHandle[Buffer](), invalidDesc("buffer", desc.Label, "usage is empty")
	case desc.Usage.ContainsUnknownBits():
		return respool.InvalidHandle[Buffer](), invalidDesc("buffer", desc.Label, "unknown usage bits %#x", uint64(desc.Usage))
	case desc.MappedAtCreation &&
		!desc.Usage.Contains(gputypes.BufferUsageMapWrite) &&
		!desc.Usage.Contains(gputypes.BufferUsageCopyDst):
		return respool.InvalidHandle[Buffer](), invalidDesc("buffer", desc.Label, "MappedAtCreation requires MapWrite or CopyDst usage")
	}

	info := BufferInfo{
		Label:            desc.Label,
		Size:             (desc.Size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1),
		Usage:            desc.Usage,
		MappedAtCreation: desc.MappedAtCreation,
	}
	if err := m.memory.reserve("buffer", info.Label, info.Size); err != nil {
		return respool.InvalidHandle[Buffer](), err
	}
	raw, err := m.backend.CreateBuffer(&hal.BufferDescriptor{
		Label:            info.Label,
		Size:             info.Size,
		Usage:            info.Usage,
		MappedAtCreation: info.MappedAtCreation,
	})
	if err != nil {
		m.memory.release(info.Size)
		respool.Logger().Warn("resource: buffer creation failed", "label", info.Label, "err", err)
		return respool.InvalidHandle[Buffer](), fmt.Errorf("resource: create buffer %q: %w", info.Label, err)
	}
	return m.buffers.Insert(info, Buffer{Raw: raw}), nil
}

// WriteBuffer writes data into the buffer at offset through the queue.
func (m *Manager) WriteBuffer(h BufferHandle, offset uint64, data []byte) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	buf, ok := m.buffers.Get(h)
	if !ok {
		return fmt.Errorf("%w: buffer %s", ErrInvalidHandle, h)
	}
	info, _ := m.buffers.GetMetadata(h)
	if !info.Usage.Contains(gputypes.BufferUsageCopyDst) {
		return invalidDesc("buffer", info.Label, "write without CopyDst usage")
	}
	if offset > info.Size || uint64(len(data)) > info.Size-offset {
		return fmt.Errorf("%w: write of %d bytes at %d overflows buffer %q of %d bytes",
			ErrInvalidDescriptor, len(data), offset, info.Label, info.Size)
	}
	if err := m.backend.WriteBuffer(buf.Raw, offset, data); err != nil {
		return fmt.Errorf("resource: write buffer %q: %w", info.Label, err)
	}
	return nil
}

// DestroyBuffer schedules the buffer for release. Stale handles are ignored.
func (m *Manager) DestroyBuffer(h BufferHandle) {
	m.buffers.MarkForDelete(h)
}

// Buffer returns the buffer h refers to, or false if h is stale.
func (m *Manager) Buffer(h BufferHandle) (*Buffer, bool) {
	return m.buffers.Get(h)
}

// BufferInfo returns the metadata of the buffer h refers to, or false if h
// is stale.
func (m *Manager) BufferInfo(h BufferHandle) (*BufferInfo, bool) {
	return m.buffers.GetMetadata(h)
}

func (m *Manager) finalizeBuffer(b *Buffer, info *BufferInfo) {
	if b.Raw != nil {
		m.backend.DestroyBuffer(b.Raw)
	}
	m.memory.release(info.Size)
}

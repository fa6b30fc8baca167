// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import "github.com/gogpu/gputypes"

// Default manager configuration.
const (
	// DefaultTextureCapacity is the initial number of texture slots.
	DefaultTextureCapacity = 64

	// DefaultBufferCapacity is the initial number of buffer slots.
	DefaultBufferCapacity = 64

	// DefaultRenderPassCapacity is the initial number of render pass slots.
	DefaultRenderPassCapacity = 16

	// DefaultCommandBufferCapacity is the initial number of command buffer slots.
	DefaultCommandBufferCapacity = 32

	// DefaultCommandPoolCapacity is the initial number of command pool slots.
	DefaultCommandPoolCapacity = 8

	// DefaultTempBlockSize is the size of each temporary upload block (1 MiB).
	DefaultTempBlockSize = 1 << 20

	// DefaultFramesInFlight is the number of frames the CPU may run ahead of
	// the GPU before a temporary block is reused.
	DefaultFramesInFlight = 2
)

// Config holds configuration for creating a Manager.
// Non-positive fields are replaced by their defaults.
type Config struct {
	// TextureCapacity is the initial number of texture slots.
	// Defaults to DefaultTextureCapacity if <= 0.
	TextureCapacity int

	// BufferCapacity is the initial number of buffer slots.
	// Defaults to DefaultBufferCapacity if <= 0.
	BufferCapacity int

	// RenderPassCapacity is the initial number of render pass slots.
	// Defaults to DefaultRenderPassCapacity if <= 0.
	RenderPassCapacity int

	// CommandBufferCapacity is the initial number of command buffer slots.
	// Defaults to DefaultCommandBufferCapacity if <= 0.
	CommandBufferCapacity int

	// CommandPoolCapacity is the initial number of command pool slots.
	// Defaults to DefaultCommandPoolCapacity if <= 0.
	CommandPoolCapacity int

	// TempBlockSize is the size in bytes of each temporary upload block.
	// Defaults to DefaultTempBlockSize if 0.
	TempBlockSize uint64

	// FramesInFlight is how many frames pass before a temporary block handed
	// out in a frame is reused. Pool deletion always uses a fixed window of two
	// frames.
	// Defaults to DefaultFramesInFlight if <= 0.
	FramesInFlight int

	// MaxMemoryMB is the budget in megabytes for the estimated memory of
	// textures, buffers and temporary blocks. Zero or negative means no budget.
	MaxMemoryMB int

	// DefaultFormat is used for textures created without a format.
	// NewFromProvider fills it from the provider's surface format when unset.
	DefaultFormat gputypes.TextureFormat
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{}.normalize()
}

// normalize returns c with non-positive fields replaced by defaults.
func (c Config) normalize() Config {
	if c.TextureCapacity <= 0 {
		c.TextureCapacity = DefaultTextureCapacity
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = DefaultBufferCapacity
	}
	if c.RenderPassCapacity <= 0 {
		c.RenderPassCapacity = DefaultRenderPassCapacity
	}
	if c.CommandBufferCapacity <= 0 {
		c.CommandBufferCapacity = DefaultCommandBufferCapacity
	}
	if c.CommandPoolCapacity <= 0 {
		c.CommandPoolCapacity = DefaultCommandPoolCapacity
	}
	if c.TempBlockSize == 0 {
		c.TempBlockSize = DefaultTempBlockSize
	}
	if c.FramesInFlight <= 0 {
		c.FramesInFlight = DefaultFramesInFlight
	}
	return c
}

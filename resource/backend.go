// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import "github.com/gogpu/wgpu/hal"

// Backend is the device and queue surface a Manager creates, submits and
// releases resources through.
//
// HALBackend implements it on top of a gogpu/wgpu HAL device. Wrapping a
// Backend is the way to observe or intercept backend calls.
type Backend interface {
	CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error)
	DestroyTexture(texture hal.Texture)
	CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error)
	DestroyTextureView(view hal.TextureView)

	CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(buffer hal.Buffer)

	CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error)
	FreeCommandBuffer(cmdBuffer hal.CommandBuffer)

	WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error
	WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error

	// Submit submits command buffers and returns their submission index.
	Submit(cmdBuffers []hal.CommandBuffer) (uint64, error)

	// Completed returns the highest submission index the GPU has finished.
	Completed() uint64

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error
}

// HALBackend is a Backend that forwards to a hal.Device and hal.Queue.
type HALBackend struct {
	Device hal.Device
	Queue  hal.Queue
}

var _ Backend = (*HALBackend)(nil)

func (b *HALBackend) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	return b.Device.CreateTexture(desc)
}

func (b *HALBackend) DestroyTexture(texture hal.Texture) {
	b.Device.DestroyTexture(texture)
}

func (b *HALBackend) CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	return b.Device.CreateTextureView(texture, desc)
}

func (b *HALBackend) DestroyTextureView(view hal.TextureView) {
	b.Device.DestroyTextureView(view)
}

func (b *HALBackend) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	return b.Device.CreateBuffer(desc)
}

func (b *HALBackend) DestroyBuffer(buffer hal.Buffer) {
	b.Device.DestroyBuffer(buffer)
}

func (b *HALBackend) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	return b.Device.CreateCommandEncoder(desc)
}

func (b *HALBackend) FreeCommandBuffer(cmdBuffer hal.CommandBuffer) {
	b.Device.FreeCommandBuffer(cmdBuffer)
}

func (b *HALBackend) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	return b.Queue.WriteBuffer(buffer, offset, data)
}

func (b *HALBackend) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	return b.Queue.WriteTexture(dst, data, layout, size)
}

func (b *HALBackend) Submit(cmdBuffers []hal.CommandBuffer) (uint64, error) {
	return b.Queue.Submit(cmdBuffers)
}

func (b *HALBackend) Completed() uint64 {
	return b.Queue.PollCompleted()
}

func (b *HALBackend) WaitIdle() error {
	return b.Device.WaitIdle()
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop HAL device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

type bufferWrite struct {
	buffer hal.Buffer
	offset uint64
	data   []byte
}

type textureWrite struct {
	dst    hal.ImageCopyTexture
	data   []byte
	layout hal.ImageDataLayout
	size   hal.Extent3D
}

// fakeBackend wraps a noop HALBackend, counts calls, records the order in
// which objects are released and injects failures.
type fakeBackend struct {
	Backend

	failTexture error
	failView    error
	failBuffer  error
	failEncoder error
	failSubmit  error
	failWrite   error
	failWait    error

	createdTextures int
	createdViews    int
	createdBuffers  int
	createdEncoders int

	destroyedTextures  int
	destroyedViews     int
	destroyedBuffers   int
	destroyedEncoders  int
	discardedEncodings int
	freedCmdBuffers    int

	submits       int
	bufferWrites  []bufferWrite
	textureWrites []textureWrite

	// events lists release calls in order.
	events []string
	// queueOps lists successful queue writes and submissions in order.
	queueOps []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	return &fakeBackend{Backend: &HALBackend{Device: device, Queue: queue}}
}

func (f *fakeBackend) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if f.failTexture != nil {
		return nil, f.failTexture
	}
	f.createdTextures++
	return f.Backend.CreateTexture(desc)
}

func (f *fakeBackend) DestroyTexture(texture hal.Texture) {
	f.destroyedTextures++
	f.events = append(f.events, "texture")
	f.Backend.DestroyTexture(texture)
}

func (f *fakeBackend) CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if f.failView != nil {
		return nil, f.failView
	}
	f.createdViews++
	return f.Backend.CreateTextureView(texture, desc)
}

func (f *fakeBackend) DestroyTextureView(view hal.TextureView) {
	f.destroyedViews++
	f.events = append(f.events, "view")
	f.Backend.DestroyTextureView(view)
}

func (f *fakeBackend) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if f.failBuffer != nil {
		return nil, f.failBuffer
	}
	f.createdBuffers++
	return f.Backend.CreateBuffer(desc)
}

func (f *fakeBackend) DestroyBuffer(buffer hal.Buffer) {
	f.destroyedBuffers++
	f.events = append(f.events, "buffer")
	f.Backend.DestroyBuffer(buffer)
}

func (f *fakeBackend) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if f.failEncoder != nil {
		return nil, f.failEncoder
	}
	enc, err := f.Backend.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	f.createdEncoders++
	return &countingEncoder{CommandEncoder: enc, backend: f}, nil
}

func (f *fakeBackend) FreeCommandBuffer(cmdBuffer hal.CommandBuffer) {
	f.freedCmdBuffers++
	f.events = append(f.events, "command-buffer")
	f.Backend.FreeCommandBuffer(cmdBuffer)
}

func (f *fakeBackend) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	if f.failWrite != nil {
		return f.failWrite
	}
	f.bufferWrites = append(f.bufferWrites, bufferWrite{
		buffer: buffer,
		offset: offset,
		data:   append([]byte(nil), data...),
	})
	f.queueOps = append(f.queueOps, "write")
	return f.Backend.WriteBuffer(buffer, offset, data)
}

func (f *fakeBackend) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	if f.failWrite != nil {
		return f.failWrite
	}
	f.textureWrites = append(f.textureWrites, textureWrite{
		dst:    *dst,
		data:   append([]byte(nil), data...),
		layout: *layout,
		size:   *size,
	})
	return f.Backend.WriteTexture(dst, data, layout, size)
}

func (f *fakeBackend) Submit(cmdBuffers []hal.CommandBuffer) (uint64, error) {
	if f.failSubmit != nil {
		return 0, f.failSubmit
	}
	f.submits++
	f.queueOps = append(f.queueOps, "submit")
	return f.Backend.Submit(cmdBuffers)
}

func (f *fakeBackend) WaitIdle() error {
	if f.failWait != nil {
		return f.failWait
	}
	return f.Backend.WaitIdle()
}

// countingEncoder reports Destroy and DiscardEncoding calls to its backend.
type countingEncoder struct {
	hal.CommandEncoder
	backend *fakeBackend

	failBegin error
}

func (e *countingEncoder) BeginEncoding(label string) error {
	if e.failBegin != nil {
		return e.failBegin
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *countingEncoder) DiscardEncoding() {
	e.backend.discardedEncodings++
	e.CommandEncoder.DiscardEncoding()
}

func (e *countingEncoder) Destroy() {
	e.backend.destroyedEncoders++
	e.backend.events = append(e.backend.events, "command-pool")
	e.CommandEncoder.Destroy()
}

// newTestManager creates a manager on a fake backend.
func newTestManager(t *testing.T, cfg Config) (*Manager, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend(t)
	m, err := New(fb, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, fb
}

// runFrames runs n empty frames after the current one.
func runFrames(t *testing.T, m *Manager, n int) {
	t.Helper()
	for range n {
		next := m.Frame() + 1
		if err := m.StartFrame(next); err != nil {
			t.Fatalf("StartFrame(%d): %v", next, err)
		}
		if err := m.EndFrame(next); err != nil {
			t.Fatalf("EndFrame(%d): %v", next, err)
		}
	}
}

// expectPanic fails the test unless fn panics with an error matching target.
func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", target)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic value = %v, want error wrapping %v", r, target)
		}
	}()
	fn()
}

// testProvider is a gpucontext.DeviceProvider returning HAL objects from
// Device and Queue.
type testProvider struct {
	device any
	queue  any
	format gputypes.TextureFormat
}

func (p *testProvider) Device() gpucontext.Device             { return p.device }
func (p *testProvider) Queue() gpucontext.Queue               { return p.queue }
func (p *testProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *testProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *testProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{Name: "noop"} }

// halTestProvider exposes HAL objects through HalDevice and HalQueue only.
type halTestProvider struct {
	testProvider
	halDevice hal.Device
	halQueue  hal.Queue
}

func (p *halTestProvider) HalDevice() any { return p.halDevice }
func (p *halTestProvider) HalQueue() any  { return p.halQueue }

// rgbaTexture is a texture descriptor usable as a render target and for uploads.
func rgbaTexture(label string, w, h uint32) TextureDesc {
	return TextureDesc{
		Label:  label,
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/respool"
	"github.com/gogpu/respool/tempalloc"
)

// Handles for each resource kind.
type (
	TextureHandle       = respool.Handle[Texture]
	BufferHandle        = respool.Handle[Buffer]
	RenderPassHandle    = respool.Handle[RenderPass]
	CommandPoolHandle   = respool.Handle[CommandPool]
	CommandBufferHandle = respool.Handle[CommandBuffer]
)

// Manager owns one pool per resource kind and the temporary upload allocator.
//
// Create methods call the backend and insert the result. Destroy methods only
// mark the slot; the backend object is released by the EndFrame two frames
// later, once the GPU can no longer be using it.
//
// Manager is NOT safe for concurrent use. It is driven by the goroutine that
// runs the frame loop.
type Manager struct {
	backend Backend
	cfg     Config

	textures       *respool.Pool[Texture, TextureInfo]
	buffers        *respool.Pool[Buffer, BufferInfo]
	renderPasses   *respool.Pool[RenderPass, RenderPassInfo]
	commandPools   *respool.Pool[CommandPool, CommandPoolInfo]
	commandBuffers *respool.Pool[CommandBuffer, CommandBufferInfo]

	ring  *tempalloc.RingSource[*uploadBlock]
	temp  *tempalloc.TempAllocator[*uploadBlock]
	dirty []*uploadBlock

	memory memoryBudget

	frame   uint64
	started bool
	inFrame bool

	lastSubmission uint64
	closed         bool
}

// New creates a manager on top of backend.
func New(backend Backend, cfg Config) (*Manager, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	cfg = cfg.normalize()

	m := &Manager{
		backend: backend,
		cfg:     cfg,
		memory:  newMemoryBudget(cfg.MaxMemoryMB),

		textures:       respool.NewPool[Texture, TextureInfo](cfg.TextureCapacity, respool.WithName("textures")),
		buffers:        respool.NewPool[Buffer, BufferInfo](cfg.BufferCapacity, respool.WithName("buffers")),
		renderPasses:   respool.NewPool[RenderPass, RenderPassInfo](cfg.RenderPassCapacity, respool.WithName("render-passes")),
		commandPools:   respool.NewPool[CommandPool, CommandPoolInfo](cfg.CommandPoolCapacity, respool.WithName("command-pools")),
		commandBuffers: respool.NewPool[CommandBuffer, CommandBufferInfo](cfg.CommandBufferCapacity, respool.WithName("command-buffers")),
	}

	ring, err := tempalloc.NewRingSource(cfg.TempBlockSize, m.newUploadBlock)
	if err != nil {
		return nil, fmt.Errorf("resource: temp blocks: %w", err)
	}
	m.ring = ring
	m.temp = tempalloc.New[*uploadBlock](ring)

	respool.Logger().Info("resource: manager created",
		"textures", cfg.TextureCapacity,
		"buffers", cfg.BufferCapacity,
		"renderPasses", cfg.RenderPassCapacity,
		"commandBuffers", cfg.CommandBufferCapacity,
		"commandPools", cfg.CommandPoolCapacity,
		"tempBlock", cfg.TempBlockSize,
		"framesInFlight", cfg.FramesInFlight,
		"budgetMB", cfg.MaxMemoryMB)
	return m, nil
}

// NewHAL creates a manager that uses device and queue directly.
func NewHAL(device hal.Device, queue hal.Queue, cfg Config) (*Manager, error) {
	if device == nil {
		return nil, ErrNilHALDevice
	}
	if queue == nil {
		return nil, ErrNilHALQueue
	}
	return New(&HALBackend{Device: device, Queue: queue}, cfg)
}

// NewFromProvider creates a manager on the device of a shared GPU context,
// such as a gogpu window.
//
// The provider must expose HAL types, either through HalDevice() any and
// HalQueue() any methods or by returning a hal.Device and hal.Queue from
// Device and Queue. When cfg.DefaultFormat is unset the provider's surface
// format is used.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Manager, error) {
	if provider == nil {
		return nil, ErrNoHALProvider
	}
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultFormat == gputypes.TextureFormatUndefined {
		cfg.DefaultFormat = provider.SurfaceFormat()
	}

	m, err := NewHAL(device, queue, cfg)
	if err != nil {
		return nil, err
	}
	info := provider.AdapterInfo()
	respool.Logger().Info("resource: using shared device",
		"adapter", info.Name, "type", info.Type.String(), "format", m.cfg.DefaultFormat.String())
	return m, nil
}

// halFromProvider extracts the HAL device and queue from a provider.
func halFromProvider(provider gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}

	var rawDevice, rawQueue any
	if hp, ok := provider.(halProvider); ok {
		rawDevice, rawQueue = hp.HalDevice(), hp.HalQueue()
	} else {
		rawDevice, rawQueue = provider.Device(), provider.Queue()
	}

	device, ok := rawDevice.(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: device is %T", ErrNoHALProvider, rawDevice)
	}
	queue, ok := rawQueue.(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: queue is %T", ErrNoHALProvider, rawQueue)
	}
	return device, queue, nil
}

// Config returns the normalized configuration the manager was created with.
func (m *Manager) Config() Config {
	return m.cfg
}

// Frame returns the number of the current or most recent frame.
func (m *Manager) Frame() uint64 {
	return m.frame
}

// checkOpen returns ErrManagerClosed once Close has been called.
func (m *Manager) checkOpen() error {
	if m.closed {
		return ErrManagerClosed
	}
	return nil
}

// StartFrame begins frame. Frame numbers must increase from one frame to the
// next, and every StartFrame must be matched by an EndFrame.
//
// Temporary blocks handed out FramesInFlight or more frames ago become
// reusable, and the next AllocateTemp starts a fresh block.
func (m *Manager) StartFrame(frame uint64) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if m.inFrame {
		violation("StartFrame(%d) while frame %d is open", frame, m.frame)
	}
	if m.started && frame <= m.frame {
		violation("StartFrame(%d) after frame %d", frame, m.frame)
	}

	m.frame = frame
	m.started = true
	m.inFrame = true

	inFlight := uint64(m.cfg.FramesInFlight) //nolint:gosec // G115: normalized to > 0
	if frame >= inFlight {
		m.ring.Retire(frame - inFlight)
	}
	m.ring.BeginFrame(frame)
	m.temp.Release()
	return nil
}

// EndFrame ends frame. It writes the temporary data allocated since the last
// Submit to the GPU and runs the deferred deletion of every pool.
//
// Resources are finalized dependents first: command buffers, command pools,
// render passes, buffers, textures.
//
// The pools are cleaned up even when the upload fails; the upload error is
// returned.
func (m *Manager) EndFrame(frame uint64) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if !m.inFrame || frame != m.frame {
		violation("EndFrame(%d) does not match open frame %d", frame, m.frame)
	}

	flushErr := m.flushTemp()

	finalized := m.commandBuffers.Cleanup(m.finalizeCommandBuffer)
	finalized += m.commandPools.Cleanup(m.finalizeCommandPool)
	finalized += m.renderPasses.Cleanup(m.finalizeRenderPass)
	finalized += m.buffers.Cleanup(m.finalizeBuffer)
	finalized += m.textures.Cleanup(m.finalizeTexture)

	m.inFrame = false

	respool.Logger().Debug("resource: frame ended",
		"frame", frame,
		"finalized", finalized,
		"textures", m.textures.Len(),
		"buffers", m.buffers.Len(),
		"renderPasses", m.renderPasses.Len(),
		"commandBuffers", m.commandBuffers.Len())
	return flushErr
}

// Submit submits command buffers to the queue in the given order and returns
// the submission index. Temporary data allocated so far is written to the
// queue first. No command buffer is submitted if any handle is stale or the
// temporary data cannot be written.
func (m *Manager) Submit(handles ...CommandBufferHandle) (uint64, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	raws := make([]hal.CommandBuffer, 0, len(handles))
	for _, h := range handles {
		cb, ok := m.commandBuffers.Get(h)
		if !ok {
			return 0, fmt.Errorf("%w: command buffer %s", ErrInvalidHandle, h)
		}
		raws = append(raws, cb.Raw)
	}
	if err := m.flushTemp(); err != nil {
		return 0, err
	}

	index, err := m.backend.Submit(raws)
	if err != nil {
		return 0, fmt.Errorf("resource: submit %d command buffers: %w", len(raws), err)
	}
	for _, h := range handles {
		if info, ok := m.commandBuffers.GetMetadata(h); ok {
			info.Submission = index
		}
	}
	m.lastSubmission = index
	return index, nil
}

// LastSubmission returns the index returned by the most recent Submit.
func (m *Manager) LastSubmission() uint64 {
	return m.lastSubmission
}

// Completed returns the highest submission index the GPU has finished.
func (m *Manager) Completed() uint64 {
	return m.backend.Completed()
}

// WaitIdle blocks until the GPU has finished all submitted work.
func (m *Manager) WaitIdle() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	if err := m.backend.WaitIdle(); err != nil {
		return fmt.Errorf("resource: wait idle: %w", err)
	}
	return nil
}

// Close waits for the GPU to go idle and releases every resource, live or
// pending, without waiting for the deletion window. Handles issued before
// Close stay stale. Close is idempotent.
//
// A failed wait is logged and returned, but the resources are released
// regardless.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}

	var waitErr error
	if err := m.backend.WaitIdle(); err != nil {
		waitErr = fmt.Errorf("resource: wait idle before close: %w", err)
		respool.Logger().Warn("resource: wait idle failed during close", "err", err)
	}

	released := m.commandBuffers.Drain(m.finalizeCommandBuffer)
	released += m.commandPools.Drain(m.finalizeCommandPool)
	released += m.renderPasses.Drain(m.finalizeRenderPass)
	released += m.buffers.Drain(m.finalizeBuffer)
	released += m.textures.Drain(m.finalizeTexture)

	m.temp.Release()
	m.dirty = m.dirty[:0]
	blocks := m.ring.Stats().Created
	m.ring.Destroy(m.destroyUploadBlock)

	m.closed = true
	m.inFrame = false

	respool.Logger().Info("resource: manager closed",
		"released", released, "tempBlocks", blocks, "frame", m.frame)
	return waitErr
}

// Stats contains usage statistics for every pool and the temporary allocator.
type Stats struct {
	Frame uint64

	Textures       respool.PoolStats
	Buffers        respool.PoolStats
	RenderPasses   respool.PoolStats
	CommandPools   respool.PoolStats
	CommandBuffers respool.PoolStats

	Temp       tempalloc.Stats
	TempBlocks tempalloc.RingStats
	Memory     MemoryStats

	LastSubmission uint64
	Completed      uint64
}

// String returns a human-readable multi-line summary of the stats.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Frame %d, submission %d/%d\n", s.Frame, s.Completed, s.LastSubmission)
	for _, p := range []respool.PoolStats{s.Textures, s.Buffers, s.RenderPasses, s.CommandPools, s.CommandBuffers} {
		b.WriteString("  ")
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %s\n  %s\n  %s", s.Temp, s.TempBlocks, s.Memory)
	return b.String()
}

// Stats returns current usage statistics.
func (m *Manager) Stats() Stats {
	return Stats{
		Frame:          m.frame,
		Textures:       m.textures.Stats(),
		Buffers:        m.buffers.Stats(),
		RenderPasses:   m.renderPasses.Stats(),
		CommandPools:   m.commandPools.Stats(),
		CommandBuffers: m.commandBuffers.Stats(),
		Temp:           m.temp.Stats(),
		TempBlocks:     m.ring.Stats(),
		Memory:         m.memory.stats(),
		LastSubmission: m.lastSubmission,
		Completed:      m.backend.Completed(),
	}
}

// joinErrors is errors.Join that keeps a single error unwrapped.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

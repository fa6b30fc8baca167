// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/respool"
)

// MaxColorTargets is the largest number of color attachments of a render pass.
const MaxColorTargets = 8

// ColorTarget is a color attachment of a render pass.
type ColorTarget struct {
	// Texture is rendered to. It must have RenderAttachment usage.
	Texture TextureHandle

	// Resolve optionally receives the resolved samples of a multisampled
	// Texture. The zero handle means no resolve.
	Resolve TextureHandle

	// Load defaults to gputypes.LoadOpClear.
	Load gputypes.LoadOp

	// Store defaults to gputypes.StoreOpStore.
	Store gputypes.StoreOp

	// Clear is the clear color used with LoadOpClear.
	Clear gputypes.Color
}

// DepthStencilTarget is the depth/stencil attachment of a render pass.
type DepthStencilTarget struct {
	// Texture must have a depth or stencil format and RenderAttachment usage.
	Texture TextureHandle

	// DepthLoad and StencilLoad default to gputypes.LoadOpClear.
	DepthLoad   gputypes.LoadOp
	StencilLoad gputypes.LoadOp

	// DepthStore and StencilStore default to gputypes.StoreOpStore.
	DepthStore   gputypes.StoreOp
	StencilStore gputypes.StoreOp

	DepthClear   float32
	StencilClear uint32
}

// RenderPassDesc describes a render pass by the textures it renders to.
type RenderPassDesc struct {
	Label        string
	Color        []ColorTarget
	DepthStencil *DepthStencilTarget
}

// RenderPass is the payload of a render pass slot. It owns one view per
// attachment, released together with the pass.
type RenderPass struct {
	desc  hal.RenderPassDescriptor
	views []hal.TextureView
}

// Descriptor returns the HAL descriptor to begin the pass with.
func (p *RenderPass) Descriptor() *hal.RenderPassDescriptor {
	return &p.desc
}

// Begin begins the pass on enc.
func (p *RenderPass) Begin(enc hal.CommandEncoder) hal.RenderPassEncoder {
	return enc.BeginRenderPass(&p.desc)
}

// RenderPassInfo is the metadata of a render pass slot.
type RenderPassInfo struct {
	Label string

	// Width and Height are the attachment size.
	Width  uint32
	Height uint32

	// Textures lists the attachments in the order color, resolve, depth.
	Textures []TextureHandle

	ColorTargets    int
	HasDepthStencil bool
}

// CreateRenderPass resolves the attachment textures of desc and creates the
// views the pass renders through. The textures must stay alive as long as
// the pass is used.
func (m *Manager) CreateRenderPass(desc RenderPassDesc) (RenderPassHandle, error) {
	invalid := respool.InvalidHandle[RenderPass]()
	if err := m.checkOpen(); err != nil {
		return invalid, err
	}
	if len(desc.Color) == 0 && desc.DepthStencil == nil {
		return invalid, invalidDesc("render pass", desc.Label, "no attachments")
	}
	if len(desc.Color) > MaxColorTargets {
		return invalid, invalidDesc("render pass", desc.Label, "%d color targets, at most %d", len(desc.Color), MaxColorTargets)
	}

	b := passBuilder{m: m, label: desc.Label}
	info := RenderPassInfo{
		Label:           desc.Label,
		ColorTargets:    len(desc.Color),
		HasDepthStencil: desc.DepthStencil != nil,
	}
	pass := RenderPass{desc: hal.RenderPassDescriptor{Label: desc.Label}}

	for i, c := range desc.Color {
		view, err := b.attach(c.Texture, fmt.Sprintf("color %d", i), false)
		if err != nil {
			b.release()
			return invalid, err
		}
		att := hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     orLoad(c.Load),
			StoreOp:    orStore(c.Store),
			ClearValue: c.Clear,
		}
		if !c.Resolve.IsInvalid() {
			resolve, err := b.attach(c.Resolve, fmt.Sprintf("resolve %d", i), false)
			if err != nil {
				b.release()
				return invalid, err
			}
			att.ResolveTarget = resolve
		}
		pass.desc.ColorAttachments = append(pass.desc.ColorAttachments, att)
	}

	if ds := desc.DepthStencil; ds != nil {
		view, err := b.attach(ds.Texture, "depth/stencil", true)
		if err != nil {
			b.release()
			return invalid, err
		}
		att := &hal.RenderPassDepthStencilAttachment{View: view}
		if b.depthFormat.HasDepth() {
			att.DepthLoadOp = orLoad(ds.DepthLoad)
			att.DepthStoreOp = orStore(ds.DepthStore)
			att.DepthClearValue = ds.DepthClear
		}
		if b.depthFormat.HasStencil() {
			att.StencilLoadOp = orLoad(ds.StencilLoad)
			att.StencilStoreOp = orStore(ds.StencilStore)
			att.StencilClearValue = ds.StencilClear
		}
		pass.desc.DepthStencilAttachment = att
	}

	pass.views = b.views
	info.Width, info.Height = b.width, b.height
	info.Textures = b.textures
	return m.renderPasses.Insert(info, pass), nil
}

// passBuilder resolves attachments and tracks the views created so far.
type passBuilder struct {
	m     *Manager
	label string

	views       []hal.TextureView
	textures    []TextureHandle
	width       uint32
	height      uint32
	depthFormat gputypes.TextureFormat
}

// attach resolves h and creates a view of it.
func (b *passBuilder) attach(h TextureHandle, slot string, depth bool) (hal.TextureView, error) {
	tex, ok := b.m.textures.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: render pass %q %s texture %s", ErrInvalidHandle, b.label, slot, h)
	}
	info, _ := b.m.textures.GetMetadata(h)

	if !info.Usage.Contains(gputypes.TextureUsageRenderAttachment) {
		return nil, invalidDesc("render pass", b.label, "%s texture %q lacks RenderAttachment usage", slot, info.Label)
	}
	if depth != info.Format.IsDepthStencil() {
		return nil, invalidDesc("render pass", b.label, "%s texture %q has format %s", slot, info.Label, info.Format)
	}
	if len(b.views) == 0 {
		b.width, b.height = info.Width, info.Height
	} else if info.Width != b.width || info.Height != b.height {
		return nil, invalidDesc("render pass", b.label, "%s texture %q is %dx%d, pass is %dx%d",
			slot, info.Label, info.Width, info.Height, b.width, b.height)
	}

	view, err := b.m.backend.CreateTextureView(tex.Raw, &hal.TextureViewDescriptor{
		Label:           b.label + " " + slot,
		Format:          info.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		respool.Logger().Warn("resource: attachment view creation failed",
			"pass", b.label, "slot", slot, "err", err)
		return nil, fmt.Errorf("resource: render pass %q %s view: %w", b.label, slot, err)
	}
	if depth {
		b.depthFormat = info.Format
	}
	b.views = append(b.views, view)
	b.textures = append(b.textures, h)
	return view, nil
}

// release destroys the views created so far.
func (b *passBuilder) release() {
	for _, v := range b.views {
		b.m.backend.DestroyTextureView(v)
	}
	b.views = nil
}

func orLoad(op gputypes.LoadOp) gputypes.LoadOp {
	if op == gputypes.LoadOpUndefined {
		return gputypes.LoadOpClear
	}
	return op
}

func orStore(op gputypes.StoreOp) gputypes.StoreOp {
	if op == gputypes.StoreOpUndefined {
		return gputypes.StoreOpStore
	}
	return op
}

// DestroyRenderPass schedules the pass and its views for release. Stale
// handles are ignored.
func (m *Manager) DestroyRenderPass(h RenderPassHandle) {
	m.renderPasses.MarkForDelete(h)
}

// RenderPass returns the pass h refers to, or false if h is stale.
func (m *Manager) RenderPass(h RenderPassHandle) (*RenderPass, bool) {
	return m.renderPasses.Get(h)
}

// RenderPassInfo returns the metadata of the pass h refers to, or false if h
// is stale.
func (m *Manager) RenderPassInfo(h RenderPassHandle) (*RenderPassInfo, bool) {
	return m.renderPasses.GetMetadata(h)
}

func (m *Manager) finalizeRenderPass(p *RenderPass, _ *RenderPassInfo) {
	for _, v := range p.views {
		m.backend.DestroyTextureView(v)
	}
}

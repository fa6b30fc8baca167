// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/respool"
)

// DefaultTextureUsage is the usage for textures created without usage flags.
const DefaultTextureUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding

// TextureDesc describes a 2D texture or texture array.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture size in texels. Both must be positive.
	Width  uint32
	Height uint32

	// ArrayLayers is the number of layers. Defaults to 1.
	ArrayLayers uint32

	// MipLevels is the number of mip levels. Defaults to 1.
	MipLevels uint32

	// SampleCount is 1 or 4. Defaults to 1.
	SampleCount uint32

	// Format is the texel format. Defaults to Config.DefaultFormat.
	Format gputypes.TextureFormat

	// Usage flags. Defaults to DefaultTextureUsage.
	Usage gputypes.TextureUsage
}

// Texture is the payload of a texture slot: the HAL texture and a view over
// all of its mips and layers.
type Texture struct {
	Raw  hal.Texture
	View hal.TextureView
}

// TextureInfo is the metadata of a texture slot.
type TextureInfo struct {
	Label       string
	Width       uint32
	Height      uint32
	ArrayLayers uint32
	MipLevels   uint32
	SampleCount uint32
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage

	// SizeBytes is the estimated memory of every mip level, layer and
	// sample, or 0 when the format has no fixed texel size.
	SizeBytes uint64
}

// String returns a short description of the texture.
func (i TextureInfo) String() string {
	return fmt.Sprintf("Texture[%s %dx%dx%d %s %d mips %d bytes]",
		i.Label, i.Width, i.Height, i.ArrayLayers, i.Format, i.MipLevels, i.SizeBytes)
}

// CreateTexture creates a texture and a default view of it.
func (m *Manager) CreateTexture(desc TextureDesc) (TextureHandle, error) {
	if err := m.checkOpen(); err != nil {
		return respool.InvalidHandle[Texture](), err
	}
	info, err := m.textureInfo(desc)
	if err != nil {
		return respool.InvalidHandle[Texture](), err
	}

	if err := m.memory.reserve("texture", info.Label, info.SizeBytes); err != nil {
		return respool.InvalidHandle[Texture](), err
	}

	raw, err := m.backend.CreateTexture(&hal.TextureDescriptor{
		Label: info.Label,
		Size: hal.Extent3D{
			Width:              info.Width,
			Height:             info.Height,
			DepthOrArrayLayers: info.ArrayLayers,
		},
		MipLevelCount: info.MipLevels,
		SampleCount:   info.SampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        info.Format,
		Usage:         info.Usage,
	})
	if err != nil {
		m.memory.release(info.SizeBytes)
		respool.Logger().Warn("resource: texture creation failed", "label", info.Label, "err", err)
		return respool.InvalidHandle[Texture](), fmt.Errorf("resource: create texture %q: %w", info.Label, err)
	}

	view, err := m.backend.CreateTextureView(raw, &hal.TextureViewDescriptor{Label: info.Label})
	if err != nil {
		m.backend.DestroyTexture(raw)
		m.memory.release(info.SizeBytes)
		respool.Logger().Warn("resource: texture view creation failed", "label", info.Label, "err", err)
		return respool.InvalidHandle[Texture](), fmt.Errorf("resource: create view of texture %q: %w", info.Label, err)
	}

	return m.textures.Insert(info, Texture{Raw: raw, View: view}), nil
}

// textureInfo validates desc and fills in defaults.
func (m *Manager) textureInfo(desc TextureDesc) (TextureInfo, error) {
	info := TextureInfo{
		Label:       desc.Label,
		Width:       desc.Width,
		Height:      desc.Height,
		ArrayLayers: max(desc.ArrayLayers, 1),
		MipLevels:   max(desc.MipLevels, 1),
		SampleCount: max(desc.SampleCount, 1),
		Format:      desc.Format,
		Usage:       desc.Usage,
	}
	if info.Format == gputypes.TextureFormatUndefined {
		info.Format = m.cfg.DefaultFormat
	}
	if info.Usage == 0 {
		info.Usage = DefaultTextureUsage
	}

	switch {
	case info.Width == 0 || info.Height == 0:
		return info, invalidDesc("texture", desc.Label, "size %dx%d", info.Width, info.Height)
	case info.Format == gputypes.TextureFormatUndefined:
		return info, invalidDesc("texture", desc.Label, "no format and no default format")
	case info.Usage.ContainsUnknownBits():
		return info, invalidDesc("texture", desc.Label, "unknown usage bits %#x", uint64(info.Usage))
	case info.SampleCount != 1 && info.SampleCount != 4:
		return info, invalidDesc("texture", desc.Label, "sample count %d", info.SampleCount)
	case info.SampleCount > 1 && info.MipLevels > 1:
		return info, invalidDesc("texture", desc.Label, "multisampled texture with %d mips", info.MipLevels)
	case info.MipLevels > maxMipLevels(info.Width, info.Height):
		return info, invalidDesc("texture", desc.Label, "%d mips for %dx%d", info.MipLevels, info.Width, info.Height)
	}

	info.SizeBytes = textureBytes(info)
	return info, nil
}

// maxMipLevels returns the length of the full mip chain for a w x h texture.
func maxMipLevels(w, h uint32) uint32 {
	return uint32(bits.Len32(max(w, h))) //nolint:gosec // G115: at most 32
}

// bytesPerTexel returns the texel size of uncompressed formats, 0 otherwise.
func bytesPerTexel(f gputypes.TextureFormat) uint64 {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatStencil8:
		return 1
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint,
		gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm, gputypes.TextureFormatRGBA8Uint, gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGB10A2Uint, gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG11B10Ufloat, gputypes.TextureFormatRGB9E5Ufloat,
		gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float:
		return 4
	case gputypes.TextureFormatDepth32FloatStencil8:
		return 5
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint, gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint,
		gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint, gputypes.TextureFormatRGBA32Sint:
		return 16
	default:
		return 0
	}
}

// DestroyTexture schedules the texture for release. The handle, and every
// copy of it, is stale from now on. Stale handles are ignored.
func (m *Manager) DestroyTexture(h TextureHandle) {
	m.textures.MarkForDelete(h)
}

// Texture returns the texture h refers to, or false if h is stale.
// The pointer is valid until the next CreateTexture.
func (m *Manager) Texture(h TextureHandle) (*Texture, bool) {
	return m.textures.Get(h)
}

// TextureInfo returns the metadata of the texture h refers to, or false if
// h is stale.
func (m *Manager) TextureInfo(h TextureHandle) (*TextureInfo, bool) {
	return m.textures.GetMetadata(h)
}

func (m *Manager) finalizeTexture(t *Texture, info *TextureInfo) {
	if t.View != nil {
		m.backend.DestroyTextureView(t.View)
	}
	if t.Raw != nil {
		m.backend.DestroyTexture(t.Raw)
	}
	m.memory.release(info.SizeBytes)
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestCreateTextureDefaults(t *testing.T) {
	m, fb := newTestManager(t, Config{DefaultFormat: gputypes.TextureFormatRGBA8Unorm})

	h, err := m.CreateTexture(TextureDesc{Label: "atlas", Width: 256, Height: 128})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if h.IsInvalid() {
		t.Fatal("CreateTexture returned the invalid handle")
	}

	info, ok := m.TextureInfo(h)
	if !ok {
		t.Fatal("TextureInfo: handle does not resolve")
	}
	want := TextureInfo{
		Label:       "atlas",
		Width:       256,
		Height:      128,
		ArrayLayers: 1,
		MipLevels:   1,
		SampleCount: 1,
		Format:      gputypes.TextureFormatRGBA8Unorm,
		Usage:       DefaultTextureUsage,
		SizeBytes:   256 * 128 * 4,
	}
	if *info != want {
		t.Errorf("TextureInfo = %+v, want %+v", *info, want)
	}

	tex, ok := m.Texture(h)
	if !ok || tex.Raw == nil || tex.View == nil {
		t.Errorf("Texture = %+v, %v; want a texture and a view", tex, ok)
	}
	if fb.createdTextures != 1 || fb.createdViews != 1 {
		t.Errorf("backend created %d textures and %d views, want 1 and 1", fb.createdTextures, fb.createdViews)
	}
	if s := info.String(); !strings.Contains(s, "atlas 256x128x1") {
		t.Errorf("String() = %q", s)
	}
}

func TestCreateTextureArrayAndMips(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	h, err := m.CreateTexture(TextureDesc{
		Label:       "shadow cascades",
		Width:       1024,
		Height:      1024,
		ArrayLayers: 4,
		MipLevels:   11,
		Format:      gputypes.TextureFormatDepth32Float,
		Usage:       gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	// 1024x1024 down to 1x1: (4^11 - 1) / 3 texels per layer.
	const want = 1398101 * 4 * 4
	info, _ := m.TextureInfo(h)
	if info.SizeBytes != want {
		t.Errorf("SizeBytes = %d, want %d", info.SizeBytes, want)
	}
}

func TestCreateTextureInvalid(t *testing.T) {
	tests := []struct {
		name string
		desc TextureDesc
	}{
		{"zero width", TextureDesc{Height: 4, Format: gputypes.TextureFormatRGBA8Unorm}},
		{"zero height", TextureDesc{Width: 4, Format: gputypes.TextureFormatRGBA8Unorm}},
		{"no format", TextureDesc{Width: 4, Height: 4}},
		{"unknown usage", TextureDesc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm, Usage: 1 << 30}},
		{"sample count 2", TextureDesc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm, SampleCount: 2}},
		{"multisampled mips", TextureDesc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm, SampleCount: 4, MipLevels: 2}},
		{"too many mips", TextureDesc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm, MipLevels: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, fb := newTestManager(t, Config{})
			h, err := m.CreateTexture(tt.desc)
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("error = %v, want ErrInvalidDescriptor", err)
			}
			if !h.IsInvalid() {
				t.Errorf("handle = %v, want invalid", h)
			}
			if fb.createdTextures != 0 {
				t.Error("backend called for an invalid descriptor")
			}
			if m.Stats().Textures.Live != 0 {
				t.Error("pool slot used for an invalid descriptor")
			}
		})
	}
}

func TestCreateTextureBackendFailure(t *testing.T) {
	m, fb := newTestManager(t, Config{})
	fb.failTexture = errors.New("out of memory")

	h, err := m.CreateTexture(rgbaTexture("big", 4, 4))
	if !errors.Is(err, fb.failTexture) {
		t.Errorf("error = %v, want wrapping %v", err, fb.failTexture)
	}
	if !h.IsInvalid() || m.Stats().Textures.Live != 0 {
		t.Error("failed creation left a slot behind")
	}
}

func TestCreateTextureViewFailure(t *testing.T) {
	m, fb := newTestManager(t, Config{})
	fb.failView = errors.New("view rejected")

	if _, err := m.CreateTexture(rgbaTexture("viewless", 4, 4)); !errors.Is(err, fb.failView) {
		t.Errorf("error = %v, want wrapping %v", err, fb.failView)
	}
	if fb.createdTextures != 1 || fb.destroyedTextures != 1 {
		t.Errorf("created %d and destroyed %d textures, want the texture released", fb.createdTextures, fb.destroyedTextures)
	}
}

func TestDestroyTextureStaleHandle(t *testing.T) {
	m, fb := newTestManager(t, Config{})
	h, _ := m.CreateTexture(rgbaTexture("a", 4, 4))

	m.DestroyTexture(h)
	m.DestroyTexture(h)
	m.DestroyTexture(TextureHandle{})
	runFrames(t, m, 3)

	if fb.destroyedTextures != 1 {
		t.Errorf("destroyed %d textures, want 1", fb.destroyedTextures)
	}

	// The freed slot is reused with a new generation.
	h2, _ := m.CreateTexture(rgbaTexture("b", 4, 4))
	if h2.Index() != h.Index() || h2.Generation() == h.Generation() {
		t.Errorf("new handle %v, old %v: want same slot, new generation", h2, h)
	}
	if _, ok := m.Texture(h); ok {
		t.Error("old handle resolves to the new texture")
	}
}

func TestMaxMipLevels(t *testing.T) {
	tests := []struct {
		w, h, want uint32
	}{
		{1, 1, 1},
		{2, 1, 2},
		{4, 4, 3},
		{256, 128, 9},
		{1024, 1024, 11},
		{1000, 3, 10},
	}
	for _, tt := range tests {
		if got := maxMipLevels(tt.w, tt.h); got != tt.want {
			t.Errorf("maxMipLevels(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestBytesPerTexel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   uint64
	}{
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRG8Unorm, 2},
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatBGRA8UnormSrgb, 4},
		{gputypes.TextureFormatDepth24PlusStencil8, 4},
		{gputypes.TextureFormatDepth32FloatStencil8, 5},
		{gputypes.TextureFormatRGBA16Float, 8},
		{gputypes.TextureFormatRGBA32Float, 16},
		{gputypes.TextureFormatUndefined, 0},
	}
	for _, tt := range tests {
		if got := bytesPerTexel(tt.format); got != tt.want {
			t.Errorf("bytesPerTexel(%s) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

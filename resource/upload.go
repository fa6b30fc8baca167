// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/respool"
	"github.com/gogpu/respool/tempalloc"
)

// TempBufferUsage is the usage of the buffers behind temporary allocations.
const TempBufferUsage = gputypes.BufferUsageCopyDst | gputypes.BufferUsageVertex |
	gputypes.BufferUsageIndex | gputypes.BufferUsageUniform | gputypes.BufferUsageStorage

// uploadBlock is a temporary block: a GPU buffer and the CPU copy written
// through allocations. [start, dirty) is the range written since the last
// flush; dirty is 0 when the block has nothing to flush.
type uploadBlock struct {
	buffer hal.Buffer
	data   []byte
	start  uint64
	dirty  uint64
}

// TempAllocation is a window of a temporary upload buffer, valid for the
// frame it was allocated in.
type TempAllocation struct {
	// Buffer is the GPU buffer to bind, at Offset.
	Buffer hal.Buffer
	Offset uint64

	// Bytes is where the data goes. It is copied to Buffer by the next Submit,
	// or by EndFrame when no Submit follows.
	Bytes []byte
}

// newUploadBlock creates the buffer and CPU copy of a temporary block.
func (m *Manager) newUploadBlock(size uint64) (tempalloc.Block[*uploadBlock], error) {
	const label = "respool temp"
	if err := m.memory.reserve("temp block", label, size); err != nil {
		return tempalloc.Block[*uploadBlock]{}, err
	}
	buf, err := m.backend.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: TempBufferUsage,
	})
	if err != nil {
		m.memory.release(size)
		return tempalloc.Block[*uploadBlock]{}, err
	}
	blk := &uploadBlock{buffer: buf, data: make([]byte, size)}
	return tempalloc.Block[*uploadBlock]{Data: blk.data, Backing: blk, Capacity: size}, nil
}

func (m *Manager) destroyUploadBlock(b tempalloc.Block[*uploadBlock]) {
	m.backend.DestroyBuffer(b.Backing.buffer)
	m.memory.release(b.Capacity)
}

// AllocateTemp returns size bytes of scratch memory at an offset aligned to
// align, which must be a power of two. The data written to Bytes reaches the
// GPU before the command buffers of the next Submit run, or at EndFrame if
// nothing is submitted. It must be called between StartFrame and EndFrame.
func (m *Manager) AllocateTemp(size, align uint64) (TempAllocation, error) {
	if err := m.checkOpen(); err != nil {
		return TempAllocation{}, err
	}
	if !m.inFrame {
		violation("AllocateTemp outside a frame")
	}
	a, err := m.temp.Allocate(size, align)
	if err != nil {
		return TempAllocation{}, fmt.Errorf("resource: allocate %d temp bytes: %w", size, err)
	}

	blk := a.Backing
	if end := a.Offset + size; size > 0 && end > blk.dirty {
		if blk.dirty == 0 {
			m.dirty = append(m.dirty, blk)
			blk.start = a.Offset
		}
		blk.dirty = end
	}
	return TempAllocation{Buffer: blk.buffer, Offset: a.Offset, Bytes: a.Bytes}, nil
}

// flushTemp writes the dirty range of every block touched since the last
// flush to its buffer.
func (m *Manager) flushTemp() error {
	if len(m.dirty) == 0 {
		return nil
	}
	var errs []error
	var written uint64
	for i, blk := range m.dirty {
		if err := m.backend.WriteBuffer(blk.buffer, blk.start, blk.data[blk.start:blk.dirty]); err != nil {
			errs = append(errs, fmt.Errorf("resource: flush temp block: %w", err))
		}
		written += blk.dirty - blk.start
		blk.start, blk.dirty = 0, 0
		m.dirty[i] = nil
	}
	respool.Logger().Debug("resource: temp uploads flushed",
		"blocks", len(m.dirty), "bytes", written, "frame", m.frame)
	m.dirty = m.dirty[:0]
	return joinErrors(errs)
}

// UploadTexture writes img to mip level 0, layer 0 of the texture. The image
// is scaled to the texture size when the sizes differ. The texture must have
// an 8-bit RGBA or BGRA format and CopyDst usage.
func (m *Manager) UploadTexture(h TextureHandle, img image.Image) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	tex, ok := m.textures.Get(h)
	if !ok {
		return fmt.Errorf("%w: texture %s", ErrInvalidHandle, h)
	}
	info, _ := m.textures.GetMetadata(h)

	var bgra bool
	switch info.Format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		bgra = true
	default:
		return invalidDesc("texture", info.Label, "cannot upload an image to format %s", info.Format)
	}
	if !info.Usage.Contains(gputypes.TextureUsageCopyDst) {
		return invalidDesc("texture", info.Label, "upload without CopyDst usage")
	}

	pix := imageToRGBA(img, int(info.Width), int(info.Height))
	data := pix.Pix
	if bgra {
		data = swapRB(data)
	}

	err := m.backend.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex.Raw},
		data,
		&hal.ImageDataLayout{
			BytesPerRow:  uint32(pix.Stride), //nolint:gosec // G115: 4 * texture width
			RowsPerImage: info.Height,
		},
		&hal.Extent3D{Width: info.Width, Height: info.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("resource: upload texture %q: %w", info.Label, err)
	}
	return nil
}

// imageToRGBA returns img as a w x h RGBA image with a tight stride, scaling
// it if its size differs.
func imageToRGBA(img image.Image, w, h int) *image.RGBA {
	src := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && src.Min == (image.Point{}) &&
		src.Dx() == w && src.Dy() == h && rgba.Stride == 4*w {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if src.Dx() == w && src.Dy() == h {
		xdraw.Draw(dst, dst.Bounds(), img, src.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	}
	return dst
}

// swapRB returns a BGRA copy of RGBA pixels.
func swapRB(pix []byte) []byte {
	out := make([]byte, len(pix))
	for i := 0; i+3 < len(pix); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = pix[i+2], pix[i+1], pix[i], pix[i+3]
	}
	return out
}

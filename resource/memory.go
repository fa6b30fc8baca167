// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"fmt"

	"github.com/gogpu/respool"
)

// ErrMemoryBudgetExceeded is returned when creating a texture, buffer or
// temporary block would take the estimated GPU memory over Config.MaxMemoryMB.
var ErrMemoryBudgetExceeded = errors.New("resource: memory budget exceeded")

// MemoryStats contains estimated GPU memory usage of textures, buffers and
// temporary blocks.
type MemoryStats struct {
	// BudgetBytes is the memory budget, or 0 when there is none.
	BudgetBytes uint64

	// UsedBytes is the memory held by live and pending resources.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64

	// Rejected is the number of creations refused by the budget.
	Rejected uint64
}

// String returns a human-readable summary of the stats.
func (s MemoryStats) String() string {
	if s.BudgetBytes == 0 {
		return fmt.Sprintf("Memory[%d KB used, %d KB peak, no budget]", s.UsedBytes/1024, s.PeakBytes/1024)
	}
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d KB peak, %d rejected]",
		float64(s.UsedBytes)/float64(s.BudgetBytes)*100,
		s.UsedBytes/1024, s.BudgetBytes/1024, s.PeakBytes/1024, s.Rejected)
}

// memoryBudget tracks memory from creation until the backend object is
// released, so pending resources still count.
type memoryBudget struct {
	limit    uint64
	used     uint64
	peak     uint64
	rejected uint64
}

func newMemoryBudget(maxMB int) memoryBudget {
	if maxMB <= 0 {
		return memoryBudget{}
	}
	return memoryBudget{limit: uint64(maxMB) << 20} //nolint:gosec // G115: maxMB > 0
}

// reserve charges n bytes, or returns ErrMemoryBudgetExceeded without
// charging anything.
func (b *memoryBudget) reserve(kind, label string, n uint64) error {
	if b.limit > 0 && (n > b.limit || b.used > b.limit-n) {
		b.rejected++
		respool.Logger().Warn("resource: memory budget exceeded",
			"kind", kind, "label", label, "bytes", n, "used", b.used, "budget", b.limit)
		return fmt.Errorf("%w: %s %q needs %d bytes, %d of %d in use",
			ErrMemoryBudgetExceeded, kind, label, n, b.used, b.limit)
	}
	b.used += n
	b.peak = max(b.peak, b.used)
	return nil
}

func (b *memoryBudget) release(n uint64) {
	b.used -= min(n, b.used)
}

func (b *memoryBudget) stats() MemoryStats {
	return MemoryStats{
		BudgetBytes: b.limit,
		UsedBytes:   b.used,
		PeakBytes:   b.peak,
		Rejected:    b.rejected,
	}
}

// textureBytes estimates the memory of a texture: every mip level of every
// layer and sample. Formats without a fixed texel size count as 0.
func textureBytes(info TextureInfo) uint64 {
	texel := bytesPerTexel(info.Format)
	var texels uint64
	w, h := info.Width, info.Height
	for range info.MipLevels {
		texels += uint64(w) * uint64(h)
		w, h = max(w/2, 1), max(h/2, 1)
	}
	return texels * uint64(info.ArrayLayers) * uint64(info.SampleCount) * texel
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"testing"

	"github.com/gogpu/wgpu/hal"
)

func TestCreateCommandBuffer(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	if err := m.StartFrame(3); err != nil {
		t.Fatal(err)
	}
	pool, err := m.CreateCommandPool(CommandPoolDesc{Label: "graphics"})
	if err != nil {
		t.Fatalf("CreateCommandPool: %v", err)
	}

	var recordedWith hal.CommandEncoder
	h, err := m.CreateCommandBuffer(CommandBufferDesc{
		Label: "frame 3",
		Pool:  pool,
		Record: func(enc hal.CommandEncoder) error {
			recordedWith = enc
			return nil
		},
	})
	if err != nil {
		t.Fatalf("CreateCommandBuffer: %v", err)
	}

	p, _ := m.CommandPool(pool)
	if recordedWith != p.Encoder {
		t.Error("Record was not called with the pool's encoder")
	}
	cb, ok := m.CommandBuffer(h)
	if !ok || cb.Raw == nil || cb.Pool != pool {
		t.Errorf("CommandBuffer = %+v, %v", cb, ok)
	}
	info, _ := m.CommandBufferInfo(h)
	if info.Label != "frame 3" || info.Frame != 3 || info.Pool != pool || info.Submission != 0 {
		t.Errorf("info = %+v", info)
	}
	if pi, _ := m.CommandPoolInfo(pool); pi.Recorded != 1 {
		t.Errorf("pool Recorded = %d, want 1", pi.Recorded)
	}
}

func TestCreateCommandBufferRecordError(t *testing.T) {
	m, fb := newTestManager(t, Config{})
	pool, _ := m.CreateCommandPool(CommandPoolDesc{})
	broken := errors.New("pipeline missing")

	h, err := m.CreateCommandBuffer(CommandBufferDesc{
		Pool:   pool,
		Record: func(hal.CommandEncoder) error { return broken },
	})
	if !errors.Is(err, broken) {
		t.Errorf("error = %v, want wrapping %v", err, broken)
	}
	if !h.IsInvalid() {
		t.Error("failed recording returned a valid handle")
	}
	if fb.discardedEncodings != 1 {
		t.Errorf("discarded %d encodings, want 1", fb.discardedEncodings)
	}
	if pi, _ := m.CommandPoolInfo(pool); pi.Recorded != 0 {
		t.Errorf("pool Recorded = %d after a failed recording", pi.Recorded)
	}

	// The pool can record again after a discard.
	if _, err := m.CreateCommandBuffer(CommandBufferDesc{Pool: pool, Record: func(hal.CommandEncoder) error { return nil }}); err != nil {
		t.Errorf("recording after discard: %v", err)
	}
}

func TestCreateCommandBufferInvalid(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	pool, _ := m.CreateCommandPool(CommandPoolDesc{})
	stale, _ := m.CreateCommandPool(CommandPoolDesc{})
	m.DestroyCommandPool(stale)
	record := func(hal.CommandEncoder) error { return nil }

	tests := []struct {
		name string
		desc CommandBufferDesc
		want error
	}{
		{"nil Record", CommandBufferDesc{Pool: pool}, ErrInvalidDescriptor},
		{"zero pool", CommandBufferDesc{Record: record}, ErrInvalidHandle},
		{"stale pool", CommandBufferDesc{Pool: stale, Record: record}, ErrInvalidHandle},
	}
	for _, tt := range tests {
		if _, err := m.CreateCommandBuffer(tt.desc); !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestCreateCommandBufferBeginFailure(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	pool, _ := m.CreateCommandPool(CommandPoolDesc{})
	p, _ := m.CommandPool(pool)
	enc, ok := p.Encoder.(*countingEncoder)
	if !ok {
		t.Fatalf("encoder is %T", p.Encoder)
	}
	enc.failBegin = errors.New("encoder busy")

	called := false
	_, err := m.CreateCommandBuffer(CommandBufferDesc{Pool: pool, Record: func(hal.CommandEncoder) error {
		called = true
		return nil
	}})
	if !errors.Is(err, enc.failBegin) {
		t.Errorf("error = %v, want wrapping %v", err, enc.failBegin)
	}
	if called {
		t.Error("Record called although encoding did not begin")
	}
}

func TestCreateCommandPoolFailure(t *testing.T) {
	m, fb := newTestManager(t, Config{})
	fb.failEncoder = errors.New("device lost")
	h, err := m.CreateCommandPool(CommandPoolDesc{Label: "lost"})
	if !errors.Is(err, fb.failEncoder) || !h.IsInvalid() {
		t.Errorf("CreateCommandPool = %v, %v; want invalid handle and %v", h, err, fb.failEncoder)
	}
}

func TestDestroyCommandObjects(t *testing.T) {
	m, fb := newTestManager(t, Config{})
	pool, _ := m.CreateCommandPool(CommandPoolDesc{})
	record := func(hal.CommandEncoder) error { return nil }
	a, _ := m.CreateCommandBuffer(CommandBufferDesc{Pool: pool, Record: record})
	b, _ := m.CreateCommandBuffer(CommandBufferDesc{Pool: pool, Record: record})

	m.DestroyCommandBuffer(a)
	runFrames(t, m, 3)
	if fb.freedCmdBuffers != 1 || fb.destroyedEncoders != 0 {
		t.Errorf("freed %d command buffers and destroyed %d encoders, want 1 and 0",
			fb.freedCmdBuffers, fb.destroyedEncoders)
	}

	m.DestroyCommandBuffer(b)
	m.DestroyCommandPool(pool)
	runFrames(t, m, 3)
	if fb.freedCmdBuffers != 2 || fb.destroyedEncoders != 1 {
		t.Errorf("freed %d command buffers and destroyed %d encoders, want 2 and 1",
			fb.freedCmdBuffers, fb.destroyedEncoders)
	}
	if _, ok := m.CommandPool(pool); ok {
		t.Error("CommandPool resolves a destroyed handle")
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command poolsim drives a resource manager on the noop GPU backend through
// a number of frames with random resource churn and prints pool statistics.
package main

import (
	"flag"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/respool"
	"github.com/gogpu/respool/resource"
)

func main() {
	var (
		frames  = flag.Int("frames", 240, "number of frames to simulate")
		churn   = flag.Int("churn", 8, "resources created and destroyed per frame")
		temp    = flag.Uint64("temp", 64<<10, "temporary upload bytes per frame")
		block   = flag.Uint64("block", resource.DefaultTempBlockSize, "temporary block size")
		every   = flag.Int("every", 60, "print statistics every N frames")
		seed    = flag.Uint64("seed", 1, "random seed")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		respool.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	device, queue, cleanup, err := openNoopDevice()
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer cleanup()

	m, err := resource.NewHAL(device, queue, resource.Config{
		TempBlockSize: *block,
		DefaultFormat: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	sim := &simulation{m: m, rng: rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))}
	if err := sim.setup(); err != nil {
		log.Fatalf("Setup failed: %v", err)
	}

	for frame := range *frames {
		if err := sim.frame(uint64(frame), *churn, *temp); err != nil { //nolint:gosec // G115: frame >= 0
			log.Fatalf("Frame %d failed: %v", frame, err)
		}
		if *every > 0 && (frame+1)%*every == 0 {
			log.Printf("%s\n", m.Stats())
		}
	}

	if err := m.Close(); err != nil {
		log.Fatalf("Close failed: %v", err)
	}
	log.Printf("Simulated %d frames\n%s\n", *frames, m.Stats())
}

// openNoopDevice opens the first adapter of the noop backend.
func openNoopDevice() (hal.Device, hal.Queue, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, err
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup, nil
}

// simulation holds the resources alive across frames.
type simulation struct {
	m   *resource.Manager
	rng *rand.Rand

	target   resource.TextureHandle
	depth    resource.TextureHandle
	pass     resource.RenderPassHandle
	pool     resource.CommandPoolHandle
	textures []resource.TextureHandle
	buffers  []resource.BufferHandle
}

func (s *simulation) setup() error {
	var err error
	s.target, err = s.m.CreateTexture(resource.TextureDesc{
		Label:  "target",
		Width:  640,
		Height: 480,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return err
	}
	s.depth, err = s.m.CreateTexture(resource.TextureDesc{
		Label:  "depth",
		Width:  640,
		Height: 480,
		Format: gputypes.TextureFormatDepth24Plus,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	s.pass, err = s.m.CreateRenderPass(resource.RenderPassDesc{
		Label:        "main",
		Color:        []resource.ColorTarget{{Texture: s.target, Clear: gputypes.Color{A: 1}}},
		DepthStencil: &resource.DepthStencilTarget{Texture: s.depth, DepthClear: 1},
	})
	if err != nil {
		return err
	}
	s.pool, err = s.m.CreateCommandPool(resource.CommandPoolDesc{Label: "graphics"})
	return err
}

func (s *simulation) frame(n uint64, churn int, tempBytes uint64) error {
	if err := s.m.StartFrame(n); err != nil {
		return err
	}

	for range churn {
		if err := s.createOrDestroy(); err != nil {
			return err
		}
	}

	for left := tempBytes; left > 0; {
		size := min(left, 4096)
		a, err := s.m.AllocateTemp(size, 256)
		if err != nil {
			return err
		}
		a.Bytes[0] = byte(n)
		left -= size
	}

	cb, err := s.m.CreateCommandBuffer(resource.CommandBufferDesc{
		Label: "frame",
		Pool:  s.pool,
		Record: func(enc hal.CommandEncoder) error {
			pass, ok := s.m.RenderPass(s.pass)
			if !ok {
				return resource.ErrInvalidHandle
			}
			pass.Begin(enc).End()
			return nil
		},
	})
	if err != nil {
		return err
	}
	if _, err := s.m.Submit(cb); err != nil {
		return err
	}
	s.m.DestroyCommandBuffer(cb)

	return s.m.EndFrame(n)
}

// createOrDestroy creates a sprite texture or buffer, or destroys a random
// existing one.
func (s *simulation) createOrDestroy() error {
	switch s.rng.IntN(4) {
	case 0:
		size := uint32(8 << s.rng.IntN(4)) //nolint:gosec // G115: at most 64
		h, err := s.m.CreateTexture(resource.TextureDesc{
			Label:  "sprite",
			Width:  size,
			Height: size,
		})
		if err != nil {
			return err
		}
		if err := s.m.UploadTexture(h, sprite(int(size), s.rng)); err != nil {
			return err
		}
		s.textures = append(s.textures, h)
	case 1:
		h, err := s.m.CreateBuffer(resource.BufferDesc{
			Label: "mesh",
			Size:  uint64(64 + s.rng.IntN(4096)), //nolint:gosec // G115: positive
			Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		s.buffers = append(s.buffers, h)
	case 2:
		if len(s.textures) > 0 {
			i := s.rng.IntN(len(s.textures))
			s.m.DestroyTexture(s.textures[i])
			s.textures = append(s.textures[:i], s.textures[i+1:]...)
		}
	default:
		if len(s.buffers) > 0 {
			i := s.rng.IntN(len(s.buffers))
			s.m.DestroyBuffer(s.buffers[i])
			s.buffers = append(s.buffers[:i], s.buffers[i+1:]...)
		}
	}
	return nil
}

// sprite returns a size x size image filled with a random color.
func sprite(size int, rng *rand.Rand) image.Image {
	c := color.RGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 255} //nolint:gosec // G115: < 256
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return img
}

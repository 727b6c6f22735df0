package main

import (
	"context"
	"sync/atomic"
	"time"
)

// RenderLoop pulls fixed-size blocks from the engine and hands them to a
// sink. It takes no locks; the only thing that ends Run is ctx.
type RenderLoop struct {
	renderer Renderer
	sink     Sink
	block    []int16
	blocks   atomic.Uint64

	lastWarn time.Time
}

func NewRenderLoop(r Renderer, sink Sink, blockSize int) *RenderLoop {
	return &RenderLoop{
		renderer: r,
		sink:     sink,
		block:    make([]int16, blockSize),
	}
}

// Blocks is the number of blocks rendered so far.
func (l *RenderLoop) Blocks() uint64 { return l.blocks.Load() }

// Step renders and writes one block.
func (l *RenderLoop) Step() error {
	l.renderer.Render(l.block)
	l.blocks.Add(1)
	return l.sink.Write(l.block)
}

func (l *RenderLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := l.Step(); err != nil {
			if now := time.Now(); now.Sub(l.lastWarn) >= time.Second {
				logger.Warn("render: sink write failed", "err", err, "blocks", l.blocks.Load())
				l.lastWarn = now
			}
		}
	}
}

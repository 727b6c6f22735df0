package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"
)

var errAlreadyRunning = errors.New("coordinator already running")

// Coordinator wires the command side (queue and dispatcher) and the render
// side (render loop on its own OS thread) around one engine.
type Coordinator struct {
	dispatcher  *Dispatcher
	catalog     *CatalogIndex
	controllers *ControllerMapper
	render      *RenderLoop
	started     atomic.Bool
}

func NewCoordinator(d *Dispatcher, catalog *CatalogIndex, controllers *ControllerMapper, render *RenderLoop) *Coordinator {
	return &Coordinator{
		dispatcher:  d,
		catalog:     catalog,
		controllers: controllers,
		render:      render,
	}
}

// Init puts the engine into its start state: power-on controllers and
// program 0 of bank 0.
func (c *Coordinator) Init() {
	c.controllers.Init()
	c.catalog.ProgramChange(0)
}

// Run initialises the engine, starts the render goroutine and, once it has
// produced its first block, dispatches events until ctx is done. A closed
// events channel stops dispatching; rendering continues until ctx is done.
// Run may only be called once.
func (c *Coordinator) Run(ctx context.Context, events <-chan midi.Message) error {
	if !c.started.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	c.Init()

	g, ctx := errgroup.WithContext(ctx)
	ready := make(chan struct{})
	g.Go(func() error {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := c.render.Step(); err != nil {
			logger.Warn("render: sink write failed", "err", err)
		}
		close(ready)
		logger.Info("render: loop started")
		if err := c.render.Run(ctx); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		return nil
	})

	select {
	case <-ready:
	case <-ctx.Done():
		return g.Wait()
	}

	g.Go(func() error {
		return c.commandLoop(ctx, events)
	})
	return g.Wait()
}

func (c *Coordinator) commandLoop(ctx context.Context, events <-chan midi.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				logger.Info("midi: command queue closed")
				return nil
			}
			if r := c.dispatcher.Dispatch(msg); r.SysEx {
				logger.Debug("midi: sysex", "status", r.Status)
			}
		}
	}
}

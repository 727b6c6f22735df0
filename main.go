package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runInstrument(args, false)
	case "mcp":
		err = runInstrument(args, true)
	case "render":
		err = runRender(args)
	case "banks":
		err = runBanks(args)
	case "voice":
		err = runVoice(args)
	case "ports":
		err = runPorts()
	default:
		err = fmt.Errorf("unknown command %q (run, mcp, render, banks, voice, ports)", cmd)
	}
	if err != nil {
		logger.Error("fmcore: "+cmd+" failed", "err", err)
		os.Exit(1)
	}
}

// instrument is the command-side object graph around one engine.
type instrument struct {
	engine      *toneEngine
	catalog     *CatalogIndex
	controllers *ControllerMapper
	dispatcher  *Dispatcher
	voices      *Catalog
}

func newInstrument(cfg *Config) (*instrument, error) {
	voices, err := loadVoices(cfg)
	if err != nil {
		return nil, err
	}
	engine := newToneEngine(cfg.SampleRate, cfg.Polyphony)
	catalog := NewCatalogIndex(voices, engine)
	controllers := NewControllerMapper(engine)
	return &instrument{
		engine:      engine,
		catalog:     catalog,
		controllers: controllers,
		dispatcher:  NewDispatcher(engine, catalog, controllers, cfg.Channel),
		voices:      voices,
	}, nil
}

func interruptContext() context.Context {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}

func runInstrument(args []string, withMCP bool) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	initLogger(cfg.Debug)
	logger.Info("fmcore starting",
		"channel", cfg.Channel,
		"sample_rate", cfg.SampleRate,
		"block", cfg.BlockSize,
		"polyphony", cfg.Polyphony,
		"output", cfg.Output,
	)

	inst, err := newInstrument(cfg)
	if err != nil {
		return err
	}
	sink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("audio: close failed", "err", err)
		}
	}()

	events := make(chan midi.Message, cfg.QueueDepth)
	inputs := 0
	if cfg.Port != "" || cfg.Serial == "" {
		in, err := openPortInput(cfg.Port, events)
		if err != nil {
			if !withMCP {
				return err
			}
			logger.Warn("midi: no port input, MCP only", "err", err)
		} else {
			defer in.Close()
			inputs++
		}
	}

	ctx, cancel := context.WithCancel(interruptContext())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Serial != "" {
		sin, err := openSerialInput(cfg.Serial, cfg.Baud)
		if err != nil {
			return err
		}
		defer sin.Close()
		inputs++
		g.Go(func() error { return sin.Run(ctx, events) })
	}

	loop := NewRenderLoop(inst.engine, sink, cfg.BlockSize)
	coord := NewCoordinator(inst.dispatcher, inst.catalog, inst.controllers, loop)
	g.Go(func() error { return coord.Run(ctx, events) })

	if withMCP {
		s := newMCPServer(inst.voices, newNoteSender(events, cfg.Channel))
		g.Go(func() error {
			defer cancel()
			logger.Info("mcp: serving on stdio")
			return server.ServeStdio(s)
		})
	}

	logger.Info("fmcore running", "inputs", inputs)
	err = g.Wait()
	logger.Info("fmcore stopped", "blocks", loop.Blocks(), "dropped_keys", inst.engine.Dropped())
	return err
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	midiPath := fs.String("midi", "", "Standard MIDI File to render")
	out := fs.String("out", "out.wav", "WAV file to write")
	tail := fs.Duration("tail", 2*time.Second, "silence rendered after the last event")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	initLogger(cfg.Debug)
	if *midiPath == "" {
		return fmt.Errorf("render needs -midi")
	}
	return renderSMF(cfg, *midiPath, *out, *tail)
}

func runBanks(args []string) error {
	fs := flag.NewFlagSet("banks", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	initLogger(cfg.Debug)

	voices, err := loadVoices(cfg)
	if err != nil {
		return err
	}
	for b := 0; b < NumBanks; b++ {
		fmt.Printf("Bank %d\n", b)
		for v, name := range voices.Names(b) {
			fmt.Printf("  %2d  %s\n", v, name)
		}
	}
	return nil
}

func runPorts() error {
	names, err := listInputPorts()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no MIDI inputs available")
		return nil
	}
	for i, n := range names {
		fmt.Printf("%d: %s\n", i, n)
	}
	return nil
}

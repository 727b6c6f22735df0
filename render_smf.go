package main

import (
	"fmt"
	"slices"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type timedMessage struct {
	at  int64 // microseconds from the start of the file
	msg midi.Message
}

// readSMF returns the channel and SysEx events of a Standard MIDI File in
// time order. Meta events are skipped.
func readSMF(path string) ([]timedMessage, error) {
	var events []timedMessage
	err := smf.ReadTracks(path).Do(func(ev smf.TrackEvent) {
		m := ev.Event.Message
		if len(m) == 0 || m[0] == 0xFF {
			return
		}
		events = append(events, timedMessage{
			at:  ev.AbsMicroSeconds,
			msg: append(midi.Message(nil), m...),
		})
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("smf: read %s: %w", path, err)
	}
	slices.SortStableFunc(events, func(a, b timedMessage) int {
		switch {
		case a.at < b.at:
			return -1
		case a.at > b.at:
			return 1
		}
		return 0
	})
	return events, nil
}

// renderEvents plays events through the dispatcher and renders the blocks
// between them, followed by tail of silence for release. Events take effect
// at the start of the block they fall in.
func renderEvents(events []timedMessage, d *Dispatcher, loop *RenderLoop, sampleRate, blockSize int, tail time.Duration) error {
	var rendered int64
	for _, ev := range events {
		due := ev.at * int64(sampleRate) / 1e6
		for rendered+int64(blockSize) <= due {
			if err := loop.Step(); err != nil {
				return err
			}
			rendered += int64(blockSize)
		}
		d.Dispatch(ev.msg)
	}
	for n := int64(tail.Seconds() * float64(sampleRate)); n > 0; n -= int64(blockSize) {
		if err := loop.Step(); err != nil {
			return err
		}
	}
	return nil
}

// renderSMF renders a MIDI file to a WAV file without an audio device. All
// channels are received.
func renderSMF(cfg *Config, midiPath, outPath string, tail time.Duration) error {
	events, err := readSMF(midiPath)
	if err != nil {
		return err
	}

	offline := *cfg
	offline.Channel = Omni
	inst, err := newInstrument(&offline)
	if err != nil {
		return err
	}

	sink, err := newWAVSink(outPath, cfg.SampleRate)
	if err != nil {
		return err
	}
	loop := NewRenderLoop(inst.engine, sink, cfg.BlockSize)
	NewCoordinator(inst.dispatcher, inst.catalog, inst.controllers, loop).Init()

	if err := renderEvents(events, inst.dispatcher, loop, cfg.SampleRate, cfg.BlockSize, tail); err != nil {
		_ = sink.Close()
		return fmt.Errorf("render %s: %w", outPath, err)
	}
	if err := sink.Close(); err != nil {
		return err
	}
	logger.Info("render: done", "midi", midiPath, "out", outPath, "events", len(events), "blocks", loop.Blocks())
	return nil
}

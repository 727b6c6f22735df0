package main

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// portSysExBuffer is the SysEx buffer of USB inputs, the same limit the
// serial framer applies. gomidi's reader does not bounds-check it, so a
// longer SysEx still panics inside the driver.
const portSysExBuffer = maxSysExSize

// excludedPorts are virtual ports never picked automatically.
var excludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

// offer queues msg for the command goroutine without blocking. A full queue
// drops the message.
func offer(events chan<- midi.Message, msg midi.Message) bool {
	select {
	case events <- msg:
		return true
	default:
		logger.Warn("midi: command queue full, message dropped", "msg", msg.String())
		return false
	}
}

// portInput is an open USB/ALSA MIDI input feeding the command queue.
type portInput struct {
	drv  *rtmididrv.Driver
	in   drivers.In
	stop func()
	name string
}

// listInputPorts returns the names of the MIDI inputs the driver sees.
func listInputPorts() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// pickInput returns the first usable input whose name contains hint. With an
// empty hint a single usable input is picked.
func pickInput(names []string, hint string) (string, bool) {
	var usable []string
	for _, n := range names {
		excluded := false
		for _, pat := range excludedPorts {
			if containsCI(n, pat) {
				excluded = true
				break
			}
		}
		if !excluded {
			usable = append(usable, n)
		}
	}
	if hint != "" {
		for _, n := range usable {
			if containsCI(n, hint) {
				return n, true
			}
		}
		return "", false
	}
	if len(usable) == 1 {
		return usable[0], true
	}
	return "", false
}

// openPortInput opens the input matching hint and forwards every message,
// SysEx included, to events.
func openPortInput(hint string, events chan<- midi.Message) (*portInput, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list inputs: %w", err)
	}

	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	name, ok := pickInput(names, hint)
	if !ok {
		drv.Close()
		if hint == "" {
			return nil, fmt.Errorf("no single MIDI input to pick from %d, use -port", len(names))
		}
		return nil, fmt.Errorf("no MIDI input contains %q", hint)
	}

	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		// the driver may reuse its buffer
		offer(events, append(midi.Message(nil), msg...))
	}, midi.UseSysEx(), midi.SysExBufferSize(portSysExBuffer), midi.HandleError(func(listenErr error) {
		logger.Warn("midi: listener error", "device", name, "err", listenErr)
	}))
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}

	logger.Info("midi: connected", "device", name)
	return &portInput{drv: drv, in: found, stop: stop, name: name}, nil
}

func (p *portInput) Close() {
	p.stop()
	_ = p.in.Close()
	p.drv.Close()
	logger.Info("midi: disconnected", "device", p.name)
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

package main

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"go.bug.st/serial"
)

const (
	midiBaudRate = 31250
	maxSysExSize = 8 << 10
)

// serialInput reads a DIN/UART MIDI stream from a serial device.
type serialInput struct {
	port   serial.Port
	device string
}

func openSerialInput(device string, baud int) (*serialInput, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", device, err)
	}
	// Read returns periodically so Run can notice cancellation.
	if err := p.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serial: set timeout on %s: %w", device, err)
	}
	logger.Info("serial: port opened", "device", device, "baud", baud)
	return &serialInput{port: p, device: device}, nil
}

// Run frames the byte stream into messages and offers them to events until
// ctx is done or the port fails.
func (s *serialInput) Run(ctx context.Context, events chan<- midi.Message) error {
	var f streamFramer
	emit := func(m midi.Message) { offer(events, m) }
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := s.port.Read(buf)
		if err != nil {
			return fmt.Errorf("serial: read %s: %w", s.device, err)
		}
		for _, b := range buf[:n] {
			f.feed(b, emit)
		}
	}
	return nil
}

func (s *serialInput) Close() {
	logger.Info("serial: closing port", "device", s.device)
	_ = s.port.Close()
}

// streamFramer splits a raw MIDI byte stream into messages. It keeps running
// status across channel messages, skips real-time bytes wherever they appear
// and reassembles SysEx up to maxSysExSize bytes; longer SysEx is dropped.
// gomidi's drivers.Reader frames the same way but indexes past its SysEx
// buffer on oversize input, which a serial line can always deliver.
type streamFramer struct {
	running  byte
	msg      []byte
	need     int
	sysex    []byte
	inSysEx  bool
	overflow bool
}

func (f *streamFramer) feed(b byte, emit func(midi.Message)) {
	switch {
	case b >= 0xF8:
		return
	case b == 0xF0:
		f.inSysEx, f.overflow = true, false
		f.sysex = append(f.sysex[:0], b)
		f.running, f.need = 0, 0
		return
	case b == 0xF7:
		if !f.inSysEx {
			return
		}
		f.inSysEx = false
		if f.overflow {
			logger.Warn("midi: oversize sysex dropped", "limit", maxSysExSize)
			return
		}
		f.sysex = append(f.sysex, b)
		emit(append(midi.Message(nil), f.sysex...))
		return
	case b >= 0x80:
		if f.inSysEx {
			f.inSysEx = false
			logger.Debug("midi: unterminated sysex dropped", "len", len(f.sysex))
		}
		if b >= 0xF0 {
			// system common clears running status
			f.running = 0
			switch b {
			case 0xF1, 0xF3:
				f.start(b, 1)
			case 0xF2:
				f.start(b, 2)
			case 0xF6:
				emit(midi.Message{b})
				f.need = 0
			default:
				f.need = 0
			}
			return
		}
		f.running = b
		f.start(b, channelDataLen(b))
		return
	}

	if f.inSysEx {
		if len(f.sysex) >= maxSysExSize-1 {
			f.overflow = true
			return
		}
		f.sysex = append(f.sysex, b)
		return
	}
	if f.need == 0 {
		if f.running == 0 {
			return
		}
		f.start(f.running, channelDataLen(f.running))
	}
	f.msg = append(f.msg, b)
	f.need--
	if f.need == 0 {
		emit(append(midi.Message(nil), f.msg...))
	}
}

func (f *streamFramer) start(status byte, n int) {
	f.msg = append(f.msg[:0], status)
	f.need = n
}

func channelDataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	}
	return 2
}

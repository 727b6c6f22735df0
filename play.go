package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gitlab.com/gomidi/midi/v2"
)

// noteSender injects performance messages into the command queue the same
// way a MIDI input does.
type noteSender struct {
	events  chan<- midi.Message
	channel uint8 // 0-based channel written into messages
}

func newNoteSender(events chan<- midi.Message, receive uint8) *noteSender {
	ch := uint8(0)
	if receive != Omni {
		ch = receive - 1
	}
	return &noteSender{events: events, channel: ch}
}

func (s *noteSender) send(msg midi.Message) error {
	if !offer(s.events, msg) {
		return fmt.Errorf("command queue full, %s dropped", msg.String())
	}
	return nil
}

func (s *noteSender) ControlChange(cc, value uint8) error {
	return s.send(midi.ControlChange(s.channel, cc, value))
}

func (s *noteSender) ProgramChange(bank, program uint8) error {
	if err := s.ControlChange(ccBankSelectLSB, bank); err != nil {
		return err
	}
	return s.send(midi.ProgramChange(s.channel, program))
}

// SysEx queues a complete system exclusive message.
func (s *noteSender) SysEx(data []byte) error {
	return s.send(midi.Message(data))
}

// noteOffWait bounds how long a note-off waits for room in the command
// queue.
const noteOffWait = time.Second

// release queues a note-off, waiting up to noteOffWait for room. It ignores
// ctx so a cancelled request still ends its note.
func (s *noteSender) release(note uint8) error {
	msg := midi.NoteOff(s.channel, note)
	t := time.NewTimer(noteOffWait)
	defer t.Stop()
	select {
	case s.events <- msg:
		return nil
	case <-t.C:
		logger.Warn("midi: command queue full, note-off dropped", "note", note)
		return fmt.Errorf("command queue full for %s after %s", msg.String(), noteOffWait)
	}
}

// Note plays one note for d, or until ctx is done. The note-off is sent even
// when ctx ends the note early.
func (s *noteSender) Note(ctx context.Context, note, velocity uint8, d time.Duration) error {
	if err := s.send(midi.NoteOn(s.channel, note, velocity)); err != nil {
		return fmt.Errorf("note on failed for %d: %w", note, err)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	if err := s.release(note); err != nil {
		return fmt.Errorf("note off failed for %d: %w", note, err)
	}
	return ctx.Err()
}

// Notes plays a whitespace or comma separated list like "C4 E4 G4 r C5".
func (s *noteSender) Notes(ctx context.Context, notesText string, velocity uint8, d time.Duration) error {
	tokens := strings.FieldsFunc(notesText, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
	if len(tokens) == 0 {
		return fmt.Errorf("no notes provided")
	}

	for _, tok := range tokens {
		n, isRest, err := parseNoteToken(tok)
		if err != nil {
			return fmt.Errorf("invalid note %q: %w", tok, err)
		}
		if isRest {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if err := s.Note(ctx, n, velocity, d); err != nil {
			return err
		}
	}
	return nil
}

// parseNoteToken reads "C4", "F#3", "Bb2", a MIDI number or "r"/"rest".
func parseNoteToken(tok string) (uint8, bool, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, false, fmt.Errorf("empty token")
	}

	if strings.EqualFold(t, "r") || strings.EqualFold(t, "rest") {
		return 0, true, nil
	}

	if n, err := strconv.Atoi(t); err == nil {
		if n < 0 || n > 127 {
			return 0, false, fmt.Errorf("MIDI note out of range: %d", n)
		}
		return uint8(n), false, nil
	}

	if len(t) < 2 {
		return 0, false, fmt.Errorf("too short")
	}

	base := strings.ToUpper(string(t[0]))
	accidental := 0
	rest := t[1:]

	switch rest[0] {
	case '#':
		accidental = 1
		rest = rest[1:]
	case 'b', 'B':
		accidental = -1
		rest = rest[1:]
	}

	if rest == "" {
		return 0, false, fmt.Errorf("missing octave")
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false, fmt.Errorf("invalid octave: %w", err)
	}

	semitones := map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}
	semitone, ok := semitones[base]
	if !ok {
		return 0, false, fmt.Errorf("invalid note letter %q", base)
	}

	n := 12*(octave+1) + semitone + accidental
	if n < 0 || n > 127 {
		return 0, false, fmt.Errorf("MIDI note out of range: %d", n)
	}
	return uint8(n), false, nil
}

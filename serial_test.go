package main

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func frame(stream []byte) []midi.Message {
	var f streamFramer
	var out []midi.Message
	for _, b := range stream {
		f.feed(b, func(m midi.Message) { out = append(out, m) })
	}
	return out
}

func TestFramerRunningStatus(t *testing.T) {
	got := frame([]byte{
		0x90, 60, 100, 62, 90, // note on, then running status
		0xF8,        // clock between messages
		64, 0xFE, 0, // running status with active sensing inside
		0xC1, 5, 6, // program change with running status
	})
	want := []midi.Message{
		{0x90, 60, 100},
		{0x90, 62, 90},
		{0x90, 64, 0},
		{0xC1, 5},
		{0xC1, 6},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d messages %v, want %v", len(got), got, want)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("message %d: got=% X want=% X", i, got[i], want[i])
		}
	}
}

func TestFramerSysEx(t *testing.T) {
	syx := VoiceSysEx(defaultVoice)
	stream := append([]byte{0xB0, 7, 100}, syx[:80]...)
	stream = append(stream, 0xF8)
	stream = append(stream, syx[80:]...)
	stream = append(stream, 7, 90) // running status does not survive SysEx

	got := frame(stream)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if !bytes.Equal(got[1], syx) {
		t.Fatalf("sysex not reassembled")
	}
}

func TestFramerOversizeSysExDropped(t *testing.T) {
	stream := []byte{0xF0}
	stream = append(stream, make([]byte, maxSysExSize+10)...)
	stream = append(stream, 0xF7, 0x80, 60, 0)

	got := frame(stream)
	if len(got) != 1 || got[0][0] != 0x80 {
		t.Fatalf("got=%v, want only the note off", got)
	}
}

func TestFramerUnterminatedSysEx(t *testing.T) {
	got := frame([]byte{0xF0, 0x43, 0x10, 0x90, 61, 100})
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x90, 61, 100}) {
		t.Fatalf("got=%v", got)
	}
}

func TestFramerStrayData(t *testing.T) {
	if got := frame([]byte{60, 100, 0xF7}); len(got) != 0 {
		t.Fatalf("stray bytes produced %v", got)
	}
}

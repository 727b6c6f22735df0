package main

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

func TestPickInput(t *testing.T) {
	names := []string{"Midi Through:Midi Through Port-0 14:0", "KeyStep 37:KeyStep 37 MIDI 1 20:0"}

	if got, ok := pickInput(names, ""); !ok || got != names[1] {
		t.Fatalf("auto pick=%q ok=%t", got, ok)
	}
	if got, ok := pickInput(names, "keystep"); !ok || got != names[1] {
		t.Fatalf("hint pick=%q ok=%t", got, ok)
	}
	if _, ok := pickInput(names, "launchkey"); ok {
		t.Fatalf("picked a port that does not match the hint")
	}
	if _, ok := pickInput(names[:1], ""); ok {
		t.Fatalf("picked an excluded port")
	}

	two := append(names, "Launchkey Mini:Launchkey Mini MIDI 1 24:0")
	if _, ok := pickInput(two, ""); ok {
		t.Fatalf("picked automatically among two inputs")
	}
}

func TestOffer(t *testing.T) {
	events := make(chan midi.Message, 1)
	if !offer(events, midi.NoteOn(0, 60, 100)) {
		t.Fatalf("offer into an empty queue failed")
	}
	if offer(events, midi.NoteOn(0, 62, 100)) {
		t.Fatalf("offer into a full queue succeeded")
	}
	var ch, key, vel uint8
	if !(<-events).GetNoteStart(&ch, &key, &vel) || key != 60 {
		t.Fatalf("queued key=%d", key)
	}
}

func TestBankDumpFitsBothTransports(t *testing.T) {
	dump := bankDump([]VoiceParams{defaultVoice})
	if status := newToneEngine(24000, 1).CheckSystemExclusive(dump); status != SysExBankDump {
		t.Fatalf("bank dump status=%d want=%d", status, SysExBankDump)
	}

	// USB inputs: the reader rtmididrv builds for openPortInput's options
	var fromPort []byte
	r := drivers.NewReader(drivers.ListenConfig{SysEx: true, SysExBufferSize: portSysExBuffer}, func(msg []byte, _ int32) {
		fromPort = msg
	})
	r.EachMessage(dump, 0)
	if !bytes.Equal(fromPort, dump) {
		t.Fatalf("port reader delivered %d bytes, want %d", len(fromPort), len(dump))
	}

	var f streamFramer
	var fromSerial midi.Message
	for _, b := range dump {
		f.feed(b, func(m midi.Message) { fromSerial = m })
	}
	if !bytes.Equal(fromSerial, dump) {
		t.Fatalf("serial framer delivered %d bytes, want %d", len(fromSerial), len(dump))
	}
}

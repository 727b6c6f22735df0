package main

import (
	"testing"
)

// markedCatalog stores bank*VoicesPerBank+voice in byte 0 of every voice so
// tests can tell which entry was loaded.
func markedCatalog() *Catalog {
	c := NewCatalog()
	for b := range c.banks {
		for v := range c.banks[b] {
			p := defaultVoice
			p[0] = byte(b*VoicesPerBank + v)
			c.banks[b][v] = NewVoiceRecord(p)
		}
	}
	return c
}

type loadRecorder struct {
	loaded []VoiceParams
}

func (r *loadRecorder) LoadVoiceParameters(p VoiceParams) { r.loaded = append(r.loaded, p) }

func (r *loadRecorder) last(t *testing.T) (bank, voice int) {
	t.Helper()
	if len(r.loaded) == 0 {
		t.Fatalf("no voice loaded")
	}
	m := int(r.loaded[len(r.loaded)-1][0])
	return m / VoicesPerBank, m % VoicesPerBank
}

func TestBankSelectThenProgram(t *testing.T) {
	for b := 0; b < NumBanks; b++ {
		for v := 0; v < VoicesPerBank; v++ {
			r := &loadRecorder{}
			ci := NewCatalogIndex(markedCatalog(), r)
			if !ci.BankSelectLSB(uint8(b)) {
				t.Fatalf("bank %d rejected", b)
			}
			sel, ok := ci.ProgramChange(uint8(v))
			if !ok {
				t.Fatalf("bank %d program %d rejected", b, v)
			}
			if sel != (Selection{Bank: b, Voice: v}) {
				t.Fatalf("got=%+v want bank %d voice %d", sel, b, v)
			}
			if gb, gv := r.last(t); gb != b || gv != v {
				t.Fatalf("loaded bank %d voice %d, want %d/%d", gb, gv, b, v)
			}
		}
	}
}

func TestBankSelectOutOfRange(t *testing.T) {
	ci := NewCatalogIndex(markedCatalog(), &loadRecorder{})
	ci.BankSelectLSB(3)
	if ci.BankSelectLSB(NumBanks) {
		t.Fatalf("bank %d accepted", NumBanks)
	}
	if got := ci.Selection().Bank; got != 3 {
		t.Fatalf("bank=%d want=3", got)
	}
	if ci.BankSelectMSB(1) {
		t.Fatalf("bank select MSB applied")
	}
}

func TestProgramChangeCrossBank(t *testing.T) {
	r := &loadRecorder{}
	ci := NewCatalogIndex(markedCatalog(), r)

	tests := []struct {
		program     uint8
		bank, voice int
	}{
		{VoicesPerBank, 1, 0},
		{2*VoicesPerBank - 1, 1, VoicesPerBank - 1},
		{3*VoicesPerBank + 5, 3, 5},
	}
	for _, tt := range tests {
		sel, ok := ci.ProgramChange(tt.program)
		if !ok {
			t.Fatalf("program %d rejected", tt.program)
		}
		if sel != (Selection{Bank: tt.bank, Voice: tt.voice}) {
			t.Fatalf("program %d: got=%+v want bank %d voice %d", tt.program, sel, tt.bank, tt.voice)
		}
		if gb, gv := r.last(t); gb != tt.bank || gv != tt.voice {
			t.Fatalf("program %d loaded %d/%d", tt.program, gb, gv)
		}
	}
	// the offset does not move the current bank
	if got := ci.Selection().Bank; got != 0 {
		t.Fatalf("current bank=%d want=0", got)
	}
}

func TestProgramChangeOffsetFromCurrentBank(t *testing.T) {
	r := &loadRecorder{}
	ci := NewCatalogIndex(markedCatalog(), r)
	ci.BankSelectLSB(6)

	sel, ok := ci.ProgramChange(VoicesPerBank + 2)
	if !ok || sel != (Selection{Bank: 7, Voice: 2}) {
		t.Fatalf("got=%+v ok=%v want bank 7 voice 2", sel, ok)
	}

	// only two banks are reachable from bank 6
	before := len(r.loaded)
	prev := ci.Selection()
	if _, ok := ci.ProgramChange(2 * VoicesPerBank); ok {
		t.Fatalf("program %d accepted from bank 6", 2*VoicesPerBank)
	}
	if len(r.loaded) != before {
		t.Fatalf("engine loaded a voice for an out of range program")
	}
	if ci.Selection() != prev {
		t.Fatalf("selection changed: %+v -> %+v", prev, ci.Selection())
	}
}

func TestCatalogNames(t *testing.T) {
	c := NewCatalog()
	names := c.Names(0)
	if len(names) != VoicesPerBank {
		t.Fatalf("names=%d want=%d", len(names), VoicesPerBank)
	}
	if names[0] != "BRASS   1" {
		t.Fatalf("name=%q want=%q", names[0], "BRASS   1")
	}
	if c.Names(NumBanks) != nil {
		t.Fatalf("names for bank %d", NumBanks)
	}
	if _, ok := c.Voice(0, VoicesPerBank); ok {
		t.Fatalf("voice %d found", VoicesPerBank)
	}
}

package main

import (
	"fmt"
	"sync/atomic"
)

// fakeEngine records every command-side call as a string.
type fakeEngine struct {
	calls  []string
	loaded []VoiceParams

	sysexStatus int16

	renders          atomic.Int64
	rendersAtKeyDown int64
	keys             chan uint8
}

func (f *fakeEngine) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeEngine) reset() { f.calls = nil }

func (f *fakeEngine) LoadVoiceParameters(p VoiceParams) {
	f.loaded = append(f.loaded, p)
	f.record("LoadVoiceParameters(%s)", p.Name())
}

func (f *fakeEngine) SetVoiceDataElement(address, value uint8) {
	f.record("SetVoiceDataElement(%d,%d)", address, value)
}

func (f *fakeEngine) KeyDown(pitch, velocity uint8) {
	f.rendersAtKeyDown = f.renders.Load()
	f.record("KeyDown(%d,%d)", pitch, velocity)
	if f.keys != nil {
		f.keys <- pitch
	}
}

func (f *fakeEngine) KeyUp(pitch uint8)           { f.record("KeyUp(%d)", pitch) }
func (f *fakeEngine) Panic()                      { f.record("Panic()") }
func (f *fakeEngine) NotesOff()                   { f.record("NotesOff()") }
func (f *fakeEngine) SetGain(v uint8)             { f.record("SetGain(%d)", v) }
func (f *fakeEngine) SetMasterTune(v uint8)       { f.record("SetMasterTune(%d)", v) }
func (f *fakeEngine) SetMonoMode(mono bool)       { f.record("SetMonoMode(%t)", mono) }
func (f *fakeEngine) SetSustain(on bool)          { f.record("SetSustain(%t)", on) }
func (f *fakeEngine) SetPitchBend(lsb, msb uint8) { f.record("SetPitchBend(%d,%d)", lsb, msb) }
func (f *fakeEngine) SetPitchBendRange(v uint8)   { f.record("SetPitchBendRange(%d)", v) }
func (f *fakeEngine) SetPitchBendStep(v uint8)    { f.record("SetPitchBendStep(%d)", v) }
func (f *fakeEngine) SetPortamentoMode(v uint8)   { f.record("SetPortamentoMode(%d)", v) }
func (f *fakeEngine) SetPortamentoTime(v uint8)   { f.record("SetPortamentoTime(%d)", v) }
func (f *fakeEngine) SetModWheel(v uint8)         { f.record("SetModWheel(%d)", v) }
func (f *fakeEngine) SetBreath(v uint8)           { f.record("SetBreath(%d)", v) }
func (f *fakeEngine) SetFoot(v uint8)             { f.record("SetFoot(%d)", v) }
func (f *fakeEngine) SetAftertouch(v uint8)       { f.record("SetAftertouch(%d)", v) }
func (f *fakeEngine) ControllersRefresh()         { f.record("ControllersRefresh()") }
func (f *fakeEngine) SetPortamentoGlissando(v uint8) {
	f.record("SetPortamentoGlissando(%d)", v)
}

func (f *fakeEngine) SetPortamento(mode, glissando, time uint8) {
	f.record("SetPortamento(%d,%d,%d)", mode, glissando, time)
}

func (f *fakeEngine) SetControllerRouting(c Controller, rng, target, channel uint8) {
	f.record("SetControllerRouting(%s,%d,%d,%d)", c, rng, target, channel)
}

func (f *fakeEngine) CheckSystemExclusive(msg []byte) int16 {
	f.record("CheckSystemExclusive(%d)", len(msg))
	return f.sysexStatus
}

func (f *fakeEngine) Render(buf []int16) {
	f.renders.Add(1)
	for i := range buf {
		buf[i] = int16(i)
	}
}

var _ Engine = (*fakeEngine)(nil)

// newTestDispatcher wires a dispatcher around a fake engine.
func newTestDispatcher(channel uint8) (*Dispatcher, *fakeEngine) {
	f := &fakeEngine{}
	cat := NewCatalogIndex(NewCatalog(), f)
	return NewDispatcher(f, cat, NewControllerMapper(f), channel), f
}

func lastCall(f *fakeEngine) string {
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

package main

// Controller is an expressive controller whose depth and destination are
// routed as a pair.
type Controller uint8

const (
	ModWheel Controller = iota
	Breath
	Foot
	Aftertouch
	numControllers
)

func (c Controller) String() string {
	switch c {
	case ModWheel:
		return "mod wheel"
	case Breath:
		return "breath"
	case Foot:
		return "foot"
	case Aftertouch:
		return "aftertouch"
	}
	return "unknown"
}

// SysEx status codes returned by Engine.CheckSystemExclusive.
const (
	SysExNoEnd          int16 = -1
	SysExNotYamaha      int16 = -2
	SysExUnknownFormat  int16 = -3
	SysExUnknownParam   int16 = -4
	SysExVoiceLength    int16 = -5
	SysExVoiceChecksum  int16 = -7
	SysExBankLength     int16 = -9
	SysExBankChecksum   int16 = -10
	SysExVoiceDump      int16 = 100
	SysExBankDump       int16 = 200
	SysExFunctionFirst  int16 = 64 // function parameters 64..77 report their number
	SysExFunctionLast   int16 = 77
	SysExParameterDelta int16 = 300 // + voice parameter address
)

// Engine is the synthesis engine driven by the control core. Every method
// except Render is called from the command goroutine; Render is called from
// the render goroutine only. Implementations must keep Render free of locks
// shared with the setters.
type Engine interface {
	LoadVoiceParameters(p VoiceParams)
	SetVoiceDataElement(address, value uint8)

	KeyDown(pitch, velocity uint8)
	KeyUp(pitch uint8)
	Panic()
	NotesOff()

	SetGain(v uint8)
	SetMasterTune(v uint8)
	SetMonoMode(mono bool)
	SetSustain(on bool)

	SetPitchBend(lsb, msb uint8)
	SetPitchBendRange(semitones uint8)
	SetPitchBendStep(step uint8)

	SetPortamento(mode, glissando, time uint8)
	SetPortamentoMode(mode uint8)
	SetPortamentoGlissando(glissando uint8)
	SetPortamentoTime(time uint8)

	SetModWheel(v uint8)
	SetBreath(v uint8)
	SetFoot(v uint8)
	SetAftertouch(v uint8)
	SetControllerRouting(c Controller, rng, target, channel uint8)
	ControllersRefresh()

	CheckSystemExclusive(msg []byte) int16

	Render(buf []int16)
}

// Renderer is the part of the engine the render goroutine uses.
type Renderer interface {
	Render(buf []int16)
}

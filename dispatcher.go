package main

import (
	"gitlab.com/gomidi/midi/v2"
)

// Control change numbers understood by the dispatcher. 102-114 sit in the
// undefined CC range and carry the controller routing and tuning settings
// that DX-style instruments otherwise only take as SysEx function changes.
const (
	ccBankSelectMSB    = 0
	ccModWheel         = 1
	ccBreath           = 2
	ccFoot             = 4
	ccPortamentoTime   = 5
	ccVolume           = 7
	ccBankSelectLSB    = 32
	ccSustain          = 64
	ccPortamento       = 65
	ccModWheelRange    = 102
	ccModWheelTarget   = 103
	ccFootRange        = 104
	ccFootTarget       = 105
	ccBreathRange      = 106
	ccBreathTarget     = 107
	ccAftertouchRange  = 108
	ccAftertouchTarget = 109
	ccPitchBendRange   = 110
	ccPitchBendStep    = 111
	ccPortamentoMode   = 112
	ccPortamentoGliss  = 113
	ccMasterTune       = 114
	ccAllSoundOff      = 120
	ccAllNotesOff      = 123
	ccMonoOn           = 126
	ccPolyOn           = 127
)

// Omni makes the dispatcher accept every channel.
const Omni uint8 = 0

// Result reports what happened to one message.
type Result struct {
	// Applied is false when the message was out of range, on another
	// channel or not understood.
	Applied bool
	// SysEx is set for system exclusive messages; Status then holds the
	// engine's verdict unmodified and a negative status is not applied.
	SysEx  bool
	Status int16
}

// Dispatcher is the command goroutine's entry point: it turns every
// incoming message into at most one catalog, controller or engine call.
type Dispatcher struct {
	engine      Engine
	catalog     *CatalogIndex
	controllers *ControllerMapper
	channel     uint8 // 1-16, or Omni
}

func NewDispatcher(e Engine, catalog *CatalogIndex, controllers *ControllerMapper, channel uint8) *Dispatcher {
	return &Dispatcher{
		engine:      e,
		catalog:     catalog,
		controllers: controllers,
		channel:     channel,
	}
}

// Channel returns the receive channel (1-16, or Omni).
func (d *Dispatcher) Channel() uint8 { return d.channel }

func (d *Dispatcher) accepts(ch uint8) bool {
	return d.channel == Omni || ch+1 == d.channel
}

// Dispatch routes one message.
func (d *Dispatcher) Dispatch(msg midi.Message) Result {
	if len(msg) > 0 && msg[0] == 0xF0 {
		status := d.SystemExclusive(msg)
		return Result{SysEx: true, Applied: status >= 0, Status: status}
	}

	var ch, key, vel, cc, val, prog, pressure uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if !d.accepts(ch) {
			return Result{}
		}
		return Result{Applied: d.NoteOn(key, vel)}
	case msg.GetNoteEnd(&ch, &key):
		if !d.accepts(ch) {
			return Result{}
		}
		return Result{Applied: d.NoteOff(key)}
	case msg.GetControlChange(&ch, &cc, &val):
		if !d.accepts(ch) {
			return Result{}
		}
		return Result{Applied: d.ControlChange(cc, val)}
	case msg.GetProgramChange(&ch, &prog):
		if !d.accepts(ch) {
			return Result{}
		}
		_, ok := d.catalog.ProgramChange(prog)
		return Result{Applied: ok}
	case msg.GetAfterTouch(&ch, &pressure):
		if !d.accepts(ch) {
			return Result{}
		}
		return Result{Applied: d.SetAftertouch(pressure)}
	case msg.GetPitchBend(&ch, &rel, &abs):
		if !d.accepts(ch) {
			return Result{}
		}
		return Result{Applied: d.SetPitchBend(uint8(abs&0x7F), uint8(abs>>7))}
	}

	logger.Debug("midi: unhandled message", "msg", msg.String())
	return Result{}
}

// ControlChange handles one CC. Unknown controllers are ignored.
func (d *Dispatcher) ControlChange(cc, val uint8) bool {
	if val > 127 {
		return false
	}
	switch cc {
	case ccBankSelectMSB:
		return d.catalog.BankSelectMSB(val)
	case ccBankSelectLSB:
		return d.catalog.BankSelectLSB(val)
	case ccModWheel:
		return d.SetModWheel(val)
	case ccBreath:
		return d.SetBreathControl(val)
	case ccFoot:
		return d.SetFootControl(val)
	case ccVolume:
		return d.SetVolume(val)
	case ccSustain:
		return d.SetSustain(val)
	case ccPortamento:
		return d.SetPortamento(val)
	case ccPortamentoTime:
		d.controllers.SetPortamentoTime(val)
	case ccModWheelRange:
		return d.controllers.SetRange(ModWheel, val)
	case ccModWheelTarget:
		return d.controllers.SetTarget(ModWheel, val)
	case ccFootRange:
		return d.controllers.SetRange(Foot, val)
	case ccFootTarget:
		return d.controllers.SetTarget(Foot, val)
	case ccBreathRange:
		return d.controllers.SetRange(Breath, val)
	case ccBreathTarget:
		return d.controllers.SetTarget(Breath, val)
	case ccAftertouchRange:
		return d.controllers.SetRange(Aftertouch, val)
	case ccAftertouchTarget:
		return d.controllers.SetTarget(Aftertouch, val)
	case ccPitchBendRange:
		d.controllers.SetPitchBendRange(val)
	case ccPitchBendStep:
		d.controllers.SetPitchBendStep(val)
	case ccPortamentoMode:
		d.controllers.SetPortamentoMode(val)
	case ccPortamentoGliss:
		d.controllers.SetPortamentoGlissando(val)
	case ccMasterTune:
		return d.SetMasterTune(val)
	case ccAllSoundOff:
		d.Panic()
	case ccAllNotesOff:
		d.NotesOff()
	case ccMonoOn:
		d.engine.SetMonoMode(true)
	case ccPolyOn:
		d.engine.SetMonoMode(false)
	default:
		logger.Debug("midi: unhandled controller", "cc", cc, "value", val)
		return false
	}
	return true
}

func (d *Dispatcher) NoteOn(key, vel uint8) bool {
	if key > 127 || vel > 127 {
		return false
	}
	d.engine.KeyDown(key, vel)
	return true
}

func (d *Dispatcher) NoteOff(key uint8) bool {
	if key > 127 {
		return false
	}
	d.engine.KeyUp(key)
	return true
}

func (d *Dispatcher) SetModWheel(v uint8) bool {
	if v > 127 {
		return false
	}
	d.engine.SetModWheel(v)
	d.engine.ControllersRefresh()
	return true
}

func (d *Dispatcher) SetBreathControl(v uint8) bool {
	if v > 127 {
		return false
	}
	d.engine.SetBreath(v)
	d.engine.ControllersRefresh()
	return true
}

// SetFootControl does not refresh controllers; the foot value is picked up
// with the next refresh.
func (d *Dispatcher) SetFootControl(v uint8) bool {
	if v > 127 {
		return false
	}
	d.engine.SetFoot(v)
	return true
}

func (d *Dispatcher) SetAftertouch(v uint8) bool {
	if v > 127 {
		return false
	}
	d.engine.SetAftertouch(v)
	d.engine.ControllersRefresh()
	return true
}

func (d *Dispatcher) SetVolume(v uint8) bool {
	if v > 127 {
		return false
	}
	d.engine.SetGain(v)
	return true
}

func (d *Dispatcher) SetMasterTune(v uint8) bool {
	if v > 127 {
		return false
	}
	d.engine.SetMasterTune(v)
	return true
}

func (d *Dispatcher) SetPitchBend(lsb, msb uint8) bool {
	if lsb > 127 || msb > 127 {
		return false
	}
	d.engine.SetPitchBend(lsb, msb)
	return true
}

// SetSustain switches sustain off below 64 and on from 64 to 126. A value of
// 127 changes nothing.
func (d *Dispatcher) SetSustain(v uint8) bool {
	switch {
	case v < 64:
		d.engine.SetSustain(false)
	case v < 127:
		d.engine.SetSustain(true)
	default:
		return false
	}
	return true
}

// SetPortamento uses the same thresholds as SetSustain.
func (d *Dispatcher) SetPortamento(v uint8) bool {
	switch {
	case v < 64:
		d.engine.SetPortamento(0, 0, 0)
	case v < 127:
		d.engine.SetPortamento(1, 1, 60)
	default:
		return false
	}
	return true
}

func (d *Dispatcher) Panic() { d.engine.Panic() }

func (d *Dispatcher) NotesOff() { d.engine.NotesOff() }

// SystemExclusive hands msg to the engine and returns its status unchanged.
// Voice dumps and parameter changes the engine accepts are applied here.
func (d *Dispatcher) SystemExclusive(msg []byte) int16 {
	status := d.engine.CheckSystemExclusive(msg)
	switch {
	case status == SysExVoiceDump:
		if rec, ok := VoiceRecordFromSysEx(msg); ok {
			p := d.catalog.LoadRecord(rec)
			logger.Info("midi: voice received", "name", p.Name())
		}
	case status >= SysExParameterDelta && status <= SysExParameterDelta+VoiceParamsSize && len(msg) > 5:
		d.controllers.SetVoiceDataElement(uint8(status-SysExParameterDelta), msg[5])
	case status >= SysExFunctionFirst && status <= SysExFunctionLast && len(msg) > 5:
		d.functionChange(status, msg[5])
	case status < 0:
		logger.Debug("midi: sysex rejected", "status", status, "len", len(msg))
	}
	return status
}

// functionChange applies a function parameter (64-77).
func (d *Dispatcher) functionChange(param int16, v uint8) {
	switch param {
	case 64:
		d.engine.SetMonoMode(v != 0)
	case 65:
		d.controllers.SetPitchBendRange(v)
	case 66:
		d.controllers.SetPitchBendStep(v)
	case 67:
		d.controllers.SetPortamentoMode(v)
	case 68:
		d.controllers.SetPortamentoGlissando(v)
	case 69:
		d.controllers.SetPortamentoTime(v)
	case 70:
		d.controllers.SetRange(ModWheel, v)
	case 71:
		d.controllers.SetTarget(ModWheel, v)
	case 72:
		d.controllers.SetRange(Foot, v)
	case 73:
		d.controllers.SetTarget(Foot, v)
	case 74:
		d.controllers.SetRange(Breath, v)
	case 75:
		d.controllers.SetTarget(Breath, v)
	case 76:
		d.controllers.SetRange(Aftertouch, v)
	case 77:
		d.controllers.SetTarget(Aftertouch, v)
	}
}

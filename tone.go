package main

import (
	"math"
	"sync/atomic"
)

// toneParams is one published engine state. A published value is never
// modified; the command goroutine builds a new one for every change.
type toneParams struct {
	voice      VoiceParams
	gain       uint8
	masterTune uint8 // 64 is concert pitch
	bend       uint16
	bendRange  uint8
	bendStep   uint8
	mono       bool
	sustain    bool

	portaMode  uint8
	portaGliss uint8
	portaTime  uint8

	wheel, breath, foot, aftertouch uint8
	routing                         [numControllers]ControllerSetting

	// Latched by ControllersRefresh.
	pitchMod, ampMod, egBias float64
}

type toneVoice struct {
	active    bool
	key       uint8
	velocity  float64
	pitch     float64 // semitones, glides toward key
	carrier   float64 // phase in cycles
	modulator float64
	env       float64
	releasing bool
	held      bool // released while sustain was down
	age       uint64
}

// toneEngine is a small two-operator phase modulation engine that reads its
// operator settings from the carrier (OP1) and modulator (OP2) blocks of the
// loaded voice. Setters run on the command goroutine and publish an
// immutable snapshot; Render loads that snapshot once per block and drains
// key events from a lock-free ring, so it never waits on a setter.
type toneEngine struct {
	sampleRate float64

	staged  toneParams
	params  atomic.Pointer[toneParams]
	events  eventRing
	dropped atomic.Uint64

	voices      []toneVoice
	lfoPhase    float64
	sustainDown bool
	clock       uint64
	active      atomic.Int32
}

var _ Engine = (*toneEngine)(nil)

func newToneEngine(sampleRate, polyphony int) *toneEngine {
	e := &toneEngine{
		sampleRate: float64(sampleRate),
		voices:     make([]toneVoice, polyphony),
	}
	e.staged = toneParams{
		voice:      defaultVoice,
		gain:       127,
		masterTune: 64,
		bend:       8192,
		bendRange:  2,
	}
	e.publish()
	return e
}

func (e *toneEngine) publish() {
	p := e.staged
	e.params.Store(&p)
}

func (e *toneEngine) send(ev keyEvent) {
	if !e.events.push(ev) {
		e.dropped.Add(1)
	}
}

// ActiveVoices is the number of sounding voices after the last block.
func (e *toneEngine) ActiveVoices() int { return int(e.active.Load()) }

// Dropped counts key events lost to a full ring.
func (e *toneEngine) Dropped() uint64 { return e.dropped.Load() }

func (e *toneEngine) LoadVoiceParameters(p VoiceParams) {
	e.staged.voice = p
	e.publish()
}

func (e *toneEngine) SetVoiceDataElement(address, value uint8) {
	if int(address) >= VoiceParamsSize {
		return
	}
	e.staged.voice[address] = value
	e.publish()
}

func (e *toneEngine) KeyDown(pitch, velocity uint8) {
	e.send(keyEvent{kind: evKeyDown, pitch: pitch, velocity: velocity})
}

func (e *toneEngine) KeyUp(pitch uint8) {
	e.send(keyEvent{kind: evKeyUp, pitch: pitch})
}

func (e *toneEngine) Panic()    { e.send(keyEvent{kind: evPanic}) }
func (e *toneEngine) NotesOff() { e.send(keyEvent{kind: evNotesOff}) }

func (e *toneEngine) SetGain(v uint8) {
	e.staged.gain = v
	e.publish()
}

func (e *toneEngine) SetMasterTune(v uint8) {
	e.staged.masterTune = v
	e.publish()
}

func (e *toneEngine) SetMonoMode(mono bool) {
	e.staged.mono = mono
	e.publish()
}

func (e *toneEngine) SetSustain(on bool) {
	e.staged.sustain = on
	e.publish()
}

func (e *toneEngine) SetPitchBend(lsb, msb uint8) {
	e.staged.bend = uint16(msb)<<7 | uint16(lsb)
	e.publish()
}

func (e *toneEngine) SetPitchBendRange(semitones uint8) {
	e.staged.bendRange = semitones
	e.publish()
}

func (e *toneEngine) SetPitchBendStep(step uint8) {
	e.staged.bendStep = step
	e.publish()
}

func (e *toneEngine) SetPortamento(mode, glissando, time uint8) {
	e.staged.portaMode = mode
	e.staged.portaGliss = glissando
	e.staged.portaTime = time
	e.publish()
}

func (e *toneEngine) SetPortamentoMode(mode uint8) {
	e.staged.portaMode = mode
	e.publish()
}

func (e *toneEngine) SetPortamentoGlissando(glissando uint8) {
	e.staged.portaGliss = glissando
	e.publish()
}

func (e *toneEngine) SetPortamentoTime(time uint8) {
	e.staged.portaTime = time
	e.publish()
}

// Controller values and routing are staged and take effect on the next
// ControllersRefresh.
func (e *toneEngine) SetModWheel(v uint8)   { e.staged.wheel = v }
func (e *toneEngine) SetBreath(v uint8)     { e.staged.breath = v }
func (e *toneEngine) SetFoot(v uint8)       { e.staged.foot = v }
func (e *toneEngine) SetAftertouch(v uint8) { e.staged.aftertouch = v }

func (e *toneEngine) SetControllerRouting(c Controller, rng, target, _ uint8) {
	if c >= numControllers {
		return
	}
	e.staged.routing[c] = ControllerSetting{Range: rng, Target: target}
}

func (e *toneEngine) ControllersRefresh() {
	s := &e.staged
	inputs := [numControllers]uint8{s.wheel, s.breath, s.foot, s.aftertouch}
	var pm, am, eb float64
	for c, r := range s.routing {
		depth := float64(inputs[c]) / 127 * float64(min(r.Range, 99)) / 99
		if r.Target&1 != 0 {
			pm += depth
		}
		if r.Target&2 != 0 {
			am += depth
		}
		if r.Target&4 != 0 {
			eb += depth
		}
	}
	s.pitchMod, s.ampMod, s.egBias = math.Min(pm, 1), math.Min(am, 1), math.Min(eb, 1)
	e.publish()
}

// CheckSystemExclusive classifies a Yamaha DX SysEx frame. It does not
// change engine state.
func (e *toneEngine) CheckSystemExclusive(msg []byte) int16 {
	n := len(msg)
	if n == 0 || msg[n-1] != 0xF7 {
		return SysExNoEnd
	}
	if n < 4 || msg[0] != 0xF0 {
		return SysExUnknownFormat
	}
	if msg[1] != 0x43 {
		return SysExNotYamaha
	}

	switch msg[2] & 0x70 {
	case 0x10: // parameter change: F0 43 1n gg pp vv F7
		if n != 7 {
			return SysExUnknownParam
		}
		switch (msg[3] >> 2) & 0x1F {
		case 0:
			addr := int16(msg[3]&0x03)<<7 | int16(msg[4])
			if addr > VoiceParamsSize {
				return SysExUnknownParam
			}
			return SysExParameterDelta + addr
		case 2:
			if p := int16(msg[4]); p >= SysExFunctionFirst && p <= SysExFunctionLast {
				return p
			}
		}
		return SysExUnknownParam
	case 0x00: // bulk dump
		switch msg[3] {
		case 0x00:
			if n != VoiceRecordSize+2 {
				return SysExVoiceLength
			}
			if sysexChecksum(msg[voiceHeaderSize:VoiceRecordSize]) != msg[VoiceRecordSize] {
				return SysExVoiceChecksum
			}
			return SysExVoiceDump
		case 0x09:
			if n != bankDumpSize {
				return SysExBankLength
			}
			if sysexChecksum(msg[6:6+bankDataSize]) != msg[6+bankDataSize] {
				return SysExBankChecksum
			}
			return SysExBankDump
		}
	}
	return SysExUnknownFormat
}

// Render fills buf with mono samples.
func (e *toneEngine) Render(buf []int16) {
	p := e.params.Load()
	for {
		ev, ok := e.events.pop()
		if !ok {
			break
		}
		e.apply(p, ev)
	}
	if e.sustainDown && !p.sustain {
		for i := range e.voices {
			if e.voices[i].held {
				e.voices[i].held = false
				e.voices[i].releasing = true
			}
		}
	}
	e.sustainDown = p.sustain

	k := newToneKernel(p, e.sampleRate)
	for i := range buf {
		lfo := math.Sin(2 * math.Pi * e.lfoPhase)
		e.lfoPhase += k.lfoStep
		e.lfoPhase -= math.Floor(e.lfoPhase)

		var mix float64
		for v := range e.voices {
			mix += e.voices[v].next(&k, lfo)
		}
		buf[i] = toSample(mix * k.gain)
	}

	var n int32
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	e.active.Store(n)
}

func (e *toneEngine) apply(p *toneParams, ev keyEvent) {
	switch ev.kind {
	case evKeyDown:
		if p.mono {
			v := &e.voices[0]
			if v.active && !v.releasing && !v.held {
				// legato: keep the envelope, move the pitch
				v.key = ev.pitch
				v.velocity = float64(ev.velocity) / 127
				return
			}
			from := float64(ev.pitch)
			if v.active && p.portaTime > 0 {
				from = v.pitch
			}
			e.start(v, ev, from)
			return
		}
		e.start(e.allocate(), ev, float64(ev.pitch))
	case evKeyUp:
		for i := range e.voices {
			v := &e.voices[i]
			if !v.active || v.key != ev.pitch || v.releasing || v.held {
				continue
			}
			if p.sustain {
				v.held = true
			} else {
				v.releasing = true
			}
		}
	case evNotesOff:
		for i := range e.voices {
			if e.voices[i].active {
				e.voices[i].held = false
				e.voices[i].releasing = true
			}
		}
	case evPanic:
		for i := range e.voices {
			e.voices[i] = toneVoice{}
		}
	}
}

// allocate picks an idle voice, or steals the oldest.
func (e *toneEngine) allocate() *toneVoice {
	oldest := 0
	for i := range e.voices {
		if !e.voices[i].active {
			return &e.voices[i]
		}
		if e.voices[i].age < e.voices[oldest].age {
			oldest = i
		}
	}
	return &e.voices[oldest]
}

func (e *toneEngine) start(v *toneVoice, ev keyEvent, from float64) {
	e.clock++
	*v = toneVoice{
		active:   true,
		key:      ev.pitch,
		velocity: float64(ev.velocity) / 127,
		pitch:    from,
		age:      e.clock,
	}
}

// toneKernel holds the per-block constants derived from one snapshot.
type toneKernel struct {
	sampleRate   float64
	gain         float64
	carRatio     float64
	modRatio     float64
	carrierLevel float64
	modIndex     float64
	attack       float64
	release      float64
	bend         float64
	tune         float64
	glide        float64
	gliss        bool
	lfoStep      float64
	pitchMod     float64
	ampMod       float64
	egBias       float64
}

func newToneKernel(p *toneParams, sampleRate float64) toneKernel {
	car := p.voice[operatorOffset(1) : operatorOffset(1)+operatorSize]
	mod := p.voice[operatorOffset(2) : operatorOffset(2)+operatorSize]

	bend := float64(int(p.bend)-8192) / 8192 * float64(p.bendRange)
	if p.bendStep > 0 {
		step := float64(p.bendStep)
		bend = math.Round(bend/step) * step
	}
	k := toneKernel{
		sampleRate:   sampleRate,
		gain:         float64(p.gain) / 127 * 0.25,
		carRatio:     opRatio(car),
		modRatio:     opRatio(mod),
		carrierLevel: opLevel(car[opOutputLevel]),
		modIndex:     4 * opLevel(mod[opOutputLevel]),
		attack:       1 / (envSeconds(car[opEGRate]) * sampleRate),
		release:      1 / (envSeconds(car[opEGRate+3]) * sampleRate),
		bend:         bend,
		tune:         float64(int(p.masterTune)-64) / 64,
		gliss:        p.portaGliss != 0,
		lfoStep:      (0.06 + float64(min(p.voice[lfoSpeedIdx], 99))/99*49) / sampleRate,
		pitchMod:     p.pitchMod,
		ampMod:       p.ampMod,
		egBias:       p.egBias,
	}
	if p.portaTime > 0 {
		k.glide = 24 / (float64(p.portaTime) / 99 * 2 * sampleRate)
	}
	return k
}

func opRatio(op []byte) float64 {
	coarse := float64(op[opFreqCoarse])
	if coarse == 0 {
		coarse = 0.5
	}
	return coarse * (1 + float64(op[opFreqFine])/100)
}

// opLevel maps an output level (0-99) to linear gain, 0.75 dB per step.
func opLevel(ol byte) float64 {
	if ol == 0 {
		return 0
	}
	return math.Pow(10, -0.75*float64(99-min(ol, 99))/20)
}

func envSeconds(rate byte) float64 {
	r := float64(99-min(rate, 99)) / 99
	return 0.002 + r*r*4
}

func (v *toneVoice) next(k *toneKernel, lfo float64) float64 {
	if !v.active {
		return 0
	}
	if v.releasing {
		v.env -= k.release
		if v.env <= 0 {
			*v = toneVoice{}
			return 0
		}
	} else if v.env < 1 {
		v.env = math.Min(v.env+k.attack, 1)
	}

	if target := float64(v.key); v.pitch != target {
		switch {
		case k.glide <= 0:
			v.pitch = target
		case v.pitch < target:
			v.pitch = math.Min(v.pitch+k.glide, target)
		default:
			v.pitch = math.Max(v.pitch-k.glide, target)
		}
	}
	pitch := v.pitch
	if k.gliss {
		pitch = math.Round(pitch)
	}

	semis := pitch - 69 + k.bend + k.tune + k.pitchMod*lfo
	inc := 440 * math.Exp2(semis/12) / k.sampleRate

	mod := math.Sin(2*math.Pi*v.modulator) * k.modIndex * (1 - 0.5*k.egBias)
	out := math.Sin(2*math.Pi*v.carrier+mod) * k.carrierLevel

	v.carrier += inc * k.carRatio
	v.carrier -= math.Floor(v.carrier)
	v.modulator += inc * k.modRatio
	v.modulator -= math.Floor(v.modulator)

	amp := v.env * v.velocity * (1 - 0.25*k.ampMod*(1-lfo))
	return out * amp
}

func toSample(x float64) int16 {
	x = math.Max(-1, math.Min(1, x))
	return int16(x * 32767)
}

package main

import (
	"fmt"
	"strings"
)

const operatorSize = 21

// Per-operator offsets in the native voice layout.
const (
	opEGRate       = 0 // 4 rates
	opEGLevel      = 4 // 4 levels
	opBreakPoint   = 8
	opLeftDepth    = 9
	opRightDepth   = 10
	opLeftCurve    = 11
	opRightCurve   = 12
	opRateScaling  = 13
	opAmpModSens   = 14
	opVelocitySens = 15
	opOutputLevel  = 16
	opOscMode      = 17
	opFreqCoarse   = 18
	opFreqFine     = 19
	opDetune       = 20
)

// Global offsets in the native voice layout.
const (
	pitchEGRateIdx  = 126 // 4 rates
	pitchEGLevelIdx = 130 // 4 levels
	algorithmIdx    = 134
	feedbackIdx     = 135
	oscKeySyncIdx   = 136
	lfoSpeedIdx     = 137
	lfoDelayIdx     = 138
	lfoPMDIdx       = 139
	lfoAMDIdx       = 140
	lfoSyncIdx      = 141
	lfoWaveIdx      = 142
	pitchModSensIdx = 143
	transposeIdx    = 144
)

type Envelope struct {
	Rates  [4]byte `json:"rates"`
	Levels [4]byte `json:"levels"`
}

type Operator struct {
	EG           Envelope `json:"eg"`
	BreakPoint   byte     `json:"break_point"`
	LeftDepth    byte     `json:"left_depth"`
	RightDepth   byte     `json:"right_depth"`
	LeftCurve    byte     `json:"left_curve"`
	RightCurve   byte     `json:"right_curve"`
	RateScaling  byte     `json:"rate_scaling"`
	AmpModSens   byte     `json:"amp_mod_sens"`
	VelocitySens byte     `json:"velocity_sens"`
	OutputLevel  byte     `json:"output_level"`
	OscMode      byte     `json:"osc_mode"` // 0 ratio, 1 fixed
	FreqCoarse   byte     `json:"freq_coarse"`
	FreqFine     byte     `json:"freq_fine"`
	Detune       byte     `json:"detune"` // 7 is centre
}

type LFO struct {
	Speed byte `json:"speed"`
	Delay byte `json:"delay"`
	PMD   byte `json:"pmd"`
	AMD   byte `json:"amd"`
	Sync  byte `json:"sync"`
	Wave  byte `json:"wave"`
}

// Voice is the editable form of VoiceParams. Operators are numbered as on
// the front panel: Operators[0] is OP1.
type Voice struct {
	Name         string      `json:"name"`
	Algorithm    byte        `json:"algorithm"` // 0-31
	Feedback     byte        `json:"feedback"`
	OscKeySync   byte        `json:"osc_key_sync"`
	Transpose    byte        `json:"transpose"` // 24 is C3
	PitchModSens byte        `json:"pitch_mod_sens"`
	PitchEG      Envelope    `json:"pitch_eg"`
	LFO          LFO         `json:"lfo"`
	Operators    [6]Operator `json:"operators"`
}

// operatorOffset is where OPn (1-based) starts; OP6 is stored first.
func operatorOffset(n int) int { return (6 - n) * operatorSize }

func ParseVoice(p VoiceParams) *Voice {
	v := &Voice{
		Name:         p.Name(),
		Algorithm:    p[algorithmIdx],
		Feedback:     p[feedbackIdx],
		OscKeySync:   p[oscKeySyncIdx],
		Transpose:    p[transposeIdx],
		PitchModSens: p[pitchModSensIdx],
		LFO: LFO{
			Speed: p[lfoSpeedIdx],
			Delay: p[lfoDelayIdx],
			PMD:   p[lfoPMDIdx],
			AMD:   p[lfoAMDIdx],
			Sync:  p[lfoSyncIdx],
			Wave:  p[lfoWaveIdx],
		},
	}
	copy(v.PitchEG.Rates[:], p[pitchEGRateIdx:])
	copy(v.PitchEG.Levels[:], p[pitchEGLevelIdx:])

	for i := range v.Operators {
		op := p[operatorOffset(i+1):]
		o := &v.Operators[i]
		copy(o.EG.Rates[:], op[opEGRate:])
		copy(o.EG.Levels[:], op[opEGLevel:])
		o.BreakPoint = op[opBreakPoint]
		o.LeftDepth = op[opLeftDepth]
		o.RightDepth = op[opRightDepth]
		o.LeftCurve = op[opLeftCurve]
		o.RightCurve = op[opRightCurve]
		o.RateScaling = op[opRateScaling]
		o.AmpModSens = op[opAmpModSens]
		o.VelocitySens = op[opVelocitySens]
		o.OutputLevel = op[opOutputLevel]
		o.OscMode = op[opOscMode]
		o.FreqCoarse = op[opFreqCoarse]
		o.FreqFine = op[opFreqFine]
		o.Detune = op[opDetune]
	}
	return v
}

// Params packs v into the native layout. Every value must be a MIDI data
// byte; the name is padded or cut to 10 characters.
func (v *Voice) Params() (VoiceParams, error) {
	var p VoiceParams

	for i, o := range v.Operators {
		op := p[operatorOffset(i+1) : operatorOffset(i+1)+operatorSize]
		copy(op[opEGRate:], o.EG.Rates[:])
		copy(op[opEGLevel:], o.EG.Levels[:])
		op[opBreakPoint] = o.BreakPoint
		op[opLeftDepth] = o.LeftDepth
		op[opRightDepth] = o.RightDepth
		op[opLeftCurve] = o.LeftCurve
		op[opRightCurve] = o.RightCurve
		op[opRateScaling] = o.RateScaling
		op[opAmpModSens] = o.AmpModSens
		op[opVelocitySens] = o.VelocitySens
		op[opOutputLevel] = o.OutputLevel
		op[opOscMode] = o.OscMode
		op[opFreqCoarse] = o.FreqCoarse
		op[opFreqFine] = o.FreqFine
		op[opDetune] = o.Detune
	}

	copy(p[pitchEGRateIdx:], v.PitchEG.Rates[:])
	copy(p[pitchEGLevelIdx:], v.PitchEG.Levels[:])
	p[algorithmIdx] = v.Algorithm
	p[feedbackIdx] = v.Feedback
	p[oscKeySyncIdx] = v.OscKeySync
	p[lfoSpeedIdx] = v.LFO.Speed
	p[lfoDelayIdx] = v.LFO.Delay
	p[lfoPMDIdx] = v.LFO.PMD
	p[lfoAMDIdx] = v.LFO.AMD
	p[lfoSyncIdx] = v.LFO.Sync
	p[lfoWaveIdx] = v.LFO.Wave
	p[pitchModSensIdx] = v.PitchModSens
	p[transposeIdx] = v.Transpose

	name := v.Name
	if len(name) > voiceNameSize {
		name = name[:voiceNameSize]
	}
	name += strings.Repeat(" ", voiceNameSize-len(name))
	copy(p[voiceNameOffset:], name)

	for i, b := range p {
		if b > 127 {
			return VoiceParams{}, fmt.Errorf("voice byte %d out of range: %d", i, b)
		}
	}
	return p, nil
}

package main

import "golang.org/x/exp/constraints"

const (
	maxTarget         = 7
	maxPitchBendRange = 12
	maxPortamentoTime = 99
	maxVoiceAddress   = VoiceParamsSize
	maxVoiceValue     = 99
)

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ControllerSetting is the range/target pair of one controller.
type ControllerSetting struct {
	Range  uint8
	Target uint8
}

// ControllerMapper owns the range/target pairs. The engine only accepts both
// fields together, so the mapper keeps the last value it wrote for each and
// fills in the one a message does not carry.
type ControllerMapper struct {
	engine   Engine
	settings [numControllers]ControllerSetting
}

func NewControllerMapper(e Engine) *ControllerMapper {
	return &ControllerMapper{engine: e}
}

// Init puts the engine into its power-on controller state: full volume,
// two semitone bend and every controller at full range on the pitch target.
func (m *ControllerMapper) Init() {
	m.engine.SetGain(127)
	m.engine.SetPitchBendRange(2)
	m.engine.SetPitchBendStep(0)
	for c := Controller(0); c < numControllers; c++ {
		m.settings[c] = ControllerSetting{Range: 99, Target: 1}
		m.engine.SetControllerRouting(c, 99, 1, 0)
	}
	m.engine.ControllersRefresh()
}

// Setting returns the pair last written for c.
func (m *ControllerMapper) Setting(c Controller) ControllerSetting {
	if c >= numControllers {
		return ControllerSetting{}
	}
	return m.settings[c]
}

// SetRange changes the depth of c, keeping its target. The value is passed
// through unclamped.
func (m *ControllerMapper) SetRange(c Controller, v uint8) bool {
	if c >= numControllers || v > 127 {
		return false
	}
	m.settings[c].Range = v
	m.push(c)
	return true
}

// SetTarget changes the destination of c, keeping its range.
func (m *ControllerMapper) SetTarget(c Controller, v uint8) bool {
	if c >= numControllers {
		return false
	}
	m.settings[c].Target = clamp(v, 0, maxTarget)
	m.push(c)
	return true
}

func (m *ControllerMapper) push(c Controller) {
	s := m.settings[c]
	m.engine.SetControllerRouting(c, s.Range, s.Target, 0)
	m.engine.ControllersRefresh()
	logger.Debug("controllers: routing", "controller", c, "range", s.Range, "target", s.Target)
}

func (m *ControllerMapper) SetPitchBendRange(v uint8) {
	m.engine.SetPitchBendRange(clamp(v, 0, maxPitchBendRange))
	m.engine.ControllersRefresh()
}

func (m *ControllerMapper) SetPitchBendStep(v uint8) {
	m.engine.SetPitchBendStep(clamp(v, 0, maxPitchBendRange))
	m.engine.ControllersRefresh()
}

func (m *ControllerMapper) SetPortamentoMode(v uint8) {
	m.engine.SetPortamentoMode(clamp(v, 0, 1))
	m.engine.ControllersRefresh()
}

func (m *ControllerMapper) SetPortamentoGlissando(v uint8) {
	m.engine.SetPortamentoGlissando(clamp(v, 0, 1))
	m.engine.ControllersRefresh()
}

func (m *ControllerMapper) SetPortamentoTime(v uint8) {
	m.engine.SetPortamentoTime(clamp(v, 0, maxPortamentoTime))
	m.engine.ControllersRefresh()
}

// SetVoiceDataElement edits one parameter of the loaded voice.
func (m *ControllerMapper) SetVoiceDataElement(address, value uint8) {
	m.engine.SetVoiceDataElement(clamp(address, 0, maxVoiceAddress), clamp(value, 0, maxVoiceValue))
}

package eas

import "fmt"

// Module identifies an effect module inside the engine.
type Module int

const (
	ModuleReverb Module = iota + 1
	ModuleChorus
)

func (m Module) String() string {
	switch m {
	case ModuleReverb:
		return "reverb"
	case ModuleChorus:
		return "chorus"
	default:
		return fmt.Sprintf("module(%d)", int(m))
	}
}

// Param identifies a parameter within a Module.
type Param int

// Reverb parameters
const (
	ReverbBypass Param = iota
	ReverbPreset
	ReverbWet
	ReverbDry
)

// Chorus parameters
const (
	ChorusBypass Param = iota
	ChorusPreset
	ChorusRate
	ChorusDepth
	ChorusLevel
)

// Reverb presets, passed as the value of ReverbPreset.
const (
	ReverbLargeHall int32 = iota
	ReverbHall
	ReverbChamber
	ReverbRoom
)

// Chorus presets, passed as the value of ChorusPreset.
const (
	ChorusPreset1 int32 = iota
	ChorusPreset2
	ChorusPreset3
	ChorusPreset4
)

// MaxEffectLevel is the upper bound of wet, dry and level parameters.
const MaxEffectLevel = 32767

var paramNames = map[Module][]string{
	ModuleReverb: {"bypass", "preset", "wet", "dry"},
	ModuleChorus: {"bypass", "preset", "rate", "depth", "level"},
}

// ParamName returns a readable name for a parameter of the given module.
func ParamName(m Module, p Param) string {
	names := paramNames[m]
	if p >= 0 && int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("param(%d)", int(p))
}

// ReverbPresetNames lists reverb presets in preset order.
var ReverbPresetNames = []string{"large hall", "hall", "chamber", "room"}

// ChorusPresetNames lists chorus presets in preset order.
var ChorusPresetNames = []string{"preset 1", "preset 2", "preset 3", "preset 4"}

// ValidReverbPreset reports whether p names an engine reverb preset.
func ValidReverbPreset(p int32) bool {
	return p >= ReverbLargeHall && p <= ReverbRoom
}

// ValidChorusPreset reports whether p names an engine chorus preset.
func ValidChorusPreset(p int32) bool {
	return p >= ChorusPreset1 && p <= ChorusPreset4
}

package renderer

import (
	"fmt"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// Setting bounds
const (
	MaxGain      = 100
	MaxPreset    = 4
	MaxVerbosity = 5
)

// Verbosity levels, shared by the engine debug output and the logger.
const (
	VerbosityOff = iota
	VerbosityFatal
	VerbosityError
	VerbosityWarning
	VerbosityInfo
	VerbosityDetail
)

// EffectSettings holds the user-facing render parameters.
type EffectSettings struct {
	PlaybackGain int    // 0..100
	ReverbPreset int    // 0 = off, 1..4 = large hall, hall, chamber, room
	ReverbWet    int    // 0..32767
	ReverbDry    int    // 0..32767
	ChorusPreset int    // 0 = off, 1..4
	ChorusLevel  int    // 0..32767
	DLSPath      string // optional instrument collection
	Verbosity    int    // 0..5
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() EffectSettings {
	return EffectSettings{
		PlaybackGain: 90,
		ReverbPreset: 0,
		ReverbWet:    eas.MaxEffectLevel,
		ReverbDry:    0,
		ChorusPreset: 0,
		ChorusLevel:  eas.MaxEffectLevel,
		Verbosity:    VerbosityWarning,
	}
}

// Validate checks every numeric field against its range.
func (s EffectSettings) Validate() error {
	checks := []struct {
		name  string
		value int
		max   int
	}{
		{"reverb preset", s.ReverbPreset, MaxPreset},
		{"reverb wet", s.ReverbWet, eas.MaxEffectLevel},
		{"reverb dry", s.ReverbDry, eas.MaxEffectLevel},
		{"chorus preset", s.ChorusPreset, MaxPreset},
		{"chorus level", s.ChorusLevel, eas.MaxEffectLevel},
		{"playback gain", s.PlaybackGain, MaxGain},
		{"verbosity level", s.Verbosity, MaxVerbosity},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return fmt.Errorf("invalid %s: %d (must be 0..%d)", c.name, c.value, c.max)
		}
	}
	return nil
}

// ReverbName describes the configured reverb preset.
func (s EffectSettings) ReverbName() string {
	return presetName(s.ReverbPreset, eas.ReverbPresetNames)
}

// ChorusName describes the configured chorus preset.
func (s EffectSettings) ChorusName() string {
	return presetName(s.ChorusPreset, eas.ChorusPresetNames)
}

func presetName(preset int, names []string) string {
	if preset < 1 || preset > len(names) {
		return "off"
	}
	return names[preset-1]
}

package renderer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.NoError(t, s.Validate())
	assert.Equal(t, 90, s.PlaybackGain)
	assert.Equal(t, 32767, s.ReverbWet)
	assert.Equal(t, 32767, s.ChorusLevel)
	assert.Equal(t, VerbosityWarning, s.Verbosity)
	assert.Equal(t, "off", s.ReverbName())
	assert.Equal(t, "off", s.ChorusName())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*EffectSettings)
		want   string
	}{
		{"reverb preset", func(s *EffectSettings) { s.ReverbPreset = 5 }, "invalid reverb preset: 5 (must be 0..4)"},
		{"reverb wet", func(s *EffectSettings) { s.ReverbWet = 32768 }, "invalid reverb wet: 32768 (must be 0..32767)"},
		{"reverb dry", func(s *EffectSettings) { s.ReverbDry = -1 }, "invalid reverb dry: -1 (must be 0..32767)"},
		{"chorus preset", func(s *EffectSettings) { s.ChorusPreset = -1 }, "invalid chorus preset: -1 (must be 0..4)"},
		{"chorus level", func(s *EffectSettings) { s.ChorusLevel = 40000 }, "invalid chorus level: 40000 (must be 0..32767)"},
		{"gain", func(s *EffectSettings) { s.PlaybackGain = 101 }, "invalid playback gain: 101 (must be 0..100)"},
		{"verbosity", func(s *EffectSettings) { s.Verbosity = 6 }, "invalid verbosity level: 6 (must be 0..5)"},
		{"first failure wins", func(s *EffectSettings) {
			s.PlaybackGain = 200
			s.ReverbPreset = 9
		}, "invalid reverb preset: 9 (must be 0..4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			assert.EqualError(t, s.Validate(), tt.want)
		})
	}
}

func TestValidateBounds(t *testing.T) {
	s := EffectSettings{
		PlaybackGain: 100,
		ReverbPreset: 4,
		ReverbWet:    32767,
		ReverbDry:    32767,
		ChorusPreset: 4,
		ChorusLevel:  32767,
		Verbosity:    5,
	}
	assert.NoError(t, s.Validate())
	assert.NoError(t, EffectSettings{}.Validate())
}

func TestPresetNames(t *testing.T) {
	for _, tt := range []struct {
		preset int
		reverb string
		chorus string
	}{
		{0, "off", "off"},
		{1, "large hall", "preset 1"},
		{4, "room", "preset 4"},
	} {
		s := EffectSettings{ReverbPreset: tt.preset, ChorusPreset: tt.preset}
		assert.Equal(t, tt.reverb, s.ReverbName(), fmt.Sprint(tt.preset))
		assert.Equal(t, tt.chorus, s.ChorusName(), fmt.Sprint(tt.preset))
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "failed to set reverb wet: boom", paramError("reverb", "wet", errBoom).Error())
	assert.Equal(t, "failed to open a.mid: boom", newError(ErrFileOpenFailed, "a.mid", errBoom).Error())
	assert.Equal(t, "MIDI file a.mid has a play length of 0", newError(ErrEmptyPlayLength, "a.mid", nil).Error())
	assert.Equal(t, ErrorCode(""), CodeOf(errBoom))
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", newError(ErrRenderFailed, "", nil)), ErrRenderFailed))
}

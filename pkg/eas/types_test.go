package eas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigVersion(t *testing.T) {
	c := &Config{LibVersion: 0x03060F02}
	assert.Equal(t, "3.6.15.2", c.Version())
}

func TestConfigBufferSizes(t *testing.T) {
	c := &Config{NumChannels: 2, MixBufferSize: 128}
	assert.Equal(t, 256, c.BufferSamples())
	assert.Equal(t, 512, c.BufferBytes())
}

func TestStateDone(t *testing.T) {
	tests := []struct {
		state State
		done  bool
	}{
		{StateReady, false},
		{StatePlay, false},
		{StateStopping, false},
		{StatePaused, false},
		{StateStopped, true},
		{StateError, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.done, tt.state.Done())
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestParamName(t *testing.T) {
	assert.Equal(t, "wet", ParamName(ModuleReverb, ReverbWet))
	assert.Equal(t, "level", ParamName(ModuleChorus, ChorusLevel))
	assert.Equal(t, "bypass", ParamName(ModuleChorus, ChorusBypass))
	assert.Equal(t, "param(9)", ParamName(ModuleReverb, Param(9)))
	assert.Equal(t, "module(7)", Module(7).String())
}

func TestPresetRanges(t *testing.T) {
	for p := int32(-1); p <= 4; p++ {
		assert.Equal(t, p >= 0 && p <= 3, ValidReverbPreset(p), "reverb %d", p)
		assert.Equal(t, p >= 0 && p <= 3, ValidChorusPreset(p), "chorus %d", p)
	}
	assert.Len(t, ReverbPresetNames, 4)
	assert.Len(t, ChorusPresetNames, 4)
}

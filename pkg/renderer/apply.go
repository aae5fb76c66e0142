package renderer

import "github.com/james-see/sonivoxrender/pkg/eas"

// effect describes how one effect module is configured from the settings.
type effect struct {
	module eas.Module
	preset int32 // engine preset index, user preset minus one
	valid  func(int32) bool
	params []effectParam // written after the preset when enabled
	bypass eas.Param
	pparam eas.Param
}

type effectParam struct {
	param eas.Param
	value int32
}

func reverbEffect(s EffectSettings) effect {
	return effect{
		module: eas.ModuleReverb,
		preset: int32(s.ReverbPreset - 1),
		valid:  eas.ValidReverbPreset,
		pparam: eas.ReverbPreset,
		bypass: eas.ReverbBypass,
		params: []effectParam{
			{eas.ReverbWet, int32(s.ReverbWet)},
			{eas.ReverbDry, int32(s.ReverbDry)},
		},
	}
}

func chorusEffect(s EffectSettings) effect {
	return effect{
		module: eas.ModuleChorus,
		preset: int32(s.ChorusPreset - 1),
		valid:  eas.ValidChorusPreset,
		pparam: eas.ChorusPreset,
		bypass: eas.ChorusBypass,
		params: []effectParam{
			{eas.ChorusLevel, int32(s.ChorusLevel)},
		},
	}
}

// Apply writes gain, reverb and chorus settings to the engine. Any failure
// shuts the engine down; a partially configured engine is never used.
func (e *Engine) Apply(s EffectSettings) error {
	if !e.Active() {
		return ErrShutDown
	}
	if err := applySettings(e.synth, s); err != nil {
		e.Shutdown()
		return err
	}
	e.log.Debug("effects configured",
		"gain", s.PlaybackGain,
		"reverb", s.ReverbName(),
		"chorus", s.ChorusName(),
	)
	return nil
}

func applySettings(synth eas.Synth, s EffectSettings) error {
	if err := synth.SetVolume(s.PlaybackGain); err != nil {
		return paramError("master", "gain", err)
	}
	if err := applyEffect(synth, reverbEffect(s)); err != nil {
		return err
	}
	return applyEffect(synth, chorusEffect(s))
}

// applyEffect sets preset and parameters when the preset is in range, then
// always writes the bypass flag last.
func applyEffect(synth eas.Synth, fx effect) error {
	bypass := true
	if fx.valid(fx.preset) {
		bypass = false
		if err := setParam(synth, fx.module, fx.pparam, fx.preset); err != nil {
			return err
		}
		for _, p := range fx.params {
			if err := setParam(synth, fx.module, p.param, p.value); err != nil {
				return err
			}
		}
	}
	var flag int32
	if bypass {
		flag = 1
	}
	return setParam(synth, fx.module, fx.bypass, flag)
}

func setParam(synth eas.Synth, module eas.Module, param eas.Param, value int32) error {
	if err := synth.SetParameter(module, param, value); err != nil {
		return paramError(module.String(), eas.ParamName(module, param), err)
	}
	return nil
}

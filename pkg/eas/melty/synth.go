package melty

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

var (
	ErrShutDown    = errors.New("melty: synthesizer is shut down")
	ErrNoSoundFont = errors.New("melty: no SoundFont loaded")
	ErrBusy        = errors.New("melty: a stream is already open")
	ErrNotMIDI     = errors.New("melty: not a standard MIDI file")
	ErrBadStream   = errors.New("melty: unknown stream")
)

type effects struct {
	reverbBypass bool
	reverbPreset int32
	reverbWet    int32
	reverbDry    int32

	chorusBypass bool
	chorusPreset int32
	chorusRate   int32
	chorusDepth  int32
	chorusLevel  int32
}

// enabled reports whether meltysynth's reverb and chorus processing is needed.
func (fx effects) enabled() bool {
	return !fx.reverbBypass || !fx.chorusBypass
}

// sendLevels maps the wet and level settings to MIDI reverb (CC 91) and
// chorus (CC 93) send values. A bypassed module sends nothing.
func (fx effects) sendLevels() (reverb, chorus int32) {
	if !fx.reverbBypass {
		reverb = fx.reverbWet * 127 / eas.MaxEffectLevel
	}
	if !fx.chorusBypass {
		chorus = fx.chorusLevel * 127 / eas.MaxEffectLevel
	}
	return reverb, chorus
}

const (
	midiChannels  = 16
	controlChange = 0xB0
	ccReverbSend  = 91
	ccChorusSend  = 93
)

type stream struct {
	name  string
	song  *SongInfo
	midi  *meltysynth.MidiFile
	seq   *meltysynth.MidiFileSequencer
	total int64 // frames to play
	done  int64 // frames rendered
}

// Synth is one engine instance.
type Synth struct {
	log    *slog.Logger
	bank   *meltysynth.SoundFont
	gain   float32
	fx     effects
	cur    *stream
	closed bool

	left  []float32
	right []float32
}

func newSynth(log *slog.Logger) *Synth {
	return &Synth{
		log:  log,
		gain: 0.9,
		fx: effects{
			reverbBypass: true,
			reverbWet:    eas.MaxEffectLevel,
			chorusBypass: true,
			chorusLevel:  eas.MaxEffectLevel,
		},
	}
}

// Shutdown implements eas.Synth.
func (s *Synth) Shutdown() error {
	if s.closed {
		return ErrShutDown
	}
	s.closed = true
	s.cur = nil
	s.bank = nil
	s.log.Debug("synthesizer shut down")
	return nil
}

// LoadDLSCollection implements eas.Synth. The collection must be a
// SoundFont 2 bank.
func (s *Synth) LoadDLSCollection(f *eas.File) error {
	if s.closed {
		return ErrShutDown
	}
	sr, err := f.Section()
	if err != nil {
		return err
	}
	bank, err := meltysynth.NewSoundFont(sr)
	if err != nil {
		return fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	s.bank = bank
	s.log.Info("SoundFont loaded", "file", f.Name)
	return nil
}

// SetVolume implements eas.Synth.
func (s *Synth) SetVolume(volume int) error {
	if s.closed {
		return ErrShutDown
	}
	if volume < 0 || volume > 100 {
		return fmt.Errorf("melty: volume %d out of range", volume)
	}
	s.gain = float32(volume) / 100
	return nil
}

// SetParameter implements eas.Synth.
func (s *Synth) SetParameter(module eas.Module, param eas.Param, value int32) error {
	if s.closed {
		return ErrShutDown
	}
	bad := func() error {
		return fmt.Errorf("melty: invalid %s %s value %d", module, eas.ParamName(module, param), value)
	}
	level := func(dst *int32) error {
		if value < 0 || value > eas.MaxEffectLevel {
			return bad()
		}
		*dst = value
		return nil
	}
	flag := func(dst *bool) error {
		if value != 0 && value != 1 {
			return bad()
		}
		*dst = value == 1
		return nil
	}

	switch module {
	case eas.ModuleReverb:
		switch param {
		case eas.ReverbBypass:
			return flag(&s.fx.reverbBypass)
		case eas.ReverbPreset:
			if !eas.ValidReverbPreset(value) {
				return bad()
			}
			s.fx.reverbPreset = value
			return nil
		case eas.ReverbWet:
			return level(&s.fx.reverbWet)
		case eas.ReverbDry:
			return level(&s.fx.reverbDry)
		}
	case eas.ModuleChorus:
		switch param {
		case eas.ChorusBypass:
			return flag(&s.fx.chorusBypass)
		case eas.ChorusPreset:
			if !eas.ValidChorusPreset(value) {
				return bad()
			}
			s.fx.chorusPreset = value
			return nil
		case eas.ChorusRate:
			s.fx.chorusRate = value
			return nil
		case eas.ChorusDepth:
			s.fx.chorusDepth = value
			return nil
		case eas.ChorusLevel:
			return level(&s.fx.chorusLevel)
		}
	}
	return fmt.Errorf("melty: unknown parameter %s.%s", module, eas.ParamName(module, param))
}

// OpenFile implements eas.Synth.
func (s *Synth) OpenFile(f *eas.File) (eas.Stream, error) {
	if s.closed {
		return nil, ErrShutDown
	}
	if s.cur != nil {
		return nil, ErrBusy
	}

	sr, err := f.Section()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(sr)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || string(data[:4]) != "MThd" {
		return nil, ErrNotMIDI
	}

	song, err := ParseSong(data)
	if err != nil {
		return nil, err
	}
	mf, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load MIDI: %w", err)
	}

	s.cur = &stream{
		name:  f.Name,
		song:  song,
		midi:  mf,
		total: (int64(song.LengthMS)*sampleRate + 999) / 1000,
	}
	s.log.Debug("stream opened", "file", f.Name, "tracks", song.Tracks, "ticks", song.LastTick)
	return s.cur, nil
}

func (s *Synth) lookup(st eas.Stream) (*stream, error) {
	if s.closed {
		return nil, ErrShutDown
	}
	ms, ok := st.(*stream)
	if !ok || ms == nil || ms != s.cur {
		return nil, ErrBadStream
	}
	return ms, nil
}

// Prepare implements eas.Synth.
func (s *Synth) Prepare(st eas.Stream) error {
	ms, err := s.lookup(st)
	if err != nil {
		return err
	}
	if s.bank == nil {
		return ErrNoSoundFont
	}

	settings := meltysynth.NewSynthesizerSettings(sampleRate)
	settings.EnableReverbAndChorus = s.fx.enabled()
	synth, err := meltysynth.NewSynthesizer(s.bank, settings)
	if err != nil {
		return fmt.Errorf("failed to create synthesizer: %w", err)
	}
	ms.seq = meltysynth.NewMidiFileSequencer(synth)
	ms.seq.Play(ms.midi, false)

	// Play resets the channels; the file's own controllers still win later.
	reverb, chorus := s.fx.sendLevels()
	for ch := int32(0); ch < midiChannels; ch++ {
		synth.ProcessMidiMessage(ch, controlChange, ccReverbSend, reverb)
		synth.ProcessMidiMessage(ch, controlChange, ccChorusSend, chorus)
	}
	s.log.Debug("stream prepared", "file", ms.name, "frames", ms.total,
		"effects", settings.EnableReverbAndChorus, "reverb_send", reverb, "chorus_send", chorus)
	return nil
}

// ParseMetaData implements eas.Synth.
func (s *Synth) ParseMetaData(st eas.Stream) (int32, error) {
	ms, err := s.lookup(st)
	if err != nil {
		return 0, err
	}
	return ms.song.LengthMS, nil
}

// State implements eas.Synth.
func (s *Synth) State(st eas.Stream) (eas.State, error) {
	ms, err := s.lookup(st)
	if err != nil {
		return eas.StateError, err
	}
	switch {
	case ms.seq == nil:
		return eas.StateOpen, nil
	case ms.done >= ms.total:
		return eas.StateStopped, nil
	case ms.done == 0:
		return eas.StateReady, nil
	default:
		return eas.StatePlay, nil
	}
}

// Render implements eas.Synth. Without a playing stream it renders silence.
func (s *Synth) Render(buf []int16, frames int) (int, error) {
	if s.closed {
		return 0, ErrShutDown
	}
	if frames < 0 || len(buf) < frames*numChannels {
		return 0, fmt.Errorf("melty: buffer too small for %d frames", frames)
	}
	out := buf[:frames*numChannels]

	ms := s.cur
	if ms == nil || ms.seq == nil {
		clear(out)
		return frames, nil
	}

	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left, right := s.left[:frames], s.right[:frames]
	ms.seq.Render(left, right)
	for i := range frames {
		out[2*i] = toSample(left[i] * s.gain)
		out[2*i+1] = toSample(right[i] * s.gain)
	}
	ms.done += int64(frames)
	return frames, nil
}

// CloseFile implements eas.Synth.
func (s *Synth) CloseFile(st eas.Stream) error {
	ms, err := s.lookup(st)
	if err != nil {
		return err
	}
	s.log.Debug("stream closed", "file", ms.name, "frames", ms.done)
	s.cur = nil
	return nil
}

// toSample converts a float sample to 16-bit PCM with clipping.
func toSample(v float32) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	}
	return int16(v * 32767)
}

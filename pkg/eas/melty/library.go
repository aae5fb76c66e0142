// Package melty is a pure-Go synthesizer library built on a SoundFont
// wavetable engine. It plays standard MIDI files with a SoundFont 2 bank
// loaded as the instrument collection.
package melty

import (
	"io"
	"log/slog"
	"os"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// Fixed mix configuration.
const (
	sampleRate    = 22050
	numChannels   = 2
	mixBufferSize = 128
	maxVoices     = 64
	libVersion    = 0x01000000
)

// Name is the engine name this package registers.
const Name = "melty"

func init() {
	eas.Register(Name, func() eas.Library { return New() })
}

// Library creates Synth instances. Only one instance should be alive at a
// time; the library itself does not enforce it.
type Library struct {
	debug io.Writer
	level slog.LevelVar
}

// New returns a library with its debug output on stderr at warning level.
func New() *Library {
	l := &Library{debug: os.Stderr}
	l.SetDebugLevel(3)
	return l
}

// Config implements eas.Library.
func (l *Library) Config() *eas.Config {
	return &eas.Config{
		LibVersion:    libVersion,
		MaxVoices:     maxVoices,
		NumChannels:   numChannels,
		SampleRate:    sampleRate,
		MixBufferSize: mixBufferSize,
	}
}

// SetDebugFile implements eas.Library. Reports are written unbuffered, so
// flush has no effect.
func (l *Library) SetDebugFile(w io.Writer, flush bool) {
	if w == nil {
		w = io.Discard
	}
	l.debug = w
}

// SetDebugLevel implements eas.Library. Levels follow the engine scale:
// 0 off, 1 fatal, 2 error, 3 warning, 4 info, 5 detail.
func (l *Library) SetDebugLevel(level int) {
	switch {
	case level <= 0:
		l.level.Set(slog.LevelError + 4)
	case level <= 2:
		l.level.Set(slog.LevelError)
	case level == 3:
		l.level.Set(slog.LevelWarn)
	case level == 4:
		l.level.Set(slog.LevelInfo)
	default:
		l.level.Set(slog.LevelDebug)
	}
}

// Init implements eas.Library.
func (l *Library) Init() (eas.Synth, error) {
	log := slog.New(slog.NewTextHandler(l.debug, &slog.HandlerOptions{Level: &l.level}))
	log = log.With("lib", "melty")
	log.Debug("library initialized", "version", l.Config().Version())
	return newSynth(log), nil
}

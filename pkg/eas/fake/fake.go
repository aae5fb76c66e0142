// Package fake provides a scriptable in-memory engine that records every call
// made against it.
package fake

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// Operation names used in the call log and for failure injection.
const (
	OpInit      = "init"
	OpShutdown  = "shutdown"
	OpLoadDLS   = "load-dls"
	OpSetVolume = "set-volume"
	OpSetParam  = "set"
	OpOpen      = "open"
	OpPrepare   = "prepare"
	OpMetadata  = "metadata"
	OpState     = "state"
	OpRender    = "render"
	OpClose     = "close"
)

// DefaultConfig is reported by a new Library.
var DefaultConfig = eas.Config{
	LibVersion:    0x03060000,
	MaxVoices:     64,
	NumChannels:   2,
	SampleRate:    22050,
	MixBufferSize: 128,
}

type injection struct {
	err   error
	after int
}

// Library is a fake engine library. Its fields may be changed freely before
// Init is called.
type Library struct {
	Cfg      *eas.Config
	InitErr  error
	NilSynth bool
	Synth    *Synth

	DebugWriter io.Writer
	DebugFlush  bool
	DebugLevel  int
	Inits       int
}

// NewLibrary returns a library whose Init hands out a fresh Synth.
func NewLibrary() *Library {
	cfg := DefaultConfig
	return &Library{Cfg: &cfg, Synth: NewSynth(&cfg)}
}

// Config implements eas.Library.
func (l *Library) Config() *eas.Config {
	if l.Cfg == nil {
		return nil
	}
	c := *l.Cfg
	return &c
}

// SetDebugFile implements eas.Library.
func (l *Library) SetDebugFile(w io.Writer, flush bool) {
	l.DebugWriter = w
	l.DebugFlush = flush
}

// SetDebugLevel implements eas.Library.
func (l *Library) SetDebugLevel(level int) {
	l.DebugLevel = level
}

// Init implements eas.Library.
func (l *Library) Init() (eas.Synth, error) {
	l.Inits++
	if l.InitErr != nil {
		return nil, l.InitErr
	}
	if l.NilSynth {
		return nil, nil
	}
	return l.Synth, nil
}

type stream struct {
	name     string
	data     []byte
	rendered int
	prepared bool
}

// Synth is a fake engine instance.
type Synth struct {
	// Calls is the ordered call log, one entry per engine call.
	Calls []string
	// Collection holds the bytes of the last loaded instrument collection.
	Collection []byte

	// PlayLength is reported by ParseMetaData, in milliseconds.
	PlayLength int32
	// Buffers is the number of mix buffers a stream plays before stopping.
	Buffers int
	// EndState is reported once a stream has played all its buffers.
	EndState eas.State
	// ShortBy makes every Render call generate fewer frames than requested.
	ShortBy int
	// NilStream makes OpenFile succeed without returning a stream.
	NilStream bool

	// Cfg supplies the channel count Render fills.
	Cfg *eas.Config

	Shutdowns   int
	StreamsOpen int

	inject map[string]injection
	counts map[string]int
	cur    *stream
}

// NewSynth returns a synth that plays four buffers per stream.
func NewSynth(cfg *eas.Config) *Synth {
	return &Synth{
		PlayLength: 1000,
		Buffers:    4,
		EndState:   eas.StateStopped,
		Cfg:        cfg,
		inject:     map[string]injection{},
		counts:     map[string]int{},
	}
}

// Fail makes the op fail with err once it has succeeded after times.
// Parameter ops are named "set <module>.<param>", e.g. "set reverb.wet".
func (s *Synth) Fail(op string, err error, after int) {
	s.inject[op] = injection{err: err, after: after}
}

func (s *Synth) call(op, entry string) error {
	s.Calls = append(s.Calls, entry)
	n := s.counts[op]
	s.counts[op] = n + 1
	if inj, ok := s.inject[op]; ok && n >= inj.after {
		return inj.err
	}
	return nil
}

// CallsOf returns the logged calls whose operation matches op.
func (s *Synth) CallsOf(op string) []string {
	var out []string
	for _, c := range s.Calls {
		if len(c) >= len(op) && c[:len(op)] == op && (len(c) == len(op) || c[len(op)] == ' ') {
			out = append(out, c)
		}
	}
	return out
}

// Shutdown implements eas.Synth.
func (s *Synth) Shutdown() error {
	s.Shutdowns++
	return s.call(OpShutdown, OpShutdown)
}

// LoadDLSCollection implements eas.Synth.
func (s *Synth) LoadDLSCollection(f *eas.File) error {
	if err := s.call(OpLoadDLS, OpLoadDLS+" "+filepath.Base(f.Name)); err != nil {
		return err
	}
	sr, err := f.Section()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(sr)
	if err != nil {
		return err
	}
	s.Collection = data
	return nil
}

// SetVolume implements eas.Synth.
func (s *Synth) SetVolume(volume int) error {
	return s.call(OpSetVolume, fmt.Sprintf("%s %d", OpSetVolume, volume))
}

// SetParameter implements eas.Synth.
func (s *Synth) SetParameter(module eas.Module, param eas.Param, value int32) error {
	op := fmt.Sprintf("%s %s.%s", OpSetParam, module, eas.ParamName(module, param))
	return s.call(op, fmt.Sprintf("%s %d", op, value))
}

// OpenFile implements eas.Synth.
func (s *Synth) OpenFile(f *eas.File) (eas.Stream, error) {
	if err := s.call(OpOpen, OpOpen+" "+filepath.Base(f.Name)); err != nil {
		return nil, err
	}
	if s.cur != nil {
		return nil, errors.New("fake: stream already open")
	}
	sr, err := f.Section()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(sr)
	if err != nil {
		return nil, err
	}
	if s.NilStream {
		return nil, nil
	}
	s.cur = &stream{name: f.Name, data: data}
	s.StreamsOpen++
	return s.cur, nil
}

func (s *Synth) lookup(st eas.Stream) (*stream, error) {
	fs, ok := st.(*stream)
	if !ok || fs == nil || fs != s.cur {
		return nil, errors.New("fake: unknown stream")
	}
	return fs, nil
}

// Prepare implements eas.Synth.
func (s *Synth) Prepare(st eas.Stream) error {
	if err := s.call(OpPrepare, OpPrepare); err != nil {
		return err
	}
	fs, err := s.lookup(st)
	if err != nil {
		return err
	}
	fs.prepared = true
	return nil
}

// ParseMetaData implements eas.Synth.
func (s *Synth) ParseMetaData(st eas.Stream) (int32, error) {
	if err := s.call(OpMetadata, OpMetadata); err != nil {
		return 0, err
	}
	if _, err := s.lookup(st); err != nil {
		return 0, err
	}
	return s.PlayLength, nil
}

// State implements eas.Synth.
func (s *Synth) State(st eas.Stream) (eas.State, error) {
	if err := s.call(OpState, OpState); err != nil {
		return eas.StateError, err
	}
	fs, err := s.lookup(st)
	if err != nil {
		return eas.StateError, err
	}
	switch {
	case fs.rendered >= s.Buffers:
		return s.EndState, nil
	case fs.rendered == 0:
		return eas.StateReady, nil
	default:
		return eas.StatePlay, nil
	}
}

// Render implements eas.Synth. Every sample of the n-th buffer of a stream
// holds the value n+1.
func (s *Synth) Render(buf []int16, frames int) (int, error) {
	if err := s.call(OpRender, fmt.Sprintf("%s %d", OpRender, frames)); err != nil {
		return 0, err
	}
	channels := 2
	if s.Cfg != nil {
		channels = s.Cfg.NumChannels
	}
	count := frames - s.ShortBy
	if count < 0 {
		count = 0
	}
	if len(buf) < count*channels {
		return 0, errors.New("fake: buffer too small")
	}
	var v int16
	if s.cur != nil {
		s.cur.rendered++
		v = int16(s.cur.rendered)
	}
	for i := 0; i < count*channels; i++ {
		buf[i] = v
	}
	return count, nil
}

// CloseFile implements eas.Synth.
func (s *Synth) CloseFile(st eas.Stream) error {
	err := s.call(OpClose, OpClose)
	if _, lerr := s.lookup(st); lerr != nil {
		return lerr
	}
	s.cur = nil
	s.StreamsOpen--
	return err
}

// Open reports whether a stream is currently open.
func (s *Synth) Open() bool {
	return s.cur != nil
}

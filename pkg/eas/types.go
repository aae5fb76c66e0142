// Package eas describes the capability surface of a MIDI synthesis engine
// and the file adapter the engine reads MIDI and instrument data through.
package eas

import (
	"fmt"
	"io"
)

// SampleWidth is the size in bytes of one PCM sample produced by an engine.
const SampleWidth = 2

// Library is an engine implementation before initialization.
type Library interface {
	// Config reports the static engine configuration, or nil when it is unavailable.
	Config() *Config
	SetDebugFile(w io.Writer, flush bool)
	SetDebugLevel(level int)
	// Init creates the engine instance. A nil Synth with a nil error is a
	// broken engine and must be treated as a failure by callers.
	Init() (Synth, error)
}

// Synth is a live engine instance. It is not safe for concurrent use and
// supports a single open stream at a time.
type Synth interface {
	Shutdown() error
	LoadDLSCollection(f *File) error
	SetVolume(volume int) error
	SetParameter(module Module, param Param, value int32) error
	OpenFile(f *File) (Stream, error)
	Prepare(s Stream) error
	// ParseMetaData returns the play length of the stream in milliseconds.
	ParseMetaData(s Stream) (int32, error)
	State(s Stream) (State, error)
	// Render fills buf with up to frames interleaved frames and returns the
	// number of frames generated.
	Render(buf []int16, frames int) (int, error)
	CloseFile(s Stream) error
}

// Stream is an opaque playback session returned by Synth.OpenFile.
type Stream interface{}

// Config is the engine configuration snapshot.
type Config struct {
	LibVersion    uint32
	MaxVoices     int
	NumChannels   int
	SampleRate    int
	MixBufferSize int // frames per Render call
}

// Version formats the library version bytes as a dotted quad.
func (c *Config) Version() string {
	v := c.LibVersion
	return fmt.Sprintf("%d.%d.%d.%d", byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// BufferSamples returns the number of int16 samples in one mix buffer.
func (c *Config) BufferSamples() int {
	return c.MixBufferSize * c.NumChannels
}

// BufferBytes returns the byte size of one rendered mix buffer.
func (c *Config) BufferBytes() int {
	return c.BufferSamples() * SampleWidth
}

// State is the playback state of a stream.
type State int

const (
	StateReady State = iota
	StatePlay
	StateStopping
	StatePausing
	StateStopped
	StatePaused
	StateOpen
	StateError
	StateEmpty
)

var stateNames = [...]string{
	StateReady:    "ready",
	StatePlay:     "play",
	StateStopping: "stopping",
	StatePausing:  "pausing",
	StateStopped:  "stopped",
	StatePaused:   "paused",
	StateOpen:     "open",
	StateError:    "error",
	StateEmpty:    "empty",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Done reports whether playback has finished, normally or not.
func (s State) Done() bool {
	return s == StateStopped || s == StateError
}

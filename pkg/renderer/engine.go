// Package renderer drives a synthesis engine to turn MIDI files into raw PCM.
//
// An Engine owns the single engine instance of a process. It moves through
// initialize, optional instrument collection load, effect configuration and
// any number of sequential file renders, and is released exactly once by
// Shutdown. Every step is synchronous; the engine instance is not reentrant
// and only one playback stream is ever open against it.
package renderer

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// OpenFunc opens a file for reading by the engine.
type OpenFunc func(name string) (io.ReadSeekCloser, error)

func openFile(name string) (io.ReadSeekCloser, error) {
	return os.Open(name)
}

// Options tunes an Engine. The zero value is usable.
type Options struct {
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// DebugOutput is where the engine writes its own reports. Defaults to os.Stderr.
	DebugOutput io.Writer

	// Open opens MIDI and DLS files. Defaults to os.Open.
	Open OpenFunc
}

// Engine is the process-wide handle on an initialized synthesis engine.
type Engine struct {
	lib   eas.Library
	synth eas.Synth
	log   *slog.Logger
	open  OpenFunc

	// scratch buffers, reused across files while the mix buffer size holds
	samples []int16
	pcm     []byte
}

// Initialize points the engine debug output at the configured sink, sets its
// debug level and creates the engine instance.
func Initialize(lib eas.Library, verbosity int, opts Options) (*Engine, error) {
	if lib == nil {
		return nil, newError(ErrInitFailed, "", errors.New("no synthesizer library"))
	}

	e := &Engine{lib: lib, log: opts.Logger, open: opts.Open}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.open == nil {
		e.open = openFile
	}

	debug := opts.DebugOutput
	if debug == nil {
		debug = os.Stderr
	}
	lib.SetDebugFile(debug, true)
	lib.SetDebugLevel(verbosity)

	synth, err := lib.Init()
	if err != nil {
		return nil, newError(ErrInitFailed, "", err)
	}
	if synth == nil {
		return nil, newError(ErrInitFailed, "", errors.New("no engine data handle"))
	}
	e.synth = synth

	if cfg := lib.Config(); cfg != nil {
		e.log.Debug("synthesizer library initialized",
			"version", cfg.Version(),
			"sample_rate", cfg.SampleRate,
			"channels", cfg.NumChannels,
			"mix_buffer", cfg.MixBufferSize,
		)
	}
	return e, nil
}

// Active reports whether the engine has not been shut down.
func (e *Engine) Active() bool {
	return e != nil && e.synth != nil
}

// Config returns the engine configuration as currently reported.
func (e *Engine) Config() (*eas.Config, error) {
	cfg := e.lib.Config()
	if cfg == nil || cfg.MixBufferSize <= 0 || cfg.NumChannels <= 0 {
		return nil, newError(ErrConfigUnavailable, "", nil)
	}
	return cfg, nil
}

// LoadCollection loads a DLS instrument collection. The collection file is
// closed before returning. On failure the engine is shut down.
func (e *Engine) LoadCollection(path string) error {
	if !e.Active() {
		return ErrShutDown
	}
	if err := e.loadCollection(path); err != nil {
		e.Shutdown()
		return err
	}
	e.log.Info("instrument collection loaded", "path", path)
	return nil
}

func (e *Engine) loadCollection(path string) error {
	h, err := e.open(path)
	if err != nil {
		return newError(ErrFileOpenFailed, path, err)
	}
	defer h.Close()

	if err := e.synth.LoadDLSCollection(eas.NewFile(path, h)); err != nil {
		return newError(ErrCollectionLoadFailed, path, err)
	}
	return nil
}

// Shutdown releases the engine instance. It is safe to call more than once;
// later calls do nothing. Failures are logged, not returned.
func (e *Engine) Shutdown() {
	if e == nil || e.synth == nil {
		return
	}
	synth := e.synth
	e.synth = nil
	e.samples, e.pcm = nil, nil
	if err := synth.Shutdown(); err != nil {
		e.log.Error("failed to deallocate the resources for synthesizer library", "error", err)
		return
	}
	e.log.Debug("synthesizer library shut down")
}

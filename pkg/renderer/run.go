package renderer

import (
	"io"
	"log/slog"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// Run renders files in order to out using a freshly initialized engine.
// It stops at the first failing file. The engine is shut down exactly once
// on every path.
func Run(lib eas.Library, s EffectSettings, files []string, out io.Writer, opts Options) error {
	if err := s.Validate(); err != nil {
		return err
	}

	e, err := Initialize(lib, s.Verbosity, opts)
	if err != nil {
		return err
	}
	defer e.Shutdown()

	if s.DLSPath != "" {
		if err := e.LoadCollection(s.DLSPath); err != nil {
			return err
		}
	}
	if err := e.Apply(s); err != nil {
		return err
	}

	for _, f := range files {
		if _, err := e.RenderFile(f, out); err != nil {
			return err
		}
	}
	return nil
}

// NewLogger returns a text logger on w that filters by verbosity:
// 0 silences it, 1 and 2 keep errors, 3 warnings, 4 info and 5 everything.
func NewLogger(w io.Writer, verbosity int) *slog.Logger {
	if verbosity <= VerbosityOff {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := slog.LevelDebug
	switch verbosity {
	case VerbosityFatal, VerbosityError:
		level = slog.LevelError
	case VerbosityWarning:
		level = slog.LevelWarn
	case VerbosityInfo:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

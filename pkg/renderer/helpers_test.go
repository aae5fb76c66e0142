package renderer

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/james-see/sonivoxrender/pkg/eas/fake"
)

var errBoom = errors.New("boom")

// opener counts files handed to the engine and released by it.
type opener struct {
	opened int
	closed int
}

type trackedFile struct {
	*os.File
	o *opener
}

func (f *trackedFile) Close() error {
	f.o.closed++
	return f.File.Close()
}

func (o *opener) open(name string) (io.ReadSeekCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	o.opened++
	return &trackedFile{File: f, o: o}, nil
}

// chunkWriter records the size of every write and counts flushes.
type chunkWriter struct {
	data    []byte
	writes  []int
	flushes int
	err     error
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.data = append(w.data, p...)
	w.writes = append(w.writes, len(p))
	return len(p), nil
}

func (w *chunkWriter) Flush() error {
	w.flushes++
	return nil
}

func writeMIDI(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("MThd\x00\x00\x00\x06\x00\x00\x00\x01\x01\xe0"), 0o644))
	return path
}

type harness struct {
	lib    *fake.Library
	synth  *fake.Synth
	opener *opener
	engine *Engine
}

func quietOptions(o *opener) Options {
	return Options{
		Logger:      NewLogger(io.Discard, VerbosityOff),
		DebugOutput: io.Discard,
		Open:        o.open,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	lib := fake.NewLibrary()
	o := &opener{}
	e, err := Initialize(lib, VerbosityWarning, quietOptions(o))
	require.NoError(t, err)
	return &harness{lib: lib, synth: lib.Synth, opener: o, engine: e}
}

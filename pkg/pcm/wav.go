package pcm

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// WAVWriter accepts raw 16-bit PCM bytes and stores them in a WAV file.
type WAVWriter struct {
	f       *os.File
	enc     *wav.Encoder
	pcm     Format
	format  *audio.Format
	data    []float32
	pending []byte
	written int64 // whole samples encoded, in bytes
	closed  bool
}

// CreateWAV creates a 16-bit PCM WAV file at path.
func CreateWAV(path string, f Format) (*WAVWriter, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, errors.New("invalid wav format")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &WAVWriter{
		f:   file,
		enc: wav.NewEncoder(file, f.SampleRate, 16, f.Channels, 1),
		pcm: f,
		format: &audio.Format{
			SampleRate:  f.SampleRate,
			NumChannels: f.Channels,
		},
	}, nil
}

// Write encodes little-endian 16-bit samples.
func (w *WAVWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	n := len(p)
	if len(w.pending) > 0 {
		p = append(w.pending, p...)
		w.pending = nil
	}
	if len(p)%2 != 0 {
		w.pending = append(w.pending, p[len(p)-1])
		p = p[:len(p)-1]
	}
	if len(p) == 0 {
		return n, nil
	}

	samples := len(p) / 2
	if cap(w.data) < samples {
		w.data = make([]float32, samples)
	}
	w.data = w.data[:samples]
	for i, s := range BytesToSamples(p) {
		w.data[i] = float32(s) / 32768
	}

	buf := &audio.Float32Buffer{
		Format:         w.format,
		Data:           w.data,
		SourceBitDepth: 16,
	}
	if err := w.enc.Write(buf); err != nil {
		return 0, err
	}
	w.written += int64(samples * 2)
	return n, nil
}

// Flush is a no-op; the encoder writes through to the file.
func (w *WAVWriter) Flush() error {
	return nil
}

// Format returns the stream format the file was created with.
func (w *WAVWriter) Format() Format {
	return w.pcm
}

// Frames returns the number of complete frames written so far.
func (w *WAVWriter) Frames() int64 {
	return w.written / int64(w.pcm.FrameBytes())
}

// Close finalizes the WAV header and closes the file.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	return errors.Join(encErr, fileErr)
}

package renderer

import (
	"io"
	"time"

	"github.com/james-see/sonivoxrender/pkg/eas"
	"github.com/james-see/sonivoxrender/pkg/pcm"
)

// Result summarizes one rendered file.
type Result struct {
	Frames     int64
	Buffers    int
	Bytes      int64
	PlayLength time.Duration
}

// RenderFile plays one MIDI file through the engine and streams every mix
// buffer to out, flushing after each one. The file and its playback stream
// are released on every return path.
//
// A render that generates fewer frames than requested is an error; audio
// already written to out stays written.
func (e *Engine) RenderFile(path string, out io.Writer) (res Result, err error) {
	if !e.Active() {
		return res, ErrShutDown
	}

	h, err := e.open(path)
	if err != nil {
		return res, newError(ErrFileOpenFailed, path, err)
	}
	defer h.Close()

	stream, err := e.synth.OpenFile(eas.NewFile(path, h))
	if err != nil {
		return res, newError(ErrStreamOpenFailed, path, err)
	}
	if stream == nil {
		return res, newError(ErrInvalidStreamHandle, path, nil)
	}
	defer func() {
		cerr := e.synth.CloseFile(stream)
		if cerr == nil {
			return
		}
		closeErr := newError(ErrStreamCloseFailed, path, cerr)
		if err == nil {
			err = closeErr
			return
		}
		e.log.Error(closeErr.Error())
	}()

	if err := e.synth.Prepare(stream); err != nil {
		return res, newError(ErrPrepareFailed, path, err)
	}

	playLength, err := e.synth.ParseMetaData(stream)
	if err != nil {
		return res, newError(ErrMetadataParseFailed, path, err)
	}
	if playLength == 0 {
		return res, newError(ErrEmptyPlayLength, path, nil)
	}
	res.PlayLength = time.Duration(playLength) * time.Millisecond

	cfg, err := e.Config()
	if err != nil {
		return res, err
	}
	samples, buf := e.buffers(cfg)

	e.log.Info("rendering", "file", path, "length", res.PlayLength)

	for {
		state, err := e.synth.State(stream)
		if err != nil {
			return res, newError(ErrStateQueryFailed, path, err)
		}
		if state.Done() {
			break
		}

		count, err := e.synth.Render(samples, cfg.MixBufferSize)
		if err != nil {
			return res, newError(ErrRenderFailed, path, err)
		}
		if count != cfg.MixBufferSize {
			return res, &Error{Code: ErrShortRender, Path: path, Frames: count, Requested: cfg.MixBufferSize}
		}

		pcm.PutSamples(buf, samples)
		if err := writeBuffer(out, buf); err != nil {
			return res, newError(ErrOutputWriteFailed, path, err)
		}
		res.Frames += int64(count)
		res.Buffers++
		res.Bytes += int64(len(buf))
	}

	e.log.Info("rendered", "file", path, "frames", res.Frames, "bytes", res.Bytes)
	return res, nil
}

// buffers returns scratch space for one mix buffer, reusing the previous
// allocation when it is large enough.
func (e *Engine) buffers(cfg *eas.Config) ([]int16, []byte) {
	n, size := cfg.BufferSamples(), cfg.BufferBytes()
	if cap(e.samples) < n {
		e.samples = make([]int16, n)
		e.pcm = make([]byte, size)
	}
	return e.samples[:n], e.pcm[:size]
}

type errFlusher interface {
	Flush() error
}

type flusher interface {
	Flush()
}

func writeBuffer(w io.Writer, p []byte) error {
	if _, err := w.Write(p); err != nil {
		return err
	}
	switch f := w.(type) {
	case errFlusher:
		return f.Flush()
	case flusher:
		f.Flush()
	}
	return nil
}

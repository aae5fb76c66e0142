//go:build sonivox

// Package sonivox binds the sonivox Embedded Audio Synthesis library.
//
// Building it requires the sonivox headers and a pkg-config entry. By default
// the engine reads files through Go callbacks; the hostwrapper build tag
// instead hands it stdio streams for libraries built with NEW_HOST_WRAPPER.
package sonivox

/*
#cgo pkg-config: sonivox
#include <stdio.h>
#include <stdlib.h>
#include <unistd.h>
#include <eas.h>
#include <eas_reverb.h>
#include <eas_chorus.h>
#include <eas_report.h>

static FILE *sonivox_fdopen(int fd) {
	int dup_fd = dup(fd);
	if (dup_fd < 0) return NULL;
	FILE *fp = fdopen(dup_fd, "w");
	if (fp == NULL) close(dup_fd);
	return fp;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// Name is the engine name this package registers.
const Name = "sonivox"

func init() {
	eas.Register(Name, func() eas.Library { return New() })
}

func check(op string, res C.EAS_RESULT) error {
	if res == C.EAS_SUCCESS {
		return nil
	}
	return fmt.Errorf("sonivox: %s failed with result %d", op, int(res))
}

// Library is the process-wide sonivox library.
type Library struct {
	debug   *C.FILE
	pipeOut *os.File
}

// New returns the library.
func New() *Library {
	return &Library{}
}

// Config implements eas.Library.
func (l *Library) Config() *eas.Config {
	c := C.EAS_Config()
	if c == nil {
		return nil
	}
	return &eas.Config{
		LibVersion:    uint32(c.libVersion),
		MaxVoices:     int(c.maxVoices),
		NumChannels:   int(c.numChannels),
		SampleRate:    int(c.sampleRate),
		MixBufferSize: int(c.mixBufferSize),
	}
}

// SetDebugFile implements eas.Library. Writers that are not OS files are fed
// through a pipe.
func (l *Library) SetDebugFile(w io.Writer, flush bool) {
	l.closeDebug()

	f, ok := w.(*os.File)
	if !ok {
		r, pw, err := os.Pipe()
		if err != nil {
			return
		}
		go func() {
			_, _ = io.Copy(w, r)
			r.Close()
		}()
		f, l.pipeOut = pw, pw
	}

	fp := C.sonivox_fdopen(C.int(f.Fd()))
	if fp == nil {
		return
	}
	l.debug = fp
	var fl C.int
	if flush {
		fl = 1
	}
	C.EAS_SetDebugFile(unsafe.Pointer(fp), fl)
}

func (l *Library) closeDebug() {
	if l.debug != nil {
		C.EAS_SetDebugFile(nil, 0)
		C.fclose(l.debug)
		l.debug = nil
	}
	if l.pipeOut != nil {
		l.pipeOut.Close()
		l.pipeOut = nil
	}
}

// SetDebugLevel implements eas.Library.
func (l *Library) SetDebugLevel(level int) {
	C.EAS_SetDebugLevel(C.int(level))
}

// Init implements eas.Library.
func (l *Library) Init() (eas.Synth, error) {
	var h C.EAS_DATA_HANDLE
	if err := check("EAS_Init", C.EAS_Init(&h)); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	return &Synth{lib: l, h: h}, nil
}

// Synth is an initialized engine instance.
type Synth struct {
	lib *Library
	h   C.EAS_DATA_HANDLE
	cur *stream
}

type stream struct {
	h   C.EAS_HANDLE
	loc *locator
}

var errClosed = errors.New("sonivox: engine is shut down")

// Shutdown implements eas.Synth.
func (s *Synth) Shutdown() error {
	if s.h == nil {
		return errClosed
	}
	if s.cur != nil {
		_ = s.CloseFile(s.cur)
	}
	err := check("EAS_Shutdown", C.EAS_Shutdown(s.h))
	s.h = nil
	s.lib.closeDebug()
	return err
}

// LoadDLSCollection implements eas.Synth.
func (s *Synth) LoadDLSCollection(f *eas.File) error {
	if s.h == nil {
		return errClosed
	}
	loc, err := newLocator(f)
	if err != nil {
		return err
	}
	defer loc.release()
	return check("EAS_LoadDLSCollection", C.EAS_LoadDLSCollection(s.h, nil, loc.c))
}

// SetVolume implements eas.Synth.
func (s *Synth) SetVolume(volume int) error {
	if s.h == nil {
		return errClosed
	}
	return check("EAS_SetVolume", C.EAS_SetVolume(s.h, nil, C.EAS_I32(volume)))
}

func cParam(module eas.Module, param eas.Param) (C.EAS_I32, C.EAS_I32, error) {
	switch module {
	case eas.ModuleReverb:
		switch param {
		case eas.ReverbBypass:
			return C.EAS_MODULE_REVERB, C.EAS_PARAM_REVERB_BYPASS, nil
		case eas.ReverbPreset:
			return C.EAS_MODULE_REVERB, C.EAS_PARAM_REVERB_PRESET, nil
		case eas.ReverbWet:
			return C.EAS_MODULE_REVERB, C.EAS_PARAM_REVERB_WET, nil
		case eas.ReverbDry:
			return C.EAS_MODULE_REVERB, C.EAS_PARAM_REVERB_DRY, nil
		}
	case eas.ModuleChorus:
		switch param {
		case eas.ChorusBypass:
			return C.EAS_MODULE_CHORUS, C.EAS_PARAM_CHORUS_BYPASS, nil
		case eas.ChorusPreset:
			return C.EAS_MODULE_CHORUS, C.EAS_PARAM_CHORUS_PRESET, nil
		case eas.ChorusRate:
			return C.EAS_MODULE_CHORUS, C.EAS_PARAM_CHORUS_RATE, nil
		case eas.ChorusDepth:
			return C.EAS_MODULE_CHORUS, C.EAS_PARAM_CHORUS_DEPTH, nil
		case eas.ChorusLevel:
			return C.EAS_MODULE_CHORUS, C.EAS_PARAM_CHORUS_LEVEL, nil
		}
	}
	return 0, 0, fmt.Errorf("sonivox: unknown parameter %s.%s", module, eas.ParamName(module, param))
}

// SetParameter implements eas.Synth.
func (s *Synth) SetParameter(module eas.Module, param eas.Param, value int32) error {
	if s.h == nil {
		return errClosed
	}
	m, p, err := cParam(module, param)
	if err != nil {
		return err
	}
	return check("EAS_SetParameter", C.EAS_SetParameter(s.h, m, p, C.EAS_I32(value)))
}

// OpenFile implements eas.Synth. A nil stream with a nil error means the
// engine accepted the file without creating a stream.
func (s *Synth) OpenFile(f *eas.File) (eas.Stream, error) {
	if s.h == nil {
		return nil, errClosed
	}
	if s.cur != nil {
		return nil, errors.New("sonivox: a stream is already open")
	}
	loc, err := newLocator(f)
	if err != nil {
		return nil, err
	}
	var h C.EAS_HANDLE
	if err := check("EAS_OpenFile", C.EAS_OpenFile(s.h, loc.c, &h)); err != nil {
		loc.release()
		return nil, err
	}
	if h == nil {
		loc.release()
		return nil, nil
	}
	s.cur = &stream{h: h, loc: loc}
	return s.cur, nil
}

func (s *Synth) lookup(st eas.Stream) (*stream, error) {
	if s.h == nil {
		return nil, errClosed
	}
	cs, ok := st.(*stream)
	if !ok || cs == nil || cs != s.cur {
		return nil, errors.New("sonivox: unknown stream")
	}
	return cs, nil
}

// Prepare implements eas.Synth.
func (s *Synth) Prepare(st eas.Stream) error {
	cs, err := s.lookup(st)
	if err != nil {
		return err
	}
	return check("EAS_Prepare", C.EAS_Prepare(s.h, cs.h))
}

// ParseMetaData implements eas.Synth.
func (s *Synth) ParseMetaData(st eas.Stream) (int32, error) {
	cs, err := s.lookup(st)
	if err != nil {
		return 0, err
	}
	var length C.EAS_I32
	if err := check("EAS_ParseMetaData", C.EAS_ParseMetaData(s.h, cs.h, &length)); err != nil {
		return 0, err
	}
	return int32(length), nil
}

// State implements eas.Synth.
func (s *Synth) State(st eas.Stream) (eas.State, error) {
	cs, err := s.lookup(st)
	if err != nil {
		return eas.StateError, err
	}
	var state C.EAS_STATE
	if err := check("EAS_State", C.EAS_State(s.h, cs.h, &state)); err != nil {
		return eas.StateError, err
	}
	return eas.State(state), nil
}

// Render implements eas.Synth.
func (s *Synth) Render(buf []int16, frames int) (int, error) {
	if s.h == nil {
		return 0, errClosed
	}
	if frames <= 0 || len(buf) == 0 {
		return 0, errors.New("sonivox: empty render buffer")
	}
	var count C.EAS_I32
	res := C.EAS_Render(s.h, (*C.EAS_PCM)(unsafe.Pointer(&buf[0])), C.EAS_I32(frames), &count)
	if err := check("EAS_Render", res); err != nil {
		return 0, err
	}
	return int(count), nil
}

// CloseFile implements eas.Synth. The file locator is released even when
// the engine reports a failure.
func (s *Synth) CloseFile(st eas.Stream) error {
	cs, err := s.lookup(st)
	if err != nil {
		return err
	}
	err = check("EAS_CloseFile", C.EAS_CloseFile(s.h, cs.h))
	cs.loc.release()
	s.cur = nil
	return err
}

package renderer

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes render failures.
type ErrorCode string

const (
	ErrInitFailed           ErrorCode = "INIT_FAILED"
	ErrFileOpenFailed       ErrorCode = "FILE_OPEN_FAILED"
	ErrCollectionLoadFailed ErrorCode = "COLLECTION_LOAD_FAILED"
	ErrParameterSetFailed   ErrorCode = "PARAMETER_SET_FAILED"
	ErrStreamOpenFailed     ErrorCode = "STREAM_OPEN_FAILED"
	ErrInvalidStreamHandle  ErrorCode = "INVALID_STREAM_HANDLE"
	ErrPrepareFailed        ErrorCode = "PREPARE_FAILED"
	ErrMetadataParseFailed  ErrorCode = "METADATA_PARSE_FAILED"
	ErrEmptyPlayLength      ErrorCode = "EMPTY_PLAY_LENGTH"
	ErrConfigUnavailable    ErrorCode = "CONFIG_UNAVAILABLE"
	ErrStateQueryFailed     ErrorCode = "STATE_QUERY_FAILED"
	ErrRenderFailed         ErrorCode = "RENDER_FAILED"
	ErrShortRender          ErrorCode = "SHORT_RENDER"
	ErrStreamCloseFailed    ErrorCode = "STREAM_CLOSE_FAILED"
	ErrOutputWriteFailed    ErrorCode = "OUTPUT_WRITE_FAILED"
)

// ErrShutDown is returned by engine operations after Shutdown.
var ErrShutDown = errors.New("synthesizer library is shut down")

// Error is a failure of one lifecycle, configuration or render step.
// None of them are retried.
type Error struct {
	Code ErrorCode

	// Path is the MIDI or DLS file involved, if any.
	Path string

	// Module and Param name the parameter for ErrParameterSetFailed.
	Module string
	Param  string

	// Frames and Requested describe an ErrShortRender.
	Frames    int
	Requested int

	Err error
}

func (e *Error) Error() string {
	var msg string
	switch e.Code {
	case ErrInitFailed:
		msg = "failed to initialize synthesizer library"
	case ErrFileOpenFailed:
		msg = fmt.Sprintf("failed to open %s", e.Path)
	case ErrCollectionLoadFailed:
		msg = fmt.Sprintf("failed to load DLS file %s", e.Path)
	case ErrParameterSetFailed:
		msg = fmt.Sprintf("failed to set %s %s", e.Module, e.Param)
	case ErrStreamOpenFailed:
		msg = fmt.Sprintf("failed to open stream for %s", e.Path)
	case ErrInvalidStreamHandle:
		msg = fmt.Sprintf("failed to initialize stream handle for %s", e.Path)
	case ErrPrepareFailed:
		msg = fmt.Sprintf("failed to prepare %s for playback", e.Path)
	case ErrMetadataParseFailed:
		msg = fmt.Sprintf("failed to parse MIDI file metadata of %s", e.Path)
	case ErrEmptyPlayLength:
		msg = fmt.Sprintf("MIDI file %s has a play length of 0", e.Path)
	case ErrConfigUnavailable:
		msg = "failed to get the library configuration"
	case ErrStateQueryFailed:
		msg = "failed to get playback state"
	case ErrRenderFailed:
		msg = "failed to render audio"
	case ErrShortRender:
		msg = fmt.Sprintf("only %d out of %d frames rendered", e.Frames, e.Requested)
	case ErrStreamCloseFailed:
		msg = fmt.Sprintf("failed to close audio stream of %s", e.Path)
	case ErrOutputWriteFailed:
		msg = "failed to write audio output"
	default:
		msg = string(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, path string, err error) *Error {
	return &Error{Code: code, Path: path, Err: err}
}

func paramError(module, param string, err error) *Error {
	return &Error{Code: ErrParameterSetFailed, Module: module, Param: param, Err: err}
}

// CodeOf returns the ErrorCode carried by err, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

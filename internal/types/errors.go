package types

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrInvalidURL              ErrorCode = "INVALID_URL"
	ErrUnsupportedPlatform     ErrorCode = "UNSUPPORTED_PLATFORM"
	ErrVideoDownloadFailed     ErrorCode = "VIDEO_DOWNLOAD_FAILED"
	ErrAudioExtractionFailed   ErrorCode = "AUDIO_EXTRACTION_FAILED"
	ErrTranscriptionFailed     ErrorCode = "TRANSCRIPTION_FAILED"
	ErrNoSpeechDetected        ErrorCode = "NO_SPEECH_DETECTED"
	ErrRecipeStructuringFailed ErrorCode = "RECIPE_STRUCTURING_FAILED"
	ErrTimeout                 ErrorCode = "TIMEOUT"
	ErrUnknown                 ErrorCode = "UNKNOWN_ERROR"
)

// PipelineError is the error type every stage reports.
// Permanent marks failures that are deterministic for the given input.
type PipelineError struct {
	Code      ErrorCode
	Stage     string
	Message   string
	Permanent bool
	Err       error
}

func (e *PipelineError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewError(code ErrorCode, format string, args ...any) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewPermanentError builds an error that retry loops must not repeat.
func NewPermanentError(code ErrorCode, format string, args ...any) *PipelineError {
	e := NewError(code, format, args...)
	e.Permanent = true
	return e
}

func WrapError(code ErrorCode, err error, msg string) *PipelineError {
	return &PipelineError{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first PipelineError in err's chain, or
// ErrUnknown.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrUnknown
}

func IsPermanent(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Permanent
}

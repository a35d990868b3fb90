package pipeline

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes a Job can end with
type Kind string

const (
	KindInvalidInput            Kind = "invalid_input"
	KindToolMissing             Kind = "tool_missing"
	KindEngineMissing           Kind = "engine_missing"
	KindEngineDependencyMissing Kind = "engine_dependency_missing"
	KindDownloadFailed          Kind = "download_failed"
	KindExtractionFailed        Kind = "extraction_failed"
	KindTranscriptionFailed     Kind = "transcription_failed"
	KindInternalFailure         Kind = "internal_failure"
)

// Error is a classified pipeline failure. Error() returns only the human
// readable message; the underlying cause stays reachable through Unwrap.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is / errors.As
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Errorf creates an unstaged Error of the given kind
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf reports the kind carried by err, or KindInternalFailure when err
// carries none
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) && pe.Kind != "" {
		return pe.Kind
	}
	return KindInternalFailure
}

// Classify converts any error raised while the Job was in stage into an
// *Error. Errors that already carry a kind keep it; anything else gets the
// stage's default kind and a generic message so raw process output never
// leaks to callers.
func Classify(stage Stage, err error) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) && pe.Kind != "" {
		classified := *pe
		if classified.Stage == "" {
			classified.Stage = stage
		}
		return &classified
	}

	kind := stage.DefaultFailureKind()
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Message: defaultMessages[kind],
		Err:     err,
	}
}

var defaultMessages = map[Kind]string{
	KindInvalidInput:        "invalid or unsupported video URL",
	KindDownloadFailed:      "failed to download video",
	KindExtractionFailed:    "failed to extract audio from video",
	KindTranscriptionFailed: "transcription produced no usable result",
	KindInternalFailure:     "internal error while processing video",
}

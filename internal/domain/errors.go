package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures along the recording pipeline.
type Kind string

const (
	KindDevice            Kind = "DEVICE_ERROR"
	KindStorage           Kind = "STORAGE_ERROR"
	KindTranscription     Kind = "TRANSCRIPTION_ERROR"
	KindAnalysisTransport Kind = "ANALYSIS_TRANSPORT_ERROR"
	KindAnalysisFormat    Kind = "ANALYSIS_FORMAT_ERROR"
	KindRender            Kind = "RENDER_ERROR"
)

// Error is the pipeline error type. Op names the failing step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() error { return e.Err }

// Recoverable reports whether the dashboard keeps working after this error.
func (e *Error) Recoverable() bool {
	return e.Kind == KindAnalysisFormat || e.Kind == KindRender
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindDevice:
		return http.StatusConflict
	case KindStorage:
		return http.StatusInternalServerError
	case KindTranscription, KindAnalysisTransport:
		return http.StatusBadGateway
	case KindAnalysisFormat, KindRender:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func DeviceError(op string, err error) *Error {
	return newError(KindDevice, op, err)
}

func StorageError(op string, err error) *Error {
	return newError(KindStorage, op, err)
}

func TranscriptionError(op string, err error) *Error {
	return newError(KindTranscription, op, err)
}

func AnalysisTransportError(op string, err error) *Error {
	return newError(KindAnalysisTransport, op, err)
}

func AnalysisFormatError(op string, err error) *Error {
	return newError(KindAnalysisFormat, op, err)
}

func RenderError(op string, err error) *Error {
	return newError(KindRender, op, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error detected by the engine while processing an
// event. None of them stop the Run loop.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ClientID identifies the engine that raised it.
	ClientID string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMalformedSnapshot indicates a remote value failed decoding and
	// was rejected.
	ErrCodeMalformedSnapshot RuntimeErrorCode = "MALFORMED_SNAPSHOT"

	// ErrCodePersistFailed indicates the remote write of a snapshot failed.
	ErrCodePersistFailed RuntimeErrorCode = "PERSIST_FAILED"

	// ErrCodeReadFailed indicates the read-once load failed.
	ErrCodeReadFailed RuntimeErrorCode = "READ_FAILED"

	// ErrCodeStopped indicates the engine no longer accepts events.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ClientID != "" {
		msg = fmt.Sprintf("%s (client=%s)", msg, e.ClientID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsMalformedSnapshot reports whether err is a rejected remote snapshot.
// Uses errors.As to handle wrapped errors.
func IsMalformedSnapshot(err error) bool {
	return hasCode(err, ErrCodeMalformedSnapshot)
}

// IsPersistFailed reports whether err is a failed remote write.
func IsPersistFailed(err error) bool {
	return hasCode(err, ErrCodePersistFailed)
}

// IsStopped reports whether err came from a stopped engine.
func IsStopped(err error) bool {
	return hasCode(err, ErrCodeStopped)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func (e *Engine) runtimeError(code RuntimeErrorCode, message string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:     code,
		Message:  message,
		ClientID: e.clientID,
		Err:      cause,
	}
}

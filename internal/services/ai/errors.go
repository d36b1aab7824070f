// File: internal/services/ai/errors.go
package ai

import (
	"errors"
	"fmt"
	"time"
)

// DefaultErrorMessage is shown to users when a failure carries no message of its own.
const DefaultErrorMessage = "failed to process request"

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeTimeout    ErrorType = "TIMEOUT"
	ErrTypeRemote     ErrorType = "REMOTE"
	ErrTypeExhausted  ErrorType = "EXHAUSTED"
	ErrTypeBusy       ErrorType = "BUSY"
	ErrTypeCanceled   ErrorType = "CANCELED"
)

type AIError struct {
	Type     ErrorType
	Code     int
	Message  string
	Function string
	Attempts int
	Cause    error
}

func (e *AIError) Error() string {
	op := e.Function
	if op == "" {
		op = "invoke"
	}
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)", e.Type, op, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, op, e.Message)
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg}
}

func NewValidationError(msg string) *AIError {
	return &AIError{Type: ErrTypeValidation, Message: msg}
}

func NewTimeoutError(timeout time.Duration, cause error) *AIError {
	msg := "request timed out"
	if timeout > 0 {
		msg = fmt.Sprintf("request timed out after %s", timeout)
	}
	return &AIError{Type: ErrTypeTimeout, Message: msg, Cause: cause}
}

func NewRemoteError(function, msg string, code int, cause error) *AIError {
	return &AIError{Type: ErrTypeRemote, Function: function, Message: msg, Code: code, Cause: cause}
}

func NewExhaustedError(attempts int, last error) *AIError {
	return &AIError{
		Type:     ErrTypeExhausted,
		Message:  fmt.Sprintf("all %d attempts failed", attempts),
		Attempts: attempts,
		Cause:    last,
	}
}

func NewBusyError() *AIError {
	return &AIError{Type: ErrTypeBusy, Message: "another request is already being processed"}
}

func NewCanceledError(cause error) *AIError {
	return &AIError{Type: ErrTypeCanceled, Message: "request was cancelled", Cause: cause}
}

func hasType(err error, t ErrorType) bool {
	for err != nil {
		var aiErr *AIError
		if !errors.As(err, &aiErr) {
			return false
		}
		if aiErr.Type == t {
			return true
		}
		err = aiErr.Cause
	}
	return false
}

// IsTimeout reports whether err, or the final attempt behind an exhausted error, was a timeout.
func IsTimeout(err error) bool { return hasType(err, ErrTypeTimeout) }

func IsBusy(err error) bool { return hasType(err, ErrTypeBusy) }

func IsExhausted(err error) bool { return hasType(err, ErrTypeExhausted) }

func IsValidation(err error) bool { return hasType(err, ErrTypeValidation) }

func IsCanceled(err error) bool { return hasType(err, ErrTypeCanceled) }

// UserMessage derives the human-readable text shown in the error toast.
// Exhausted errors report the message of the final attempt.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		if aiErr.Type == ErrTypeExhausted && aiErr.Cause != nil {
			return UserMessage(aiErr.Cause)
		}
		if aiErr.Message != "" {
			return aiErr.Message
		}
		if aiErr.Cause != nil {
			return UserMessage(aiErr.Cause)
		}
		return DefaultErrorMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

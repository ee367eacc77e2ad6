package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for transport mapping. It is never shown to users.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindProvider     Kind = "provider"
	KindNetwork      Kind = "network"
	KindUnexpected   Kind = "unexpected"
	KindBusy         Kind = "busy"
	KindUnauthorized Kind = "unauthorized"
)

// Message codes resolved to localized text by the i18n package.
const (
	CodeKeyRequired      = "key_required"
	CodeInvalidKey       = "invalid_key"
	CodeNetwork          = "network"
	CodeMissingInput     = "missing_input"
	CodeInvalidImage     = "invalid_image"
	CodeInvalidIndex     = "invalid_index"
	CodePromptTooLong    = "prompt_too_long"
	CodeRefineFailed     = "refine_failed"
	CodeGenerateFailed   = "generate_failed"
	CodeUnexpected       = "unexpected"
	CodeBusy             = "busy"
	CodeUnauthorized     = "unauthorized"
	CodeNoGeneratedImage = "no_generated_image"
	CodeDownloadFailed   = "download_failed"
	CodeBadRequest       = "bad_request"
	CodeRateLimited      = "rate_limited"
)

// Error is the single error shape surfaced to users. Detail carries a
// provider-supplied message and wins over Code when set.
type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Detail != "" {
		msg = e.Code + ": " + e.Detail
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code string) *Error {
	return &Error{Kind: KindValidation, Code: code}
}

func Busy() *Error {
	return &Error{Kind: KindBusy, Code: CodeBusy}
}

func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized}
}

func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Code: CodeNetwork, Err: err}
}

func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Code: CodeUnexpected, Err: err}
}

// Recovered wraps a recovered panic value as an unexpected error.
func Recovered(v any) *Error {
	return Unexpected(fmt.Errorf("panic: %v", v))
}

// AsError returns err as a *Error, wrapping anything else as unexpected.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Unexpected(err)
}

// KindOf reports the kind of err, or "" when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}

package domain

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Lifecycle errors returned by the public API; check with errors.Is.
var (
	ErrAlreadyRunning  = errors.New("inboxship: already running")
	ErrNotRunning      = errors.New("inboxship: not running")
	ErrShutdownTimeout = errors.New("inboxship: shutdown timeout")
	ErrInvalidConfig   = errors.New("inboxship: invalid configuration")
	ErrRunInProgress   = errors.New("inboxship: run already in progress")
	ErrLedgerNotLoaded = errors.New("inboxship: ledger file could not be read")
)

// Text codes carried by the error envelopes below.
const (
	CodeConfiguration     = "CONFIGURATION_ERROR"
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeEmptySource       = "EMPTY_SOURCE"
	CodeMalformedRecord   = "MALFORMED_RECORD"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeLedgerIO          = "LEDGER_IO_ERROR"
)

// ConfigurationError reports a missing or invalid setting. Fatal to a run.
func ConfigurationError(message string, metadata map[string]any) error {
	return newError(nil, message, goerrors.CategoryValidation, CodeConfiguration, metadata)
}

// SourceUnavailable wraps a failure to open or read the message source.
func SourceUnavailable(cause error, message string) error {
	return newError(cause, message, goerrors.CategoryExternal, CodeSourceUnavailable, nil)
}

// EmptySource reports a source that opened but yielded no messages.
func EmptySource(message string) error {
	return newError(nil, message, goerrors.CategoryNotFound, CodeEmptySource, nil)
}

// MalformedRecord reports a message whose required fields cannot be extracted.
func MalformedRecord(message string, metadata map[string]any) error {
	return newError(nil, message, goerrors.CategoryBadInput, CodeMalformedRecord, metadata)
}

// InvalidArgument reports a bad argument to a ledger operation.
func InvalidArgument(message string) error {
	return newError(nil, message, goerrors.CategoryBadInput, CodeInvalidArgument, nil)
}

// LedgerIO wraps an I/O failure while loading or saving the ledger file.
func LedgerIO(cause error, message string, path string) error {
	return newError(cause, message, goerrors.CategoryInternal, CodeLedgerIO, map[string]any{"path": path})
}

func newError(cause error, message string, category goerrors.Category, code string, metadata map[string]any) error {
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, category, message)
	} else {
		err = goerrors.New(message, category)
	}
	err = err.WithTextCode(code)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// HasCode reports whether err carries an envelope with the given text code.
func HasCode(err error, code string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

// Code returns the text code of err, or "" when err has no envelope.
func Code(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	return rich.TextCode
}

package domain

import (
	"errors"
	"fmt"
)

// Platform client failure conditions. Adapters wrap these so callers can use
// errors.Is regardless of the underlying protocol.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrTransientNetwork = errors.New("transient network error")
)

// Request and lifecycle errors.
var (
	ErrSamePlatform    = errors.New("source and target platform must differ")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidTrack    = errors.New("invalid track")
	ErrJobNotFound     = errors.New("transfer job not found")
	ErrJobNotTerminal  = errors.New("transfer job has not finished")
	ErrTargetBusy      = errors.New("target playlist is already being written by another transfer")
	ErrDuplicateRecord = errors.New("history record already exists")
	ErrServiceClosed   = errors.New("transfer service is closed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCancelled       = errors.New("transfer cancelled")
)

// IsRetryable reports whether err is a transient condition worth retrying.
// Authentication and not-found conditions never are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransientNetwork)
}

// ErrorKind classifies why a transfer failed.
type ErrorKind string

const (
	KindSourceFetchFailed       ErrorKind = "source_fetch_failed"
	KindMatchLookupFailed       ErrorKind = "match_lookup_failed"
	KindDestinationCreateFailed ErrorKind = "destination_create_failed"
	KindBatchWriteFailed        ErrorKind = "batch_write_failed"
	KindCancelled               ErrorKind = "cancelled"
)

// ErrorInfo is the caller-visible explanation of a failed job.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// TransferError attaches an ErrorKind to an underlying error.
type TransferError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// NewTransferError wraps err with the given kind.
func NewTransferError(kind ErrorKind, err error) *TransferError {
	return &TransferError{Kind: kind, Err: err}
}

// KindOf returns the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// Info converts err into an ErrorInfo.
func (e *TransferError) Info() *ErrorInfo {
	return &ErrorInfo{Kind: e.Kind, Message: e.Error()}
}

// Package faults defines the error taxonomy shared by the tree builder,
// the folder gate, the archive inspector and the sandbox.
//
// Every failure that crosses a package boundary is a *Error carrying a Kind.
// The HTTP layer maps kinds to status codes; callers use errors.Is with the
// Kind sentinels or errors.As to reach the full value.
package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindListingUnavailable
	KindArchiveFetch
	KindArchiveDecode
	KindPasswordFileUnavailable
	KindEntryNotFound
	KindDownloadFailed
	KindTimeout
	KindNotFound
	KindLocked
	KindBadRequest
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindListingUnavailable:
		return "listing_unavailable"
	case KindArchiveFetch:
		return "archive_fetch_error"
	case KindArchiveDecode:
		return "archive_decode_error"
	case KindPasswordFileUnavailable:
		return "password_file_unavailable"
	case KindEntryNotFound:
		return "entry_not_found"
	case KindDownloadFailed:
		return "download_failed"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindLocked:
		return "locked"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status used when a failure of this kind ends a request.
func (k Kind) Status() int {
	switch k {
	case KindListingUnavailable, KindArchiveFetch, KindPasswordFileUnavailable, KindDownloadFailed:
		return http.StatusBadGateway
	case KindArchiveDecode:
		return http.StatusUnprocessableEntity
	case KindEntryNotFound, KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindLocked:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "tree.build"
	Path string // repository path or URL the operation was working on
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, faults.ErrTimeout) works
// through any amount of wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrListingUnavailable      = &Error{Kind: KindListingUnavailable}
	ErrArchiveFetch            = &Error{Kind: KindArchiveFetch}
	ErrArchiveDecode           = &Error{Kind: KindArchiveDecode}
	ErrPasswordFileUnavailable = &Error{Kind: KindPasswordFileUnavailable}
	ErrEntryNotFound           = &Error{Kind: KindEntryNotFound}
	ErrDownloadFailed          = &Error{Kind: KindDownloadFailed}
	ErrTimeout                 = &Error{Kind: KindTimeout}
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrLocked                  = &Error{Kind: KindLocked}
	ErrBadRequest              = &Error{Kind: KindBadRequest}
)

// New builds a classified error.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Newf builds a classified error with a formatted cause.
func Newf(kind Kind, op, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// Reclassify keeps a timeout as a timeout and otherwise wraps err under kind.
// Upstream helpers report transport problems generically; each caller knows
// which taxonomy entry the failure belongs to.
func Reclassify(err error, kind Kind, op, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) {
		return New(KindTimeout, op, path, err)
	}
	return New(kind, op, path, err)
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

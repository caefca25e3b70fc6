package media

import (
	"errors"
	"fmt"
)

// RejectReason names why the validator refused an upload.
type RejectReason string

const (
	ReasonTransportError  RejectReason = "transport_error"
	ReasonUnsupportedType RejectReason = "unsupported_type"
	ReasonTooLarge        RejectReason = "too_large"
)

var (
	// ErrNotFound reports an image or album that is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput reports malformed caller input (bad album name, caption too long).
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlbumExists reports a duplicate album name within one owner's namespace.
	ErrAlbumExists = errors.New("album already exists")
	// ErrBulkIncomplete reports a bulk delete where at least one item failed.
	// Items deleted before and after the failure stay deleted.
	ErrBulkIncomplete = errors.New("bulk delete incomplete")
	// ErrContentTooLarge marks a transport error raised because the body
	// was cut at the transport's own size ceiling.
	ErrContentTooLarge = errors.New("content too large")
)

// ValidationError is returned when an upload is rejected before any write.
type ValidationError struct {
	Reason RejectReason
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upload rejected: %s", e.Reason)
	}
	return fmt.Sprintf("upload rejected: %s: %v", e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StoreFailure wraps a blob or metadata I/O error.
type StoreFailure struct {
	Op  string
	Err error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreFailure) Unwrap() error {
	return e.Err
}

// ConflictError reports a generated id that is already taken. It indicates
// a broken id generator and is never retried.
type ConflictError struct {
	ID  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("id collision for %s: %v", e.ID, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// RejectionReason returns the validation reason carried by err, if any.
func RejectionReason(err error) (RejectReason, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason, true
	}
	return "", false
}

func reject(reason RejectReason, err error) error {
	return &ValidationError{Reason: reason, Err: err}
}

func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreFailure{Op: op, Err: err}
}

// Package vaulterr defines the error taxonomy for remote vault operations.
// Retry predicates and the search fallback decision match on Kind rather
// than on message text.
package vaulterr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindTimeout
	KindUnavailable
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Error carries the classification of a failed vault operation along with
// retry diagnostics. Attempts and Final are filled in by the retry wrapper;
// the original Kind survives retries unchanged.
type Error struct {
	Kind     Kind
	Op       string
	Target   string
	Attempts int
	Final    bool
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %q: %s", e.Op, e.Target, e.Kind)
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s (after %d attempts)", msg, e.Attempts)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a classified vault error.
func New(kind Kind, op, target string, err error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal when err carries no
// classification.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is classified as a missing target.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

package core

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the error taxonomy shared by every core package.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindPermissionDenied
	KindBadSignature
	KindOverflow
	KindUnderflow
	KindInvalidTransaction
	KindInvalidBlock
	KindIoError
	KindCryptoError
	KindConfigError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindBadSignature:
		return "BadSignature"
	case KindOverflow:
		return "Overflow"
	case KindUnderflow:
		return "Underflow"
	case KindInvalidTransaction:
		return "InvalidTransaction"
	case KindInvalidBlock:
		return "InvalidBlock"
	case KindIoError:
		return "IoError"
	case KindCryptoError:
		return "CryptoError"
	case KindConfigError:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// LedgerError is the concrete error type returned across the core packages.
// It carries the taxonomy kind, the failing operation, and the wrapped
// underlying cause so callers can both errors.Is a sentinel kind and inspect
// the original error via errors.Unwrap.
type LedgerError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *LedgerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, Sentinel(KindNotFound)) style comparisons: any
// *LedgerError target matches when its Kind equals e.Kind.
func (e *LedgerError) Is(target error) bool {
	var other *LedgerError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// NewError constructs a *LedgerError for the given kind/operation, wrapping
// cause if present.
func NewError(kind ErrorKind, op string, cause error) *LedgerError {
	return &LedgerError{Kind: kind, Op: op, Err: cause}
}

// Sentinel returns a bare *LedgerError usable as an errors.Is target, e.g.
// errors.Is(err, Sentinel(KindNotFound)).
func Sentinel(kind ErrorKind) error { return &LedgerError{Kind: kind} }

// Is reports whether err carries the given ErrorKind anywhere in its chain.
func Is(err error, kind ErrorKind) bool {
	var le *LedgerError
	for errors.As(err, &le) {
		if le.Kind == kind {
			return true
		}
		err = le.Err
	}
	return false
}

// Wrap adds operation context to an error without changing its kind. It
// mirrors pkg/utils.Wrap's "%s: %w" idiom but preserves the ErrorKind when
// the wrapped error is already a *LedgerError, defaulting to KindUnknown
// otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return NewError(le.Kind, op, err)
	}
	return NewError(KindUnknown, op, err)
}

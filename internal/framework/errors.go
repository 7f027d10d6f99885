package framework

import "fmt"

// ErrorCode is the coarse error surface the realm service reports to
// components. Fine-grained model errors collapse onto these codes; anything
// unexpected becomes ErrInternal and is logged in full.
type ErrorCode int

const (
	ErrInternal ErrorCode = iota
	ErrInvalidArguments
	ErrUnsupported
	ErrInstanceNotFound
	ErrInstanceAlreadyExists
	ErrInstanceCannotResolve
	ErrInstanceCannotStart
	ErrCollectionNotFound
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInternal:
		return "internal"
	case ErrInvalidArguments:
		return "invalid arguments"
	case ErrUnsupported:
		return "unsupported"
	case ErrInstanceNotFound:
		return "instance not found"
	case ErrInstanceAlreadyExists:
		return "instance already exists"
	case ErrInstanceCannotResolve:
		return "instance cannot resolve"
	case ErrInstanceCannotStart:
		return "instance cannot start"
	case ErrCollectionNotFound:
		return "collection not found"
	default:
		return "unknown"
	}
}

// Error pairs an error code with its underlying cause.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Err: err}
}

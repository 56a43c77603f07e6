package domain

import "errors"

// Kind classifies a domain failure so transports can map it to a status code.
type Kind int

const (
	// KindStorage covers every error that is not a domain error, most commonly
	// a failure reported by the underlying store.
	KindStorage Kind = iota
	KindValidation
	KindNotFound
	KindUnauthenticated
)

// String returns the machine readable name used in error bodies.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthorized"
	default:
		return "internal_server_error"
	}
}

// Error is a classified domain error. Sentinels are compared by identity.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf reports the kind of err. Unclassified errors are storage failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}

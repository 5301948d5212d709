package errors

import "fmt"

type Kind string

const (
	KindPrecondition Kind = "PRECONDITION"
	KindIO           Kind = "IO"
	KindParse        Kind = "PARSE"
	KindUsage        Kind = "USAGE"
)

// Error carries the failure kind and, where relevant, the offending path.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Message, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s %s", e.Message, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Precondition(message string) *Error {
	return &Error{
		Kind:    KindPrecondition,
		Message: message,
	}
}

func IO(message, path string, err error) *Error {
	return &Error{
		Kind:    KindIO,
		Path:    path,
		Message: message,
		Err:     err,
	}
}

func Parse(message, path string, err error) *Error {
	return &Error{
		Kind:    KindParse,
		Path:    path,
		Message: message,
		Err:     err,
	}
}

func Usage(message string) *Error {
	return &Error{
		Kind:    KindUsage,
		Message: message,
	}
}

// IsKind reports whether err or anything it wraps is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

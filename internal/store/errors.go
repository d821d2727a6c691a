package store

import "fmt"

// Kind classifies a store failure.
type Kind uint8

// Failure kinds.
const (
	KindNotFound Kind = iota + 1
	KindCorrupt
	KindClosed
)

var kindText = map[Kind]string{
	KindNotFound: "key not found",
	KindCorrupt:  "stored value is corrupt",
	KindClosed:   "store is closed",
}

func (k Kind) String() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return fmt.Sprintf("store error %d", k)
}

// Error is a persistence failure, optionally tied to a key.
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg += ": " + e.Key
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so ErrNotFound.ForKey(k) still
// satisfies errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ForKey returns a copy of e naming key.
func (e *Error) ForKey(key string) *Error {
	return &Error{Kind: e.Kind, Key: key, Err: e.Err}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Key: e.Key, Err: err}
}

// Sentinels for errors.Is.
var (
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrCorrupt  = &Error{Kind: KindCorrupt}
	ErrClosed   = &Error{Kind: KindClosed}
)

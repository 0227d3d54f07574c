package hser

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a record's object type cannot be resolved.
	ErrUnknownType = errors.New("unknown type")

	// ErrAbstractType is returned when asked to construct an interface type.
	ErrAbstractType = errors.New("cannot construct abstract type")

	// ErrUnknownMember is returned by AddMember for a name the catalog does not know.
	ErrUnknownMember = errors.New("unknown member")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d @%d) %x", e.Msg, e.Err, n, e.Off, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d @%d) %x", e.Msg, n, e.Off, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d @%d) %x...%x", e.Msg, e.Err, n, e.Off, p, s)
		} else {
			return fmt.Sprintf("%s: (%d @%d) %x...%x", e.Msg, n, e.Off, p, s)
		}
	}
}

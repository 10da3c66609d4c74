package domain

import "fmt"

// ErrorKind is the coarse category of a failed remote call.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindAuth    ErrorKind = "auth"
	KindSchema  ErrorKind = "schema"
	KindUnknown ErrorKind = "unknown"
)

// RemoteError is returned by every repository operation that fails.
// Op names the operation (insert, delete, select); Err is the driver error.
type RemoteError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

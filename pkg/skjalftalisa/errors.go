package skjalftalisa

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("skjalftalisa: transport failure")
	// ErrSchema matches every *SchemaError via errors.Is.
	ErrSchema = errors.New("skjalftalisa: unexpected response shape")
)

// TransportError reports a failed round trip: connection or timeout errors, a non-2xx
// status, an unreadable body, or a body that is not JSON at all.
type TransportError struct {
	Op         string
	StatusCode int    // 0 when no response was received
	Body       string // bounded snippet, when a body was read
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("skjalftalisa %s: upstream status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("skjalftalisa %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// SchemaError reports a JSON body that does not have the columnar data shape. Body holds
// the raw text since the service answers some failures with its own error document.
type SchemaError struct {
	Body string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("skjalftalisa: unexpected response shape: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

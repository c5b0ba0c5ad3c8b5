// Package request defines the values exchanged between the balancer's
// callers and the server nodes: requests, responses and the result
// classification that callers render into log lines.
package request

import (
	"errors"
	"fmt"
)

// Input bounds for document names and contents.
const (
	MaxKeyLength     = 40
	MaxContentLength = 1000
)

// ErrInvalidRequest is returned for requests that cannot be executed.
var ErrInvalidRequest = errors.New("invalid request")

// Type is the kind of operation a request carries.
type Type int

const (
	TypeUnknown Type = iota
	TypeGet
	TypeEdit
)

func (t Type) String() string {
	switch t {
	case TypeGet:
		return "GET"
	case TypeEdit:
		return "EDIT"
	default:
		return "UNKNOWN"
	}
}

// Request is a single document operation. Content is nil for GET and
// required (possibly empty) for EDIT.
type Request struct {
	Type    Type
	Key     string
	Content []byte
}

// Get builds a GET request.
func Get(key string) Request {
	return Request{Type: TypeGet, Key: key}
}

// Edit builds an EDIT request. The content is copied.
func Edit(key string, content []byte) Request {
	c := make([]byte, len(content))
	copy(c, content)
	return Request{Type: TypeEdit, Key: key, Content: c}
}

// Validate reports whether the request can be routed and executed.
func (r Request) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("%w: empty document name", ErrInvalidRequest)
	}
	if len(r.Key) > MaxKeyLength {
		return fmt.Errorf("%w: document name longer than %d bytes", ErrInvalidRequest, MaxKeyLength)
	}

	switch r.Type {
	case TypeGet:
		if r.Content != nil {
			return fmt.Errorf("%w: GET %s carries content", ErrInvalidRequest, r.Key)
		}
	case TypeEdit:
		if r.Content == nil {
			return fmt.Errorf("%w: EDIT %s without content", ErrInvalidRequest, r.Key)
		}
		if len(r.Content) > MaxContentLength {
			return fmt.Errorf("%w: content longer than %d bytes", ErrInvalidRequest, MaxContentLength)
		}
	default:
		return fmt.Errorf("%w: unknown type %d", ErrInvalidRequest, int(r.Type))
	}
	return nil
}

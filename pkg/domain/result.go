package domain

import (
	"errors"
	"fmt"
)

// Result is the uniform outcome of every engine operation
type Result struct {
	Success bool        `json:"success" msgpack:"success"`
	Message string      `json:"message" msgpack:"message"`
	Data    interface{} `json:"data,omitempty" msgpack:"data,omitempty"`

	// Err holds the failure kind; it is not part of the wire format
	Err error `json:"-" msgpack:"-"`
}

// OK builds a successful result
func OK(message string, data interface{}) Result {
	return Result{Success: true, Message: message, Data: data}
}

// Failed builds a failure result whose message is the error text
func Failed(err error) Result {
	return Result{Success: false, Message: err.Error(), Err: err}
}

// Failedf builds a failure of the given kind with a formatted detail
func Failedf(kind error, format string, args ...interface{}) Result {
	return Failed(fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)))
}

// Error returns nil for a successful result and the failure otherwise
func (r Result) Error() error {
	if r.Success {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return errors.New(r.Message)
}

// Is reports whether the result failed with the given kind
func (r Result) Is(kind error) bool {
	return !r.Success && errors.Is(r.Err, kind)
}

// Document returns the document carried by a successful lookup
func (r Result) Document() (*Document, bool) {
	doc, ok := r.Data.(*Document)
	return doc, ok
}

// Documents returns the documents carried by a successful listing
func (r Result) Documents() ([]*Document, bool) {
	docs, ok := r.Data.([]*Document)
	return docs, ok
}

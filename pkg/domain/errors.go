package domain

import "errors"

// Failure kinds surfaced by the engine. Results carry one of these in Err so
// callers can branch with errors.Is.
var (
	ErrDocumentExists    = errors.New("document already exists")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrCollectionMissing = errors.New("collection missing")
	ErrCollectionExists  = errors.New("collection already exists")
	ErrIndexNotFound     = errors.New("index not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrWALFailure        = errors.New("write-ahead log failure")
	ErrClosed            = errors.New("engine closed")
)

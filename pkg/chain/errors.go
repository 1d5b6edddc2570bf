package chain

import "errors"

var (
	// ErrFileUnopenable is returned when the chain file cannot be opened
	ErrFileUnopenable = errors.New("chain file cannot be opened")
	// ErrHeightNotFound is returned when the chain ends before the requested height
	ErrHeightNotFound = errors.New("height not found")
	// ErrIndexClosed is returned when operations are performed on a closed index
	ErrIndexClosed = errors.New("index is closed")
	// ErrInvalidRange is returned when a range starts above its end
	ErrInvalidRange = errors.New("invalid height range")
)

package riff

import (
	"errors"
	"fmt"
)

var (
	// ErrTopLevel is returned when a non-list chunk appears at the outermost scope.
	ErrTopLevel = errors.New("riff: bad top-level chunk id")

	// ErrNotList is returned when descending into a chunk that has no sub-chunks.
	ErrNotList = errors.New("riff: chunk is not a RIFF or LIST chunk")

	// ErrOutermostScope is returned by Ascend and CloseList when no nested scope is open.
	ErrOutermostScope = errors.New("riff: already at outermost scope")

	// ErrClosed is returned by any operation on a released or failed container.
	ErrClosed = errors.New("riff: container closed")

	// ErrUnbalanced is returned by Close when lists opened for writing were never closed.
	ErrUnbalanced = errors.New("riff: unclosed list scopes")

	// ErrMode is returned when an operation needs an access mode the container lacks.
	ErrMode = errors.New("riff: operation not permitted in this mode")

	// ErrForeignChunk is returned when a chunk is passed to a container it was not read from.
	ErrForeignChunk = errors.New("riff: chunk belongs to another container")
)

// FormatError describes malformed framing at a specific offset.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("riff: %s at offset 0x%08X", e.Reason, e.Offset)
}

// Warning is a recoverable anomaly met while reading. Traversal continues.
type Warning struct {
	Offset  int64
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at offset 0x%08X", w.Message, w.Offset)
}

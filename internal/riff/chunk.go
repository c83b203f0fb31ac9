package riff

import (
	"errors"
	"fmt"
	"io"
)

// Chunk describes one chunk read from a Container. It keeps its container
// alive until Release is called.
type Chunk struct {
	ID     FourCC
	Size   uint32 // payload length, excluding header and pad byte
	Type   FourCC // sub-type of RIFF and LIST chunks
	Offset int64  // offset of the chunk header

	container *Container
	stream    *ChunkStream
	released  bool
}

// Container returns the container the chunk was read from.
func (ch *Chunk) Container() *Container { return ch.container }

// PayloadOffset returns the offset of the first payload byte.
func (ch *Chunk) PayloadOffset() int64 { return ch.Offset + headerSize }

// End returns the offset just past the payload, before any pad byte.
func (ch *Chunk) End() int64 { return ch.PayloadOffset() + int64(ch.Size) }

func (ch *Chunk) String() string {
	if ch.ID.IsList() {
		return fmt.Sprintf("%s(%s) %d bytes @0x%08X", ch.ID, ch.Type, ch.Size, ch.Offset)
	}
	return fmt.Sprintf("%s %d bytes @0x%08X", ch.ID, ch.Size, ch.Offset)
}

// Stream returns the chunk's payload stream, creating it on first use.
// Repeated calls return the same stream.
func (ch *Chunk) Stream() *ChunkStream {
	if ch.stream == nil {
		ch.stream = &ChunkStream{chunk: ch}
	}
	return ch.stream
}

// Release drops the chunk's reference on its container.
// Releasing twice is a no-op.
func (ch *Chunk) Release() error {
	if ch.released {
		return nil
	}
	ch.released = true
	return ch.container.release()
}

// ChunkStream reads and writes one chunk's payload with a cursor of its
// own, independent of the container's traversal cursor. It is bounded by the
// chunk size and is writable only if the container was opened writable.
type ChunkStream struct {
	chunk *Chunk
	pos   int64 // relative to the payload start
}

var errStreamReleased = errors.New("riff: chunk released")

func (s *ChunkStream) check() error {
	if s.chunk.released {
		return errStreamReleased
	}
	return s.chunk.container.alive()
}

// Read implements io.Reader.
func (s *ChunkStream) Read(p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	c := s.chunk.container
	if !c.mode.readable() {
		return 0, fmt.Errorf("%w: chunk read (%s)", ErrMode, c.mode)
	}

	left := int64(s.chunk.Size) - s.pos
	if left <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > left {
		p = p[:left]
	}

	n, err := c.f.ReadAt(p, s.chunk.PayloadOffset()+s.pos)
	s.pos += int64(n)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(p)) {
		return n, c.fail("chunk read", unexpected(err))
	}
	return n, nil
}

// Write implements io.Writer. Writing past the chunk size is refused with
// io.ErrShortWrite.
func (s *ChunkStream) Write(p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	c := s.chunk.container
	if !c.mode.writable() {
		return 0, fmt.Errorf("%w: chunk write (%s)", ErrMode, c.mode)
	}

	left := int64(s.chunk.Size) - s.pos
	short := false
	if int64(len(p)) > left {
		p = p[:max(left, 0)]
		short = true
	}

	n, err := c.f.WriteAt(p, s.chunk.PayloadOffset()+s.pos)
	s.pos += int64(n)
	if err != nil {
		return n, c.fail("chunk write", err)
	}
	if short {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Seek implements io.Seeker relative to the payload start.
func (s *ChunkStream) Seek(offset int64, whence int) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = int64(s.chunk.Size) + offset
	default:
		return 0, fmt.Errorf("riff: bad whence %d", whence)
	}
	if pos < 0 {
		return 0, errors.New("riff: negative position")
	}
	s.pos = pos
	return pos, nil
}

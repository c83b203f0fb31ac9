// Package riff reads and writes nested RIFF chunk containers.
//
// A Container keeps a stack of scopes. Reading walks the chunks of the
// current scope with ReadChunk and enters list chunks with Descend. Writing
// appends chunks with WriteChunk and brackets nested lists with
// OpenList/CloseList, which patches the list length on close.
package riff

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
)

// Mode is the access mode of a container.
type Mode int

const (
	ReadOnly  Mode = 1 << iota // walk an existing container
	WriteOnly                  // build a new container
	ReadWrite = ReadOnly | WriteOnly
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	case ReadWrite:
		return "read-write"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) readable() bool { return m&ReadOnly != 0 }
func (m Mode) writable() bool { return m&WriteOnly != 0 }

// File is the byte stream under a container. *os.File satisfies it.
// The stream length is taken from Stat or Size, whichever it provides.
type File interface {
	io.ReaderAt
	io.WriterAt
}

const (
	headerSize     = 8  // id + size
	listHeaderSize = 12 // id + size + sub-type

	unknownEnd = -1
)

// scope is one level of nesting. start is the offset of the list header
// (or the stream start for the outermost scope).
type scope struct {
	start int64
	end   int64
	write bool // opened by OpenList, must be closed by CloseList
}

// Container is an open RIFF stream. It is reference counted: the caller
// holds one reference, and every Chunk read from it holds another. The
// underlying file is released when the last reference goes.
type Container struct {
	f      File
	closer io.Closer
	mode   Mode
	off    int64
	scopes []scope

	refs     int
	released bool  // the caller's reference is gone
	err      error // first I/O failure; the container is unusable after it

	logger   *log.Logger
	warnings []Warning
}

// Option configures a Container.
type Option func(*Container)

// WithLogger forwards read warnings to logger as they happen.
func WithLogger(logger *log.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithOffset starts the container at off instead of the start of the stream.
func WithOffset(off int64) Option {
	return func(c *Container) {
		c.off = off
	}
}

// New wraps f in a container. In read modes the outermost scope spans the
// whole stream; in WriteOnly mode its end is unknown until the list is closed.
// The caller keeps ownership of f.
func New(f File, mode Mode, opts ...Option) (*Container, error) {
	if mode != ReadOnly && mode != WriteOnly && mode != ReadWrite {
		return nil, fmt.Errorf("riff: bad mode %d", int(mode))
	}

	c := &Container{
		f:    f,
		mode: mode,
		refs: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	end := int64(unknownEnd)
	if mode.readable() {
		length, err := streamLength(f)
		if err != nil {
			return nil, fmt.Errorf("riff: failed to determine stream length: %w", err)
		}
		end = length
	}
	c.scopes = []scope{{start: c.off, end: end}}

	return c, nil
}

// OpenFile opens the named file and wraps it in a container that closes the
// file when the last reference is released.
func OpenFile(path string, mode Mode, opts ...Option) (*Container, error) {
	var flag int
	switch mode {
	case ReadOnly:
		flag = os.O_RDONLY
	case WriteOnly:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ReadWrite:
		flag = os.O_RDWR
	default:
		return nil, fmt.Errorf("riff: bad mode %d", int(mode))
	}

	f, err := os.OpenFile(path, flag, 0o666)
	if err != nil {
		return nil, err
	}

	c, err := New(f, mode, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

func streamLength(f File) (int64, error) {
	switch s := f.(type) {
	case interface{ Stat() (fs.FileInfo, error) }:
		fi, err := s.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	case interface{ Size() int64 }:
		return s.Size(), nil
	}
	return 0, errors.New("stream has neither Stat nor Size")
}

// Mode returns the access mode the container was opened with.
func (c *Container) Mode() Mode { return c.mode }

// Offset returns the traversal cursor.
func (c *Container) Offset() int64 { return c.off }

// Depth returns the number of open scopes, including the outermost one.
func (c *Container) Depth() int { return len(c.scopes) }

// Warnings returns the recoverable anomalies seen so far.
func (c *Container) Warnings() []Warning { return c.warnings }

// Err returns the I/O failure that closed the container, if any.
func (c *Container) Err() error { return c.err }

func (c *Container) warn(off int64, msg string) {
	w := Warning{Offset: off, Message: msg}
	c.warnings = append(c.warnings, w)
	if c.logger != nil {
		c.logger.Warn(msg, "offset", fmt.Sprintf("0x%08X", off))
	}
}

// fail records the first I/O failure. Every later operation is refused.
func (c *Container) fail(op string, err error) error {
	if c.err == nil {
		c.err = fmt.Errorf("riff: %s: %w", op, err)
	}
	return c.err
}

// usable checks the container can still be traversed by its caller.
func (c *Container) usable() error {
	if c.err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, c.err)
	}
	if c.released || c.refs == 0 {
		return ErrClosed
	}
	return nil
}

// alive checks the container can still serve chunk streams.
func (c *Container) alive() error {
	if c.err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, c.err)
	}
	if c.refs == 0 {
		return ErrClosed
	}
	return nil
}

func (c *Container) top() *scope {
	return &c.scopes[len(c.scopes)-1]
}

// ReadChunk reads the chunk header at the cursor and moves the cursor past
// the chunk and its pad byte. It returns io.EOF when fewer than 8 bytes are
// left in the current scope. A declared size that overruns the scope is
// clamped with a warning.
//
// The returned chunk holds a reference to the container until Release.
func (c *Container) ReadChunk() (*Chunk, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	if !c.mode.readable() {
		return nil, fmt.Errorf("%w: read chunk (%s)", ErrMode, c.mode)
	}

	remaining := c.top().end - c.off
	if remaining < headerSize {
		if remaining > 0 {
			c.warn(c.off, "trailing junk ignored")
		}
		return nil, io.EOF
	}

	var hdr [listHeaderSize]byte
	if _, err := c.f.ReadAt(hdr[:headerSize], c.off); err != nil {
		return nil, c.fail("read chunk header", unexpected(err))
	}

	ch := &Chunk{
		Offset:    c.off,
		container: c,
	}
	copy(ch.ID[:], hdr[0:4])
	size := int64(Uint32(hdr[4:8]))

	if ch.ID.IsList() {
		if remaining < listHeaderSize {
			return nil, &FormatError{Offset: c.off, Reason: "bad RIFF or LIST chunk"}
		}
		if _, err := c.f.ReadAt(hdr[headerSize:listHeaderSize], c.off+headerSize); err != nil {
			return nil, c.fail("read list type", unexpected(err))
		}
		copy(ch.Type[:], hdr[8:12])
	} else if len(c.scopes) == 1 {
		return nil, fmt.Errorf("%w: %q at offset 0x%08X", ErrTopLevel, ch.ID.String(), c.off)
	}

	if remaining-headerSize < size {
		c.warn(c.off, "chunk has bad size")
		size = remaining - headerSize
	}
	ch.Size = uint32(size)

	c.off += headerSize + size + size&1
	c.refs++

	return ch, nil
}

// Descend enters a list chunk. The new scope ends at the chunk's declared
// end and the cursor moves to the first sub-chunk.
func (c *Container) Descend(ch *Chunk) error {
	if err := c.usable(); err != nil {
		return err
	}
	if ch.container != c {
		return ErrForeignChunk
	}
	if !ch.ID.IsList() {
		return fmt.Errorf("%w: %q", ErrNotList, ch.ID.String())
	}

	c.scopes = append(c.scopes, scope{start: ch.Offset, end: ch.End()})
	c.off = ch.Offset + listHeaderSize
	return nil
}

// Ascend leaves the current scope and moves the cursor to its end.
func (c *Container) Ascend() error {
	if err := c.usable(); err != nil {
		return err
	}
	if len(c.scopes) == 1 {
		return ErrOutermostScope
	}
	if c.top().write {
		return fmt.Errorf("%w: use CloseList for lists opened for writing", ErrMode)
	}

	c.off = c.top().end
	c.scopes = c.scopes[:len(c.scopes)-1]
	return nil
}

// WriteChunk appends one complete chunk at the cursor: id, little-endian
// size, data and a zero pad byte when the data length is odd.
func (c *Container) WriteChunk(id FourCC, data []byte) error {
	if err := c.usable(); err != nil {
		return err
	}
	if !c.mode.writable() {
		return fmt.Errorf("%w: write chunk (%s)", ErrMode, c.mode)
	}
	if int64(len(data)) > int64(^uint32(0)) {
		return fmt.Errorf("riff: chunk %q too large: %d bytes", id.String(), len(data))
	}

	pad := len(data) & 1
	buf := make([]byte, headerSize+len(data)+pad)
	copy(buf[0:4], id[:])
	PutUint32(buf[4:8], uint32(len(data)))
	copy(buf[headerSize:], data)

	if _, err := c.f.WriteAt(buf, c.off); err != nil {
		return c.fail("write chunk", err)
	}
	c.off += int64(len(buf))
	return nil
}

// OpenList starts a list at the cursor. The outermost list is a RIFF chunk,
// nested ones are LIST chunks. The length stays zero until CloseList.
func (c *Container) OpenList(subtype FourCC) error {
	if err := c.usable(); err != nil {
		return err
	}
	if !c.mode.writable() {
		return fmt.Errorf("%w: open list (%s)", ErrMode, c.mode)
	}

	id := IDList
	if len(c.scopes) == 1 {
		id = IDRIFF
	}

	var hdr [listHeaderSize]byte
	copy(hdr[0:4], id[:])
	copy(hdr[8:12], subtype[:])
	if _, err := c.f.WriteAt(hdr[:], c.off); err != nil {
		return c.fail("open list", err)
	}

	c.scopes = append(c.scopes, scope{start: c.off, end: unknownEnd, write: true})
	c.off += listHeaderSize
	return nil
}

// CloseList patches the length of the innermost open list and pops it.
func (c *Container) CloseList() error {
	if err := c.usable(); err != nil {
		return err
	}
	if len(c.scopes) == 1 {
		return ErrOutermostScope
	}
	s := c.top()
	if !s.write {
		return fmt.Errorf("%w: use Ascend for scopes entered with Descend", ErrMode)
	}

	var size [4]byte
	PutUint32(size[:], uint32(c.off-s.start-headerSize))
	if _, err := c.f.WriteAt(size[:], s.start+4); err != nil {
		return c.fail("close list", err)
	}

	c.scopes = c.scopes[:len(c.scopes)-1]
	return nil
}

// Write appends raw bytes at the cursor with no chunk framing. It is used to
// carry bytes over verbatim from another container.
func (c *Container) Write(p []byte) (int, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}
	if !c.mode.writable() {
		return 0, fmt.Errorf("%w: raw write (%s)", ErrMode, c.mode)
	}

	n, err := c.f.WriteAt(p, c.off)
	c.off += int64(n)
	if err != nil {
		return n, c.fail("raw write", err)
	}
	return n, nil
}

// Section returns a reader over n raw bytes starting at off.
func (c *Container) Section(off, n int64) (io.Reader, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	if !c.mode.readable() {
		return nil, fmt.Errorf("%w: raw read (%s)", ErrMode, c.mode)
	}
	return io.NewSectionReader(c.f, off, n), nil
}

// Size returns the length of the outermost scope, or -1 while writing.
func (c *Container) Size() int64 {
	return c.scopes[0].end
}

// Close releases the caller's reference. Scopes entered with Descend are
// simply dropped; lists opened for writing must have been closed first, or
// ErrUnbalanced is returned and their lengths stay unpatched.
//
// Chunks still held keep the container alive until they are released.
func (c *Container) Close() error {
	if c.released {
		return nil
	}
	c.released = true

	var unbalanced error
	for _, s := range c.scopes[1:] {
		if s.write {
			unbalanced = ErrUnbalanced
			break
		}
	}
	c.scopes = c.scopes[:1]

	return errors.Join(unbalanced, c.release())
}

func (c *Container) release() error {
	if c.refs == 0 {
		return nil
	}
	c.refs--
	if c.refs > 0 || c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// unexpected turns a short read into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

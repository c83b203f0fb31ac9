package riff

import (
	"errors"
	"io"
)

// memFile is an in-memory File that grows on write.
type memFile struct {
	buf    []byte
	closed int
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:], p)
	return len(p), nil
}

func (m *memFile) Size() int64 { return int64(len(m.buf)) }

func (m *memFile) Close() error {
	m.closed++
	return nil
}

// failingFile reports a size but fails every read.
type failingFile struct {
	size int64
}

var errDisk = errors.New("disk on fire")

func (f *failingFile) ReadAt([]byte, int64) (int, error)  { return 0, errDisk }
func (f *failingFile) WriteAt([]byte, int64) (int, error) { return 0, errDisk }
func (f *failingFile) Size() int64                        { return f.size }

// chunkBytes frames one chunk by hand, with pad byte.
func chunkBytes(id string, declared uint32, payload []byte) []byte {
	b := make([]byte, 8, 8+len(payload)+1)
	copy(b, id)
	PutUint32(b[4:], declared)
	b = append(b, payload...)
	if len(payload)&1 == 1 {
		b = append(b, 0)
	}
	return b
}

// listBytes frames a RIFF or LIST chunk around body.
func listBytes(id, subtype string, body []byte) []byte {
	payload := append([]byte(subtype), body...)
	return chunkBytes(id, uint32(len(payload)), payload)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

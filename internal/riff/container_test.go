package riff

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewFourCC(t *testing.T) {
	tests := []struct {
		in   string
		want FourCC
	}{
		{"RIFF", IDRIFF},
		{"LIST", IDList},
		{"fmt ", FourCC{'f', 'm', 't', ' '}},
		{"fmt", FourCC{'f', 'm', 't', ' '}},
		{"", FourCC{' ', ' ', ' ', ' '}},
		{"WAVEFORM", FourCC{'W', 'A', 'V', 'E'}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NewFourCC(tt.in)
			if got != tt.want {
				t.Errorf("NewFourCC(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !got.Equals(tt.in) {
				t.Errorf("%q.Equals(%q) = false", got, tt.in)
			}
		})
	}

	if NewFourCC("data").Equals("fmt ") {
		t.Error("data should not equal fmt")
	}
}

type readBack struct {
	id, typ string
	size    uint32
	payload string
}

func TestWriteReadRoundTrip(t *testing.T) {
	mf := &memFile{}
	w, err := New(mf, WriteOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	steps := []func() error{
		func() error { return w.OpenList(NewFourCC("WAVE")) },
		func() error { return w.WriteChunk(NewFourCC("fmt "), []byte("0123456789abcdef")) },
		func() error { return w.OpenList(NewFourCC("INFO")) },
		func() error { return w.WriteChunk(NewFourCC("INAM"), []byte("abc")) },
		func() error { return w.WriteChunk(NewFourCC("ICMT"), []byte("hello")) },
		func() error { return w.CloseList() },
		func() error { return w.WriteChunk(NewFourCC("data"), []byte("1234567")) },
		func() error { return w.CloseList() },
		func() error { return w.Close() },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	// 12 RIFF header + 24 fmt + (12 LIST + 12 INAM + 14 ICMT) + 16 data
	if got, want := len(mf.buf), 12+24+38+16; got != want {
		t.Fatalf("written length = %d, want %d", got, want)
	}
	if got := Uint32(mf.buf[4:8]); got != uint32(len(mf.buf)-8) {
		t.Errorf("RIFF size = %d, want %d", got, len(mf.buf)-8)
	}
	// pad bytes follow the odd payloads
	if mf.buf[36+12+8+3] != 0 {
		t.Error("missing pad byte after INAM")
	}

	r, err := New(mf, ReadOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	var got []readBack
	var walk func() error
	walk = func() error {
		for {
			ch, err := r.ReadChunk()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			rb := readBack{id: ch.ID.String(), size: ch.Size}
			if ch.ID.IsList() {
				rb.typ = ch.Type.String()
				got = append(got, rb)
				if err := r.Descend(ch); err != nil {
					return err
				}
				if err := walk(); err != nil {
					return err
				}
				if err := r.Ascend(); err != nil && !errors.Is(err, ErrOutermostScope) {
					return err
				}
			} else {
				payload, err := io.ReadAll(ch.Stream())
				if err != nil {
					return err
				}
				rb.payload = string(payload)
				got = append(got, rb)
			}
			ch.Release()
		}
	}
	if err := walk(); err != nil {
		t.Fatalf("walk: %v", err)
	}

	want := []readBack{
		{id: "RIFF", typ: "WAVE", size: uint32(len(mf.buf) - 8)},
		{id: "fmt ", size: 16, payload: "0123456789abcdef"},
		{id: "LIST", typ: "INFO", size: 38 - 8},
		{id: "INAM", size: 3, payload: "abc"},
		{id: "ICMT", size: 5, payload: "hello"},
		{id: "data", size: 7, payload: "1234567"},
	}
	if len(got) != len(want) {
		t.Fatalf("read %d chunks, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings())
	}
}

func TestReadChunkClampsOversizedChunk(t *testing.T) {
	// the "bad " chunk claims 50 bytes but its LIST only has room for 4
	inner := concat(chunkBytes("bad ", 50, nil), []byte("wxyz"))
	buf := listBytes("RIFF", "WAVE", concat(
		listBytes("LIST", "test", inner),
		chunkBytes("data", 2, []byte{0x01, 0x02}),
	))

	r, err := New(&memFile{buf: buf}, ReadOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	riffChunk := mustRead(t, r)
	if err := r.Descend(riffChunk); err != nil {
		t.Fatalf("Descend RIFF: %v", err)
	}
	list := mustRead(t, r)
	if err := r.Descend(list); err != nil {
		t.Fatalf("Descend LIST: %v", err)
	}

	bad := mustRead(t, r)
	if bad.Size != 4 {
		t.Errorf("clamped size = %d, want 4", bad.Size)
	}
	payload, _ := io.ReadAll(bad.Stream())
	if string(payload) != "wxyz" {
		t.Errorf("clamped payload = %q, want %q", payload, "wxyz")
	}

	if _, err := r.ReadChunk(); err != io.EOF {
		t.Fatalf("after clamped chunk: err = %v, want io.EOF", err)
	}
	if err := r.Ascend(); err != nil {
		t.Fatalf("Ascend: %v", err)
	}

	data := mustRead(t, r)
	if !data.ID.Equals("data") || data.Size != 2 {
		t.Errorf("next chunk = %v, want data of 2 bytes", data)
	}

	warnings := r.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "bad size") {
		t.Errorf("warnings = %v, want one bad size warning", warnings)
	}
}

func TestReadChunkTrailingJunk(t *testing.T) {
	buf := listBytes("RIFF", "WAVE", concat(
		chunkBytes("data", 2, []byte{0x01, 0x02}),
		[]byte{0xAA, 0xBB, 0xCC, 0xDD},
	))

	r, err := New(&memFile{buf: buf}, ReadOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Descend(mustRead(t, r)); err != nil {
		t.Fatalf("Descend: %v", err)
	}
	mustRead(t, r)

	if _, err := r.ReadChunk(); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	warnings := r.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "trailing junk") {
		t.Errorf("warnings = %v, want one trailing junk warning", warnings)
	}
	if warnings[0].Offset != int64(len(buf)-4) {
		t.Errorf("warning offset = %d, want %d", warnings[0].Offset, len(buf)-4)
	}
}

func TestReadChunkErrors(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{
			name:    "non-list at top level",
			buf:     chunkBytes("fmt ", 4, []byte("abcd")),
			wantErr: ErrTopLevel,
		},
		{
			name: "list header cut short",
			buf:  []byte("RIFF\x04\x00\x00\x00WA"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(&memFile{buf: tt.buf}, ReadOnly)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = r.ReadChunk()
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			var fe *FormatError
			if tt.wantErr == nil && !errors.As(err, &fe) {
				t.Errorf("err = %v, want *FormatError", err)
			}
		})
	}
}

func TestEmptyStreamIsEndOfScope(t *testing.T) {
	r, err := New(&memFile{}, ReadOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.ReadChunk(); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings())
	}
}

func TestAscendAtOutermostScope(t *testing.T) {
	r, err := New(&memFile{}, ReadOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Ascend(); !errors.Is(err, ErrOutermostScope) {
		t.Errorf("Ascend err = %v, want ErrOutermostScope", err)
	}
	if r.Depth() != 1 {
		t.Errorf("Depth = %d, want 1", r.Depth())
	}
}

func TestDescendNonList(t *testing.T) {
	buf := listBytes("RIFF", "WAVE", chunkBytes("data", 2, []byte{1, 2}))
	r, _ := New(&memFile{buf: buf}, ReadOnly)
	r.Descend(mustRead(t, r))
	data := mustRead(t, r)
	if err := r.Descend(data); !errors.Is(err, ErrNotList) {
		t.Errorf("Descend(data) err = %v, want ErrNotList", err)
	}
}

func TestChunkStreamIsIndependent(t *testing.T) {
	buf := listBytes("RIFF", "WAVE", concat(
		chunkBytes("data", 6, []byte("abcdef")),
		chunkBytes("tail", 2, []byte("zz")),
	))
	r, _ := New(&memFile{buf: buf}, ReadOnly)
	r.Descend(mustRead(t, r))
	data := mustRead(t, r)
	cursor := r.Offset()

	s := data.Stream()
	if data.Stream() != s {
		t.Fatal("Stream should return the same stream on repeated calls")
	}

	part := make([]byte, 3)
	if _, err := io.ReadFull(s, part); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(part) != "abc" {
		t.Errorf("first read = %q, want %q", part, "abc")
	}
	if r.Offset() != cursor {
		t.Errorf("container cursor moved from %d to %d", cursor, r.Offset())
	}

	tail := mustRead(t, r)
	if !tail.ID.Equals("tail") {
		t.Errorf("next chunk = %v, want tail", tail)
	}

	// the stream resumes where it left off and stops at the chunk end
	rest, _ := io.ReadAll(s)
	if string(rest) != "def" {
		t.Errorf("rest = %q, want %q", rest, "def")
	}
}

func TestChunkStreamWrite(t *testing.T) {
	buf := listBytes("RIFF", "WAVE", chunkBytes("data", 4, []byte("abcd")))

	t.Run("read-write", func(t *testing.T) {
		mf := &memFile{buf: bytes.Clone(buf)}
		r, _ := New(mf, ReadWrite)
		r.Descend(mustRead(t, r))
		data := mustRead(t, r)

		n, err := data.Stream().Write([]byte("WXYZ!"))
		if n != 4 || !errors.Is(err, io.ErrShortWrite) {
			t.Errorf("Write = (%d, %v), want (4, io.ErrShortWrite)", n, err)
		}
		if !bytes.HasSuffix(mf.buf, []byte("WXYZ")) {
			t.Errorf("payload not rewritten: %q", mf.buf)
		}
	})

	t.Run("read-only", func(t *testing.T) {
		r, _ := New(&memFile{buf: bytes.Clone(buf)}, ReadOnly)
		r.Descend(mustRead(t, r))
		data := mustRead(t, r)
		if _, err := data.Stream().Write([]byte("x")); !errors.Is(err, ErrMode) {
			t.Errorf("Write err = %v, want ErrMode", err)
		}
	})
}

func TestChunkKeepsContainerAlive(t *testing.T) {
	mf := &memFile{buf: listBytes("RIFF", "WAVE", chunkBytes("data", 4, []byte("abcd")))}
	r, err := New(mf, ReadOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.closer = mf

	riffChunk := mustRead(t, r)
	r.Descend(riffChunk)
	riffChunk.Release()
	data := mustRead(t, r)

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if mf.closed != 0 {
		t.Fatal("file closed while a chunk still holds the container")
	}
	if _, err := r.ReadChunk(); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadChunk after Close err = %v, want ErrClosed", err)
	}

	payload, err := io.ReadAll(data.Stream())
	if err != nil || string(payload) != "abcd" {
		t.Errorf("stream after Close = (%q, %v), want abcd", payload, err)
	}

	data.Release()
	data.Release()
	if mf.closed != 1 {
		t.Errorf("file closed %d times, want 1", mf.closed)
	}
	if _, err := data.Stream().Read(make([]byte, 1)); err == nil {
		t.Error("stream read after release should fail")
	}
}

func TestIOFailureClosesContainer(t *testing.T) {
	r, err := New(&failingFile{size: 64}, ReadOnly)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = r.ReadChunk()
	if !errors.Is(err, errDisk) {
		t.Fatalf("first ReadChunk err = %v, want errDisk", err)
	}
	_, err = r.ReadChunk()
	if !errors.Is(err, ErrClosed) || !errors.Is(err, errDisk) {
		t.Errorf("second ReadChunk err = %v, want ErrClosed wrapping errDisk", err)
	}
	if err := r.Ascend(); !errors.Is(err, ErrClosed) {
		t.Errorf("Ascend err = %v, want ErrClosed", err)
	}
}

func TestCloseWithOpenList(t *testing.T) {
	w, _ := New(&memFile{}, WriteOnly)
	if err := w.OpenList(NewFourCC("WAVE")); err != nil {
		t.Fatalf("OpenList: %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrUnbalanced) {
		t.Errorf("Close err = %v, want ErrUnbalanced", err)
	}
}

func TestModeChecks(t *testing.T) {
	w, _ := New(&memFile{}, WriteOnly)
	if _, err := w.ReadChunk(); !errors.Is(err, ErrMode) {
		t.Errorf("ReadChunk in write mode err = %v, want ErrMode", err)
	}

	r, _ := New(&memFile{}, ReadOnly)
	if err := r.WriteChunk(NewFourCC("data"), nil); !errors.Is(err, ErrMode) {
		t.Errorf("WriteChunk in read mode err = %v, want ErrMode", err)
	}
	if err := r.OpenList(NewFourCC("WAVE")); !errors.Is(err, ErrMode) {
		t.Errorf("OpenList in read mode err = %v, want ErrMode", err)
	}

	if _, err := New(&memFile{}, Mode(8)); err == nil {
		t.Error("New with a bad mode should fail")
	}
}

func TestRawWriteCopiesVerbatim(t *testing.T) {
	src := listBytes("RIFF", "WAVE", chunkBytes("data", 3, []byte("xyz")))
	r, _ := New(&memFile{buf: src}, ReadOnly)
	section, err := r.Section(0, int64(len(src)))
	if err != nil {
		t.Fatalf("Section: %v", err)
	}

	dst := &memFile{}
	w, _ := New(dst, WriteOnly)
	if _, err := io.Copy(w, section); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !bytes.Equal(dst.buf, src) {
		t.Errorf("copy = %q, want %q", dst.buf, src)
	}
	if w.Offset() != int64(len(src)) {
		t.Errorf("cursor = %d, want %d", w.Offset(), len(src))
	}
}

func mustRead(t *testing.T, r *Container) *Chunk {
	t.Helper()
	ch, err := r.ReadChunk()
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	return ch
}

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/linuxmatters/normalize/internal/riff"
)

// FormatPCM is the only format tag accepted: uncompressed linear PCM.
const FormatPCM = 1

// FormatSize is the length of the on-disk format record.
const FormatSize = 16

// MaxBitsPerSample is the widest sample supported.
const MaxBitsPerSample = 32

var (
	ErrNotWAVE  = errors.New("not a RIFF WAVE file")
	ErrNoFormat = errors.New("no format chunk found")
	ErrNoData   = errors.New("no data chunk found")
)

// UnsupportedFormatError reports a format record that cannot be processed.
type UnsupportedFormatError struct {
	Tag    uint16
	Bits   uint16
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format (tag %d, %d bits): %s", e.Tag, e.Bits, e.Reason)
}

// Format is the WAV format record.
type Format struct {
	FormatTag      uint16
	Channels       uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
}

// NewPCMFormat returns a consistent PCM format record.
func NewPCMFormat(sampleRate, channels, bits int) Format {
	f := Format{
		FormatTag:     FormatPCM,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		BitsPerSample: uint16(bits),
	}
	f.BlockAlign = uint16(f.FrameSize())
	f.AvgBytesPerSec = f.SampleRate * uint32(f.BlockAlign)
	return f
}

// DefaultStreamFormat is assumed for raw sample streams such as stdin:
// 16-bit stereo at 44.1kHz.
func DefaultStreamFormat() Format {
	return NewPCMFormat(44100, 2, 16)
}

// ParseFormat decodes a little-endian format record.
func ParseFormat(b []byte) (Format, error) {
	if len(b) < FormatSize {
		return Format{}, fmt.Errorf("format record too short: %d bytes", len(b))
	}
	return Format{
		FormatTag:      riff.Uint16(b[0:2]),
		Channels:       riff.Uint16(b[2:4]),
		SampleRate:     riff.Uint32(b[4:8]),
		AvgBytesPerSec: riff.Uint32(b[8:12]),
		BlockAlign:     riff.Uint16(b[12:14]),
		BitsPerSample:  riff.Uint16(b[14:16]),
	}, nil
}

// Bytes encodes the record in its on-disk little-endian form.
func (f Format) Bytes() []byte {
	b := make([]byte, FormatSize)
	riff.PutUint16(b[0:2], f.FormatTag)
	riff.PutUint16(b[2:4], f.Channels)
	riff.PutUint32(b[4:8], f.SampleRate)
	riff.PutUint32(b[8:12], f.AvgBytesPerSec)
	riff.PutUint16(b[12:14], f.BlockAlign)
	riff.PutUint16(b[14:16], f.BitsPerSample)
	return b
}

// Validate rejects anything other than 1 to 32 bit PCM with at least one channel.
func (f Format) Validate() error {
	switch {
	case f.FormatTag != FormatPCM:
		return &UnsupportedFormatError{Tag: f.FormatTag, Bits: f.BitsPerSample, Reason: "not linear PCM"}
	case f.BitsPerSample == 0 || f.BitsPerSample > MaxBitsPerSample:
		return &UnsupportedFormatError{Tag: f.FormatTag, Bits: f.BitsPerSample, Reason: "bad sample depth"}
	case f.Channels == 0:
		return &UnsupportedFormatError{Tag: f.FormatTag, Bits: f.BitsPerSample, Reason: "no channels"}
	}
	return nil
}

// BytesPerSample returns the storage width of one sample.
func (f Format) BytesPerSample() int {
	return (int(f.BitsPerSample)-1)/8 + 1
}

// FrameSize returns the bytes in one interleaved frame.
func (f Format) FrameSize() int {
	return f.BytesPerSample() * int(f.Channels)
}

// FullScale returns the most negative and most positive sample values for
// the storage width.
func (f Format) FullScale() (min, max int64) {
	return FullScale(f.BytesPerSample())
}

func (f Format) String() string {
	return fmt.Sprintf("PCM %d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.BitsPerSample)
}

// LocateWAVData finds the format record and data chunk of a WAVE container.
// The container is left inside the RIFF scope, positioned after the data
// chunk header; the data payload is not consumed. The caller must Release
// the returned chunk.
func LocateWAVData(c *riff.Container) (Format, *riff.Chunk, error) {
	top, err := c.ReadChunk()
	if err == io.EOF {
		return Format{}, nil, ErrNotWAVE
	}
	if err != nil {
		return Format{}, nil, err
	}
	defer top.Release()
	if top.ID != riff.IDRIFF || !top.Type.Equals("WAVE") {
		return Format{}, nil, fmt.Errorf("%w: found %s", ErrNotWAVE, top)
	}
	if err := c.Descend(top); err != nil {
		return Format{}, nil, err
	}

	fmtChunk, err := c.ReadChunk()
	if err == io.EOF {
		return Format{}, nil, ErrNoFormat
	}
	if err != nil {
		return Format{}, nil, err
	}
	format, err := readFormat(fmtChunk)
	fmtChunk.Release()
	if err != nil {
		return Format{}, nil, err
	}
	if err := format.Validate(); err != nil {
		return Format{}, nil, err
	}

	for {
		ch, err := c.ReadChunk()
		if err == io.EOF {
			return Format{}, nil, ErrNoData
		}
		if err != nil {
			return Format{}, nil, err
		}
		if ch.ID.Equals("data") {
			return format, ch, nil
		}
		ch.Release()
	}
}

func readFormat(ch *riff.Chunk) (Format, error) {
	if !ch.ID.Equals("fmt ") {
		return Format{}, fmt.Errorf("%w: first chunk is %q", ErrNoFormat, ch.ID.String())
	}
	if ch.Size < FormatSize {
		return Format{}, fmt.Errorf("%w: format chunk is %d bytes", ErrNoFormat, ch.Size)
	}
	buf := make([]byte, FormatSize)
	if _, err := io.ReadFull(ch.Stream(), buf); err != nil {
		return Format{}, fmt.Errorf("failed to read format chunk: %w", err)
	}
	return ParseFormat(buf)
}

// WriteWAV writes a complete WAVE container holding format and the given
// interleaved sample bytes.
func WriteWAV(c *riff.Container, format Format, data []byte) error {
	if err := c.OpenList(riff.NewFourCC("WAVE")); err != nil {
		return err
	}
	if err := c.WriteChunk(riff.NewFourCC("fmt "), format.Bytes()); err != nil {
		return err
	}
	if err := c.WriteChunk(riff.NewFourCC("data"), data); err != nil {
		return err
	}
	return c.CloseList()
}

package audio

import (
	"errors"
	"fmt"
	"io"
)

// FullScale returns the signed range of a sample stored in width bytes.
// The negative limit has one more step of magnitude than the positive one.
func FullScale(width int) (min, max int64) {
	max = int64(1)<<(8*width-1) - 1
	return -max - 1, max
}

// DecodeSample reads one sample of width bytes. One-byte samples are
// unsigned with a bias of 128; wider samples are signed little-endian.
func DecodeSample(b []byte, width int) int64 {
	switch width {
	case 1:
		return int64(b[0]) - 128
	case 2:
		return int64(int16(uint16(b[0]) | uint16(b[1])<<8))
	case 3:
		v := int32(uint32(b[0])<<8 | uint32(b[1])<<16 | uint32(b[2])<<24)
		return int64(v >> 8)
	case 4:
		return int64(int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24))
	}
	panic(fmt.Sprintf("audio: bad sample width %d", width))
}

// EncodeSample writes v as a sample of width bytes. v must be in range.
func EncodeSample(b []byte, width int, v int64) {
	switch width {
	case 1:
		b[0] = byte(v + 128)
	case 2:
		b[0] = byte(v)
		b[1] = byte(v >> 8)
	case 3:
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
	case 4:
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
		b[3] = byte(v >> 24)
	default:
		panic(fmt.Sprintf("audio: bad sample width %d", width))
	}
}

// SampleReader decodes interleaved frames from a raw PCM byte stream.
type SampleReader struct {
	r      io.Reader
	format Format
	width  int
	buf    []byte
}

// NewSampleReader reads samples of format f from r.
func NewSampleReader(r io.Reader, f Format) *SampleReader {
	return &SampleReader{
		r:      r,
		format: f,
		width:  f.BytesPerSample(),
	}
}

// Format returns the sample format being decoded.
func (s *SampleReader) Format() Format { return s.format }

// ReadFrames fills dst with whole interleaved frames and returns the number
// of frames read. A trailing partial frame at the end of the stream is
// dropped. It returns io.EOF once no complete frame is left.
func (s *SampleReader) ReadFrames(dst []int64) (int, error) {
	channels := int(s.format.Channels)
	frames := len(dst) / channels
	if frames == 0 {
		return 0, errors.New("audio: buffer smaller than one frame")
	}

	need := frames * channels * s.width
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, err
	}

	got := n / (channels * s.width)
	if got == 0 {
		return 0, io.EOF
	}
	for i := 0; i < got*channels; i++ {
		dst[i] = DecodeSample(buf[i*s.width:], s.width)
	}
	return got, nil
}

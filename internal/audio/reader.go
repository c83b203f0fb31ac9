// Package audio locates and decodes PCM sample data in WAV files
package audio

import (
	"fmt"

	"github.com/linuxmatters/normalize/internal/riff"
)

// Reader reads the sample data of an opened WAV file
type Reader struct {
	*SampleReader

	container *riff.Container
	data      *riff.Chunk
}

// Metadata contains audio file metadata
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitDepth   int
	DataSize   int64 // bytes of sample data
	Frames     int64
}

// NewMetadata describes a data region of dataSize bytes in format f.
func NewMetadata(f Format, dataSize int64) *Metadata {
	frames := dataSize / int64(f.FrameSize())
	return &Metadata{
		Duration:   float64(frames) / float64(f.SampleRate),
		SampleRate: int(f.SampleRate),
		Channels:   int(f.Channels),
		BitDepth:   int(f.BitsPerSample),
		DataSize:   dataSize,
		Frames:     frames,
	}
}

// OpenAudioFile opens a WAV file for reading
func OpenAudioFile(filename string, opts ...riff.Option) (*Reader, *Metadata, error) {
	c, err := riff.OpenFile(filename, riff.ReadOnly, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}

	reader, err := NewReader(c)
	// the reader's data chunk now holds the container
	c.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}

	return reader, NewMetadata(reader.Format(), int64(reader.data.Size)), nil
}

// NewReader locates the sample data in c. The reader holds its own
// reference to c; the caller may Close c independently.
func NewReader(c *riff.Container) (*Reader, error) {
	format, data, err := LocateWAVData(c)
	if err != nil {
		return nil, err
	}
	if format.SampleRate == 0 {
		data.Release()
		return nil, &UnsupportedFormatError{Tag: format.FormatTag, Bits: format.BitsPerSample, Reason: "zero sample rate"}
	}

	return &Reader{
		SampleReader: NewSampleReader(data.Stream(), format),
		container:    c,
		data:         data,
	}, nil
}

// Data returns the data chunk being read
func (r *Reader) Data() *riff.Chunk {
	return r.data
}

// Container returns the container holding the data chunk
func (r *Reader) Container() *riff.Container {
	return r.container
}

// Samples returns the number of samples (all channels) in the data chunk
func (r *Reader) Samples() int64 {
	return int64(r.data.Size) / int64(r.Format().BytesPerSample())
}

// Close releases the data chunk and with it the container
func (r *Reader) Close() error {
	return r.data.Release()
}

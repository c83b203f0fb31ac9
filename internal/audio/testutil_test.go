package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/normalize/internal/riff"
)

// encodeSamples packs interleaved samples at the format's storage width.
func encodeSamples(f Format, samples []int64) []byte {
	width := f.BytesPerSample()
	data := make([]byte, len(samples)*width)
	for i, s := range samples {
		EncodeSample(data[i*width:], width, s)
	}
	return data
}

// writeTestWAV writes a WAV built with the riff writer and returns its path.
func writeTestWAV(t *testing.T, f Format, samples []int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	c, err := riff.OpenFile(path, riff.WriteOnly)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	if err := WriteWAV(c, f, encodeSamples(f, samples)); err != nil {
		t.Fatalf("failed to write WAV: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close WAV: %v", err)
	}
	return path
}

// writeRawFile writes hand-framed bytes and returns the path.
func writeRawFile(t *testing.T, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.wav")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// frame builds one chunk with its pad byte.
func frame(id string, payload []byte) []byte {
	b := make([]byte, 8, 8+len(payload)+1)
	copy(b, id)
	riff.PutUint32(b[4:], uint32(len(payload)))
	b = append(b, payload...)
	if len(payload)&1 == 1 {
		b = append(b, 0)
	}
	return b
}

func riffWave(subtype string, chunks ...[]byte) []byte {
	body := []byte(subtype)
	for _, c := range chunks {
		body = append(body, c...)
	}
	return frame("RIFF", body)
}

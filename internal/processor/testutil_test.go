package processor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/linuxmatters/normalize/internal/audio"
	"github.com/linuxmatters/normalize/internal/riff"
	"github.com/linuxmatters/normalize/internal/tone"
)

// TestAudioOptions configures the synthetic audio to generate
type TestAudioOptions struct {
	Name         string  // file name inside the test's temp dir (default: test.wav)
	DurationSecs float64 // Total duration in seconds (default: 2)
	SampleRate   int     // Sample rate (default: 44100)
	Channels     int     // Channel count (default: 1)
	BitDepth     int     // Bits per sample (default: 16)
	ToneFreq     float64 // Sine frequency in Hz (default: 1000)
	ToneAmp      float64 // RMS amplitude as a fraction of full scale (0 = silence)

	// Trailer, when set, is written as a "note" chunk after the data chunk
	Trailer []byte
}

func (o *TestAudioOptions) defaults() {
	if o.Name == "" {
		o.Name = "test.wav"
	}
	if o.DurationSecs == 0 {
		o.DurationSecs = 2
	}
	if o.SampleRate == 0 {
		o.SampleRate = 44100
	}
	if o.Channels == 0 {
		o.Channels = 1
	}
	if o.BitDepth == 0 {
		o.BitDepth = 16
	}
	if o.ToneFreq == 0 {
		o.ToneFreq = 1000
	}
}

func (o TestAudioOptions) format() audio.Format {
	return audio.NewPCMFormat(o.SampleRate, o.Channels, o.BitDepth)
}

// generateTestAudio writes a sine WAV into dir and returns its path.
func generateTestAudio(t *testing.T, dir string, opts TestAudioOptions) string {
	t.Helper()
	opts.defaults()

	format := opts.format()
	frames := int(opts.DurationSecs * float64(opts.SampleRate))
	data := tone.Signal{Amplitude: opts.ToneAmp, Frequency: opts.ToneFreq}.Render(format, frames)

	path := filepath.Join(dir, opts.Name)
	writeWAV(t, path, format, data, opts.Trailer)
	return path
}

// writeWAV writes a WAV holding raw sample bytes and an optional trailing chunk.
func writeWAV(t *testing.T, path string, format audio.Format, data, trailer []byte) {
	t.Helper()

	c, err := riff.OpenFile(path, riff.WriteOnly)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer c.Close()

	steps := []func() error{
		func() error { return c.OpenList(riff.NewFourCC("WAVE")) },
		func() error { return c.WriteChunk(riff.NewFourCC("fmt "), format.Bytes()) },
		func() error { return c.WriteChunk(riff.NewFourCC("data"), data) },
		func() error {
			if trailer == nil {
				return nil
			}
			return c.WriteChunk(riff.NewFourCC("note"), trailer)
		},
		c.CloseList,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

// encodeSamples packs interleaved samples at the format's storage width.
func encodeSamples(f audio.Format, samples []int64) []byte {
	width := f.BytesPerSample()
	data := make([]byte, len(samples)*width)
	for i, s := range samples {
		audio.EncodeSample(data[i*width:], width, s)
	}
	return data
}

// readSamples decodes every sample of the WAV at path.
func readSamples(t *testing.T, path string) []int64 {
	t.Helper()

	r, meta, err := audio.OpenAudioFile(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer r.Close()

	buf := make([]int64, meta.Frames*int64(meta.Channels))
	if len(buf) == 0 {
		return nil
	}
	n, err := r.ReadFrames(buf)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return buf[:n*meta.Channels]
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return b
}

// recorder is an Observer keeping every event
type recorder struct {
	mu       sync.Mutex
	phases   []Phase
	done     map[Phase][]*FileResult
	progress map[string][]float64
}

func newRecorder() *recorder {
	return &recorder{done: map[Phase][]*FileResult{}, progress: map[string][]float64{}}
}

func (r *recorder) PhaseStart(p Phase, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *recorder) FileStart(Phase, int, string) {}

func (r *recorder) Progress(_ int, label string, f float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[label] = append(r.progress[label], f)
}

func (r *recorder) FileDone(p Phase, _ int, res *FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done[p] = append(r.done[p], res)
}

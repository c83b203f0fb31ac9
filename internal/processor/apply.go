package processor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/linuxmatters/normalize/internal/audio"
	"github.com/linuxmatters/normalize/internal/riff"
)

// gainBufferFrames bounds the frames held in memory while applying gain
const gainBufferFrames = 4096

// GainOptions configures ApplyGain
type GainOptions struct {
	Compression       bool
	Info              *SignalInfo // measured extremes of the source, may be nil
	ClipWarnThreshold float64
	Label             string
	Progress          ProgressFunc
	Logger            *log.Logger
}

// GainResult reports what ApplyGain did
type GainResult struct {
	Gain    float64
	Mode    GainMode
	Samples int64
	Clipped int64
	Loss    float64 // clipped fraction of all samples
}

// ApplyGain copies the WAV in src to dst with every sample scaled by gain.
// Bytes before and after the sample data are copied verbatim. dst must be
// a fresh writable container positioned at the start of its stream.
func ApplyGain(src, dst *riff.Container, gain float64, opts GainOptions) (*GainResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger
	}

	format, data, err := audio.LocateWAVData(src)
	if err != nil {
		return nil, err
	}
	defer data.Release()

	width := format.BytesPerSample()
	sampleMin, sampleMax := format.FullScale()
	mode := ChooseGainMode(gain, opts.Compression, opts.Info, sampleMin, sampleMax)
	logger.Debug("applying gain", "file", opts.Label, "gain", gain, "mode", mode, "format", format)

	// header, including the data chunk's own id and size
	if err := copyRaw(dst, src, 0, data.PayloadOffset()); err != nil {
		return nil, fmt.Errorf("failed to copy header: %w", err)
	}

	result := &GainResult{
		Gain:    gain,
		Mode:    mode,
		Samples: int64(data.Size) / int64(width),
	}

	var table *GainTable
	if useTable(width) {
		table = NewGainTable(width, gain, mode)
	}
	curve := gainCurve{gain: gain, mode: mode, min: sampleMin, max: sampleMax}

	gate := newProgressGate(opts.Progress, opts.Label)
	in := data.Stream()
	buf := make([]byte, gainBufferFrames*format.FrameSize())
	var done int64

	for {
		n, err := io.ReadFull(in, buf)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("failed to read samples: %w", err)
		}

		whole := n / width
		for i := 0; i < whole; i++ {
			b := buf[i*width:]
			sample := audio.DecodeSample(b, width)

			var out int64
			var clipped bool
			if table != nil {
				out, clipped = table.Lookup(sample)
			} else {
				out, clipped = curve.apply(sample)
			}
			if clipped {
				result.Clipped++
			}
			audio.EncodeSample(b, width, out)
		}

		// a trailing partial sample passes through untouched
		if _, err := dst.Write(buf[:n]); err != nil {
			return nil, fmt.Errorf("failed to write samples: %w", err)
		}

		done += int64(whole)
		if result.Samples > 0 {
			gate.update(float64(done) / float64(result.Samples))
		}
		if n < len(buf) {
			break
		}
	}
	gate.done()

	// pad byte and any chunks after the data
	if tail := src.Size() - data.End(); tail > 0 {
		if err := copyRaw(dst, src, data.End(), tail); err != nil {
			return nil, fmt.Errorf("failed to copy trailing chunks: %w", err)
		}
	}

	if result.Samples > 0 {
		result.Loss = float64(result.Clipped) / float64(result.Samples)
	}
	if mode == GainClip && result.Loss > opts.ClipWarnThreshold {
		logger.Warn("clipped samples",
			"file", opts.Label,
			"clipped", result.Clipped,
			"loss", fmt.Sprintf("%.4f%%", result.Loss*100))
	}

	return result, nil
}

func copyRaw(dst, src *riff.Container, off, n int64) error {
	section, err := src.Section(off, n)
	if err != nil {
		return err
	}
	_, err = io.CopyN(dst, section, n)
	return err
}

// ApplyGainFile rewrites the WAV file at path with gain applied. The new
// content goes to a temp file in the same directory, which then replaces
// the original, so a failure leaves the original untouched.
func ApplyGainFile(path string, gain float64, info *SignalInfo, cfg *Config, progress ProgressFunc) (*GainResult, error) {
	logger := cfg.logger()

	src, err := riff.OpenFile(path, riff.ReadOnly, riff.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+tempMarker+"*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	// preserve original permissions
	if err := tempFile.Chmod(st.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}

	dst, err := riff.New(tempFile, riff.WriteOnly)
	if err != nil {
		return nil, err
	}

	result, err := ApplyGain(src, dst, gain, GainOptions{
		Compression:       cfg.Compression,
		Info:              info,
		ClipWarnThreshold: cfg.ClipWarnThreshold,
		Label:             path,
		Progress:          progress,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	if err := dst.Close(); err != nil {
		return nil, err
	}

	if err := tempFile.Sync(); err != nil {
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if cfg.BackupSuffix != "" {
		if err := os.Rename(path, path+cfg.BackupSuffix); err != nil {
			return nil, fmt.Errorf("create backup: %w", err)
		}
	}

	if err := os.Rename(tempPath, path); err != nil {
		return nil, errors.Join(fmt.Errorf("rename temp to output: %w", err), restoreBackup(path, cfg.BackupSuffix))
	}
	success = true

	return result, nil
}

const tempMarker = ".norm"

// IsTempFile reports whether name looks like a temp file written by
// ApplyGainFile.
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && strings.Contains(base, tempMarker)
}

func restoreBackup(path, suffix string) error {
	if suffix == "" {
		return nil
	}
	return os.Rename(path+suffix, path)
}

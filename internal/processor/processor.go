// Package processor measures and adjusts the loudness of WAV files
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/linuxmatters/normalize/internal/riff"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// StdinPath is the file name that selects standard input
const StdinPath = "-"

// StdinLabel names standard input in results and reports
const StdinLabel = "STDIN"

// ErrNoFiles is returned when none of the given paths can be read
var ErrNoFiles = errors.New("no files")

// Phase identifies the pass a normalization run is in
type Phase int

const (
	PhaseAnalyze Phase = iota
	PhaseApply
)

func (p Phase) String() string {
	if p == PhaseApply {
		return "Applying"
	}
	return "Analyzing"
}

// Observer follows a run. Files are identified by their index in the
// phase's paths, since the same path may be given twice. With Config.Jobs
// above 1, analysis callbacks arrive from several goroutines and progress
// order across files is best-effort.
type Observer interface {
	PhaseStart(phase Phase, paths []string)
	FileStart(phase Phase, index int, path string)
	Progress(index int, label string, fraction float64)
	FileDone(phase Phase, index int, result *FileResult)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) PhaseStart(Phase, []string)       {}
func (NopObserver) FileStart(Phase, int, string)     {}
func (NopObserver) Progress(int, string, float64)    {}
func (NopObserver) FileDone(Phase, int, *FileResult) {}

// FileResult tracks one input through a run
type FileResult struct {
	Path    string // as given, or StdinLabel
	Info    *SignalInfo
	Gain    float64
	Skipped bool // adjustment too small to apply
	Applied *GainResult
	Err     error

	stdin bool
}

// GainDB returns the file's gain in decibels
func (r *FileResult) GainDB() float64 { return LinearToDb(r.Gain) }

// IsStdin reports whether the result was read from standard input
func (r *FileResult) IsStdin() bool { return r.stdin }

// Summary is the outcome of a run
type Summary struct {
	Mode      Mode
	PrintOnly bool // includes runs forced to print-only by stdin

	// Files holds the inputs that were measured successfully, in input order
	Files []*FileResult
	// Rejected holds unreadable, malformed and silent inputs
	Rejected []*FileResult

	// Batch and AverageLevel are set in batch and mix modes
	Batch        *BatchLevel
	AverageLevel float64

	// Gain is the batch-wide gain in batch mode
	Gain              float64
	AlreadyNormalized bool

	Changed int
}

// ExitCode follows the original tool: 2 when files could have been
// adjusted but none were.
func (s *Summary) ExitCode() int {
	if s.Changed == 0 && !s.PrintOnly {
		return 2
	}
	return 0
}

// Normalizer runs the measure, aggregate and apply passes over a set of files
type Normalizer struct {
	Config   *Config
	Observer Observer
	Stdin    io.Reader
}

// NewNormalizer returns a Normalizer reading "-" from os.Stdin
func NewNormalizer(cfg *Config, obs Observer) *Normalizer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Normalizer{Config: cfg, Observer: obs, Stdin: os.Stdin}
}

// Run normalizes paths. Per-file failures are recorded in the summary and
// do not stop the run; ErrNoFiles and ErrAllRejected do.
func (n *Normalizer) Run(ctx context.Context, paths []string) (*Summary, error) {
	cfg := n.Config
	logger := cfg.logger()

	summary := &Summary{
		Mode:      cfg.Mode,
		PrintOnly: cfg.PrintOnly,
		Gain:      1.0,
	}
	if cfg.GainSet {
		summary.Mode = ModeBatch
	}

	var inputs []*FileResult
	for _, path := range paths {
		if path == StdinPath {
			if !summary.PrintOnly {
				logger.Warn("stdin specified on command line, not adjusting files")
				summary.PrintOnly = true
			}
			inputs = append(inputs, &FileResult{Path: StdinLabel, stdin: true})
			continue
		}
		if _, err := os.Stat(path); err != nil {
			logger.Error("cannot read file", "file", path, "err", err)
			continue
		}
		inputs = append(inputs, &FileResult{Path: path})
	}
	if len(inputs) == 0 {
		return nil, ErrNoFiles
	}

	if cfg.GainSet {
		// explicit gain: nothing to measure
		summary.Files = inputs
		summary.Gain = cfg.Gain
	} else {
		if err := n.computeLevels(ctx, inputs); err != nil {
			return nil, err
		}
		for _, r := range inputs {
			if r.Err == nil && r.Info.Valid() {
				summary.Files = append(summary.Files, r)
				continue
			}
			if r.Err == nil {
				r.Err = errZeroPower
				logger.Warn("file has zero power, ignoring", "file", r.Path)
			} else {
				logger.Error("error reading file", "file", r.Path, "err", r.Err)
			}
			summary.Rejected = append(summary.Rejected, r)
		}

		if err := n.decideGains(summary); err != nil {
			return summary, err
		}
	}

	if summary.PrintOnly {
		return summary, nil
	}
	return summary, n.applyGains(ctx, summary)
}

var errZeroPower = errors.New("zero power")

// computeLevels measures every input, up to Config.Jobs at a time. Results
// stay in input order.
func (n *Normalizer) computeLevels(ctx context.Context, inputs []*FileResult) error {
	labels := make([]string, len(inputs))
	for i, r := range inputs {
		labels[i] = r.Path
	}
	n.Observer.PhaseStart(PhaseAnalyze, labels)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, n.Config.Jobs))

	for i, r := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n.Observer.FileStart(PhaseAnalyze, i, r.Path)
			r.Info, r.Err = n.measure(i, r)
			if r.Err == nil && r.Info.Valid() {
				n.Config.logger().Info("level",
					"file", r.Path,
					"level", fmt.Sprintf("%.4fdBFS", LinearToDb(r.Info.Level)),
					"peak", fmt.Sprintf("%.4fdBFS", LinearToDb(r.Info.Peak)))
			}
			n.Observer.FileDone(PhaseAnalyze, i, r)
			return nil
		})
	}

	return g.Wait()
}

func (n *Normalizer) measure(index int, r *FileResult) (*SignalInfo, error) {
	if r.stdin {
		if n.Stdin == nil {
			return nil, errors.New("no standard input")
		}
		return AnalyzeStream(n.Stdin, n.Config.StreamFormat)
	}
	return AnalyzeFile(r.Path, n.progressFor(index), riff.WithLogger(n.Config.logger()))
}

// progressFor forwards progress for file index to the observer
func (n *Normalizer) progressFor(index int) ProgressFunc {
	return func(label string, fraction float64) {
		n.Observer.Progress(index, label, fraction)
	}
}

// decideGains aggregates levels in batch and mix modes and works out the
// gain for every measured file.
func (n *Normalizer) decideGains(s *Summary) error {
	cfg := n.Config
	logger := cfg.logger()
	target := cfg.Target

	if cfg.Mode == ModeBatch || cfg.Mode == ModeMix {
		levels := make([]float64, len(s.Files))
		for i, r := range s.Files {
			levels[i] = r.Info.Level
		}
		if len(levels) == 0 {
			return ErrAllRejected
		}

		batch, err := AverageLevels(levels, cfg.Threshold)
		if batch != nil {
			for i, outlier := range batch.Outliers {
				if outlier {
					logger.Info("throwing out level",
						"file", s.Files[i].Path,
						"level", fmt.Sprintf("%.4fdBFS", LinearToDb(levels[i])),
						"difference", fmt.Sprintf("%.2fdB", math.Abs(LinearToDb(levels[i]/stat.Mean(levels, nil)))))
				}
			}
		}
		if err != nil {
			return err
		}

		s.Batch = batch
		s.AverageLevel = batch.Level
		logger.Info("average level", "level", fmt.Sprintf("%.4fdBFS", LinearToDb(batch.Level)), "threshold", fmt.Sprintf("%.2fdB", batch.Threshold))

		if cfg.Mode == ModeMix {
			target = batch.Level
		} else {
			s.Gain = target / batch.Level
		}
	}

	for _, r := range s.Files {
		switch {
		case cfg.Mode == ModeBatch:
			r.Gain = s.Gain
		case cfg.Peak:
			r.Gain = 1.0 / r.Info.Peak
		default:
			r.Gain = target / r.Info.Level
		}
	}

	if cfg.Mode == ModeBatch && math.Abs(LinearToDb(s.Gain)) < SkipThresholdDB {
		s.AlreadyNormalized = true
	}
	return nil
}

// applyGains rewrites every file whose adjustment is large enough. An
// explicit gain is always applied.
func (n *Normalizer) applyGains(ctx context.Context, s *Summary) error {
	cfg := n.Config
	logger := cfg.logger()

	if s.AlreadyNormalized {
		logger.Info("files are already normalized, not adjusting")
		for _, r := range s.Files {
			r.Skipped = true
		}
		return nil
	}

	labels := make([]string, len(s.Files))
	for i, r := range s.Files {
		labels[i] = r.Path
	}
	n.Observer.PhaseStart(PhaseApply, labels)

	for i, r := range s.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.GainSet {
			r.Gain = cfg.Gain
		}

		n.Observer.FileStart(PhaseApply, i, r.Path)
		if !cfg.GainSet && math.Abs(r.GainDB()) < SkipThresholdDB {
			logger.Info("already normalized, not adjusting", "file", r.Path)
			r.Skipped = true
			n.Observer.FileDone(PhaseApply, i, r)
			continue
		}

		logger.Info("applying adjustment", "file", r.Path, "gain", fmt.Sprintf("%.2fdB", r.GainDB()))
		r.Applied, r.Err = ApplyGainFile(r.Path, r.Gain, r.Info, cfg, n.progressFor(i))
		if r.Err != nil {
			logger.Error("error applying adjustment", "file", r.Path, "err", r.Err)
		} else {
			s.Changed++
		}
		n.Observer.FileDone(PhaseApply, i, r)
	}

	return nil
}

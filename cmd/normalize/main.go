package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/linuxmatters/normalize/internal/audio"
	"github.com/linuxmatters/normalize/internal/cli"
	"github.com/linuxmatters/normalize/internal/config"
	"github.com/linuxmatters/normalize/internal/logging"
	"github.com/linuxmatters/normalize/internal/processor"
	"github.com/linuxmatters/normalize/internal/ui"
	"github.com/linuxmatters/normalize/internal/watch"
	"github.com/mattn/go-isatty"
)

var (
	version = "0.0.1"
)

const description = "Adjust the volume of WAV files to a standard level"

// CLI defines the command-line interface
type CLI struct {
	Amplitude   cli.Amplitude   `short:"a" placeholder:"AMP" help:"Normalize to RMS amplitude AMP, a fraction of full scale or dBFS (default -12dBFS)"`
	NoAdjust    bool            `short:"n" help:"Compute and print the volume adjustment, but don't apply it"`
	Gain        cli.Gain        `short:"g" placeholder:"ADJ" help:"Apply the adjustment ADJ without computing levels, a factor or dB. Implies --batch"`
	Batch       bool            `short:"b" help:"Batch mode: one adjustment, from the average level, for all files"`
	Mix         bool            `short:"m" help:"Mix mode: adjust each file to the average level of all files"`
	Threshold   float64         `short:"t" placeholder:"THR" default:"-1" help:"Ignore files whose level is more than THR dB from the average in batch and mix modes. Negative means two standard deviations"`
	Compression bool            `short:"c" help:"Compress loud samples instead of clipping them"`
	Clipping    bool            `help:"Clip loud samples (default)"`
	Peak        bool            `help:"Adjust each file so its loudest sample is at full scale"`
	Fractions   bool            `help:"Print levels as fractions of full scale instead of dBFS"`
	Verbose     int             `short:"v" type:"counter" help:"Increase verbosity (repeat for debug output)"`
	Quiet       bool            `short:"q" help:"Only print errors"`
	Version     bool            `short:"V" help:"Show version information"`
	Jobs        int             `default:"1" placeholder:"N" help:"Measure up to N files at once"`
	Logs        bool            `help:"Write a report next to each file"`
	Watch       string          `type:"existingdir" placeholder:"DIR" help:"Watch DIR and normalize WAV files as they arrive"`
	Backup      string          `placeholder:"SUFFIX" help:"Keep each original, renamed with SUFFIX"`
	ClipWarn    float64         `default:"0.001" placeholder:"FRAC" help:"Warn when more than this fraction of samples clip"`
	Config      kong.ConfigFlag `short:"C" placeholder:"PATH" help:"Read defaults from this TOML file"`

	StdinRate     int `default:"44100" help:"Sample rate of raw samples read from -"`
	StdinChannels int `default:"2" help:"Channels of raw samples read from -"`
	StdinBits     int `default:"16" help:"Bits per sample of raw samples read from -"`

	Files []string `arg:"" name:"files" optional:"" help:"WAV files to normalize, or - for raw samples on stdin"`
}

// Validate rejects flag combinations that contradict each other
func (c *CLI) Validate() error {
	switch {
	case c.Mix && c.Batch:
		return errors.New("the -m and -b options are mutually exclusive")
	case c.Peak && (c.Mix || c.Batch):
		return errors.New("--peak cannot be combined with -m or -b")
	case c.Compression && c.Clipping:
		return errors.New("-c and --clipping are mutually exclusive")
	case c.Watch != "" && c.Gain.Set:
		return errors.New("--gain cannot be used with --watch")
	case c.Jobs < 1:
		return fmt.Errorf("--jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}

func parserOptions() []kong.Option {
	opts := []kong.Option{
		kong.Name("normalize"),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter("normalize", description)),
	}
	if path := config.Find(); path != "" {
		opts = append(opts, kong.Configuration(config.Loader, path))
	} else {
		opts = append(opts, kong.Configuration(config.Loader))
	}
	return opts
}

// runConfig turns parsed flags into a processor configuration
func (c *CLI) runConfig(logger *log.Logger) (*processor.Config, error) {
	cfg := processor.DefaultConfig()
	cfg.Logger = logger

	if c.Amplitude.Set {
		cfg.Target = c.Amplitude.Fraction
	}
	switch {
	case c.Mix:
		cfg.Mode = processor.ModeMix
	case c.Batch:
		cfg.Mode = processor.ModeBatch
	}
	cfg.Peak = c.Peak
	cfg.Compression = c.Compression && !c.Clipping
	cfg.Threshold = c.Threshold
	cfg.PrintOnly = c.NoAdjust
	cfg.ClipWarnThreshold = c.ClipWarn
	cfg.Jobs = c.Jobs
	cfg.BackupSuffix = c.Backup

	if c.Gain.Set {
		cfg.Gain = c.Gain.Factor
		cfg.GainDB = c.Gain.DB
		cfg.GainSet = true
		cfg.Mode = processor.ModeBatch
	}

	cfg.StreamFormat = audio.NewPCMFormat(c.StdinRate, c.StdinChannels, c.StdinBits)
	if err := cfg.StreamFormat.Validate(); err != nil {
		return nil, fmt.Errorf("stdin format: %w", err)
	}
	if c.StdinRate < 100 {
		return nil, fmt.Errorf("stdin format: sample rate %d Hz is too low", c.StdinRate)
	}
	return cfg, nil
}

func main() {
	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs, parserOptions()...)

	if cliArgs.Version {
		cli.PrintVersion("normalize", version)
		os.Exit(0)
	}

	verbosity := logging.NewVerbosity(cliArgs.Quiet, cliArgs.Verbose)
	logger := logging.New(os.Stderr, verbosity)

	cfg, err := cliArgs.runConfig(logger)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	if cliArgs.Amplitude.Negated {
		cli.PrintWarning(fmt.Sprintf("normalizing to %.2fdBFS", processor.LinearToDb(cfg.Target)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cliArgs.Watch != "" {
		if err := runWatch(ctx, cliArgs, cfg, verbosity); err != nil {
			cli.PrintError(err.Error())
			os.Exit(1)
		}
		return
	}

	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		_ = kctx.PrintUsage(false)
		os.Exit(1)
	}

	start := time.Now()
	summary, err := run(ctx, cfg, cliArgs.Files, verbosity)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	if summary.PrintOnly {
		if verbosity >= logging.Progress {
			fmt.Fprintln(os.Stderr, logging.LevelHeader(summary.Mode == processor.ModeBatch))
		}
		logging.WriteLevels(os.Stdout, summary, cliArgs.Fractions)
	}

	if cliArgs.Logs {
		writeReports(summary, cfg, start, logger)
	}

	os.Exit(summary.ExitCode())
}

// run normalizes files, showing progress as a terminal UI when stderr is
// a terminal and as a line meter otherwise.
func run(ctx context.Context, cfg *processor.Config, files []string, v logging.Verbosity) (*processor.Summary, error) {
	if v < logging.Progress {
		return processor.NewNormalizer(cfg, nil).Run(ctx, files)
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return processor.NewNormalizer(cfg, ui.NewLineMeter(os.Stderr)).Run(ctx, files)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewModel(), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	// diagnostics would tear the interface; keep only errors while it runs
	uiCfg := *cfg
	uiCfg.Logger = logging.New(os.Stderr, logging.Quiet)

	type outcome struct {
		summary *processor.Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		summary, err := processor.NewNormalizer(&uiCfg, ui.NewReporter(p.Send)).Run(ctx, files)
		done <- outcome{summary, err}
		p.Send(ui.AllCompleteMsg{Summary: summary, Err: err})
	}()

	final, err := p.Run()
	if m, ok := final.(ui.Model); err != nil || (ok && m.Interrupted) {
		cancel()
	}
	res := <-done
	return res.summary, res.err
}

// runWatch normalizes each WAV file that settles in the watched directory
func runWatch(ctx context.Context, c *CLI, cfg *processor.Config, v logging.Verbosity) error {
	if cfg.Mode != processor.ModeSingle {
		cfg.Logger.Warn("watch mode handles files one at a time, using single mode")
		cfg.Mode = processor.ModeSingle
	}

	var obs processor.Observer = processor.NopObserver{}
	if v >= logging.Progress {
		obs = ui.NewLineMeter(os.Stderr)
	}
	n := processor.NewNormalizer(cfg, obs)

	w := &watch.Watcher{
		Dir:    c.Watch,
		Logger: cfg.Logger,
		Handler: func(ctx context.Context, path string) error {
			start := time.Now()
			summary, err := n.Run(ctx, []string{path})
			if err != nil {
				return err
			}
			if c.Logs {
				writeReports(summary, cfg, start, cfg.Logger)
			}
			return nil
		},
	}
	return w.Run(ctx)
}

func writeReports(s *processor.Summary, cfg *processor.Config, start time.Time, logger *log.Logger) {
	target := cfg.Target
	if s.Mode == processor.ModeMix && s.Batch != nil {
		target = s.AverageLevel
	}
	end := time.Now()

	for _, results := range [][]*processor.FileResult{s.Files, s.Rejected} {
		for _, r := range results {
			err := logging.GenerateReport(logging.ReportData{
				Result:    r,
				Mode:      s.Mode,
				Target:    target,
				PrintOnly: s.PrintOnly,
				StartTime: start,
				EndTime:   end,
			})
			if err != nil {
				logger.Error("failed to write report", "file", r.Path, "err", err)
			}
		}
	}
}

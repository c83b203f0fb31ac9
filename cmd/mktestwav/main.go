package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/linuxmatters/normalize/internal/audio"
	"github.com/linuxmatters/normalize/internal/cli"
	"github.com/linuxmatters/normalize/internal/tone"
)

var (
	version = "0.0.1"
)

const description = "Create a WAV file containing a sine wave of a given amplitude and frequency"

// CLI defines the command-line interface
type CLI struct {
	Amplitude      cli.Amplitude `short:"a" placeholder:"AMP" default:"0.25" help:"RMS amplitude of the sine, a fraction of full scale or dBFS"`
	BytesPerSample int           `short:"b" name:"bytes-per-sample" placeholder:"B" default:"2" help:"Bytes per sample, 1 to 4"`
	Channels       int           `short:"c" placeholder:"C" default:"1" help:"Number of channels"`
	Frequency      float64       `short:"f" placeholder:"F" default:"1000" help:"Sine frequency in Hz"`
	Output         string        `short:"o" placeholder:"FILE" default:"test.wav" help:"Output file"`
	SampleRate     int           `short:"r" placeholder:"R" default:"44100" help:"Sample rate in Hz"`
	Samples        int           `short:"s" placeholder:"S" help:"Number of samples per channel (default one second)"`
	Hum            cli.Amplitude `placeholder:"AMP" help:"Mix in mains hum at RMS amplitude AMP"`
	HumFreq        int           `placeholder:"HZ" help:"Mains hum frequency (default detected from the local time zone)"`
	Version        bool          `short:"V" help:"Show version information"`
}

// Validate rejects formats the writer cannot produce
func (c *CLI) Validate() error {
	switch {
	case c.BytesPerSample < 1 || c.BytesPerSample > 4:
		return fmt.Errorf("%d bytes per sample not supported", c.BytesPerSample)
	case c.Channels < 1:
		return fmt.Errorf("bad number of channels: %d", c.Channels)
	case c.SampleRate < 1:
		return fmt.Errorf("bad sample rate: %d", c.SampleRate)
	case c.Samples < 0:
		return fmt.Errorf("bad number of samples: %d", c.Samples)
	}
	return nil
}

// signal returns the signal, format and frame count the flags describe
func (c *CLI) signal() (tone.Signal, audio.Format, int) {
	s := tone.Signal{
		Amplitude: c.Amplitude.Fraction,
		Frequency: c.Frequency,
	}
	if c.Hum.Set {
		s.HumAmplitude = c.Hum.Fraction
		s.HumFrequency = float64(c.HumFreq)
		if c.HumFreq <= 0 {
			s.HumFrequency = float64(tone.LocalHumFrequency())
		}
	}

	frames := c.Samples
	if frames == 0 {
		frames = c.SampleRate
	}
	return s, audio.NewPCMFormat(c.SampleRate, c.Channels, c.BytesPerSample*8), frames
}

func main() {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("mktestwav"),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter("mktestwav", description)),
	)

	if cliArgs.Version {
		cli.PrintVersion("mktestwav, from normalize", version)
		os.Exit(0)
	}

	s, format, frames := cliArgs.signal()
	if err := s.WriteFile(cliArgs.Output, format, frames); err != nil {
		cli.PrintError(fmt.Sprintf("error writing %s: %v", cliArgs.Output, err))
		os.Exit(1)
	}
}

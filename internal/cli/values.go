package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
)

// parseLevel splits "0.5", "-12dB" or "-12 dBFS" into the number and
// whether a decibel suffix followed it.
func parseLevel(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	num := s
	decibels := false
	if i := strings.Index(strings.ToLower(s), "db"); i >= 0 {
		num = strings.TrimSpace(s[:i])
		decibels = true
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false, fmt.Errorf("%q is not a number", s)
	}
	return v, decibels, nil
}

// Amplitude is an RMS target, given as a fraction of full scale or in dBFS
type Amplitude struct {
	Fraction float64
	Set      bool
	// Negated is set when a positive dBFS value was taken to mean its negative
	Negated bool
	raw     string
}

// Decode implements kong.MapperValue
func (a *Amplitude) Decode(ctx *kong.DecodeContext) error {
	var s string
	if err := ctx.Scan.PopValueInto("amplitude", &s); err != nil {
		return err
	}
	return a.parse(s)
}

func (a *Amplitude) parse(s string) error {
	v, decibels, err := parseLevel(s)
	if err != nil {
		return err
	}

	a.raw, a.Set, a.Negated = s, true, false
	if decibels {
		if v > 0 {
			v = -v
			a.Negated = true
		}
		a.Fraction = math.Pow(10, v/20)
		return nil
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("amplitude %s must be between 0 and 1, or given in dBFS", s)
	}
	a.Fraction = v
	return nil
}

func (a Amplitude) String() string { return a.raw }

// Gain is an explicit adjustment, given as a factor or in dB
type Gain struct {
	Factor   float64
	DB       float64
	Decibels bool
	Set      bool
	raw      string
}

// Decode implements kong.MapperValue
func (g *Gain) Decode(ctx *kong.DecodeContext) error {
	var s string
	if err := ctx.Scan.PopValueInto("gain", &s); err != nil {
		return err
	}
	return g.parse(s)
}

func (g *Gain) parse(s string) error {
	v, decibels, err := parseLevel(s)
	if err != nil {
		return err
	}

	g.raw, g.Set, g.Decibels = s, true, decibels
	if decibels {
		g.DB = v
		g.Factor = math.Pow(10, v/20)
		if math.IsInf(g.Factor, 0) {
			return fmt.Errorf("gain %s is out of range", s)
		}
		return nil
	}
	if v < 0 {
		return fmt.Errorf("gain %s must not be negative", s)
	}
	g.Factor = v
	g.DB = 20 * math.Log10(v)
	return nil
}

func (g Gain) String() string { return g.raw }

package cli

import (
	"math"
	"testing"

	"github.com/alecthomas/kong"
)

func TestAmplitudeParse(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		negated bool
		wantErr bool
	}{
		{"0.25", 0.25, false, false},
		{"1", 1, false, false},
		{"-12dBFS", math.Pow(10, -12.0/20), false, false},
		{"-6 dB", math.Pow(10, -6.0/20), false, false},
		{"12dbfs", math.Pow(10, -12.0/20), true, false},
		{"0dB", 1, false, false},
		{"1.5", 0, false, true},
		{"-0.1", 0, false, true},
		{"loud", 0, false, true},
		{"dB", 0, false, true},
		{"NaN", 0, false, true},
		{"-Inf dB", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a Amplitude
			err := a.parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if math.Abs(a.Fraction-tt.want) > 1e-12 {
				t.Errorf("Fraction = %v, want %v", a.Fraction, tt.want)
			}
			if a.Negated != tt.negated {
				t.Errorf("Negated = %v, want %v", a.Negated, tt.negated)
			}
			if !a.Set || a.String() != tt.in {
				t.Errorf("Set = %v, String() = %q", a.Set, a.String())
			}
		})
	}
}

func TestGainParse(t *testing.T) {
	tests := []struct {
		in       string
		factor   float64
		db       float64
		decibels bool
		wantErr  bool
	}{
		{"2", 2, 20 * math.Log10(2), false, false},
		{"0.5", 0.5, 20 * math.Log10(0.5), false, false},
		{"3dB", math.Pow(10, 3.0/20), 3, true, false},
		{"-3.5 dB", math.Pow(10, -3.5/20), -3.5, true, false},
		{"-2", 0, 0, false, true},
		{"x", 0, 0, false, true},
		{"Inf", 0, 0, false, true},
		{"NaN", 0, 0, false, true},
		{"1e400", 0, 0, false, true},
		{"7000dB", 0, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var g Gain
			err := g.parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if math.Abs(g.Factor-tt.factor) > 1e-12 || math.Abs(g.DB-tt.db) > 1e-12 {
				t.Errorf("got %v (%v dB), want %v (%v dB)", g.Factor, g.DB, tt.factor, tt.db)
			}
			if g.Decibels != tt.decibels {
				t.Errorf("Decibels = %v, want %v", g.Decibels, tt.decibels)
			}
		})
	}
}

func TestValuesThroughKong(t *testing.T) {
	var args struct {
		Amplitude Amplitude `short:"a"`
		Gain      Gain      `short:"g"`
	}
	parser, err := kong.New(&args)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := parser.Parse([]string{"--amplitude=-18dBFS", "-g", "0.5dB"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if math.Abs(args.Amplitude.Fraction-math.Pow(10, -18.0/20)) > 1e-12 {
		t.Errorf("Amplitude = %v", args.Amplitude.Fraction)
	}
	if !args.Gain.Decibels || args.Gain.DB != 0.5 {
		t.Errorf("Gain = %+v, want 0.5 dB", args.Gain)
	}

	if _, err := parser.Parse([]string{"-a", "2"}); err == nil {
		t.Error("Parse() accepted an amplitude above 1")
	}
}

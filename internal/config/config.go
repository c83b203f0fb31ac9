// Package config loads flag defaults from a TOML file.
//
// Keys are long flag names, with dashes or underscores:
//
//	amplitude = "-14dBFS"
//	compression = true
//	jobs = 4
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
)

// FileName is the config file looked for in the working directory
const FileName = "normalize.toml"

// Loader is a kong.ConfigurationLoader for TOML files.
func Loader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	res := &resolver{values: make(map[string]any, len(values))}
	for k, v := range values {
		res.values[key(k)] = v
	}
	return res, nil
}

// Find returns the default config file: the user's config directory first,
// then the working directory. It returns "" when neither exists.
func Find() string {
	var candidates []string
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "normalize", "config.toml"))
	}
	candidates = append(candidates, FileName)

	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && st.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

func key(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

type resolver struct {
	values map[string]any
}

// Validate rejects keys that name no flag, so typos don't go unnoticed.
func (r *resolver) Validate(app *kong.Application) error {
	known := map[string]bool{}
	for _, group := range app.AllFlags(false) {
		for _, f := range group {
			known[f.Name] = true
		}
	}

	var errs []error
	for k := range r.values {
		if !known[k] {
			errs = append(errs, fmt.Errorf("config: unknown key %q", k))
		}
	}
	return errors.Join(errs...)
}

func (r *resolver) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	v, ok := r.values[flag.Name]
	if !ok {
		return nil, nil
	}

	switch v := v.(type) {
	case map[string]any:
		return nil, fmt.Errorf("config: %s must be a value, not a table", flag.Name)
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), nil
	default:
		// flag mappers parse strings, including units such as "dB"
		return fmt.Sprint(v), nil
	}
}

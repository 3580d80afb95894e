// Package config loads deform settings from a TOML file. Missing keys
// keep their defaults; command line flags override both.
package config

import (
	"io"
	"os"
	"time"

	"github.com/chazu/deform/pkg/deform"
	"github.com/chazu/deform/pkg/kernel/sdfx"
	"github.com/chazu/deform/pkg/session"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Duration is a time.Duration written as a string ("30s", "1m30s").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return errors.Wrapf(err, "config: bad duration %q", b)
	}
	*d = Duration(v)
	return nil
}

// Config holds every setting the command line tool reads.
type Config struct {
	Kernel        string   `toml:"kernel"`
	MeshCells     int      `toml:"mesh_cells"`
	DeformTimeout Duration `toml:"deform_timeout"`
	Model         string   `toml:"model"`
	Primitive     string   `toml:"primitive"`
	Size          float64  `toml:"size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Kernel:        "sdfx",
		MeshCells:     sdfx.DefaultMeshCells,
		DeformTimeout: Duration(session.DefaultDeformTimeout),
		Model:         deform.Linear.String(),
		Primitive:     "sphere",
		Size:          20,
	}
}

// Decode reads TOML from r on top of the defaults. Unknown keys are an
// error so typos do not pass silently.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the TOML file at path. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: open")
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return errors.Wrap(toml.NewEncoder(w).Encode(c), "config: encode")
}

// Validate checks that every field holds a usable value.
func (c Config) Validate() error {
	if c.Kernel != "sdfx" && c.Kernel != "manifold" {
		return errors.Errorf("config: kernel must be sdfx or manifold, got %q", c.Kernel)
	}
	if c.MeshCells <= 0 {
		return errors.Errorf("config: mesh_cells must be positive, got %d", c.MeshCells)
	}
	if c.DeformTimeout <= 0 {
		return errors.Errorf("config: deform_timeout must be positive, got %s", time.Duration(c.DeformTimeout))
	}
	if c.Size <= 0 {
		return errors.Errorf("config: size must be positive, got %g", c.Size)
	}
	if _, err := deform.ParseModel(c.Model); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// ModelValue returns Model parsed. Call Validate first.
func (c Config) ModelValue() deform.Model {
	m, _ := deform.ParseModel(c.Model)
	return m
}

// Timeout returns DeformTimeout as a time.Duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.DeformTimeout)
}

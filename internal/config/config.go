// Package config loads the init thread's configuration file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wetware/naive/console"
)

// Config for the init thread.  Zero values are replaced by defaults.
type Config struct {
	// BadgeBase is the first badge minted by the root endpoint.
	BadgeBase uint64 `toml:"badge_base" json:"badge_base"`

	// IRQ is the interrupt line of the console UART.  It doubles as the
	// notification bit on which the console is woken.
	IRQ int `toml:"irq" json:"irq"`

	// CSpaceSize bounds the init thread's capability space.
	CSpaceSize int `toml:"cspace_size" json:"cspace_size"`

	// InputBuffer bounds the console input queue, in bytes.
	InputBuffer int `toml:"input_buffer" json:"input_buffer"`

	// Shell enables the echo shell connected to the console.
	Shell bool `toml:"shell" json:"shell"`
}

// Default configuration.
func Default() Config {
	return Config{
		BadgeBase:   100,
		IRQ:         console.IRQAux,
		CSpaceSize:  4096,
		InputBuffer: 1024,
		Shell:       true,
	}
}

// Load the TOML file at path on top of the default configuration.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	c := Default()

	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}

	if keys := md.Undecoded(); len(keys) > 0 {
		ks := make([]string, len(keys))
		for i, k := range keys {
			ks[i] = k.String()
		}

		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(ks, ", "))
	}

	return c, c.Validate()
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.BadgeBase == 0:
		return errors.New("badge_base must be positive")

	case c.IRQ < 0 || c.IRQ >= 64:
		return fmt.Errorf("irq %d out of range [0, 64)", c.IRQ)

	case c.CSpaceSize < 2:
		return fmt.Errorf("cspace_size %d too small", c.CSpaceSize)

	case c.InputBuffer < 1:
		return fmt.Errorf("input_buffer %d too small", c.InputBuffer)
	}

	return nil
}

// Flags is the subset of the command-line context from which the
// configuration is resolved.
type Flags interface {
	IsSet(string) bool
	Path(string) string
	Uint64(string) uint64
	Int(string) int
	Bool(string) bool
}

// Resolve the configuration.  The file named by --config, if any, is
// loaded on top of the defaults, and explicit flags take precedence
// over both.
func Resolve(f Flags) (c Config, err error) {
	if c = Default(); f.IsSet("config") {
		if c, err = Load(f.Path("config")); err != nil {
			return
		}
	}

	if f.IsSet("badge-base") {
		c.BadgeBase = f.Uint64("badge-base")
	}

	if f.IsSet("irq") {
		c.IRQ = f.Int("irq")
	}

	if f.IsSet("cspace") {
		c.CSpaceSize = f.Int("cspace")
	}

	if f.IsSet("no-shell") {
		c.Shell = !f.Bool("no-shell")
	}

	return c, c.Validate()
}

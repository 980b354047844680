package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetware/naive/console"
	"github.com/wetware/naive/internal/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := config.Default()
	assert.Equal(t, console.IRQAux, c.IRQ, "should default to the mini-UART interrupt")
	assert.Equal(t, uint64(100), c.BadgeBase)
	require.NoError(t, c.Validate(), "defaults should be valid")
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("Overrides", func(t *testing.T) {
		t.Parallel()

		path := write(t, "badge_base = 500\nirq = 3\n")

		c, err := config.Load(path)
		require.NoError(t, err, "should load config")
		assert.Equal(t, uint64(500), c.BadgeBase, "should override badge base")
		assert.Equal(t, 3, c.IRQ, "should override irq")
		assert.Equal(t, config.Default().CSpaceSize, c.CSpaceSize, "should keep defaults")
		assert.True(t, c.Shell, "should keep defaults")
	})

	t.Run("UnknownKey", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(write(t, "listener = 7\n"))
		require.Error(t, err, "should reject unknown key")
		assert.Contains(t, err.Error(), "listener")
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(write(t, "irq = 64\n"))
		require.Error(t, err, "should reject out-of-range irq")
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
		require.Error(t, err, "should fail on missing file")
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	path := write(t, "badge_base = 500\n")

	c, err := config.Resolve(flags{
		"config":   path,
		"irq":      7,
		"no-shell": true,
	})
	require.NoError(t, err, "should resolve")
	assert.Equal(t, uint64(500), c.BadgeBase, "should load file")
	assert.Equal(t, 7, c.IRQ, "flags should take precedence")
	assert.False(t, c.Shell, "should disable shell")

	c, err = config.Resolve(flags{})
	require.NoError(t, err, "should resolve defaults")
	assert.Equal(t, config.Default(), c)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.Default().Validate(), "defaults should be valid")

	c := config.Default()
	c.BadgeBase = 0
	assert.Error(t, c.Validate(), "should reject zero badge base")

	c = config.Default()
	c.CSpaceSize = 1
	assert.Error(t, c.Validate(), "should reject tiny cspace")
}

func write(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "naive.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644), "should write config")
	return path
}

// flags is a config.Flags backed by a map.
type flags map[string]interface{}

func (f flags) IsSet(name string) bool {
	_, ok := f[name]
	return ok
}

func (f flags) Path(name string) string {
	s, _ := f[name].(string)
	return s
}

func (f flags) Uint64(name string) uint64 {
	u, _ := f[name].(uint64)
	return u
}

func (f flags) Int(name string) int {
	i, _ := f[name].(int)
	return i
}

func (f flags) Bool(name string) bool {
	b, _ := f[name].(bool)
	return b
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationAccessors(t *testing.T) {
	cfg := newConfiguration(map[string]string{
		"name":    "orchestrator",
		"port":    " 9000 ",
		"bad":     "ninety",
		"enabled": "true",
		"wait":    "90s",
	})

	v, ok := cfg.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "orchestrator", v)

	assert.Equal(t, "fallback", cfg.String("missing", "fallback"))

	port, err := cfg.Int("port", 1)
	require.NoError(t, err)
	assert.Equal(t, 9000, port)

	def, err := cfg.Int("missing", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, def)

	_, err = cfg.Int("bad", 7)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	enabled, err := cfg.Bool("enabled", false)
	require.NoError(t, err)
	assert.True(t, enabled)

	wait, err := cfg.Duration("wait", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, wait)

	assert.Equal(t, []string{"bad", "enabled", "name", "port", "wait"}, cfg.Keys())
	assert.Equal(t, 5, cfg.Len())
}

func TestConfigurationIsImmutable(t *testing.T) {
	cfg := newConfiguration(map[string]string{"a": "1"})

	m := cfg.Map()
	m["a"] = "changed"
	m["b"] = "new"

	keys := cfg.Keys()
	keys[0] = "z"

	assert.Equal(t, "1", cfg.String("a", ""))
	assert.Equal(t, []string{"a"}, cfg.Keys())
	assert.Equal(t, 1, cfg.Len())
}

func TestParseProperties(t *testing.T) {
	values, err := parseProperties([]byte("# comment\na = 1\nb: two words\nc=${a}\nmulti=first \\\n  second\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a":     "1",
		"b":     "two words",
		"c":     "${a}",
		"multi": "first second",
	}, values)
}

func TestParseLocation(t *testing.T) {
	loc, err := parseLocation("https://example.com/conf/app.yml")
	require.NoError(t, err)
	assert.True(t, loc.remote())
	assert.Equal(t, "url", loc.source())
	assert.Equal(t, "yaml", loc.format())

	loc, err = parseLocation("/etc/app.properties")
	require.NoError(t, err)
	assert.False(t, loc.remote())
	assert.Equal(t, "properties", loc.format())

	_, err = parseLocation("  ")
	assert.ErrorIs(t, err, ErrResource)
}

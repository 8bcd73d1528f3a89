package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Configuration is a resolved, read-only key/value snapshot. It is safe for
// concurrent use.
type Configuration struct {
	values map[string]string
	keys   []string
}

func newConfiguration(values map[string]string) *Configuration {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Configuration{values: values, keys: keys}
}

// Get returns the value of key and whether it was set.
func (c *Configuration) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the value of key, or def when it is not set.
func (c *Configuration) String(key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Int returns the value of key as an int, or def when it is not set. A value
// that is not an integer is an error.
func (c *Configuration) Int(key string, def int) (int, error) {
	v, ok := c.values[key]
	if !ok {
		return def, nil
	}
	n, err := cast.ToIntE(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

// Bool returns the value of key as a bool, or def when it is not set.
func (c *Configuration) Bool(key string, def bool) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return def, nil
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not a boolean: %w", key, v, err)
	}
	return b, nil
}

// Duration returns the value of key as a duration ("90s", "5m"), or def when
// it is not set. A bare integer is read as nanoseconds.
func (c *Configuration) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := c.values[key]
	if !ok {
		return def, nil
	}
	d, err := cast.ToDurationE(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not a duration: %w", key, v, err)
	}
	return d, nil
}

// Keys returns every key in sorted order.
func (c *Configuration) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Map returns a copy of all values.
func (c *Configuration) Map() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Len returns the number of keys.
func (c *Configuration) Len() int {
	return len(c.values)
}

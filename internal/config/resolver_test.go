package config

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestResolver returns a resolver with a fixed environment and no default
// file, so results do not depend on the machine running the tests.
func newTestResolver(env ...string) *Resolver {
	r := NewResolver()
	r.environ = func() []string { return env }
	r.defaultLocation = func() string { return "" }
	return r
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExplicitBeatsEnvironment(t *testing.T) {
	cfg, err := newTestResolver("a=2", "b=env").
		Set("a", "1").
		WithEnvironment().
		Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1", cfg.String("a", ""))
	assert.Equal(t, "env", cfg.String("b", ""))
}

func TestEnvironmentIgnoredUnlessRequested(t *testing.T) {
	cfg, err := newTestResolver("a=2").Resolve(context.Background())
	require.NoError(t, err)
	_, ok := cfg.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, cfg.Len())
}

func TestEnvironmentBeatsResource(t *testing.T) {
	path := writeFile(t, "app.properties", "a=file\nb=file\nc=file\n")

	cfg, err := newTestResolver("b=env").
		Set("a", "explicit").
		WithEnvironment().
		WithLocation(path).
		Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.String("a", ""))
	assert.Equal(t, "env", cfg.String("b", ""))
	assert.Equal(t, "file", cfg.String("c", ""))
}

func TestSetReplacesEarlierExplicitValue(t *testing.T) {
	cfg, err := newTestResolver().Set("k", "first").Set("k", "second").Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", cfg.String("k", ""))
}

func TestInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		key    string
		want   string
	}{
		{
			name:   "simple substitution",
			values: map[string]string{"x": "FR", "y": "code${x}"},
			key:    "y",
			want:   "codeFR",
		},
		{
			name:   "several placeholders",
			values: map[string]string{"host": "localhost", "port": "9000", "url": "http://${host}:${port}/"},
			key:    "url",
			want:   "http://localhost:9000/",
		},
		{
			name:   "absent key stays verbatim",
			values: map[string]string{"y": "code${missing}"},
			key:    "y",
			want:   "code${missing}",
		},
		{
			name:   "chains resolve one level",
			values: map[string]string{"a": "${b}", "b": "${c}", "c": "leaf"},
			key:    "a",
			want:   "${c}",
		},
		{
			name:   "self reference is not expanded again",
			values: map[string]string{"a": "x${a}"},
			key:    "a",
			want:   "xx${a}",
		},
		{
			name:   "unterminated placeholder",
			values: map[string]string{"a": "${b", "b": "1"},
			key:    "a",
			want:   "${b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newTestResolver().SetAll(tt.values).Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.String(tt.key, ""))
		})
	}
}

func TestInterpolationSeesEverySource(t *testing.T) {
	path := writeFile(t, "app.properties", "base.dir=/opt/app\nlog.dir=${base.dir}/logs\n")

	cfg, err := newTestResolver("APP_USER=svc").
		Set("greeting", "hello ${APP_USER}").
		WithEnvironment().
		WithLocation(path).
		Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/opt/app/logs", cfg.String("log.dir", ""))
	assert.Equal(t, "hello svc", cfg.String("greeting", ""))
}

func TestResolveFileURL(t *testing.T) {
	path := writeFile(t, "app.properties", "k=v\n")

	cfg, err := newTestResolver().WithLocation("file://" + filepath.ToSlash(path)).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", cfg.String("k", ""))
}

func TestResolveLocationFromMergedKey(t *testing.T) {
	path := writeFile(t, "app.properties", "from.file=yes\n")

	cfg, err := newTestResolver().Set(LocationKey, path).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yes", cfg.String("from.file", ""))
}

func TestDefaultLocationOnlyWhenPresent(t *testing.T) {
	r := newTestResolver()
	missing := filepath.Join(t.TempDir(), "orchestrator.properties")
	r.defaultLocation = func() string { return missing }

	cfg, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Len())

	require.NoError(t, os.WriteFile(missing, []byte("d=1\n"), 0o644))
	r = newTestResolver()
	r.defaultLocation = func() string { return missing }
	cfg, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.String("d", ""))
}

func TestMissingConfiguredFileFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.properties")

	_, err := newTestResolver().WithLocation(missing).Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResource))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrorTypeIO, cfgErr.ErrorType)
	assert.Equal(t, "file", cfgErr.Source)
	assert.NotEmpty(t, cfgErr.Suggestions)
	assert.Contains(t, cfgErr.DetailedError(), "Suggestions:")
}

func TestRemoteResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orchestrator.properties" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("remote.key=remote\nshared=remote\n"))
	}))
	defer srv.Close()

	cfg, err := newTestResolver().
		Set("shared", "explicit").
		WithLocation(srv.URL + "/orchestrator.properties").
		Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.String("remote.key", ""))
	assert.Equal(t, "explicit", cfg.String("shared", ""))
}

func TestRemoteResourceFetchedOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("k=v\n"))
	}))
	defer srv.Close()

	_, err := newTestResolver().WithLocation(srv.URL + "/c.properties").Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRemoteResourceErrorStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestResolver().WithLocation(srv.URL + "/c.properties").Resolve(context.Background())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrorTypeHTTP, cfgErr.ErrorType)
	assert.Equal(t, "url", cfgErr.Source)
	assert.Contains(t, err.Error(), "500")
}

func TestOversizedResourceFails(t *testing.T) {
	content := "a=1\nbig=" + strings.Repeat("x", maxResourceSize+100) + "\nlast=z\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(content))
	}))
	defer srv.Close()

	tests := []struct {
		name      string
		location  string
		errorType string
	}{
		{"file", writeFile(t, "big.properties", content), ErrorTypeIO},
		{"url", srv.URL + "/big.properties", ErrorTypeHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newTestResolver().WithLocation(tt.location).Resolve(context.Background())
			require.Error(t, err)
			assert.Nil(t, cfg)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.errorType, cfgErr.ErrorType)
			assert.Contains(t, cfgErr.Message, "exceeds 8 MiB")
		})
	}
}

func TestUnreachableRemoteResourceFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/c.properties"
	srv.Close()

	_, err := newTestResolver().WithLocation(url).Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResource))
}

func TestMalformedResourceFails(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad unicode escape", "bad.properties", "key=\\uZZZZ\n"},
		{"bad yaml", "bad.yaml", "a: [1, 2\n"},
		{"yaml scalar document", "scalar.yml", "just a string\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := newTestResolver().WithLocation(path).Resolve(context.Background())
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, ErrorTypeParse, cfgErr.ErrorType)
		})
	}
}

func TestYAMLResource(t *testing.T) {
	path := writeFile(t, "app.yaml", `
server:
  port: 9000
  host: localhost
  tls: false
paths:
  - /a
  - /b
empty:
`)

	cfg, err := newTestResolver().WithLocation(path).Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"empty", "paths.0", "paths.1", "server.host", "server.port", "server.tls"}, cfg.Keys())
	port, err := cfg.Int("server.port", 0)
	require.NoError(t, err)
	assert.Equal(t, 9000, port)
	assert.Equal(t, "/b", cfg.String("paths.1", ""))
	assert.Equal(t, "", cfg.String("empty", "x"))
}

func TestInvalidLocation(t *testing.T) {
	_, err := newTestResolver().WithLocation("file://otherhost/share/c.properties").Resolve(context.Background())
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrorTypeLocation, cfgErr.ErrorType)
}

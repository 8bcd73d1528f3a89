package config

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-cleanhttp"

	"orchestrator/pkg/logging"
)

const subsystem = "Config"

// Resolver merges configuration sources into a Configuration. Sources are
// consulted in a fixed order and the first one to provide a key wins:
//
//  1. values given with Set and SetAll
//  2. the process environment, when WithEnvironment was called
//  3. the properties resource, when a location is known
//
// After merging, ${key} placeholders are expanded once. A Resolver is a
// builder and is not safe for concurrent use; the Configuration it produces is.
type Resolver struct {
	explicit map[string]string
	useEnv   bool
	location string

	environ         func() []string
	defaultLocation func() string
	client          *http.Client
}

// NewResolver creates a Resolver with no sources.
func NewResolver() *Resolver {
	return &Resolver{
		explicit:        make(map[string]string),
		environ:         os.Environ,
		defaultLocation: DefaultLocation,
	}
}

// Set supplies an explicit value. Setting the same key again replaces the
// earlier explicit value.
func (r *Resolver) Set(key, value string) *Resolver {
	r.explicit[key] = value
	return r
}

// SetAll supplies several explicit values.
func (r *Resolver) SetAll(values map[string]string) *Resolver {
	for k, v := range values {
		r.Set(k, v)
	}
	return r
}

// WithEnvironment adds the process environment as a source.
func (r *Resolver) WithEnvironment() *Resolver {
	r.useEnv = true
	return r
}

// WithLocation sets the resource location. Without it the resolver looks
// for LocationKey among the explicit and environment values, then for the
// default file.
func (r *Resolver) WithLocation(loc string) *Resolver {
	r.location = loc
	return r
}

// WithHTTPClient sets the client used for http(s) locations.
func (r *Resolver) WithHTTPClient(client *http.Client) *Resolver {
	r.client = client
	return r
}

// Resolve reads every source and returns the frozen result. A configured
// resource that cannot be fetched or parsed fails the whole resolution with a
// *ConfigurationError.
func (r *Resolver) Resolve(ctx context.Context) (*Configuration, error) {
	merged := make(map[string]string, len(r.explicit))
	counts := make(map[string]int, 3)

	for k, v := range r.explicit {
		merged[k] = v
	}
	counts["explicit"] = len(merged)

	if r.useEnv {
		counts["environment"] = mergeAbsent(merged, environMap(r.environ()))
	}

	raw, optional := r.resolveLocation(merged)
	if raw != "" {
		loc, err := parseLocation(raw)
		if err != nil {
			return nil, err
		}
		if optional && !fileExists(loc) {
			logging.Debug(subsystem, "No configuration found at %s", raw)
		} else {
			values, err := load(ctx, r.httpClient(), loc)
			if err != nil {
				logging.Error(subsystem, err, "Failed to load configuration from %s", raw)
				return nil, err
			}
			counts["resource"] = mergeAbsent(merged, values)
		}
	}

	logging.Debug(subsystem, "Resolved %d keys (explicit %d, environment %d, resource %d)",
		len(merged), counts["explicit"], counts["environment"], counts["resource"])
	return newConfiguration(interpolate(merged)), nil
}

// resolveLocation picks the resource location. optional is true for the
// default file, which is only read when present.
func (r *Resolver) resolveLocation(merged map[string]string) (raw string, optional bool) {
	if r.location != "" {
		return r.location, false
	}
	if v, ok := merged[LocationKey]; ok && strings.TrimSpace(v) != "" {
		return expand(v, merged), false
	}
	if r.defaultLocation != nil {
		return r.defaultLocation(), true
	}
	return "", false
}

func (r *Resolver) httpClient() *http.Client {
	if r.client != nil {
		return r.client
	}
	return cleanhttp.DefaultClient()
}

// mergeAbsent copies the entries of src whose key is not yet in dst and
// reports how many it copied.
func mergeAbsent(dst, src map[string]string) int {
	n := 0
	for k, v := range src {
		if _, ok := dst[k]; ok {
			continue
		}
		dst[k] = v
		n++
	}
	return n
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

func fileExists(loc location) bool {
	if loc.remote() {
		return true
	}
	info, err := os.Stat(loc.path)
	return err == nil && !info.IsDir()
}

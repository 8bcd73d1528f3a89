package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"orchestrator/pkg/logging"
)

// location is a parsed resource location: a filesystem path, a file:// URL or
// an http(s):// URL.
type location struct {
	raw  string
	path string   // set for local resources
	url  *url.URL // set for remote resources
}

func parseLocation(raw string) (location, error) {
	loc := location{raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return loc, newConfigurationError(loc, ErrorTypeLocation, "location is empty", nil)
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		u, err := url.Parse(trimmed)
		if err != nil {
			return loc, newConfigurationError(loc, ErrorTypeLocation, "invalid URL", err)
		}
		loc.url = u
	case strings.HasPrefix(lower, "file:"):
		u, err := url.Parse(trimmed)
		if err != nil {
			return loc, newConfigurationError(loc, ErrorTypeLocation, "invalid file URL", err)
		}
		if u.Host != "" && u.Host != "localhost" {
			return loc, newConfigurationError(loc, ErrorTypeLocation, "file URLs must not name a remote host", nil,
				"Use file:///absolute/path or a plain filesystem path")
		}
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		// file:///C:/x parses to /C:/x
		if runtime.GOOS == "windows" && len(p) > 2 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
		loc.path = filepath.FromSlash(p)
	default:
		loc.path = trimmed
	}
	return loc, nil
}

func (l location) remote() bool {
	return l.url != nil
}

func (l location) source() string {
	if l.remote() {
		return "url"
	}
	return "file"
}

// format returns "yaml" for .yaml/.yml resources and "properties" otherwise.
func (l location) format() string {
	var ext string
	if l.remote() {
		ext = path.Ext(l.url.Path)
	} else {
		ext = filepath.Ext(l.path)
	}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "properties"
	}
}

// load reads and parses the resource at loc.
func load(ctx context.Context, client *http.Client, loc location) (map[string]string, error) {
	var data []byte
	var err error
	if loc.remote() {
		data, err = fetch(ctx, client, loc)
	} else {
		data, err = readFile(loc)
	}
	if err != nil {
		return nil, err
	}

	var values map[string]string
	switch loc.format() {
	case "yaml":
		values, err = parseYAML(data)
	default:
		values, err = parseProperties(data)
	}
	if err != nil {
		return nil, newConfigurationError(loc, ErrorTypeParse, fmt.Sprintf("malformed %s resource", loc.format()), err,
			"Check the resource syntax")
	}

	logging.Info(subsystem, "Loaded %d keys from %s", len(values), loc.raw)
	return values, nil
}

func readFile(loc location) ([]byte, error) {
	f, err := os.Open(loc.path)
	if err != nil {
		suggestions := []string{"Check that the path is correct and readable"}
		if errors.Is(err, os.ErrNotExist) {
			suggestions = append(suggestions, fmt.Sprintf("Remove the location or create %s", loc.path))
		}
		return nil, newConfigurationError(loc, ErrorTypeIO, "cannot open resource", err, suggestions...)
	}
	defer f.Close()

	return readLimited(loc, f, ErrorTypeIO)
}

func fetch(ctx context.Context, client *http.Client, loc location) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.url.String(), nil)
	if err != nil {
		return nil, newConfigurationError(loc, ErrorTypeLocation, "cannot build request", err)
	}

	logging.Debug(subsystem, "Fetching %s", loc.url.Redacted())
	resp, err := client.Do(req)
	if err != nil {
		return nil, newConfigurationError(loc, ErrorTypeHTTP, "resource unreachable", err,
			"Check that the URL is correct and the host is reachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newConfigurationError(loc, ErrorTypeHTTP, fmt.Sprintf("unexpected status %s", resp.Status), nil)
	}

	return readLimited(loc, resp.Body, ErrorTypeHTTP)
}

// readLimited reads r to the end. A resource larger than maxResourceSize is
// an error rather than silently cut off.
func readLimited(loc location, r io.Reader, errorType string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResourceSize+1))
	if err != nil {
		return nil, newConfigurationError(loc, errorType, "cannot read resource", err)
	}
	if len(data) > maxResourceSize {
		return nil, newConfigurationError(loc, errorType,
			fmt.Sprintf("resource exceeds %d MiB", maxResourceSize>>20), nil,
			"Split the resource or move large values out of it")
	}
	return data, nil
}

// parseProperties reads Java properties text. ${...} references are left for
// the resolver so they can see every source.
func parseProperties(data []byte) (map[string]string, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

// parseYAML reads a YAML document and flattens nested mappings into dotted
// keys. Sequence items are keyed by index.
func parseYAML(data []byte) (map[string]string, error) {
	var root interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	values := make(map[string]string)
	if root == nil {
		return values, nil
	}
	switch root.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
	default:
		return nil, fmt.Errorf("top-level YAML value must be a mapping, got %T", root)
	}
	if err := flatten("", root, values); err != nil {
		return nil, err
	}
	return values, nil
}

func flatten(prefix string, node interface{}, out map[string]string) error {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := flatten(join(k), v[k], out); err != nil {
				return err
			}
		}
	case map[interface{}]interface{}:
		for k, child := range v {
			key, err := cast.ToStringE(k)
			if err != nil {
				return fmt.Errorf("unsupported key %v under %q: %w", k, prefix, err)
			}
			if err := flatten(join(key), child, out); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, child := range v {
			if err := flatten(join(strconv.Itoa(i)), child, out); err != nil {
				return err
			}
		}
	case nil:
		out[prefix] = ""
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("unsupported value for %q: %w", prefix, err)
		}
		out[prefix] = s
	}
	return nil
}

package config

import "regexp"

var placeholderPattern = regexp.MustCompile(`\$\{([^${}]+)\}`)

// interpolate replaces ${key} in every value with the value of key in the
// same map. It is a single pass over the original values: text produced by a
// substitution is never scanned again, so chains resolve one level only.
// Placeholders naming an absent key stay as written.
func interpolate(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = expand(v, values)
	}
	return out
}

func expand(value string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(value, func(match string) string {
		key := match[2 : len(match)-1]
		if replacement, ok := values[key]; ok {
			return replacement
		}
		return match
	})
}

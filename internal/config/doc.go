// Package config resolves layered key/value configuration.
//
// Values come from explicit settings, the process environment and a
// properties resource, in that order of precedence. The resource may be a
// local file, a file:// URL or an http(s) URL, and is either Java properties
// or YAML (flattened to dotted keys, chosen by the .yaml or .yml extension).
//
//	cfg, err := config.NewResolver().
//		Set("server.port", "9000").
//		WithEnvironment().
//		WithLocation("https://config.example.com/orchestrator.properties").
//		Resolve(ctx)
//	if err != nil {
//		return err
//	}
//	port, err := cfg.Int("server.port", 8080)
//
// After merging, each value has its ${key} placeholders replaced by the
// merged value of key. Replacement is one pass over the merged values;
// placeholders for unknown keys are kept as written.
package config

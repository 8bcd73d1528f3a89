// Package version parses and orders the dotted version identifiers of the
// server under test, so callers can gate behaviour on its release.
//
// Accepted shape:
//
//	major[.minor[.patch]][-qualifier][.buildNumber]
//
// for example "6.0", "7.9.1", "8.0.0.46117", "9.1-RC2" or "10.2.0-SNAPSHOT".
// Ordering rules, applied in order:
//
//  1. major, minor and patch numerically
//  2. a version without qualifier is newer than any qualified version
//  3. qualifiers case-insensitively
//  4. build number numerically
//
// Coarse feature gating uses IsAtLeast, which looks at major and minor only:
//
//	if v.IsAtLeast(6, 0) {
//		// ...
//	}
package version

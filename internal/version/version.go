package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersion is wrapped by every ParseError.
var ErrInvalidVersion = errors.New("invalid version")

// maxGroup is the largest value accepted for major, minor and patch so that
// the composite ordering key cannot collide.
const maxGroup = 9999

const (
	majorWeight = 100_000_000_000_000 // 10^14
	minorWeight = 10_000_000_000      // 10^10
	patchWeight = 1_000_000           // 10^6
)

const snapshotSuffix = "-SNAPSHOT"

var versionPattern = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([A-Za-z0-9_-]+))?(?:\.(\d+))?$`)

// ParseError describes a version string that does not match
// major[.minor[.patch]][-qualifier][.buildNumber].
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid version %q", e.Text)
	}
	return fmt.Sprintf("invalid version %q: %s", e.Text, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidVersion
}

// Version is a parsed version identifier. The zero value is not a valid
// version; obtain one from Parse.
type Version struct {
	text        string
	major       int
	minor       int
	patch       int
	buildNumber int64
	qualifier   string
	composite   int64
}

// Parse parses text. Missing numeric groups default to zero.
func Parse(text string) (Version, error) {
	trimmed := strings.TrimSpace(text)
	m := versionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, &ParseError{Text: text, Reason: "expected major[.minor[.patch]][-qualifier][.buildNumber]"}
	}

	groups := [3]int{}
	for i := 0; i < 3; i++ {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > maxGroup {
			return Version{}, &ParseError{Text: text, Reason: fmt.Sprintf("numeric group %q exceeds %d", m[i+1], maxGroup)}
		}
		groups[i] = n
	}

	var build int64
	if m[5] != "" {
		n, err := strconv.ParseInt(m[5], 10, 64)
		if err != nil {
			return Version{}, &ParseError{Text: text, Reason: fmt.Sprintf("build number %q out of range", m[5])}
		}
		build = n
	}

	return Version{
		text:        trimmed,
		major:       groups[0],
		minor:       groups[1],
		patch:       groups[2],
		buildNumber: build,
		qualifier:   m[4],
		composite:   int64(groups[0])*majorWeight + int64(groups[1])*minorWeight + int64(groups[2])*patchWeight,
	}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) Major() int { return v.major }

func (v Version) Minor() int { return v.minor }

func (v Version) Patch() int { return v.patch }

func (v Version) BuildNumber() int64 { return v.buildNumber }

// Qualifier returns the pre-release label, or "" when absent.
func (v Version) Qualifier() string { return v.qualifier }

// String returns the text the version was parsed from.
func (v Version) String() string { return v.text }

// IsRelease is false for snapshot builds.
func (v Version) IsRelease() bool {
	return !strings.HasSuffix(strings.ToUpper(v.text), snapshotSuffix)
}

// IsAtLeast compares only major and minor. Patch, qualifier and build number
// are ignored.
func (v Version) IsAtLeast(major, minor int) bool {
	if v.major != major {
		return v.major > major
	}
	return v.minor >= minor
}

func (v Version) Compare(other Version) int { return Compare(v, other) }

func (v Version) Equal(other Version) bool { return Compare(v, other) == 0 }

func (v Version) IsGreaterThan(other Version) bool {
	return Compare(v, other) > 0
}

func (v Version) IsGreaterThanOrEqual(other Version) bool {
	return Compare(v, other) >= 0
}

// Compare returns -1, 0 or 1.
//
// Numeric groups are compared first. At equal numeric level a version without
// qualifier is newer than any qualified one, two qualified versions compare
// their qualifiers case-insensitively, and equal qualifiers fall back to the
// build number.
func Compare(a, b Version) int {
	if c := compareInt64(a.composite, b.composite); c != 0 {
		return c
	}

	switch {
	case strings.EqualFold(a.qualifier, b.qualifier):
		return compareInt64(a.buildNumber, b.buildNumber)
	case a.qualifier == "":
		return 1
	case b.qualifier == "":
		return -1
	default:
		return strings.Compare(strings.ToLower(a.qualifier), strings.ToLower(b.qualifier))
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Versions sorts ascending.
type Versions []Version

func (vs Versions) Len() int           { return len(vs) }
func (vs Versions) Less(i, j int) bool { return Compare(vs[i], vs[j]) < 0 }
func (vs Versions) Swap(i, j int)      { vs[i], vs[j] = vs[j], vs[i] }

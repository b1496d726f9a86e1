package upgrade

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Version is a four-decimal fixed-point version number (§3). It is stored
// as the decimal value directly (e.g. 1.0067), not as the raw ×10000
// integer, so ordinary float comparisons and formatting work.
type Version float64

// String formats the version to four decimal places, per spec.md §4.1
// ("Float versions are reported to four decimal places").
func (v Version) String() string {
	return strconv.FormatFloat(float64(v), 'f', 4, 64)
}

// Equal compares two versions to four decimal places, per spec.md's
// "four-decimal comparison" (§3, §4.2).
func (v Version) Equal(other Version) bool {
	const scale = 10000
	return math.Round(float64(v)*scale) == math.Round(float64(other)*scale)
}

// VersionFromRaw converts the raw ×10000 fixed-point integer encoding used
// in firmware filenames into a Version.
func VersionFromRaw(raw int) Version {
	return Version(float64(raw) / 10000)
}

// ParseVersionFromFilename extracts declaredVersion from the firmware
// filename convention: the substring between the first and second
// underscore is a decimal integer equal to the version × 10000 (§6.1).
// Only the name (not any directory path) is considered, and only the
// first two underscore-delimited fields matter -- trailing fields such as
// a release date are ignored.
func ParseVersionFromFilename(path string) (Version, error) {
	name := path
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	first := strings.IndexByte(name, '_')
	if first < 0 {
		return 0, fmt.Errorf("firmware filename %q has no underscore-delimited version field", name)
	}
	rest := name[first+1:]
	second := strings.IndexByte(rest, '_')
	if second < 0 {
		return 0, fmt.Errorf("firmware filename %q has no second underscore-delimited field", name)
	}
	field := rest[:second]
	raw, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("firmware filename %q: version field %q is not numeric: %w", name, field, err)
	}
	return VersionFromRaw(raw), nil
}

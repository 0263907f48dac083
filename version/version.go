// Package version implements the MAJOR.MINOR.PATCH triad and the rules
// for advancing it from observed change magnitudes.
package version

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/benjamin-kraatz/get-next-versions/classify"
)

// Version is a plain semantic version triad. Pre-release and build
// metadata are not modeled.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Zero is the version of a package that has never been released.
var Zero = Version{}

// Parse reads an "X.Y.Z" triad of non-negative integers. Anything else,
// including pre-release suffixes, is an error.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected X.Y.Z", s)
	}
	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a non-negative integer", s, part)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String formats the triad as "X.Y.Z".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MarshalJSON encodes the version as its string form.
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a version from its string form.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Compare orders two versions, returning -1, 0, or 1.
func Compare(a, b Version) int {
	if a.Major != b.Major {
		return sign(a.Major - b.Major)
	}
	if a.Minor != b.Minor {
		return sign(a.Minor - b.Minor)
	}
	return sign(a.Patch - b.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// ChangeSet records which bump magnitudes were observed across a
// package's attributed commits. The booleans accumulate independently;
// resolution applies major > minor > patch precedence.
type ChangeSet struct {
	Major bool `json:"major"`
	Minor bool `json:"minor"`
	Patch bool `json:"patch"`
}

// Record folds one magnitude into the set.
func (c *ChangeSet) Record(m classify.Magnitude) {
	switch m {
	case classify.Major:
		c.Major = true
	case classify.Minor:
		c.Minor = true
	case classify.Patch:
		c.Patch = true
	}
}

// Any reports whether any magnitude fired.
func (c ChangeSet) Any() bool {
	return c.Major || c.Minor || c.Patch
}

// Next advances current by the highest-precedence magnitude in the set.
// A major bump zeroes minor and patch, a minor bump zeroes patch, and an
// empty set leaves the version unchanged.
func Next(current Version, changes ChangeSet) Version {
	switch {
	case changes.Major:
		return Version{Major: current.Major + 1}
	case changes.Minor:
		return Version{Major: current.Major, Minor: current.Minor + 1}
	case changes.Patch:
		return Version{Major: current.Major, Minor: current.Minor, Patch: current.Patch + 1}
	}
	return current
}

// Package classify maps parsed commits to the version bump magnitude
// they call for.
package classify

import "github.com/benjamin-kraatz/get-next-versions/commit"

// Magnitude is the bump a commit implies. Values order from None up to
// Major so verdicts compare directly.
type Magnitude int

const (
	None Magnitude = iota
	Patch
	Minor
	Major
)

// String returns the magnitude as it appears in logs and reports.
func (m Magnitude) String() string {
	switch m {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Patch:
		return "patch"
	default:
		return "none"
	}
}

// Of maps an already-parsed commit header to its magnitude: breaking
// changes are major regardless of type, features are minor, fixes are
// patch, and every other type is irrelevant to versioning.
func Of(p commit.Parsed) Magnitude {
	switch {
	case p.Breaking:
		return Major
	case p.Type == "feat":
		return Minor
	case p.Type == "fix":
		return Patch
	default:
		return None
	}
}

// Message classifies a raw commit message, returning None when it
// carries no conventional header.
func Message(message string) Magnitude {
	p, ok := commit.Parse(message)
	if !ok {
		return None
	}
	return Of(p)
}

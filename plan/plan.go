// Package plan builds the per-package version plan: it attributes
// relevant commits to packages and resolves each package's next version.
package plan

import (
	"fmt"

	"github.com/benjamin-kraatz/get-next-versions/classify"
	"github.com/benjamin-kraatz/get-next-versions/commit"
	"github.com/benjamin-kraatz/get-next-versions/config"
	"github.com/benjamin-kraatz/get-next-versions/match"
	"github.com/benjamin-kraatz/get-next-versions/version"
)

// Attribution reasons as rendered in reports.
const (
	reasonMajorBump    = "Major version bump"
	reasonOwnScope     = "Changes in package scope"
	reasonRootScope    = "Changes in scope"
	reasonNonScopeBump = "Changes in root (nonScopeBehavior is set to 'bump')"
)

func reasonDirectChanges(directory string) string {
	return "Direct changes in " + directory
}

func reasonDependency(pattern string) string {
	return "Affected by changes in dependent package " + pattern
}

// Attributed is a commit that counts toward a package's next version,
// together with every reason it was counted.
type Attributed struct {
	Commit    commit.Raw         `json:"commit"`
	Type      string             `json:"type"`
	Breaking  bool               `json:"breaking"`
	Magnitude classify.Magnitude `json:"magnitude"`
	Reasons   []string           `json:"reasons"`
}

// ChangedFilesFunc resolves the file paths a commit touched. The
// aggregator consults it only for commits outside a package's scope.
type ChangedFilesFunc func(hash string) ([]string, error)

// Attribute runs the aggregation pipeline for one package over the
// commits since its last release. Unparseable and irrelevant commits
// are dropped; breaking changes are attributed unconditionally; the
// rest are matched by scope, directory, and declared dependencies.
// Every returned commit carries at least one reason.
func Attribute(pkg config.Package, commits []commit.Raw, changedFiles ChangedFilesFunc, policy config.NonScopeBehavior) ([]Attributed, error) {
	dirPrefix := match.PathPrefix(pkg.Directory)
	scope := pkg.Scope()

	var out []Attributed
	for _, rc := range commits {
		parsed, ok := commit.Parse(rc.Message)
		if !ok {
			continue
		}
		mag := classify.Of(parsed)
		if mag == classify.None {
			continue
		}
		at := Attributed{
			Commit:    rc,
			Type:      parsed.Type,
			Breaking:  parsed.Breaking,
			Magnitude: mag,
		}
		if mag == classify.Major {
			at.Reasons = []string{reasonMajorBump}
			out = append(out, at)
			continue
		}
		switch {
		case parsed.Scope == "":
			switch {
			case pkg.IsRoot():
				at.Reasons = []string{reasonRootScope}
			case policy == config.NonScopeBump:
				at.Reasons = []string{reasonNonScopeBump}
			}
		case scope != "" && match.InScope(parsed.Scope, scope):
			at.Reasons = []string{reasonOwnScope}
		default:
			files, err := changedFiles(rc.Hash)
			if err != nil {
				return nil, fmt.Errorf("resolving changed files for %s: %w", rc.Hash, err)
			}
			if anyFileUnder(files, dirPrefix) {
				at.Reasons = append(at.Reasons, reasonDirectChanges(pkg.Directory))
			}
			if dep, hit := match.Dependencies(files, pkg.DependsOn); hit {
				at.Reasons = append(at.Reasons, reasonDependency(dep.Pattern))
			}
		}
		if len(at.Reasons) == 0 {
			continue
		}
		out = append(out, at)
	}
	return out, nil
}

func anyFileUnder(files []string, dirPrefix string) bool {
	for _, f := range files {
		if match.UnderPath(match.NormalizePath(f), dirPrefix) {
			return true
		}
	}
	return false
}

// Summarize folds attributed commits into the change-set booleans.
func Summarize(changes []Attributed) version.ChangeSet {
	var cs version.ChangeSet
	for _, at := range changes {
		cs.Record(at.Magnitude)
	}
	return cs
}

// Update is the resolved outcome for one package.
type Update struct {
	Name           string          `json:"name"`
	TagPrefix      string          `json:"tagPrefix"`
	CurrentVersion version.Version `json:"currentVersion"`
	NextVersion    version.Version `json:"nextVersion"`
	HasChanges     bool            `json:"hasChanges"`
	Changes        []Attributed    `json:"changes,omitempty"`
}

// Tag returns the git tag name that would mark NextVersion.
func (u Update) Tag() string {
	return u.TagPrefix + u.NextVersion.String()
}

// Result is the full plan across every configured package, in
// configuration order.
type Result struct {
	Updates          []Update                `json:"updates"`
	NonScopeBehavior config.NonScopeBehavior `json:"nonScopeBehavior"`
}

// HasChanges reports whether any package has a pending bump.
func (r *Result) HasChanges() bool {
	for _, u := range r.Updates {
		if u.HasChanges {
			return true
		}
	}
	return false
}

// Changed returns the updates with pending bumps, in order.
func (r *Result) Changed() []Update {
	var out []Update
	for _, u := range r.Updates {
		if u.HasChanges {
			out = append(out, u)
		}
	}
	return out
}

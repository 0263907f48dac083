package plan

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benjamin-kraatz/get-next-versions/commit"
	"github.com/benjamin-kraatz/get-next-versions/config"
	"github.com/benjamin-kraatz/get-next-versions/version"
)

// Release identifies the latest published version of a package.
type Release struct {
	Tag     string
	Version version.Version
}

// History is the version-control collaborator the planner reads from.
type History interface {
	// LatestRelease finds the most recent release tag carrying the
	// given prefix, or nil when the package has never been tagged.
	LatestRelease(tagPrefix string) (*Release, error)
	// CommitsSince lists the commits after the release up to head,
	// newest first, or the entire history when rel is nil.
	CommitsSince(rel *Release) ([]commit.Raw, error)
	// ChangedFiles lists the repo-relative paths a commit touched.
	ChangedFiles(hash string) ([]string, error)
}

// Planner computes the version plan for a whole configuration.
type Planner struct {
	history History
	cfg     config.Config
	log     zerolog.Logger

	// Strict escalates per-package history failures instead of
	// degrading them to empty commit ranges.
	Strict bool
}

// NewPlanner returns a planner over the given history and configuration.
func NewPlanner(history History, cfg config.Config, log zerolog.Logger) *Planner {
	return &Planner{history: history, cfg: cfg, log: log}
}

// Plan resolves every configured package in configuration order.
// Malformed release tags and configuration problems fail the run;
// per-package git failures are degraded to warnings unless Strict.
func (p *Planner) Plan() (*Result, error) {
	files := newFileCache(p.history)
	res := &Result{NonScopeBehavior: p.cfg.NonScopeBehavior}
	for _, pkg := range p.cfg.VersionedPackages {
		upd, err := p.planPackage(pkg, files)
		if err != nil {
			return nil, err
		}
		res.Updates = append(res.Updates, upd)
	}
	return res, nil
}

func (p *Planner) planPackage(pkg config.Package, files *fileCache) (Update, error) {
	rel, err := p.history.LatestRelease(pkg.TagPrefix)
	if err != nil {
		return Update{}, fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	current := version.Zero
	if rel != nil {
		current = rel.Version
	}

	commits, err := p.history.CommitsSince(rel)
	if err != nil {
		if p.Strict {
			return Update{}, fmt.Errorf("package %s: listing commits: %w", pkg.Name, err)
		}
		p.log.Warn().Err(err).Str("package", pkg.Name).Msg("commit range unavailable, assuming no changes")
		commits = nil
	}

	lookup := files.lookup
	if !p.Strict {
		lookup = files.lenient(p.log, pkg.Name)
	}
	changes, err := Attribute(pkg, commits, lookup, p.cfg.NonScopeBehavior)
	if err != nil {
		return Update{}, fmt.Errorf("package %s: %w", pkg.Name, err)
	}

	next := version.Next(current, Summarize(changes))
	p.log.Debug().
		Str("package", pkg.Name).
		Str("current", current.String()).
		Str("next", next.String()).
		Int("commits", len(commits)).
		Int("attributed", len(changes)).
		Msg("package planned")

	return Update{
		Name:           pkg.Name,
		TagPrefix:      pkg.TagPrefix,
		CurrentVersion: current,
		NextVersion:    next,
		HasChanges:     len(changes) > 0,
		Changes:        changes,
	}, nil
}

// fileCache memoizes changed-file lookups across packages in one run.
type fileCache struct {
	history History
	seen    map[string][]string
}

func newFileCache(h History) *fileCache {
	return &fileCache{history: h, seen: make(map[string][]string)}
}

func (c *fileCache) lookup(hash string) ([]string, error) {
	if files, ok := c.seen[hash]; ok {
		return files, nil
	}
	files, err := c.history.ChangedFiles(hash)
	if err != nil {
		return nil, err
	}
	c.seen[hash] = files
	return files, nil
}

// lenient degrades lookup failures to empty file lists so one bad
// object cannot fail the whole run. The failure is cached to keep the
// lookup at one attempt per commit.
func (c *fileCache) lenient(log zerolog.Logger, pkg string) ChangedFilesFunc {
	return func(hash string) ([]string, error) {
		files, err := c.lookup(hash)
		if err != nil {
			log.Warn().Err(err).Str("package", pkg).Str("commit", hash).Msg("changed files unavailable")
			c.seen[hash] = nil
			return nil, nil
		}
		return files, nil
	}
}

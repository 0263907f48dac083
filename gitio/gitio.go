// Package gitio adapts a git repository, through go-git, to the history
// interface the planner consumes: release tags, commit ranges, changed
// files, and tag creation.
package gitio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/rs/zerolog"

	"github.com/benjamin-kraatz/get-next-versions/commit"
	"github.com/benjamin-kraatz/get-next-versions/plan"
	"github.com/benjamin-kraatz/get-next-versions/version"
)

// Repository wraps an opened git repository.
type Repository struct {
	repo *git.Repository
	log  zerolog.Logger
}

// Open opens the repository at path.
func Open(path string, log zerolog.Logger) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &Repository{repo: repo, log: log}, nil
}

// MalformedTagError reports that a tag prefix matches only tags whose
// version suffix cannot be parsed.
type MalformedTagError struct {
	TagPrefix string
	Tag       string
	Err       error
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("tag %s matches prefix %q but carries no valid X.Y.Z suffix: %v", e.Tag, e.TagPrefix, e.Err)
}

func (e *MalformedTagError) Unwrap() error {
	return e.Err
}

// LatestRelease implements plan.History. Among tags carrying the
// prefix, the highest parseable version wins. A prefix that matches
// only malformed tags is an error rather than a silent restart at
// 0.0.0.
func (r *Repository) LatestRelease(tagPrefix string) (*plan.Release, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	var (
		best      *plan.Release
		malformed *MalformedTagError
	)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !strings.HasPrefix(name, tagPrefix) {
			return nil
		}
		v, perr := version.Parse(strings.TrimPrefix(name, tagPrefix))
		if perr != nil {
			if malformed == nil {
				malformed = &MalformedTagError{TagPrefix: tagPrefix, Tag: name, Err: perr}
			}
			return nil
		}
		if best == nil || version.Compare(v, best.Version) > 0 {
			best = &plan.Release{Tag: name, Version: v}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	if best == nil && malformed != nil {
		return nil, malformed
	}
	if best != nil {
		r.log.Debug().Str("tag", best.Tag).Str("version", best.Version.String()).Msg("release tag found")
	}
	return best, nil
}

// CommitsSince implements plan.History: the commits reachable from head
// but not from the release tag, newest first, or the entire history
// when rel is nil.
func (r *Repository) CommitsSince(rel *plan.Release) ([]commit.Raw, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving head: %w", err)
	}

	var released map[plumbing.Hash]struct{}
	if rel != nil {
		relHash, err := r.tagCommit(rel.Tag)
		if err != nil {
			return nil, fmt.Errorf("resolving tag %s: %w", rel.Tag, err)
		}
		released, err = r.ancestors(relHash)
		if err != nil {
			return nil, fmt.Errorf("walking history of %s: %w", rel.Tag, err)
		}
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	var out []commit.Raw
	err = iter.ForEach(func(c *object.Commit) error {
		if _, ok := released[c.Hash]; ok {
			return nil
		}
		out = append(out, commit.Raw{Hash: c.Hash.String(), Message: c.Message})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return out, nil
}

// tagCommit resolves a tag name to the commit it marks, unwrapping
// annotated tag objects.
func (r *Repository) tagCommit(name string) (plumbing.Hash, error) {
	ref, err := r.repo.Tag(name)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	obj, err := r.repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		return obj.Target, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return ref.Hash(), nil
	default:
		return plumbing.ZeroHash, err
	}
}

// ancestors collects every commit reachable from the given hash.
func (r *Repository) ancestors(from plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	iter, err := r.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, err
	}
	seen := make(map[plumbing.Hash]struct{})
	err = iter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seen, nil
}

// ChangedFiles implements plan.History: the paths a commit touched,
// diffed against its first parent. A root commit reports its full tree.
func (r *Repository) ChangedFiles(hash string) ([]string, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", hash, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", hash, err)
	}

	if c.NumParents() == 0 {
		var files []string
		err = tree.Files().ForEach(func(f *object.File) error {
			files = append(files, f.Name)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("listing tree of %s: %w", hash, err)
		}
		return files, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("loading parent of %s: %w", hash, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading parent tree of %s: %w", hash, err)
	}
	changes, err := parentTree.Diff(tree)
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", hash, err)
	}

	seen := make(map[string]struct{}, len(changes))
	var files []string
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("diffing %s: %w", hash, err)
		}
		name := ch.To.Name
		if action == merkletrie.Delete {
			name = ch.From.Name
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		files = append(files, name)
	}
	return files, nil
}

// Head returns the current head commit hash.
func (r *Repository) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving head: %w", err)
	}
	return ref.Hash().String(), nil
}

// CreateTag creates a lightweight tag at head.
func (r *Repository) CreateTag(name string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("resolving head: %w", err)
	}
	if _, err := r.repo.CreateTag(name, head.Hash(), nil); err != nil {
		return fmt.Errorf("creating tag %s: %w", name, err)
	}
	r.log.Info().Str("tag", name).Msg("tag created")
	return nil
}

// PushTags pushes the given tags to the named remote.
func (r *Repository) PushTags(remote string, tags []string) error {
	specs := make([]gitcfg.RefSpec, 0, len(tags))
	for _, tag := range tags {
		specs = append(specs, gitcfg.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", tag, tag)))
	}
	err := r.repo.Push(&git.PushOptions{RemoteName: remote, RefSpecs: specs})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pushing tags to %s: %w", remote, err)
	}
	r.log.Info().Str("remote", remote).Int("tags", len(tags)).Msg("tags pushed")
	return nil
}

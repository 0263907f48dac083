package gitio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamin-kraatz/get-next-versions/plan"
)

var _ plan.History = (*Repository)(nil)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	wt   *git.Worktree
	gr   *Repository
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	gr, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	return &testRepo{
		t:    t,
		dir:  dir,
		repo: repo,
		wt:   wt,
		gr:   gr,
		when: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (tr *testRepo) commit(message string, files map[string]string) plumbing.Hash {
	tr.t.Helper()
	for name, content := range files {
		path := filepath.Join(tr.dir, filepath.FromSlash(name))
		require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o644))
		_, err := tr.wt.Add(name)
		require.NoError(tr.t, err)
	}
	tr.when = tr.when.Add(time.Minute)
	hash, err := tr.wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: tr.when},
	})
	require.NoError(tr.t, err)
	return hash
}

func (tr *testRepo) tag(name string, hash plumbing.Hash) {
	tr.t.Helper()
	_, err := tr.repo.CreateTag(name, hash, nil)
	require.NoError(tr.t, err)
}

func TestOpenRejectsNonRepo(t *testing.T) {
	_, err := Open(t.TempDir(), zerolog.Nop())
	assert.Error(t, err)
}

func TestLatestRelease(t *testing.T) {
	tr := newTestRepo(t)
	c1 := tr.commit("chore: init", map[string]string{"README.md": "one"})
	tr.tag("ui-v1.2.0", c1)
	tr.tag("ui-v1.9.1", c1)
	tr.tag("ui-v1.10.0", c1)
	tr.tag("v9.9.9", c1)

	rel, err := tr.gr.LatestRelease("ui-v")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "ui-v1.10.0", rel.Tag, "versions compare numerically, not lexically")
	assert.Equal(t, "1.10.0", rel.Version.String())

	rel, err = tr.gr.LatestRelease("app-v")
	require.NoError(t, err)
	assert.Nil(t, rel, "no matching tags means no release")
}

func TestLatestReleaseSkipsMalformedWhenParseableExists(t *testing.T) {
	tr := newTestRepo(t)
	c1 := tr.commit("chore: init", map[string]string{"README.md": "one"})
	tr.tag("ui-v1.0.0", c1)
	tr.tag("ui-vnext", c1)

	rel, err := tr.gr.LatestRelease("ui-v")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "ui-v1.0.0", rel.Tag)
}

func TestLatestReleaseMalformedOnly(t *testing.T) {
	tr := newTestRepo(t)
	c1 := tr.commit("chore: init", map[string]string{"README.md": "one"})
	tr.tag("legacy-valpha", c1)

	_, err := tr.gr.LatestRelease("legacy-v")
	require.Error(t, err)
	var malformed *MalformedTagError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "legacy-valpha", malformed.Tag)
	assert.Equal(t, "legacy-v", malformed.TagPrefix)
}

func TestCommitsSince(t *testing.T) {
	tr := newTestRepo(t)
	tr.commit("feat: one", map[string]string{"a.txt": "1"})
	c2 := tr.commit("fix: two", map[string]string{"b.txt": "2"})
	_, err := tr.repo.CreateTag("v1.0.0", c2, &git.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Now()},
		Message: "release 1.0.0",
	})
	require.NoError(t, err)
	c3 := tr.commit("feat: three", map[string]string{"c.txt": "3"})
	c4 := tr.commit("chore: four", map[string]string{"d.txt": "4"})

	rel, err := tr.gr.LatestRelease("v")
	require.NoError(t, err)
	require.NotNil(t, rel, "annotated tags are releases too")

	commits, err := tr.gr.CommitsSince(rel)
	require.NoError(t, err)
	require.Len(t, commits, 2, "commits at or before the tag are excluded")
	assert.Equal(t, c4.String(), commits[0].Hash, "newest first")
	assert.Equal(t, "chore: four", commits[0].Message)
	assert.Equal(t, c3.String(), commits[1].Hash)
	assert.Equal(t, "feat: three", commits[1].Message)

	all, err := tr.gr.CommitsSince(nil)
	require.NoError(t, err)
	assert.Len(t, all, 4, "nil release walks the entire history")
}

func TestChangedFiles(t *testing.T) {
	tr := newTestRepo(t)
	c1 := tr.commit("chore: init", map[string]string{
		"README.md":            "readme",
		"packages/ui/index.ts": "index",
	})
	c2 := tr.commit("fix(ui): spacing", map[string]string{"packages/ui/spacing.ts": "s"})
	c3 := tr.commit("docs: readme", map[string]string{"README.md": "readme v2"})

	files, err := tr.gr.ChangedFiles(c1.String())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"README.md", "packages/ui/index.ts"}, files, "a root commit reports its whole tree")

	files, err = tr.gr.ChangedFiles(c2.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/ui/spacing.ts"}, files)

	files, err = tr.gr.ChangedFiles(c3.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, files)
}

func TestChangedFilesOnDelete(t *testing.T) {
	tr := newTestRepo(t)
	tr.commit("chore: init", map[string]string{"a.txt": "1", "b.txt": "2"})
	_, err := tr.wt.Remove("b.txt")
	require.NoError(t, err)
	tr.when = tr.when.Add(time.Minute)
	hash, err := tr.wt.Commit("chore: drop b", &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: tr.when},
	})
	require.NoError(t, err)

	files, err := tr.gr.ChangedFiles(hash.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, files, "deletions report the removed path")
}

func TestCreateTagAndHead(t *testing.T) {
	tr := newTestRepo(t)
	c1 := tr.commit("feat: one", map[string]string{"a.txt": "1"})

	head, err := tr.gr.Head()
	require.NoError(t, err)
	assert.Equal(t, c1.String(), head)

	require.NoError(t, tr.gr.CreateTag("v0.1.0"))
	_, err = tr.repo.Tag("v0.1.0")
	assert.NoError(t, err)

	assert.Error(t, tr.gr.CreateTag("v0.1.0"), "tags are never overwritten")
}

func TestPushTags(t *testing.T) {
	tr := newTestRepo(t)
	c1 := tr.commit("feat: one", map[string]string{"a.txt": "1"})
	tr.tag("v1.0.0", c1)

	bareDir := t.TempDir()
	_, err := git.PlainInit(bareDir, true)
	require.NoError(t, err)
	_, err = tr.repo.CreateRemote(&gitcfg.RemoteConfig{Name: "origin", URLs: []string{bareDir}})
	require.NoError(t, err)

	require.NoError(t, tr.gr.PushTags("origin", []string{"v1.0.0"}))
	require.NoError(t, tr.gr.PushTags("origin", []string{"v1.0.0"}), "an up-to-date push is not an error")

	bare, err := git.PlainOpen(bareDir)
	require.NoError(t, err)
	_, err = bare.Tag("v1.0.0")
	assert.NoError(t, err)
}

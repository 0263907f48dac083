package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestPackages(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json":                 `{"name": "monorepo", "private": true}`,
		"packages/ui/package.json":     `{"name": "@acme/ui"}`,
		"packages/core/go.mod":         "module example.com/acme/core\n\ngo 1.24\n",
		"packages/parser/Cargo.toml":   "[package]\nname = \"parser\"\n",
		"packages/empty/.gitkeep":      "",
		"node_modules/react/package.json": `{"name": "react"}`,
		"docs/README.md":               "docs only",
	})

	pkgs, err := Packages(root, DefaultPatterns)
	require.NoError(t, err)
	require.Len(t, pkgs, 4)

	assert.Equal(t, ".", pkgs[0].Directory)
	assert.Equal(t, "monorepo", pkgs[0].Name)
	assert.Equal(t, "v", pkgs[0].TagPrefix, "the root package tags without a name prefix")

	assert.Equal(t, "packages/core", pkgs[1].Directory)
	assert.Equal(t, "core", pkgs[1].Name, "module path base, not directory")
	assert.Equal(t, "core-v", pkgs[1].TagPrefix)

	assert.Equal(t, "packages/parser", pkgs[2].Directory)
	assert.Equal(t, "parser", pkgs[2].Name, "directory base when the manifest has no parseable name")

	assert.Equal(t, "packages/ui", pkgs[3].Directory)
	assert.Equal(t, "ui", pkgs[3].Name, "npm scope is stripped")
	assert.Equal(t, "ui-v", pkgs[3].TagPrefix)
}

func TestPackagesSkipsVendoredTrees(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/left-pad/package.json": `{"name": "left-pad"}`,
		"vendor/lib/go.mod":                  "module example.com/lib\n",
		"apps/web/package.json":              `{"name": "web"}`,
	})

	pkgs, err := Packages(root, []string{"*/*"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "apps/web", pkgs[0].Directory)
}

func TestPackagesDeduplicatesAcrossPatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib/package.json": `{"name": "lib"}`,
	})

	pkgs, err := Packages(root, []string{"*", "lib", "l*"})
	require.NoError(t, err)
	assert.Len(t, pkgs, 1)
}

func TestPackagesRejectsBadPattern(t *testing.T) {
	_, err := Packages(t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestPackagesEmptyRoot(t *testing.T) {
	pkgs, err := Packages(t.TempDir(), DefaultPatterns)
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}

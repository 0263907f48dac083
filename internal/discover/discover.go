// Package discover scans a repository for packages worth versioning,
// used to seed an initial configuration.
package discover

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/mod/modfile"

	"github.com/benjamin-kraatz/get-next-versions/config"
)

// DefaultPatterns cover the repository root and the usual one- and
// two-level monorepo layouts.
var DefaultPatterns = []string{".", "*", "*/*"}

// manifestFiles mark a directory as a package. Checked in order; the
// first one that yields a name wins.
var manifestFiles = []string{"package.json", "go.mod", "Cargo.toml", "pyproject.toml"}

// skipDirs hold third-party or generated code, never packages of this
// repository.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
}

// Packages scans root with the given glob patterns and returns a
// config.Package per directory that carries a package manifest,
// deduplicated and sorted by directory.
func Packages(root string, patterns []string) ([]config.Package, error) {
	seen := map[string]bool{}
	var out []config.Package

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, fmt.Errorf("globbing %q: %w", pattern, err)
		}
		for _, dir := range matches {
			if seen[dir] || skippable(dir) {
				continue
			}
			info, err := os.Stat(filepath.Join(root, dir))
			if err != nil || !info.IsDir() {
				continue
			}
			if !hasManifest(root, dir) {
				continue
			}
			seen[dir] = true
			out = append(out, makePackage(root, dir))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Directory < out[j].Directory })
	return out, nil
}

func skippable(dir string) bool {
	for _, part := range strings.Split(dir, "/") {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

func hasManifest(root, dir string) bool {
	for _, name := range manifestFiles {
		info, err := os.Stat(filepath.Join(root, dir, name))
		if err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func makePackage(root, dir string) config.Package {
	name := packageName(root, dir)
	pkg := config.Package{
		Name:      name,
		Directory: dir,
		TagPrefix: name + "-v",
	}
	if dir == "." {
		pkg.TagPrefix = "v"
	}
	return pkg
}

// packageName derives a name from the directory's manifest, falling
// back to the directory's base name. Scoped npm names keep only the
// part after the slash.
func packageName(root, dir string) string {
	if data, err := os.ReadFile(filepath.Join(root, dir, "package.json")); err == nil {
		var manifest struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &manifest); err == nil && manifest.Name != "" {
			return path.Base(manifest.Name)
		}
	}
	if data, err := os.ReadFile(filepath.Join(root, dir, "go.mod")); err == nil {
		if f, err := modfile.Parse("go.mod", data, nil); err == nil && f.Module != nil {
			return path.Base(f.Module.Mod.Path)
		}
	}
	if dir == "." {
		abs, err := filepath.Abs(root)
		if err == nil {
			return filepath.Base(abs)
		}
	}
	return filepath.Base(dir)
}

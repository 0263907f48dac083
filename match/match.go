// Package match decides whether commits and changed files fall within a
// package's scope, directory, or declared dependencies.
package match

import "strings"

// InScope reports whether a commit scope addresses the given package
// name. Comparison is case-insensitive and ignores surrounding
// whitespace. The empty-scope policy is the caller's concern.
func InScope(scope, packageName string) bool {
	return strings.EqualFold(strings.TrimSpace(scope), strings.TrimSpace(packageName))
}

// UnderPath reports whether a repo-relative file lies at or below the
// given literal path prefix. An empty prefix matches nothing.
func UnderPath(file, prefix string) bool {
	if prefix == "" {
		return false
	}
	return file == prefix || strings.HasPrefix(file, prefix+"/")
}

// PathPrefix reduces a glob-style pattern to the literal prefix used for
// matching: wildcards stripped, separators normalized to "/", trailing
// slashes trimmed. A pattern with interior wildcards collapses to its
// concatenated literal parts.
func PathPrefix(pattern string) string {
	prefix := strings.ReplaceAll(pattern, "*", "")
	prefix = NormalizePath(prefix)
	return strings.TrimRight(prefix, "/")
}

// NormalizePath rewrites Windows-style separators to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Dependency describes which dependsOn pattern fired and the changed
// files that satisfied it.
type Dependency struct {
	Pattern string
	Files   []string
}

// Dependencies tests a commit's changed files against a package's
// dependsOn patterns, reduced to literal prefixes by PathPrefix. The
// first pattern with at least one matching file wins.
func Dependencies(changedFiles, patterns []string) (Dependency, bool) {
	for _, pattern := range patterns {
		prefix := PathPrefix(pattern)
		if prefix == "" {
			continue
		}
		var files []string
		for _, f := range changedFiles {
			if UnderPath(NormalizePath(f), prefix) {
				files = append(files, f)
			}
		}
		if len(files) > 0 {
			return Dependency{Pattern: pattern, Files: files}, true
		}
	}
	return Dependency{}, false
}

// Package config loads and validates the release configuration that
// declares which packages of the repository are versioned.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// NonScopeBehavior controls whether commits without a scope bump
// non-root packages.
type NonScopeBehavior string

const (
	NonScopeBump   NonScopeBehavior = "bump"
	NonScopeIgnore NonScopeBehavior = "ignore"
)

// Package is one versioned unit of the repository.
type Package struct {
	// Name identifies the package and is the commit scope it matches.
	Name string `json:"name" yaml:"name" validate:"required"`
	// TagPrefix is prepended to versions to form the package's git
	// tags. Defaults to "v" for the root package, "<name>-v" otherwise.
	TagPrefix string `json:"tagPrefix" yaml:"tagPrefix"`
	// Directory is the package's repo-relative path; "." is the root.
	Directory string `json:"directory" yaml:"directory"`
	// DependsOn lists glob-style paths whose changes bump this package.
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// IsRoot reports whether the package versions the repository root.
func (p Package) IsRoot() bool {
	return p.Directory == "."
}

// Scope returns the identity commit scopes are matched against: the
// package name, or the empty string for the root package.
func (p Package) Scope() string {
	if p.IsRoot() {
		return ""
	}
	return p.Name
}

// Config is the full release configuration.
type Config struct {
	VersionedPackages []Package        `json:"versionedPackages" yaml:"versionedPackages" validate:"required,min=1,dive"`
	NonScopeBehavior  NonScopeBehavior `json:"nonScopeBehavior,omitempty" yaml:"nonScopeBehavior,omitempty" validate:"omitempty,oneof=bump ignore"`
}

var validate = validator.New()

// DefaultFiles are the file names probed, in order, when no explicit
// config path is given.
var DefaultFiles = []string{"release-config.json", "release-config.yaml", "release-config.yml"}

// NotFoundError reports that no config file exists in a directory.
type NotFoundError struct {
	Dir string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no release config found in %s (looked for %s)", e.Dir, strings.Join(DefaultFiles, ", "))
}

// Find locates the configuration file in dir by probing DefaultFiles.
func Find(dir string) (string, error) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &NotFoundError{Dir: dir}
}

// Load reads, defaults, and validates the configuration at path. JSON
// and YAML are both accepted, chosen by file extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.NonScopeBehavior == "" {
		c.NonScopeBehavior = NonScopeBump
	}
	for i := range c.VersionedPackages {
		p := &c.VersionedPackages[i]
		if p.Directory == "" {
			p.Directory = "."
		}
		if p.TagPrefix == "" {
			if p.IsRoot() {
				p.TagPrefix = "v"
			} else {
				p.TagPrefix = p.Name + "-v"
			}
		}
	}
}

// Validate checks structural constraints beyond decoding: required
// fields, the nonScopeBehavior literal, and unique package names.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.VersionedPackages))
	for _, p := range c.VersionedPackages {
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate package name %q", p.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

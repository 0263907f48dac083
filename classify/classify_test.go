package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benjamin-kraatz/get-next-versions/commit"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Magnitude
	}{
		{"breaking footer dominates type", "chore: drop node 14\n\nBREAKING CHANGE: removes the legacy runner", Major},
		{"breaking footer lowercase", "docs: rewrite guide\n\nnote the breaking change in defaults", Major},
		{"feat with marker", "feat(ui)!: rework grid", Major},
		{"fix with marker", "fix!: drop broken fallback", Major},
		{"marker on other types", "chore(deps)!: bump toolchain", Major},
		{"feat", "feat: add export", Minor},
		{"feat scoped", "feat(app): add button", Minor},
		{"fix", "fix: close leaked handle", Patch},
		{"fix scoped", "fix(ui): patch spacing", Patch},
		{"chore", "chore: cleanup", None},
		{"docs", "docs: typo", None},
		{"loose feature prefix excluded", "feature-x: speed up builds", None},
		{"free text excluded", "update readme", None},
		{"breaking mention without header excluded", "rework everything, breaking change", None},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Message(tc.message), "message %q", tc.message)
		})
	}
}

func TestOf(t *testing.T) {
	assert.Equal(t, Major, Of(commit.Parsed{Type: "refactor", Breaking: true}))
	assert.Equal(t, Minor, Of(commit.Parsed{Type: "feat"}))
	assert.Equal(t, Patch, Of(commit.Parsed{Type: "fix"}))
	assert.Equal(t, None, Of(commit.Parsed{Type: "test"}))
}

func TestMagnitudeOrdering(t *testing.T) {
	assert.True(t, None < Patch)
	assert.True(t, Patch < Minor)
	assert.True(t, Minor < Major)
}

func TestMagnitudeString(t *testing.T) {
	assert.Equal(t, "major", Major.String())
	assert.Equal(t, "minor", Minor.String())
	assert.Equal(t, "patch", Patch.String())
	assert.Equal(t, "none", None.String())
}

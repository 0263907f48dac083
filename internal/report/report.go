// Package report renders check results, either as machine-readable JSON
// or as a colorized terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/benjamin-kraatz/get-next-versions/plan"
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	stylePackage = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	styleVersion = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleReason  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type packageStatus struct {
	CurrentVersion string `json:"currentVersion"`
	NextVersion    string `json:"nextVersion"`
	HasChanges     bool   `json:"hasChanges"`
}

// JSON writes the machine-readable report: an object keyed by package
// name. Every configured package appears, changed or not.
func JSON(w io.Writer, res *plan.Result) error {
	out := make(map[string]packageStatus, len(res.Updates))
	for _, u := range res.Updates {
		out[u.Name] = packageStatus{
			CurrentVersion: u.CurrentVersion.String(),
			NextVersion:    u.NextVersion.String(),
			HasChanges:     u.HasChanges,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Text writes the human-readable report. Styling is dropped entirely
// when color is false so the output stays clean in pipes and logs.
func Text(w io.Writer, res *plan.Result, color bool) {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	if !res.HasChanges() {
		fmt.Fprintln(w, style(styleMuted, "No version changes detected."))
		return
	}

	fmt.Fprintln(w, style(styleHeading, "Version changes:"))
	for _, u := range res.Updates {
		if !u.HasChanges {
			fmt.Fprintf(w, "  %s\n", style(styleMuted, fmt.Sprintf("%s: %s (no changes)", u.Name, u.CurrentVersion)))
			continue
		}
		fmt.Fprintf(w, "  %s: %s -> %s (%s)\n",
			style(stylePackage, u.Name),
			u.CurrentVersion,
			style(styleVersion, u.NextVersion.String()),
			u.Tag())
		for _, at := range u.Changes {
			fmt.Fprintf(w, "    %s %s\n", style(styleMuted, at.Commit.ShortHash()), at.Commit.Subject())
			for _, reason := range at.Reasons {
				fmt.Fprintf(w, "      %s\n", style(styleReason, reason))
			}
		}
	}
}

// ciEnvVars are the environment indicators checked by DetectCI. A value
// of "false" (any case) is treated as explicitly opting out.
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"BUILDKITE",
	"CIRCLECI",
	"JENKINS_URL",
	"TRAVIS",
}

// DetectCI reports whether the process appears to run under a CI system.
func DetectCI() bool {
	for _, name := range ciEnvVars {
		v := os.Getenv(name)
		if v != "" && !strings.EqualFold(v, "false") {
			return true
		}
	}
	return false
}

// InteractiveStdout reports whether stdout is attached to a terminal.
func InteractiveStdout() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// InteractiveStdin reports whether stdin is attached to a terminal.
func InteractiveStdin() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// InteractiveStderr reports whether stderr is attached to a terminal.
func InteractiveStderr() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

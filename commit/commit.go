// Package commit parses raw git commits against the conventional commit
// header grammar.
package commit

import (
	"regexp"
	"strings"
)

// headerPattern matches a conventional commit header at the start of a
// message: a lowercase type, an optional parenthesized scope, and an
// optional breaking marker before the colon.
var headerPattern = regexp.MustCompile(`^([a-z]+)(?:\(([^)]+)\))?(!)?:`)

// Raw is one git log entry: the full commit identifier and the complete
// message as recorded by git, header line plus any body and footers.
type Raw struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
}

// Subject returns the first line of the message.
func (r Raw) Subject() string {
	if i := strings.IndexByte(r.Message, '\n'); i >= 0 {
		return strings.TrimRight(r.Message[:i], "\r")
	}
	return r.Message
}

// ShortHash returns an abbreviated commit identifier for display.
func (r Raw) ShortHash() string {
	if len(r.Hash) > 8 {
		return r.Hash[:8]
	}
	return r.Hash
}

// Parsed is the structured form of a conventional commit header.
type Parsed struct {
	Type  string
	Scope string
	// Breaking is set by the "!" marker on any type, or by a
	// "BREAKING CHANGE" mention anywhere in the message.
	Breaking bool
}

// Parse applies the header grammar to a commit message. The second
// return is false when the message carries no conventional header at
// all, such as a merge commit or a free-text message; such commits take
// no part in version resolution.
func Parse(message string) (Parsed, bool) {
	m := headerPattern.FindStringSubmatch(message)
	if m == nil {
		return Parsed{}, false
	}
	return Parsed{
		Type:     m[1],
		Scope:    m[2],
		Breaking: m[3] == "!" || mentionsBreakingChange(message),
	}, true
}

func mentionsBreakingChange(message string) bool {
	return strings.Contains(strings.ToLower(message), "breaking change")
}

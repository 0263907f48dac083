package plan

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/benjamin-kraatz/get-next-versions/config"
)

// Fingerprint derives a stable identifier for a result: a blake3 digest
// over the canonical JSON of its observable outcome. Two runs that
// agree on every package's versions and attributed commits share an id.
func Fingerprint(res *Result) (string, error) {
	type fpCommit struct {
		Hash    string   `json:"hash"`
		Reasons []string `json:"reasons"`
	}
	type fpUpdate struct {
		Name    string     `json:"name"`
		Current string     `json:"current"`
		Next    string     `json:"next"`
		Commits []fpCommit `json:"commits"`
	}
	doc := struct {
		Policy  config.NonScopeBehavior `json:"policy"`
		Updates []fpUpdate              `json:"updates"`
	}{Policy: res.NonScopeBehavior}

	for _, u := range res.Updates {
		fu := fpUpdate{
			Name:    u.Name,
			Current: u.CurrentVersion.String(),
			Next:    u.NextVersion.String(),
		}
		for _, at := range u.Changes {
			fu.Commits = append(fu.Commits, fpCommit{Hash: at.Commit.Hash, Reasons: at.Reasons})
		}
		doc.Updates = append(doc.Updates, fu)
	}

	data, err := canonicalJSON(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprinting result: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON re-marshals through a generic value so object keys come
// out sorted and equal documents serialize identically.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

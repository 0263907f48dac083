// Package journal persists release check runs to a local SQLite database
// so past version decisions can be listed and inspected later.
package journal

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/benjamin-kraatz/get-next-versions/plan"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	head TEXT NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_packages (
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	current TEXT NOT NULL,
	next TEXT NOT NULL,
	has_changes INTEGER NOT NULL,
	commits INTEGER NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// Store records check results keyed by their fingerprint.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Entry summarizes one recorded run.
type Entry struct {
	ID        string
	CreatedAt time.Time
	Head      string
	Packages  int
	Changed   int
}

// NotFoundError indicates no recorded run matches an ID prefix.
type NotFoundError struct {
	Input string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no run matches %q", e.Input)
}

// AmbiguityError indicates multiple recorded runs match an ID prefix.
type AmbiguityError struct {
	Prefix     string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous prefix '%s' matches:\n  %s\nprovide more characters", e.Prefix, strings.Join(e.Candidates, "\n  "))
}

// Open opens or creates the journal database at the given path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the journal database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a check result under its fingerprint and returns that ID.
// Recording the same result twice is a no-op, so repeated checks against an
// unchanged repository keep a single journal entry.
func (s *Store) Record(res *plan.Result, head string) (string, error) {
	id, err := plan.Fingerprint(res)
	if err != nil {
		return "", fmt.Errorf("fingerprinting result: %w", err)
	}

	payload, err := encodePayload(res)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO runs (id, created_at, head, payload)
		VALUES (?, ?, ?, ?)
	`, id, time.Now().Unix(), head, payload)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, u := range res.Updates {
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO run_packages (run_id, name, current, next, has_changes, commits)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, u.Name, u.CurrentVersion.String(), u.NextVersion.String(), u.HasChanges, len(u.Changes))
		if err != nil {
			return "", fmt.Errorf("inserting run package %s: %w", u.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	s.log.Debug().Str("run", id).Str("head", head).Msg("recorded check run")
	return id, nil
}

// Entries returns the most recent runs, newest first.
func (s *Store) Entries(limit int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.created_at, r.head,
			COUNT(p.name), COALESCE(SUM(p.has_changes), 0)
		FROM runs r
		LEFT JOIN run_packages p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &createdAt, &e.Head, &e.Packages, &e.Changed); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Find resolves a run ID prefix to a full run ID.
func (s *Store) Find(prefix string) (string, error) {
	rows, err := s.db.Query(`
		SELECT id FROM runs WHERE id LIKE ? || '%' ORDER BY id LIMIT 11
	`, strings.ToLower(prefix))
	if err != nil {
		return "", fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scanning row: %w", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	if len(candidates) == 0 {
		return "", &NotFoundError{Input: prefix}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if len(candidates) > 10 {
		candidates = candidates[:10]
	}
	return "", &AmbiguityError{Prefix: prefix, Candidates: candidates}
}

// Payload loads the full stored result for a run ID.
func (s *Store) Payload(id string) (*plan.Result, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM runs WHERE id = ?
	`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Input: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	return decodePayload(payload)
}

func encodePayload(res *plan.Result) ([]byte, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(raw); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return compressed.Bytes(), nil
}

func decodePayload(payload []byte) (*plan.Result, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}

	var res plan.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("unmarshaling result: %w", err)
	}
	return &res, nil
}

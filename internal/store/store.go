// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists allocation sessions and their artifacts in a
// SQLite database: term usage counters, vocabularies, injection plans and
// validation verdicts. Restoring a session lets reuse caps hold across
// separate runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/phaseplan/internal/allocate"
	"github.com/pdiddy/phaseplan/pkg/types"
)

const dbFile = "phaseplan.db"

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// Store manages the run database.
type Store struct {
	db *sql.DB

	// fts is false when the SQLite build lacks FTS5; term search then
	// falls back to LIKE.
	fts bool
}

// Open opens or creates runsDir/phaseplan.db and its schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.RunsDir
	if dir == "" {
		dir = "runs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating runs directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			industry TEXT NOT NULL,
			role TEXT NOT NULL,
			profile TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS term_usage (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			term TEXT NOT NULL,
			uses INTEGER NOT NULL,
			PRIMARY KEY (session_id, term)
		)`,
		`CREATE TABLE IF NOT EXISTS terms (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			category TEXT NOT NULL,
			position INTEGER NOT NULL,
			term TEXT NOT NULL,
			UNIQUE (session_id, category, term)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_terms_session ON terms(session_id)`,
		`CREATE TABLE IF NOT EXISTS plan_cells (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			run INTEGER NOT NULL,
			phase TEXT NOT NULL,
			category TEXT NOT NULL,
			position INTEGER NOT NULL,
			term TEXT NOT NULL,
			PRIMARY KEY (session_id, run, phase, category, position)
		)`,
		`CREATE TABLE IF NOT EXISTS validations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			passed INTEGER NOT NULL,
			specific_ratio REAL,
			weighted_coverage REAL,
			errors TEXT,
			metrics TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validations_session ON validations(session_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync. The trigram tokenizer
	// matches substrings, which suits unsegmented Japanese terms.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='terms_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(`CREATE VIRTUAL TABLE terms_fts USING fts5(term, content=terms, content_rowid=rowid, tokenize='trigram')`); err != nil {
		// No FTS5 in this build.
		return nil
	}
	triggers := []string{
		`CREATE TRIGGER terms_ai AFTER INSERT ON terms BEGIN
			INSERT INTO terms_fts(rowid, term) VALUES (new.rowid, new.term);
		END`,
		`CREATE TRIGGER terms_ad AFTER DELETE ON terms BEGIN
			INSERT INTO terms_fts(terms_fts, rowid, term) VALUES('delete', old.rowid, old.term);
		END`,
		`CREATE TRIGGER terms_au AFTER UPDATE ON terms BEGIN
			INSERT INTO terms_fts(terms_fts, rowid, term) VALUES('delete', old.rowid, old.term);
			INSERT INTO terms_fts(rowid, term) VALUES (new.rowid, new.term);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// SaveSession upserts s and replaces its usage counters.
func (s *Store) SaveSession(ctx context.Context, sess *allocate.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeLayout)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, industry, role, profile, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			industry=excluded.industry, role=excluded.role,
			profile=excluded.profile, updated_at=excluded.updated_at`,
		sess.ID, sess.Industry, sess.Role, sess.Profile,
		sess.Created.UTC().Format(timeLayout), now,
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM term_usage WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clearing usage: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO term_usage (session_id, term, uses) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for term, uses := range sess.Usage() {
		if _, err := stmt.ExecContext(ctx, sess.ID, term, uses); err != nil {
			return fmt.Errorf("inserting usage of %q: %w", term, err)
		}
	}
	return tx.Commit()
}

// LoadSession restores the session with id, usage counters included.
func (s *Store) LoadSession(ctx context.Context, id string) (*allocate.Session, error) {
	var industry, role, created string
	var profile sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT industry, role, profile, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&industry, &role, &profile, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	createdAt, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT term, uses FROM term_usage WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var term string
		var uses int
		if err := rows.Scan(&term, &uses); err != nil {
			return nil, fmt.Errorf("scanning usage: %w", err)
		}
		usage[term] = uses
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sess := allocate.RestoreSession(id, industry, role, createdAt, usage)
	sess.Profile = profile.String
	return sess, nil
}

// SessionSummary is one line of the session history.
type SessionSummary struct {
	ID          string    `json:"id" yaml:"id"`
	Industry    string    `json:"industry" yaml:"industry"`
	Role        string    `json:"role" yaml:"role"`
	Profile     string    `json:"profile" yaml:"profile"`
	Created     time.Time `json:"created" yaml:"created"`
	Updated     time.Time `json:"updated" yaml:"updated"`
	Terms       int       `json:"terms" yaml:"terms"`
	Validations int       `json:"validations" yaml:"validations"`

	// LastPassed is the verdict of the latest validation, nil when none.
	LastPassed *bool `json:"last_passed,omitempty" yaml:"last_passed,omitempty"`
}

// ListSessions returns sessions, most recently updated first. A
// non-positive limit returns all.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.industry, s.role, s.profile, s.created_at, s.updated_at,
			(SELECT count(*) FROM term_usage u WHERE u.session_id = s.id),
			(SELECT count(*) FROM validations v WHERE v.session_id = s.id),
			(SELECT v.passed FROM validations v WHERE v.session_id = s.id ORDER BY v.id DESC LIMIT 1)
		FROM sessions s
		ORDER BY s.updated_at DESC, s.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			ss               SessionSummary
			profile          sql.NullString
			created, updated string
			last             sql.NullBool
		)
		if err := rows.Scan(&ss.ID, &ss.Industry, &ss.Role, &profile, &created, &updated,
			&ss.Terms, &ss.Validations, &last); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		ss.Profile = profile.String
		ss.Created, _ = time.Parse(timeLayout, created)
		ss.Updated, _ = time.Parse(timeLayout, updated)
		if last.Valid {
			passed := last.Bool
			ss.LastPassed = &passed
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and everything recorded for it.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func requireSession(ctx context.Context, tx *sql.Tx, id string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM sessions WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

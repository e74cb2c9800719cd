// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/phaseplan/internal/validate"
	"github.com/pdiddy/phaseplan/pkg/types"
)

// SaveVocabulary replaces the vocabulary recorded for a session. Term rank
// is kept as the position within each category.
func (s *Store) SaveVocabulary(ctx context.Context, sessionID string, v types.Vocabulary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireSession(ctx, tx, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM terms WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing terms: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO terms (session_id, category, position, term) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range types.Categories() {
		for i, term := range v[c] {
			if _, err := stmt.ExecContext(ctx, sessionID, string(c), i, term); err != nil {
				return fmt.Errorf("inserting term %q: %w", term, err)
			}
		}
	}
	return tx.Commit()
}

// LoadVocabulary returns the vocabulary recorded for a session. Categories
// without terms are absent.
func (s *Store) LoadVocabulary(ctx context.Context, sessionID string) (types.Vocabulary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, term FROM terms WHERE session_id = ? ORDER BY category, position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()

	v := types.Vocabulary{}
	for rows.Next() {
		var cat, term string
		if err := rows.Scan(&cat, &term); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		c, err := types.ParseCategory(cat)
		if err != nil {
			return nil, err
		}
		v[c] = append(v[c], term)
	}
	return v, rows.Err()
}

// SavePlan records plan as the next run of a session and returns the run
// number, starting at 1.
func (s *Store) SavePlan(ctx context.Context, sessionID string, plan types.InjectionPlan) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireSession(ctx, tx, sessionID); err != nil {
		return 0, err
	}
	var run int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(run), 0) + 1 FROM plan_cells WHERE session_id = ?`, sessionID,
	).Scan(&run); err != nil {
		return 0, fmt.Errorf("numbering run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO plan_cells (session_id, run, phase, category, position, term) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range types.Phases() {
		for _, c := range types.Categories() {
			for i, term := range plan.Terms(p, c) {
				if _, err := stmt.ExecContext(ctx, sessionID, run, p.String(), string(c), i, term); err != nil {
					return 0, fmt.Errorf("inserting plan cell: %w", err)
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return run, nil
}

// LoadPlan returns a recorded plan. A non-positive run selects the latest.
func (s *Store) LoadPlan(ctx context.Context, sessionID string, run int) (types.InjectionPlan, error) {
	if run <= 0 {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(run), 0) FROM plan_cells WHERE session_id = ?`, sessionID,
		).Scan(&run); err != nil {
			return nil, fmt.Errorf("finding latest run: %w", err)
		}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT phase, category, term FROM plan_cells
		 WHERE session_id = ? AND run = ?
		 ORDER BY phase, category, position`, sessionID, run)
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	defer rows.Close()

	plan := types.NewInjectionPlan()
	for rows.Next() {
		var phase, cat, term string
		if err := rows.Scan(&phase, &cat, &term); err != nil {
			return nil, fmt.Errorf("scanning plan cell: %w", err)
		}
		p, err := types.ParsePhase(phase)
		if err != nil {
			return nil, err
		}
		c, err := types.ParseCategory(cat)
		if err != nil {
			return nil, err
		}
		plan.Add(p, c, term)
	}
	return plan, rows.Err()
}

// ValidationRecord is a stored verdict.
type ValidationRecord struct {
	ID        int64           `json:"id" yaml:"id"`
	SessionID string          `json:"session_id" yaml:"session_id"`
	Created   time.Time       `json:"created" yaml:"created"`
	Result    validate.Result `json:"result" yaml:"result"`
}

// SaveValidation appends a verdict to a session's history.
func (s *Store) SaveValidation(ctx context.Context, sessionID string, res validate.Result) (int64, error) {
	errs, err := json.Marshal(res.Errors)
	if err != nil {
		return 0, fmt.Errorf("marshaling errors: %w", err)
	}
	metrics, err := json.Marshal(res.Metrics)
	if err != nil {
		return 0, fmt.Errorf("marshaling metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireSession(ctx, tx, sessionID); err != nil {
		return 0, err
	}
	r, err := tx.ExecContext(ctx,
		`INSERT INTO validations (session_id, created_at, passed, specific_ratio, weighted_coverage, errors, metrics)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, time.Now().UTC().Format(timeLayout), res.Passed,
		res.Metrics.SpecificRatio, res.Metrics.WeightedCoverage, string(errs), string(metrics),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting validation: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// Validations returns a session's verdicts, oldest first.
func (s *Store) Validations(ctx context.Context, sessionID string) ([]ValidationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, passed, errors, metrics FROM validations
		 WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying validations: %w", err)
	}
	defer rows.Close()

	var out []ValidationRecord
	for rows.Next() {
		var (
			rec           ValidationRecord
			created       string
			errs, metrics sql.NullString
		)
		if err := rows.Scan(&rec.ID, &created, &rec.Result.Passed, &errs, &metrics); err != nil {
			return nil, fmt.Errorf("scanning validation: %w", err)
		}
		rec.SessionID = sessionID
		rec.Created, _ = time.Parse(timeLayout, created)
		if errs.Valid {
			if err := json.Unmarshal([]byte(errs.String), &rec.Result.Errors); err != nil {
				return nil, fmt.Errorf("decoding errors of validation %d: %w", rec.ID, err)
			}
		}
		if metrics.Valid {
			if err := json.Unmarshal([]byte(metrics.String), &rec.Result.Metrics); err != nil {
				return nil, fmt.Errorf("decoding metrics of validation %d: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TermHit is one search match.
type TermHit struct {
	SessionID string         `json:"session_id" yaml:"session_id"`
	Category  types.Category `json:"category" yaml:"category"`
	Position  int            `json:"position" yaml:"position"`
	Term      string         `json:"term" yaml:"term"`
}

// SearchTerms finds recorded terms containing query, across sessions.
// Queries of three or more characters use the trigram index when the
// SQLite build has FTS5.
func (s *Store) SearchTerms(ctx context.Context, query string, limit int) ([]TermHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if s.fts && utf8.RuneCountInString(query) >= 3 {
		rows, err = s.db.QueryContext(ctx,
			`SELECT t.session_id, t.category, t.position, t.term
			 FROM terms_fts
			 JOIN terms t ON t.rowid = terms_fts.rowid
			 WHERE terms_fts MATCH ?
			 ORDER BY terms_fts.rank, t.session_id, t.category, t.position
			 LIMIT ?`, ftsPhrase(query), limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT session_id, category, position, term FROM terms
			 WHERE term LIKE ? ESCAPE '\'
			 ORDER BY session_id, category, position
			 LIMIT ?`, "%"+likeEscaper.Replace(query)+"%", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("searching terms: %w", err)
	}
	defer rows.Close()

	var out []TermHit
	for rows.Next() {
		var h TermHit
		var cat string
		if err := rows.Scan(&h.SessionID, &cat, &h.Position, &h.Term); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		h.Category = types.Category(cat)
		out = append(out, h)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ftsPhrase quotes q as a single FTS5 phrase.
func ftsPhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

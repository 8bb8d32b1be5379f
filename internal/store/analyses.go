package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// SaveAnalysis stores a and its findings for user. Saving the same analysis
// twice replaces the earlier copy.
func (db *DB) SaveAnalysis(user string, a analysis.CodeAnalysis) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding analysis %s: %w", a.ID, err)
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM analyses WHERE id = ?", a.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO analyses
		(id, user, language, created_at, error_count, warning_count, suggestion_count,
		 cyclomatic, cognitive, maintainability, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, user, string(a.Language), createdAt.UTC().Format(time.RFC3339Nano),
		len(a.Errors), len(a.Warnings), len(a.Suggestions),
		a.Complexity.Cyclomatic, a.Complexity.Cognitive, a.Complexity.Maintainability,
		string(payload),
	); err != nil {
		return fmt.Errorf("inserting analysis %s: %w", a.ID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO findings (analysis_id, rule_id, severity, category, line, col, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range a.All() {
		if _, err := stmt.Exec(a.ID, r.RuleID, string(r.Severity), string(r.Category), r.Line, r.Column, r.Message); err != nil {
			return fmt.Errorf("inserting finding %s: %w", r.RuleID, err)
		}
	}
	return tx.Commit()
}

// LatestAnalysis returns the most recent analysis stored for user in lang.
// It returns ErrNotFound when there is none.
func (db *DB) LatestAnalysis(user string, lang analysis.Language) (*analysis.CodeAnalysis, error) {
	var payload string
	err := db.conn.QueryRow(
		`SELECT payload FROM analyses
		WHERE user = ? AND language = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		user, string(lang),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var a analysis.CodeAnalysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("decoding stored analysis: %w", err)
	}
	return &a, nil
}

// GetAnalysis returns a stored analysis by id.
func (db *DB) GetAnalysis(id string) (*analysis.CodeAnalysis, error) {
	var payload string
	err := db.conn.QueryRow("SELECT payload FROM analyses WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var a analysis.CodeAnalysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("decoding stored analysis: %w", err)
	}
	return &a, nil
}

// RecentAnalyses returns up to n summaries for user, newest first.
func (db *DB) RecentAnalyses(user string, n int) ([]Summary, error) {
	rows, err := db.conn.Query(
		`SELECT id, user, language, created_at, error_count, warning_count,
		        suggestion_count, cyclomatic, maintainability
		FROM analyses WHERE user = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		user, n,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var s Summary
		var lang, createdAt string
		if err := rows.Scan(&s.ID, &s.User, &lang, &createdAt, &s.Errors, &s.Warnings,
			&s.Suggestions, &s.Cyclomatic, &s.Maintainability); err != nil {
			return nil, err
		}
		s.Language = analysis.Language(lang)
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// recentFindings returns every finding of the user's last window analyses.
func (db *DB) recentFindings(user string, window int) ([]Finding, int, error) {
	var analyses int
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM (SELECT id FROM analyses WHERE user = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
		user, window,
	).Scan(&analyses); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		`SELECT f.analysis_id, f.rule_id, f.severity, f.category, f.line, f.col, f.message
		FROM findings f
		WHERE f.analysis_id IN (
			SELECT id FROM analyses WHERE user = ?
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
		ORDER BY f.id`,
		user, window,
	)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []Finding
	for rows.Next() {
		var f Finding
		var sev, cat string
		if err := rows.Scan(&f.AnalysisID, &f.RuleID, &sev, &cat, &f.Line, &f.Column, &f.Message); err != nil {
			return nil, 0, err
		}
		f.Severity = analysis.Severity(sev)
		f.Category = analysis.Category(cat)
		out = append(out, f)
	}
	return out, analyses, rows.Err()
}

// FeedbackContext builds the personalization input for the user's next
// analysis in lang: the derived progress plus the latest analysis, if any.
func (db *DB) FeedbackContext(user string, lang analysis.Language, window int) (*analysis.FeedbackContext, error) {
	progress, err := db.Progress(user, window)
	if err != nil {
		return nil, err
	}
	fctx := &analysis.FeedbackContext{UserProgress: &progress}

	prev, err := db.LatestAnalysis(user, lang)
	switch {
	case err == nil:
		fctx.PreviousAnalysis = prev
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("loading previous analysis: %w", err)
	}
	return fctx, nil
}

// Limits applied when deriving progress.
const (
	maxCommonMistakes   = 5
	maxImprovementAreas = 3
)

// Progress derives the learner summary from the user's last window analyses.
// Common mistakes are error and warning messages seen at least twice.
// Strengths are categories with no findings. Improvement areas are the
// categories with the most findings.
func (db *DB) Progress(user string, window int) (analysis.UserProgress, error) {
	progress := analysis.UserProgress{
		CommonMistakes:   []string{},
		Strengths:        []string{},
		ImprovementAreas: []string{},
	}
	findings, analyses, err := db.recentFindings(user, window)
	if err != nil {
		return progress, fmt.Errorf("loading findings for %s: %w", user, err)
	}
	if analyses == 0 {
		return progress, nil
	}

	messages := map[string]int{}
	categories := map[analysis.Category]int{}
	for _, f := range findings {
		categories[f.Category]++
		if f.Severity == analysis.SeverityError || f.Severity == analysis.SeverityWarning {
			messages[f.Message]++
		}
	}

	for msg, n := range messages {
		if n >= 2 {
			progress.CommonMistakes = append(progress.CommonMistakes, msg)
		}
	}
	sort.Slice(progress.CommonMistakes, func(i, j int) bool {
		a, b := progress.CommonMistakes[i], progress.CommonMistakes[j]
		if messages[a] != messages[b] {
			return messages[a] > messages[b]
		}
		return a < b
	})
	if len(progress.CommonMistakes) > maxCommonMistakes {
		progress.CommonMistakes = progress.CommonMistakes[:maxCommonMistakes]
	}

	for _, c := range analysis.Categories {
		if categories[c] == 0 {
			progress.Strengths = append(progress.Strengths, string(c))
		}
	}
	for _, cc := range rankCategories(categories) {
		if len(progress.ImprovementAreas) == maxImprovementAreas {
			break
		}
		progress.ImprovementAreas = append(progress.ImprovementAreas, string(cc.Category))
	}
	return progress, nil
}

// CategoryTotals counts the findings per category over the user's last
// window analyses, largest first.
func (db *DB) CategoryTotals(user string, window int) ([]CategoryCount, error) {
	findings, _, err := db.recentFindings(user, window)
	if err != nil {
		return nil, err
	}
	counts := map[analysis.Category]int{}
	for _, f := range findings {
		counts[f.Category]++
	}
	return rankCategories(counts), nil
}

func rankCategories(counts map[analysis.Category]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

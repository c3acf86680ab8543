package database

import (
	"database/sql"
	"fmt"
)

const newsColumns = `id, title, link, published_at, source, description, content_hash,
	ai_probability, ai_analysis, is_relevant, irrelevance_reason, is_hidden,
	needs_reassessment, admin_context, reassessed_at, created_at`

// InsertNews inserts a news record. Returns the ID on success, 0 if the
// link already exists (duplicate), or an error for any other failure.
func (db *DB) InsertNews(item *NewsItem) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO news (title, link, published_at, source, description, content_hash,
			ai_probability, ai_analysis, is_relevant, irrelevance_reason, is_hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title, item.Link, item.PublishedAt, item.Source, item.Description,
		item.ContentHash, item.AIProbability, item.AIAnalysis,
		boolToInt(item.IsRelevant), item.IrrelevanceReason, boolToInt(item.IsHidden),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, nil
		}
		return 0, err
	}
	return result.LastInsertId()
}

// GetRecentNews returns news published (or collected) within the last
// windowDays days, newest first. This is the deduplication window.
func (db *DB) GetRecentNews(windowDays int) ([]NewsItem, error) {
	rows, err := db.conn.Query(
		`SELECT `+newsColumns+` FROM news
		WHERE COALESCE(published_at, created_at) >= datetime('now', ?)
		ORDER BY COALESCE(published_at, created_at) DESC`,
		fmt.Sprintf("-%d days", windowDays),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

// GetNewsByID returns a single news record, or nil if not found.
func (db *DB) GetNewsByID(newsID int64) (*NewsItem, error) {
	row := db.conn.QueryRow(`SELECT `+newsColumns+` FROM news WHERE id = ?`, newsID)
	item, err := scanNewsItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetNewsNeedingReassessment returns up to limit records flagged for
// re-analysis, oldest flag first.
func (db *DB) GetNewsNeedingReassessment(limit int) ([]NewsItem, error) {
	rows, err := db.conn.Query(
		`SELECT `+newsColumns+` FROM news
		WHERE needs_reassessment = 1 ORDER BY id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

// UpdateClassification replaces the classification fields of a record,
// clears the reassessment flag and stamps reassessed_at.
func (db *DB) UpdateClassification(newsID int64, probability *int, analysis string, isRelevant bool, irrelevanceReason *string, isHidden bool) error {
	_, err := db.conn.Exec(
		`UPDATE news SET ai_probability = ?, ai_analysis = ?, is_relevant = ?,
			irrelevance_reason = ?, is_hidden = ?, needs_reassessment = 0,
			reassessed_at = datetime('now')
		WHERE id = ?`,
		probability, analysis, boolToInt(isRelevant), irrelevanceReason,
		boolToInt(isHidden), newsID,
	)
	return err
}

// FlagForReassessment marks a record for re-analysis with admin context.
func (db *DB) FlagForReassessment(newsID int64, adminContext string) error {
	result, err := db.conn.Exec(
		`UPDATE news SET needs_reassessment = 1, admin_context = ? WHERE id = ?`,
		adminContext, newsID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("news %d not found", newsID)
	}
	return nil
}

// SetHidden toggles administrator visibility of a record.
func (db *DB) SetHidden(newsID int64, hidden bool) error {
	_, err := db.conn.Exec(
		`UPDATE news SET is_hidden = ? WHERE id = ?`, boolToInt(hidden), newsID,
	)
	return err
}

// SetProbability overrides ai_probability from the admin surface.
func (db *DB) SetProbability(newsID int64, probability int) error {
	_, err := db.conn.Exec(
		`UPDATE news SET ai_probability = ? WHERE id = ?`, probability, newsID,
	)
	return err
}

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	row := db.conn.QueryRow(`SELECT
		COUNT(*),
		SUM(CASE WHEN ai_probability > 0 THEN 1 ELSE 0 END),
		SUM(CASE WHEN ai_probability = 0 THEN 1 ELSE 0 END),
		SUM(CASE WHEN ai_probability IS NULL THEN 1 ELSE 0 END),
		SUM(CASE WHEN is_hidden = 1 THEN 1 ELSE 0 END),
		SUM(CASE WHEN needs_reassessment = 1 THEN 1 ELSE 0 END)
	FROM news`)

	var rumors, regular, notAnalyzed, hidden, pending *int
	if err := row.Scan(&s.TotalNews, &rumors, &regular, &notAnalyzed, &hidden, &pending); err != nil {
		return nil, err
	}
	s.TransferRumors = derefInt(rumors)
	s.RegularNews = derefInt(regular)
	s.NotAnalyzed = derefInt(notAnalyzed)
	s.Hidden = derefInt(hidden)
	s.PendingReassess = derefInt(pending)

	row = db.conn.QueryRow(`SELECT COUNT(*),
		SUM(CASE WHEN is_current_squad = 1 THEN 1 ELSE 0 END) FROM players`)
	var squad *int
	if err := row.Scan(&s.TotalPlayers, &squad); err != nil {
		return nil, err
	}
	s.CurrentSquad = derefInt(squad)

	return s, nil
}

func scanNewsItems(rows *sql.Rows) ([]NewsItem, error) {
	var items []NewsItem
	for rows.Next() {
		item, err := scanNewsRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNewsRow(row rowScanner) (*NewsItem, error) {
	var item NewsItem
	var relevant, hidden, reassess int
	if err := row.Scan(&item.ID, &item.Title, &item.Link, &item.PublishedAt,
		&item.Source, &item.Description, &item.ContentHash, &item.AIProbability,
		&item.AIAnalysis, &relevant, &item.IrrelevanceReason, &hidden,
		&reassess, &item.AdminContext, &item.ReassessedAt, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.IsRelevant = relevant != 0
	item.IsHidden = hidden != 0
	item.NeedsReassessment = reassess != 0
	return &item, nil
}

func scanNewsItem(row *sql.Row) (*NewsItem, error) {
	return scanNewsRow(row)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

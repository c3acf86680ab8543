package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS news (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    link TEXT UNIQUE NOT NULL,
    published_at TEXT,
    source TEXT,
    description TEXT,
    content_hash TEXT NOT NULL,
    ai_probability INTEGER,
    ai_analysis TEXT,
    is_relevant INTEGER DEFAULT 1,
    irrelevance_reason TEXT,
    is_hidden INTEGER DEFAULT 0,
    needs_reassessment INTEGER DEFAULT 0,
    admin_context TEXT,
    reassessed_at TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS players (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    normalized_name TEXT UNIQUE NOT NULL,
    aliases TEXT,
    rumor_count INTEGER DEFAULT 1,
    is_current_squad INTEGER DEFAULT 0,
    last_seen_at TEXT DEFAULT (datetime('now')),
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS news_players (
    news_id INTEGER NOT NULL REFERENCES news(id),
    player_id INTEGER NOT NULL REFERENCES players(id),
    role TEXT NOT NULL DEFAULT 'mentioned',
    PRIMARY KEY (news_id, player_id)
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    finished_at TEXT DEFAULT (datetime('now')),
    fetched INTEGER DEFAULT 0,
    duplicates INTEGER DEFAULT 0,
    transfer_rumors INTEGER DEFAULT 0,
    regular_news INTEGER DEFAULT 0,
    not_analyzed INTEGER DEFAULT 0,
    auto_hidden INTEGER DEFAULT 0,
    analyzed INTEGER DEFAULT 0,
    inserted INTEGER DEFAULT 0,
    players_processed INTEGER DEFAULT 0,
    reassessed INTEGER DEFAULT 0,
    errors INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_news_link ON news(link);
CREATE INDEX IF NOT EXISTS idx_news_content_hash ON news(content_hash);
CREATE INDEX IF NOT EXISTS idx_news_published ON news(published_at);
CREATE INDEX IF NOT EXISTS idx_news_reassess ON news(needs_reassessment);
CREATE INDEX IF NOT EXISTS idx_players_normalized ON players(normalized_name);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

package database

import (
	"database/sql"
	"encoding/json"
)

const playerColumns = `id, name, normalized_name, aliases, rumor_count,
	is_current_squad, last_seen_at, created_at`

// InsertPlayer creates a new player record with rumor_count 1.
// Returns 0 if the normalized name already exists.
func (db *DB) InsertPlayer(name, normalizedName string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO players (name, normalized_name) VALUES (?, ?)`,
		name, normalizedName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, nil
		}
		return 0, err
	}
	return result.LastInsertId()
}

// GetPlayerByID returns a single player, or nil if not found.
func (db *DB) GetPlayerByID(playerID int64) (*Player, error) {
	row := db.conn.QueryRow(`SELECT `+playerColumns+` FROM players WHERE id = ?`, playerID)
	return scanPlayerRow(row)
}

// GetPlayerByNormalizedName looks a player up by canonical normalized name.
func (db *DB) GetPlayerByNormalizedName(normalizedName string) (*Player, error) {
	row := db.conn.QueryRow(
		`SELECT `+playerColumns+` FROM players WHERE normalized_name = ?`, normalizedName,
	)
	return scanPlayerRow(row)
}

// GetPlayerByAlias looks a player up by alias membership. Aliases are
// normalized strings stored as a JSON array, so a quoted substring
// match is an exact element match.
func (db *DB) GetPlayerByAlias(normalizedName string) (*Player, error) {
	row := db.conn.QueryRow(
		`SELECT `+playerColumns+` FROM players WHERE aliases LIKE ? LIMIT 1`,
		`%"`+normalizedName+`"%`,
	)
	return scanPlayerRow(row)
}

// GetAllPlayers returns all players ordered by rumor count descending.
func (db *DB) GetAllPlayers() ([]Player, error) {
	rows, err := db.conn.Query(
		`SELECT ` + playerColumns + ` FROM players ORDER BY rumor_count DESC, name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// RecordPlayerMention bumps rumor_count and refreshes last_seen_at.
func (db *DB) RecordPlayerMention(playerID int64) error {
	_, err := db.conn.Exec(
		`UPDATE players SET rumor_count = rumor_count + 1, last_seen_at = datetime('now')
		WHERE id = ?`, playerID,
	)
	return err
}

// AddPlayerAlias appends an alias to a player's alias set.
func (db *DB) AddPlayerAlias(playerID int64, alias string) error {
	p, err := db.GetPlayerByID(playerID)
	if err != nil {
		return err
	}
	if p == nil {
		return sql.ErrNoRows
	}
	for _, a := range p.Aliases {
		if a == alias {
			return nil
		}
	}
	data, err := json.Marshal(append(p.Aliases, alias))
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`UPDATE players SET aliases = ? WHERE id = ?`, string(data), playerID)
	return err
}

// AddRumorCount adds n to a player's rumor_count.
func (db *DB) AddRumorCount(playerID int64, n int) error {
	_, err := db.conn.Exec(
		`UPDATE players SET rumor_count = rumor_count + ? WHERE id = ?`, n, playerID,
	)
	return err
}

// DeletePlayer removes a player record.
func (db *DB) DeletePlayer(playerID int64) error {
	_, err := db.conn.Exec(`DELETE FROM players WHERE id = ?`, playerID)
	return err
}

// SetCurrentSquad marks exactly the players whose normalized names are
// listed as current squad members and clears the flag on everyone else.
func (db *DB) SetCurrentSquad(normalizedNames []string) error {
	if _, err := db.conn.Exec(`UPDATE players SET is_current_squad = 0`); err != nil {
		return err
	}
	for _, name := range normalizedNames {
		if _, err := db.conn.Exec(
			`UPDATE players SET is_current_squad = 1 WHERE normalized_name = ?`, name,
		); err != nil {
			return err
		}
	}
	return nil
}

// InsertLink ties a news record to a player. Returns false if the pair
// is already linked (not an error).
func (db *DB) InsertLink(newsID, playerID int64, role string) (bool, error) {
	_, err := db.conn.Exec(
		`INSERT INTO news_players (news_id, player_id, role) VALUES (?, ?, ?)`,
		newsID, playerID, role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetLinksForNews returns the player links of a news record.
func (db *DB) GetLinksForNews(newsID int64) ([]NewsPlayerLink, error) {
	return db.queryLinks(`SELECT news_id, player_id, role FROM news_players WHERE news_id = ?`, newsID)
}

// GetLinksForPlayer returns the news links of a player.
func (db *DB) GetLinksForPlayer(playerID int64) ([]NewsPlayerLink, error) {
	return db.queryLinks(`SELECT news_id, player_id, role FROM news_players WHERE player_id = ?`, playerID)
}

// RepointLinks moves all links from one player to another, dropping any
// that would collide with an existing (news, player) pair. Returns the
// number of links actually transferred.
func (db *DB) RepointLinks(fromPlayerID, toPlayerID int64) (int, error) {
	result, err := db.conn.Exec(
		`UPDATE OR IGNORE news_players SET player_id = ? WHERE player_id = ?`,
		toPlayerID, fromPlayerID,
	)
	if err != nil {
		return 0, err
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	// Leftovers collided with existing pairs; the invariant says drop them.
	if _, err := db.conn.Exec(
		`DELETE FROM news_players WHERE player_id = ?`, fromPlayerID,
	); err != nil {
		return int(moved), err
	}
	return int(moved), nil
}

func (db *DB) queryLinks(query string, args ...any) ([]NewsPlayerLink, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []NewsPlayerLink
	for rows.Next() {
		var l NewsPlayerLink
		if err := rows.Scan(&l.NewsID, &l.PlayerID, &l.Role); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func scanPlayer(rows *sql.Rows) (*Player, error) {
	var p Player
	var aliasJSON *string
	var squad int
	if err := rows.Scan(&p.ID, &p.Name, &p.NormalizedName, &aliasJSON,
		&p.RumorCount, &squad, &p.LastSeenAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.IsCurrentSquad = squad != 0
	decodeAliases(&p, aliasJSON)
	return &p, nil
}

func scanPlayerRow(row *sql.Row) (*Player, error) {
	var p Player
	var aliasJSON *string
	var squad int
	if err := row.Scan(&p.ID, &p.Name, &p.NormalizedName, &aliasJSON,
		&p.RumorCount, &squad, &p.LastSeenAt, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.IsCurrentSquad = squad != 0
	decodeAliases(&p, aliasJSON)
	return &p, nil
}

func decodeAliases(p *Player, aliasJSON *string) {
	if aliasJSON == nil {
		return
	}
	if err := json.Unmarshal([]byte(*aliasJSON), &p.Aliases); err != nil {
		p.Aliases = nil
	}
}

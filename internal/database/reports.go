package database

import "database/sql"

// InsertRunReport persists the counters of a completed sync run.
func (db *DB) InsertRunReport(r *RunReport) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO run_reports (started_at, finished_at, fetched, duplicates, transfer_rumors,
			regular_news, not_analyzed, auto_hidden, analyzed, inserted,
			players_processed, reassessed, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.FinishedAt, r.Fetched, r.Duplicates, r.TransferRumors, r.RegularNews,
		r.NotAnalyzed, r.AutoHidden, r.Analyzed, r.Inserted,
		r.PlayersProcessed, r.Reassessed, r.Errors,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLastRunReport returns the most recent run report, or nil if none.
func (db *DB) GetLastRunReport() (*RunReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, finished_at, fetched, duplicates, transfer_rumors,
			regular_news, not_analyzed, auto_hidden, analyzed, inserted,
			players_processed, reassessed, errors
		FROM run_reports ORDER BY id DESC LIMIT 1`,
	)

	var r RunReport
	if err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Fetched, &r.Duplicates,
		&r.TransferRumors, &r.RegularNews, &r.NotAnalyzed, &r.AutoHidden,
		&r.Analyzed, &r.Inserted, &r.PlayersProcessed, &r.Reassessed, &r.Errors); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

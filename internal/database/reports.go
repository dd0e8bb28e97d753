package database

import (
	"database/sql"
)

// GetReport returns the report for a (report_type, date_key), or nil if none.
func (db *DB) GetReport(reportType, dateKey string) (*Report, error) {
	row := db.conn.QueryRow(
		reportSelect+" WHERE report_type = ? AND date_key = ?", reportType, dateKey,
	)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetReportByID returns a report by id, or nil if it does not exist.
func (db *DB) GetReportByID(id int64) (*Report, error) {
	row := db.conn.QueryRow(reportSelect+" WHERE id = ?", id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// InsertGeneratingReport inserts a report row at status generating. The
// unique (report_type, date_key) index is the concurrency arbiter: if another
// run already holds the key, no row is written and 0 is returned so the
// caller can abort cleanly.
func (db *DB) InsertGeneratingReport(reportType, dateKey, periodStart, periodEnd, generationType, generatedBy string, episodesIncluded int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO reports
		(report_type, date_key, period_start, period_end, status, generation_type, episodes_included, generated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_type, date_key) DO NOTHING`,
		reportType, dateKey, periodStart, periodEnd, StatusGenerating, generationType, episodesIncluded, generatedBy,
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// MarkReportReady transitions a report to ready with its synthesized content.
func (db *DB) MarkReportReady(id int64, contentJSON, summary string, episodesIncluded int) error {
	_, err := db.conn.Exec(
		`UPDATE reports SET status = ?, content_json = ?, summary = ?, episodes_included = ?, generated_at = ?
		WHERE id = ?`,
		StatusReady, contentJSON, summary, episodesIncluded, Now(), id,
	)
	return err
}

// MarkReportFailed transitions a report to failed, recording the error text
// in the summary column.
func (db *DB) MarkReportFailed(id int64, message string) error {
	_, err := db.conn.Exec(
		"UPDATE reports SET status = ?, summary = ? WHERE id = ?",
		StatusFailed, message, id,
	)
	return err
}

// DeleteReport removes a report. Episode links and themes cascade.
func (db *DB) DeleteReport(id int64) error {
	_, err := db.conn.Exec("DELETE FROM reports WHERE id = ?", id)
	return err
}

// LinkReportEpisodes links source episodes to a report. Duplicate links are
// ignored so rollups can re-link transitively without conflict.
func (db *DB) LinkReportEpisodes(reportID int64, episodeIDs []int64) error {
	if len(episodeIDs) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	for _, eid := range episodeIDs {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO report_episodes (report_id, episode_id) VALUES (?, ?)",
			reportID, eid,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetReportEpisodeIDs returns the episode ids linked to a report.
func (db *DB) GetReportEpisodeIDs(reportID int64) ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT episode_id FROM report_episodes WHERE report_id = ? ORDER BY episode_id", reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertReportThemes writes extracted theme rows for a report.
func (db *DB) InsertReportThemes(reportID int64, themes []ReportTheme) error {
	if len(themes) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	for _, theme := range themes {
		if _, err := tx.Exec(
			"INSERT INTO report_themes (report_id, name, prominence) VALUES (?, ?, ?)",
			reportID, theme.Name, theme.Prominence,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetReportThemes returns theme rows for a report ordered by prominence.
func (db *DB) GetReportThemes(reportID int64) ([]ReportTheme, error) {
	rows, err := db.conn.Query(
		`SELECT id, report_id, name, prominence FROM report_themes
		WHERE report_id = ? ORDER BY prominence DESC, id ASC`, reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []ReportTheme
	for rows.Next() {
		var t ReportTheme
		if err := rows.Scan(&t.ID, &t.ReportID, &t.Name, &t.Prominence); err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// GetReadyReportsInWindow returns ready reports of a type whose period falls
// inside [start, end], ordered ascending by period start.
func (db *DB) GetReadyReportsInWindow(reportType, start, end string) ([]Report, error) {
	rows, err := db.conn.Query(
		reportSelect+` WHERE report_type = ? AND status = ?
		AND period_start >= ? AND period_end <= ?
		ORDER BY period_start ASC`,
		reportType, StatusReady, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

// ListReports returns reports, optionally filtered by type, newest first.
func (db *DB) ListReports(reportType string) ([]Report, error) {
	query := reportSelect
	var args []any
	if reportType != "" {
		query += " WHERE report_type = ?"
		args = append(args, reportType)
	}
	query += " ORDER BY date_key DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

// GetDatesWithReadyDailyReports returns the date keys of all ready daily
// reports.
func (db *DB) GetDatesWithReadyDailyReports() (map[string]bool, error) {
	rows, err := db.conn.Query(
		"SELECT date_key FROM reports WHERE report_type = 'daily' AND status = ?", StatusReady,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		dates[key] = true
	}
	return dates, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{ReportsByType: make(map[string]int)}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM episodes", &s.TotalEpisodes},
		{"SELECT COUNT(*) FROM episodes WHERE is_published = 1", &s.PublishedEpisodes},
		{"SELECT COUNT(*) FROM episodes WHERE is_published = 1 AND summary_json IS NOT NULL", &s.SummarizedEpisodes},
		{"SELECT COUNT(*) FROM reports", &s.TotalReports},
		{"SELECT COUNT(*) FROM reports WHERE status = 'ready'", &s.ReadyReports},
		{"SELECT COUNT(*) FROM reports WHERE status = 'failed'", &s.FailedReports},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	rows, err := db.conn.Query("SELECT report_type, COUNT(*) FROM reports GROUP BY report_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var reportType string
		var count int
		if err := rows.Scan(&reportType, &count); err != nil {
			return nil, err
		}
		s.ReportsByType[reportType] = count
	}
	return s, rows.Err()
}

const reportSelect = `SELECT id, report_type, date_key, period_start, period_end, status,
	generation_type, content_json, summary, episodes_included, generated_by, generated_at, created_at
	FROM reports`

func scanReport(row rowScanner) (*Report, error) {
	var r Report
	if err := row.Scan(&r.ID, &r.ReportType, &r.DateKey, &r.PeriodStart, &r.PeriodEnd,
		&r.Status, &r.GenerationType, &r.ContentJSON, &r.Summary, &r.EpisodesIncluded,
		&r.GeneratedBy, &r.GeneratedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanReports(rows *sql.Rows) ([]Report, error) {
	var reports []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

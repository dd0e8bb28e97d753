package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertEpisode inserts an episode row. Summary may be nil for episodes the
// ingestion pipeline has not summarized yet.
func (db *DB) InsertEpisode(title string, channelTitle *string, publishedAt string, isPublished bool, summary *EpisodeSummary) (int64, error) {
	var summaryJSON *string
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return 0, fmt.Errorf("marshaling episode summary: %w", err)
		}
		s := string(data)
		summaryJSON = &s
	}

	result, err := db.conn.Exec(
		`INSERT INTO episodes (title, channel_title, published_at, is_published, summary_json)
		VALUES (?, ?, ?, ?, ?)`,
		title, channelTitle, publishedAt, boolToInt(isPublished), summaryJSON,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetEpisodeByID returns a single episode, or nil if it does not exist.
func (db *DB) GetEpisodeByID(id int64) (*Episode, error) {
	row := db.conn.QueryRow(
		`SELECT id, title, channel_title, published_at, is_published, summary_json, created_at
		FROM episodes WHERE id = ?`, id,
	)
	e, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetEpisodesForWindow returns published episodes with summaries whose
// publish time falls inside [start, end], ordered ascending by publish time.
func (db *DB) GetEpisodesForWindow(start, end string) ([]Episode, error) {
	rows, err := db.conn.Query(
		`SELECT id, title, channel_title, published_at, is_published, summary_json, created_at
		FROM episodes
		WHERE is_published = 1 AND summary_json IS NOT NULL
		  AND published_at >= ? AND published_at <= ?
		ORDER BY published_at ASC`, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// GetDatesWithEpisodes returns calendar dates (YYYY-MM-DD) that have at least
// minCount published episodes with summaries, ordered ascending.
func (db *DB) GetDatesWithEpisodes(minCount int) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT date(published_at) AS day
		FROM episodes
		WHERE is_published = 1 AND summary_json IS NOT NULL
		GROUP BY day HAVING COUNT(*) >= ?
		ORDER BY day ASC`, minCount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		dates = append(dates, day)
	}
	return dates, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*Episode, error) {
	var e Episode
	var isPublished int
	var summaryJSON *string
	if err := row.Scan(&e.ID, &e.Title, &e.ChannelTitle, &e.PublishedAt,
		&isPublished, &summaryJSON, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.IsPublished = isPublished != 0

	if summaryJSON != nil && *summaryJSON != "" {
		var summary EpisodeSummary
		if err := json.Unmarshal([]byte(*summaryJSON), &summary); err != nil {
			return nil, fmt.Errorf("parsing summary for episode %d: %w", e.ID, err)
		}
		e.Summary = &summary
	}
	return &e, nil
}

func scanEpisodes(rows *sql.Rows) ([]Episode, error) {
	var episodes []Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *e)
	}
	return episodes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

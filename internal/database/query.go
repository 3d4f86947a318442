package database

import (
	"database/sql"
	"time"
)

const runColumns = `id, timestamp, directory, action,
	       expired, evicted, reclaimed, stale, orphaned, failed, error_message`

// GetRecentRuns returns the N most recent passes
func (d *HistoryDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	return d.queryRuns(`
	SELECT `+runColumns+`
	FROM purge_runs
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetRunsByDateRange returns passes within a time range
func (d *HistoryDB) GetRunsByDateRange(start, end time.Time) ([]RunRecord, error) {
	return d.queryRuns(`
	SELECT `+runColumns+`
	FROM purge_runs
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC, id DESC
	`, start.UTC(), end.UTC())
}

// GetRunsByDirectory returns passes whose directory matches a LIKE pattern
func (d *HistoryDB) GetRunsByDirectory(pattern string) ([]RunRecord, error) {
	return d.queryRuns(`
	SELECT `+runColumns+`
	FROM purge_runs
	WHERE directory LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pattern)
}

// GetRunsByAction returns passes filtered by action
func (d *HistoryDB) GetRunsByAction(action string) ([]RunRecord, error) {
	return d.queryRuns(`
	SELECT `+runColumns+`
	FROM purge_runs
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetRecentRunsPaginated returns a page of passes with the total count
func (d *HistoryDB) GetRecentRunsPaginated(limit, offset int) ([]RunRecord, int, error) {
	var totalCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM purge_runs").Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	records, err := d.queryRuns(`
	SELECT `+runColumns+`
	FROM purge_runs
	ORDER BY timestamp DESC, id DESC
	LIMIT ? OFFSET ?
	`, limit, offset)
	return records, totalCount, err
}

// GetRunCountByAction returns count of passes grouped by action
func (d *HistoryDB) GetRunCountByAction() (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT action, COUNT(*)
	FROM purge_runs
	GROUP BY action
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// GetTopDirectoriesByRemovals returns directories with the most removed entries
func (d *HistoryDB) GetTopDirectoriesByRemovals(limit int) (map[string]int, error) {
	rows, err := d.db.Query(`
	SELECT directory, SUM(expired + evicted + reclaimed) AS removed
	FROM purge_runs
	GROUP BY directory
	HAVING removed > 0
	ORDER BY removed DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var dir string
		var count int
		if err := rows.Scan(&dir, &count); err != nil {
			return nil, err
		}
		counts[dir] = count
	}

	return counts, rows.Err()
}

// RunStats holds aggregated statistics
type RunStats struct {
	TotalRuns      int
	TotalSkipped   int
	TotalErrors    int
	TotalExpired   int
	TotalEvicted   int
	TotalReclaimed int
	TotalFailed    int
	ByAction       map[string]int
	StartDate      time.Time
	EndDate        time.Time
}

// GetRunStats returns statistics for the last days
func (d *HistoryDB) GetRunStats(days int) (*RunStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &RunStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END),
			COALESCE(SUM(expired), 0),
			COALESCE(SUM(evicted), 0),
			COALESCE(SUM(reclaimed), 0),
			COALESCE(SUM(failed), 0)
		FROM purge_runs
		WHERE timestamp >= ?
	`, since.UTC()).Scan(
		&stats.TotalRuns, &stats.TotalSkipped, &stats.TotalErrors,
		&stats.TotalExpired, &stats.TotalEvicted, &stats.TotalReclaimed, &stats.TotalFailed,
	)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetRunCountByAction()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than specified days
func (d *HistoryDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM purge_runs WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (d *HistoryDB) queryRuns(query string, args ...interface{}) ([]RunRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Directory, &r.Action,
			&r.Expired, &r.Evicted, &r.Reclaimed, &r.Stale, &r.Orphaned, &r.Failed,
			&errMsg,
		)
		if err != nil {
			return nil, err
		}
		if errMsg.Valid {
			r.ErrorMessage = errMsg.String
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

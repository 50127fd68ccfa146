package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// SyncRun is one audit row per sync batch.
type SyncRun struct {
	ID                int64      `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
	Status            string     `json:"status"`
	FilesProcessed    int        `json:"files_processed"`
	NewRecords        int        `json:"new_records"`
	DuplicatesSkipped int        `json:"duplicates_skipped"`
	Error             string     `json:"error,omitempty"`
}

func (s *Store) StartSyncRun(ctx context.Context, ts time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO sync_runs (started_at, status) VALUES (?, ?)`, ts, "running")
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) FinishSyncRun(ctx context.Context, id int64, status string, files, newRecords, duplicates int, errMsg string, ts time.Time) error {
	if id == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE sync_runs SET finished_at=?, status=?, files_processed=?, new_records=?, duplicates_skipped=?, error=? WHERE id=?`,
		ts, status, files, newRecords, duplicates, truncateError(errMsg), id)
	return err
}

func (s *Store) RecentSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, finished_at, status, files_processed, new_records, duplicates_skipped, error
        FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []SyncRun
	for rows.Next() {
		var r SyncRun
		var finished sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Status, &r.FilesProcessed, &r.NewRecords, &r.DuplicatesSkipped, &errMsg); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func truncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > 240 {
		return msg[:240]
	}
	return msg
}

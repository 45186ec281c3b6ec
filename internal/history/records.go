package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const recordColumns = "job_id, source_url, title, output_dir, status, error_kind, error_message, output_file, video_resolution, audio_bitrate, created_at, updated_at"

// Begin inserts a running record for a job that is about to start.
func (s *Store) Begin(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.JobID) == "" {
		return errors.New("history begin: job id required")
	}
	now := time.Now().UTC()
	_, err := s.exec(ctx,
		`INSERT INTO jobs (job_id, source_url, title, output_dir, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID,
		rec.SourceURL,
		nullableString(rec.Title),
		rec.OutputDir,
		StatusRunning,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("history begin %s: %w", rec.JobID, err)
	}
	return nil
}

// Complete marks a job as completed with its output details.
func (s *Store) Complete(ctx context.Context, jobID string, outcome Outcome) error {
	return s.finish(ctx, jobID, StatusCompleted, outcome)
}

// Fail marks a job as failed with its error classification.
func (s *Store) Fail(ctx context.Context, jobID string, outcome Outcome) error {
	return s.finish(ctx, jobID, StatusFailed, outcome)
}

func (s *Store) finish(ctx context.Context, jobID string, status Status, outcome Outcome) error {
	res, err := s.exec(ctx,
		`UPDATE jobs
         SET status = ?, error_kind = ?, error_message = ?, output_file = ?,
             video_resolution = ?, audio_bitrate = ?, updated_at = ?
         WHERE job_id = ?`,
		status,
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		nullableString(outcome.OutputFile),
		nullableString(outcome.VideoResolution),
		nullableInt(outcome.AudioBitrate),
		formatTime(time.Now()),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("history %s %s: %w", status, jobID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("history %s %s: %w", status, jobID, ErrNotFound)
	}
	return nil
}

// Get fetches a record by job id.
func (s *Store) Get(ctx context.Context, jobID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM jobs WHERE job_id = ?`, jobID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM jobs`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summarize returns job counts grouped by status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch status {
		case StatusRunning:
			summary.Running = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

// MarkInterrupted fails every record still marked running. Call it at
// startup, before this process begins its own jobs.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE jobs SET status = ?, error_kind = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed,
		"interrupted",
		"process exited before the job finished",
		formatTime(time.Now()),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished records last updated before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx,
		`DELETE FROM jobs WHERE status != ? AND updated_at < ?`,
		StatusRunning,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec          Record
		title        sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		outputFile   sql.NullString
		resolution   sql.NullString
		bitrate      sql.NullInt64
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&rec.JobID,
		&rec.SourceURL,
		&title,
		&rec.OutputDir,
		&rec.Status,
		&errorKind,
		&errorMessage,
		&outputFile,
		&resolution,
		&bitrate,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return Record{}, err
	}
	rec.Title = title.String
	rec.ErrorKind = errorKind.String
	rec.ErrorMessage = errorMessage.String
	rec.OutputFile = outputFile.String
	rec.VideoResolution = resolution.String
	rec.AudioBitrate = int(bitrate.Int64)
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

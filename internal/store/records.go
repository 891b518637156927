package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source kinds for records.
const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

// ErrEmptyContent rejects records whose content is empty after trimming.
var ErrEmptyContent = errors.New("record content is empty")

// Record is one entry in the append-only log.
type Record struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	SourceType     string    `json:"source_type"`
	Content        string    `json:"content"`
	ScreenshotPath string    `json:"screenshot_path,omitempty"`
	PHash          string    `json:"phash,omitempty"`
}

// AppendRecord appends one record stamped with the current UTC time and
// returns the stored row, timestamp included, so callers echo exactly what a
// later read returns. screenshotPath and phash may be empty for manual
// entries.
func (s *Store) AppendRecord(ctx context.Context, sourceType, content, screenshotPath, phash string) (Record, error) {
	if strings.TrimSpace(content) == "" {
		return Record{}, ErrEmptyContent
	}

	// RFC3339 carries whole seconds; truncate so the returned timestamp
	// matches the stored one exactly.
	ts := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (timestamp, source_type, content, screenshot_path, phash)
		 VALUES (?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339), sourceType, content, nullable(screenshotPath), nullable(phash))
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("record id: %w", err)
	}
	return Record{
		ID:             id,
		Timestamp:      ts,
		SourceType:     sourceType,
		Content:        content,
		ScreenshotPath: screenshotPath,
		PHash:          phash,
	}, nil
}

// TodayRecords returns today's records, newest first. Today starts at local
// midnight converted to UTC, matching how timestamps are stored.
func (s *Store) TodayRecords(ctx context.Context) ([]Record, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local).
		UTC().Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, source_type, content,
		        COALESCE(screenshot_path, ''), COALESCE(phash, '')
		 FROM records
		 WHERE timestamp >= ?
		 ORDER BY timestamp DESC, id DESC`,
		start)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.SourceType, &r.Content, &r.ScreenshotPath, &r.PHash); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse record timestamp %q: %w", ts, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// nullable maps an empty string to NULL so optional columns stay NULL
// instead of collecting empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

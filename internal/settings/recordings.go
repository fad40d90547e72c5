package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RecordingStatus is the lifecycle outcome of a capture.
type RecordingStatus string

const (
	StatusRecording RecordingStatus = "recording"
	StatusCompleted RecordingStatus = "completed"
	StatusFailed    RecordingStatus = "failed"
)

// Recording is one history row.
type Recording struct {
	ID          string          `json:"id"`
	OutputPath  string          `json:"output_path"`
	Monitor     string          `json:"monitor"`
	Geometry    string          `json:"geometry"`
	Status      RecordingStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	StoppedAt   *time.Time      `json:"stopped_at,omitempty"`
	RemuxOutput string          `json:"remux_output,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// InsertRecording stores a new history row in the recording state.
func (s *Store) InsertRecording(ctx context.Context, rec Recording) error {
	if rec.ID == "" {
		return errors.New("recording id required")
	}
	if rec.Status == "" {
		rec.Status = StatusRecording
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO recordings (id, output_path, monitor, geometry, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OutputPath, rec.Monitor, rec.Geometry, string(rec.Status),
		rec.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// FinishRecording records the terminal state of a capture.
func (s *Store) FinishRecording(ctx context.Context, id string, status RecordingStatus, stoppedAt time.Time, remuxOutput, errMsg string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE recordings SET status = ?, stopped_at = ?, remux_output = ?, error_message = ? WHERE id = ?`,
		string(status), stoppedAt.UTC().Format(timeLayout), nullableString(remuxOutput), nullableString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("finish recording: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish recording: %s not found", id)
	}
	return nil
}

// GetRecording loads one row. It returns nil when the id is unknown.
func (s *Store) GetRecording(ctx context.Context, id string) (*Recording, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, selectRecording+" WHERE id = ?", id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListRecordings returns the most recent rows first. A limit <= 0 returns all rows.
func (s *Store) ListRecordings(ctx context.Context, limit int) ([]Recording, error) {
	ctx = ensureContext(ctx)
	query := selectRecording + " ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// MarkAbandoned fails rows left in the recording state by a crashed process.
func (s *Store) MarkAbandoned(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE recordings SET status = ?, stopped_at = ?, error_message = ? WHERE status = ?`,
		string(StatusFailed), now.UTC().Format(timeLayout), "recorder exited before the capture was stopped", string(StatusRecording),
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned recordings: %w", err)
	}
	return res.RowsAffected()
}

const selectRecording = `SELECT id, output_path, monitor, geometry, status, started_at, stopped_at, remux_output, error_message FROM recordings`

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		rec                          Recording
		status, startedAt            string
		stoppedAt, remuxOut, errText sql.NullString
	)
	if err := scanner.Scan(&rec.ID, &rec.OutputPath, &rec.Monitor, &rec.Geometry, &status, &startedAt, &stoppedAt, &remuxOut, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan recording: %w", err)
	}
	rec.Status = RecordingStatus(status)
	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		rec.StartedAt = t
	}
	if stoppedAt.Valid {
		if t, err := time.Parse(timeLayout, stoppedAt.String); err == nil {
			rec.StoppedAt = &t
		}
	}
	rec.RemuxOutput = remuxOut.String
	rec.Error = errText.String
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

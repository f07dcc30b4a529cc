package result

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	syncx "github.com/driveprep/driveprep/internal/sync"
	"github.com/driveprep/driveprep/pkg/resultsink"
)

// Sync status values for the remote submission path.
const (
	SyncNone    = "none"
	SyncPending = "pending"
	SyncOK      = "ok"
	SyncFailed  = "failed"
)

// SQLStore is the durable local history of quiz results: append-only, read
// back in full (paginated) by the progress surface. It also keeps the event
// log and per-result remote sync status.
type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, events: syncx.NewEventRepo(db)}
}

// Append inserts one result row and its event-log entry. Results are never
// updated or deleted; retakes append new rows.
func (s *SQLStore) Append(ctx context.Context, r resultsink.Result) error {
	aj, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_results (id, user_id, state, test_id, score, total, percentage, answers_json, sync_status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.UserID, r.State, r.TestID, r.Score, r.Total, r.Percentage, string(aj), SyncNone, r.Timestamp.Unix())
	if err != nil {
		return err
	}
	data, _ := json.Marshal(r)
	_ = s.events.Append(ctx, syncx.Event{Type: syncx.TypeResultRecorded, Key: r.ID, DataJSON: string(data)})
	return nil
}

func (s *SQLStore) MarkSyncPending(ctx context.Context, resultID string) error {
	return s.markSync(ctx, resultID, SyncPending, "")
}

func (s *SQLStore) MarkSyncOK(ctx context.Context, resultID string) error {
	if err := s.markSync(ctx, resultID, SyncOK, ""); err != nil {
		return err
	}
	_ = s.events.Append(ctx, syncx.Event{Type: syncx.TypeResultSynced, Key: resultID, DataJSON: "{}"})
	return nil
}

func (s *SQLStore) MarkSyncFailed(ctx context.Context, resultID, lastErr string) error {
	return s.markSync(ctx, resultID, SyncFailed, lastErr)
}

func (s *SQLStore) markSync(ctx context.Context, resultID, status, lastErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE quiz_results SET sync_status=$1, sync_error=$2, synced_at=$3 WHERE id=$4`,
		status, lastErr, time.Now().Unix(), resultID)
	return err
}

type ListOpts struct {
	UserID string
	State  string
	Limit  int
	Offset int
}

// List returns results newest first.
func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]resultsink.Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	var rows *sql.Rows
	var err error
	if opts.State == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, user_id, state, test_id, score, total, percentage, answers_json, created_at
			 FROM quiz_results WHERE user_id=$1
			 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
			opts.UserID, opts.Limit, opts.Offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, user_id, state, test_id, score, total, percentage, answers_json, created_at
			 FROM quiz_results WHERE user_id=$1 AND state=$2
			 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
			opts.UserID, opts.State, opts.Limit, opts.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []resultsink.Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// All returns every result for a user, oldest first. Stats derivation wants
// the full sequence.
func (s *SQLStore) All(ctx context.Context, userID string) ([]resultsink.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, state, test_id, score, total, percentage, answers_json, created_at
		 FROM quiz_results WHERE user_id=$1 ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []resultsink.Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the total number of results for a user (for pagination).
func (s *SQLStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_results WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// Get fetches a single result for the review screen.
func (s *SQLStore) Get(ctx context.Context, id string) (resultsink.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, state, test_id, score, total, percentage, answers_json, created_at
		 FROM quiz_results WHERE id=$1`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return resultsink.Result{}, errors.New("result not found")
	}
	return r, err
}

type scanner interface{ Scan(dest ...any) error }

func scanResult(row scanner) (resultsink.Result, error) {
	var r resultsink.Result
	var aj string
	var created int64
	if err := row.Scan(&r.ID, &r.UserID, &r.State, &r.TestID, &r.Score, &r.Total, &r.Percentage, &aj, &created); err != nil {
		return resultsink.Result{}, err
	}
	if err := json.Unmarshal([]byte(aj), &r.Answers); err != nil {
		r.Answers = nil
	}
	r.Timestamp = time.Unix(created, 0).UTC()
	return r, nil
}

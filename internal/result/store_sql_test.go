package result

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/driveprep/driveprep/internal/db"
	syncx "github.com/driveprep/driveprep/internal/sync"
	"github.com/driveprep/driveprep/pkg/resultsink"
)

func openStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return NewSQLStore(dbh)
}

func seedResult(id, userID, state string, pct int, at time.Time) resultsink.Result {
	return resultsink.Result{
		ID:         id,
		UserID:     userID,
		State:      state,
		TestID:     "1",
		Score:      pct / 20,
		Total:      5,
		Percentage: pct,
		Answers:    resultsink.AnswerList{"25 mph", "", "Stop", "0.08%", "15 feet"},
		Timestamp:  at,
	}
}

func TestAppendAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	if err := store.Append(ctx, seedResult("r-1", "u-1", "California", 80, at)); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u-1" || got.State != "California" || got.Percentage != 80 {
		t.Fatalf("got %+v", got)
	}
	if !got.Timestamp.Equal(at) {
		t.Fatalf("timestamp %v, want %v", got.Timestamp, at)
	}
	if len(got.Answers) != 5 || got.Answers[1] != "" {
		t.Fatalf("answers %v", got.Answers)
	}

	if _, err := store.Get(ctx, "missing"); err == nil {
		t.Fatalf("expected error for unknown result")
	}
}

func TestListNewestFirstWithPagination(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		r := seedResult(fmt.Sprintf("r-%d", i), "u-1", "California", 60+i*5, base.Add(time.Duration(i)*time.Hour))
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	// another user's rows must not leak in
	if err := store.Append(ctx, seedResult("r-x", "u-2", "California", 90, base)); err != nil {
		t.Fatalf("append other user: %v", err)
	}

	page, err := store.List(ctx, ListOpts{UserID: "u-1", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != "r-4" || page[1].ID != "r-3" {
		t.Fatalf("first page %+v", page)
	}

	page, err = store.List(ctx, ListOpts{UserID: "u-1", Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(page) != 1 || page[0].ID != "r-0" {
		t.Fatalf("last page %+v", page)
	}

	n, err := store.Count(ctx, "u-1")
	if err != nil || n != 5 {
		t.Fatalf("count %d err %v, want 5", n, err)
	}
}

func TestListFiltersByState(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	_ = store.Append(ctx, seedResult("r-ca", "u-1", "California", 80, base))
	_ = store.Append(ctx, seedResult("r-wa", "u-1", "Washington", 70, base.Add(time.Hour)))

	got, err := store.List(ctx, ListOpts{UserID: "u-1", State: "Washington"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r-wa" {
		t.Fatalf("filtered list %+v", got)
	}
}

func TestAllOldestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_ = store.Append(ctx, seedResult("r-2", "u-1", "California", 70, base.Add(2*time.Hour)))
	_ = store.Append(ctx, seedResult("r-1", "u-1", "California", 60, base.Add(time.Hour)))

	all, err := store.All(ctx, "u-1")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "r-1" || all[1].ID != "r-2" {
		t.Fatalf("all %+v", all)
	}
}

func TestSyncStatusTransitions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	if err := store.Append(ctx, seedResult("r-1", "u-1", "California", 80, at)); err != nil {
		t.Fatalf("append: %v", err)
	}

	readStatus := func() (status, lastErr string) {
		t.Helper()
		row := store.db.QueryRowContext(ctx, `SELECT sync_status, sync_error FROM quiz_results WHERE id=$1`, "r-1")
		if err := row.Scan(&status, &lastErr); err != nil {
			t.Fatalf("scan status: %v", err)
		}
		return status, lastErr
	}

	if status, _ := readStatus(); status != SyncNone {
		t.Fatalf("initial status %q, want %q", status, SyncNone)
	}

	if err := store.MarkSyncPending(ctx, "r-1"); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if status, _ := readStatus(); status != SyncPending {
		t.Fatalf("status %q, want %q", status, SyncPending)
	}

	if err := store.MarkSyncFailed(ctx, "r-1", "connection refused"); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if status, lastErr := readStatus(); status != SyncFailed || lastErr != "connection refused" {
		t.Fatalf("status %q err %q", status, lastErr)
	}

	if err := store.MarkSyncOK(ctx, "r-1"); err != nil {
		t.Fatalf("ok: %v", err)
	}
	if status, lastErr := readStatus(); status != SyncOK || lastErr != "" {
		t.Fatalf("status %q err %q", status, lastErr)
	}
}

func TestEventLogTrailsResultLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	_ = store.Append(ctx, seedResult("r-1", "u-1", "California", 80, at))
	_ = store.MarkSyncOK(ctx, "r-1")

	events, err := store.events.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != syncx.TypeResultRecorded || events[0].Key != "r-1" {
		t.Fatalf("first event %+v", events[0])
	}
	if events[1].Type != syncx.TypeResultSynced {
		t.Fatalf("second event %+v", events[1])
	}
	if events[1].Offset <= events[0].Offset {
		t.Fatalf("offsets not increasing: %d then %d", events[0].Offset, events[1].Offset)
	}
}

package resultsink

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Result is the immutable outcome of one completed quiz session. It is
// created exactly once at finalization and never mutated afterwards.
type Result struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	State      string     `json:"state"`
	TestID     string     `json:"testIdentifier"`
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	Percentage int        `json:"percentage"`
	Answers    AnswerList `json:"answers"`
	Timestamp  time.Time  `json:"timestamp"`
}

// UserContext identifies who is submitting. Passed explicitly rather than
// read from ambient storage so callers and tests control it.
type UserContext struct {
	UserID string
	State  string
}

// AnonymousUser is the documented fallback identity used when a result is
// recorded without a signed-in user.
const AnonymousUser = "anonymous"

// AnswerList carries per-question answers; an empty string is an unanswered
// slot and crosses the wire as null.
type AnswerList []string

func (a AnswerList) MarshalJSON() ([]byte, error) {
	out := make([]*string, len(a))
	for i := range a {
		if a[i] != "" {
			s := a[i]
			out[i] = &s
		}
	}
	return json.Marshal(out)
}

func (a *AnswerList) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = nil
		return nil
	}
	var in []*string
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(AnswerList, len(in))
	for i, p := range in {
		if p != nil {
			out[i] = *p
		}
	}
	*a = out
	return nil
}

// Store is the durable local history: an append-only log per installation
// plus sync-status bookkeeping for the remote path.
type Store interface {
	Append(ctx context.Context, r Result) error
	MarkSyncPending(ctx context.Context, resultID string) error
	MarkSyncOK(ctx context.Context, resultID string) error
	MarkSyncFailed(ctx context.Context, resultID, lastErr string) error
}

// Submitter delivers a result to the remote results service.
type Submitter interface {
	Submit(ctx context.Context, r Result) error
}

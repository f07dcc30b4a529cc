package resultsink

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

type Clock func() time.Time

// Sink records a finalized result locally and submits it remotely. The two
// paths run as independent tasks: the remote service being down must not
// touch local history, and neither outcome reaches the caller, who has
// already shown the score.
type Sink struct {
	Store     Store
	Submitter Submitter
	Now       Clock

	// SubmitTimeout bounds one remote submission. The results endpoint is a
	// plain HTTP service, so this stays short.
	SubmitTimeout time.Duration
	// RetryOnTimeout re-sends once after a deadline failure.
	RetryOnTimeout bool

	wg sync.WaitGroup
}

func New(store Store, submitter Submitter, now Clock) *Sink {
	if now == nil {
		now = time.Now
	}
	return &Sink{
		Store:          store,
		Submitter:      submitter,
		Now:            now,
		SubmitTimeout:  12 * time.Second,
		RetryOnTimeout: true,
	}
}

// Record dispatches local append and remote submission and returns
// immediately. The result's user defaults to the anonymous sentinel and its
// timestamp to now when unset.
func (s *Sink) Record(r Result, user UserContext) Result {
	if user.UserID != "" {
		r.UserID = user.UserID
	}
	if r.UserID == "" {
		r.UserID = AnonymousUser
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.Now()
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.recordLocally(r)
	}()
	go func() {
		defer s.wg.Done()
		s.submitRemote(r)
	}()
	return r
}

// Flush waits for all dispatched persistence tasks. Used by shutdown and by
// tests; the quiz flow itself never blocks on it.
func (s *Sink) Flush() { s.wg.Wait() }

func (s *Sink) recordLocally(r Result) {
	if s.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.SubmitTimeout)
	defer cancel()
	if err := s.Store.Append(ctx, r); err != nil {
		log.Printf("resultsink: local append failed for %s: %v", r.ID, err)
	}
}

func (s *Sink) submitRemote(r Result) {
	if s.Submitter == nil {
		return
	}
	ctx := context.Background()
	if s.Store != nil {
		_ = s.Store.MarkSyncPending(ctx, r.ID)
	}

	err := s.submitOnce(r)
	if err != nil && s.RetryOnTimeout && errors.Is(err, context.DeadlineExceeded) {
		err = s.submitOnce(r)
	}
	if err != nil {
		log.Printf("resultsink: remote submit failed for %s: %v", r.ID, err)
		if s.Store != nil {
			_ = s.Store.MarkSyncFailed(ctx, r.ID, err.Error())
		}
		return
	}
	if s.Store != nil {
		_ = s.Store.MarkSyncOK(ctx, r.ID)
	}
}

func (s *Sink) submitOnce(r Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.SubmitTimeout)
	defer cancel()
	return s.Submitter.Submit(ctx, r)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	authmw "github.com/driveprep/driveprep/internal/auth/middleware"
	"github.com/driveprep/driveprep/internal/bank"
	"github.com/driveprep/driveprep/internal/quiz"
	"github.com/driveprep/driveprep/pkg/resultsink"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CreateSessionHandler starts a hosted quiz session for the authenticated
// user. Unknown states fall back to the General question set.
func CreateSessionHandler(reg *quiz.Registry, b *bank.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			State  string `json:"state"`
			TestID string `json:"test_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.TestID == "" {
			http.Error(w, "test_number required", 400)
			return
		}
		qs, info, err := b.Get(req.State, req.TestID)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		userID := authmw.SubjectFromContext(r.Context())
		_, view, err := reg.Create(info.State, info.TestID, userID, qs)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

// SelectAnswerHandler records an answer on the current question.
func SelectAnswerHandler(reg *quiz.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var req struct {
			Option string `json:"option"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		view, err := reg.Select(id, req.Option)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

// AdvanceHandler moves to the next question. Advancing past the last
// question finalizes the session: the score goes back to the caller
// immediately while the result sink persists and submits in the background.
func AdvanceHandler(reg *quiz.Registry, sink *resultsink.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		view, out, err := reg.Advance(id)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		resp := struct {
			quiz.View
			Score  *quiz.Score        `json:"result,omitempty"`
			Result *resultsink.Result `json:"record,omitempty"`
		}{View: view}

		if out != nil {
			state, testID, userID, err := reg.Identity(id)
			if err != nil {
				writeSessionError(w, err)
				return
			}
			rec := sink.Record(resultsink.Result{
				ID:         uuid.NewString(),
				State:      state,
				TestID:     testID,
				Score:      out.Score.Correct,
				Total:      out.Score.Total,
				Percentage: out.Score.Percentage,
				Answers:    resultsink.AnswerList(out.Answers),
			}, resultsink.UserContext{UserID: userID, State: state})
			resp.Score = &out.Score
			resp.Result = &rec
			reg.Drop(id)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// RetreatHandler moves back one question; earlier answers stay selected.
func RetreatHandler(reg *quiz.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		view, err := reg.Retreat(id)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

func GetSessionHandler(reg *quiz.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		view, err := reg.Get(id)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

// writeSessionError maps controller errors: malformed content → 400, state
// misuse → 409, unknown session → 404.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrSessionNotFound):
		http.Error(w, err.Error(), 404)
	case errors.Is(err, quiz.ErrInvalidQuiz), errors.Is(err, quiz.ErrInvalidAnswer):
		http.Error(w, err.Error(), 400)
	case errors.Is(err, quiz.ErrNoAnswerSelected),
		errors.Is(err, quiz.ErrAtStart),
		errors.Is(err, quiz.ErrSessionComplete),
		errors.Is(err, quiz.ErrSessionNotComplete):
		http.Error(w, err.Error(), 409)
	default:
		http.Error(w, err.Error(), 500)
	}
}

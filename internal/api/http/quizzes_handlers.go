package http

import (
	"encoding/json"
	"net/http"

	"github.com/driveprep/driveprep/internal/bank"
	"github.com/go-chi/chi/v5"
)

func ListStatesHandler(b *bank.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.States())
	}
}

func ListTestsHandler(b *bank.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := chi.URLParam(r, "state")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.Tests(state))
	}
}

// GetQuizHandler serves one test's questions with answer keys and
// explanations stripped; those are only revealed with a completed result.
func GetQuizHandler(b *bank.Bank) http.HandlerFunc {
	type question struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		state := chi.URLParam(r, "state")
		testID := chi.URLParam(r, "testID")
		qs, info, err := b.Get(state, testID)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		out := struct {
			bank.TestInfo
			Questions []question `json:"questions"`
		}{TestInfo: info}
		for _, q := range qs {
			out.Questions = append(out.Questions, question{Question: q.Prompt, Options: q.Options})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

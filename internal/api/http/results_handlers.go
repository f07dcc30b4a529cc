package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	authmw "github.com/driveprep/driveprep/internal/auth/middleware"
	"github.com/driveprep/driveprep/internal/bank"
	"github.com/driveprep/driveprep/internal/result"
	"github.com/driveprep/driveprep/internal/stats"
	"github.com/driveprep/driveprep/pkg/resultsink"
	"github.com/go-chi/chi/v5"
)

// GET /results?state=...&limit=20&offset=0 — the caller's attempt history,
// newest first.
func ListResultsHandler(store *result.SQLStore) http.HandlerFunc {
	type item struct {
		resultsink.Result
		Passed bool `json:"passed"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
		state := strings.TrimSpace(r.URL.Query().Get("state"))

		list, err := store.List(r.Context(), result.ListOpts{
			UserID: userID,
			State:  state,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		total, err := store.Count(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		items := make([]item, 0, len(list))
		for _, res := range list {
			items = append(items, item{Result: res, Passed: res.Percentage >= stats.PassThreshold})
		}
		out := map[string]any{
			"results": items,
			"pagination": map[string]any{
				"total":    total,
				"limit":    limit,
				"offset":   offset,
				"has_more": offset+limit < total,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// GET /results/{resultID} — one attempt hydrated with its questions, answer
// keys and explanations for the review screen.
func GetResultHandler(store *result.SQLStore, b *bank.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "resultID"))
		res, err := store.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		if res.UserID != authmw.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		out := map[string]any{"result": res}
		if qs, _, err := b.Get(res.State, res.TestID); err == nil && len(qs) == res.Total {
			out["questions"] = qs
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// GET /stats — overall aggregates, per-state breakdown, and the recent trend
// (last 10 attempts, chronological).
func StatsHandler(store *result.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		all, err := store.All(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		overall := map[string]any{"total_quizzes": stats.Count(all)}
		if avg, ok := stats.Average(all); ok {
			overall["avg_percentage"] = avg
		}
		if best, ok := stats.Best(all); ok {
			overall["best_percentage"] = best.Percentage
		}
		if latest, ok := stats.Latest(all); ok {
			overall["latest"] = latest
		}

		out := map[string]any{
			"overall":      overall,
			"by_state":     stats.ByState(all),
			"recent_trend": stats.RecentTrend(all, 10),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// GET /analysis — coarse performance level consumed by the external
// study-plan service.
func AnalysisHandler(store *result.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		all, err := store.All(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Analyze(all))
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

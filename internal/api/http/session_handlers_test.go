package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	authmw "github.com/driveprep/driveprep/internal/auth/middleware"
	"github.com/driveprep/driveprep/internal/bank"
	"github.com/driveprep/driveprep/internal/quiz"
	"github.com/driveprep/driveprep/pkg/resultsink"
	"github.com/go-chi/chi/v5"
)

// memStore is an in-memory resultsink.Store for handler tests.
type memStore struct {
	mu      sync.Mutex
	results []resultsink.Result
}

func (m *memStore) Append(ctx context.Context, r resultsink.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

func (m *memStore) MarkSyncPending(ctx context.Context, id string) error { return nil }
func (m *memStore) MarkSyncOK(ctx context.Context, id string) error      { return nil }
func (m *memStore) MarkSyncFailed(ctx context.Context, id, lastErr string) error {
	return nil
}

type sessionEnv struct {
	router *chi.Mux
	store  *memStore
	sink   *resultsink.Sink
}

// newSessionEnv wires the session routes behind a middleware that injects a
// fixed authenticated subject.
func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()
	qb, err := bank.Load()
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	store := &memStore{}
	sink := resultsink.New(store, nil, time.Now)
	reg := quiz.NewRegistry()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authmw.WithSubject(req.Context(), "u-test")))
		})
	})
	r.Post("/sessions", CreateSessionHandler(reg, qb))
	r.Get("/sessions/{sessionID}", GetSessionHandler(reg))
	r.Post("/sessions/{sessionID}/answer", SelectAnswerHandler(reg))
	r.Post("/sessions/{sessionID}/next", AdvanceHandler(reg, sink))
	r.Post("/sessions/{sessionID}/prev", RetreatHandler(reg))
	return &sessionEnv{router: r, store: store, sink: sink}
}

func (e *sessionEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	env := newSessionEnv(t)

	rec, view := env.do(t, "POST", "/sessions", `{"state":"General","test_number":"1"}`)
	if rec.Code != 200 {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	id, _ := view["id"].(string)
	if id == "" {
		t.Fatalf("no session id in %v", view)
	}
	total := int(view["total"].(float64))
	if total == 0 || view["question"] == "" {
		t.Fatalf("bad view %v", view)
	}

	// answer every question with its first option
	var final map[string]any
	for i := 0; i < total; i++ {
		rec, cur := env.do(t, "GET", "/sessions/"+id, "")
		if rec.Code != 200 {
			t.Fatalf("get: %d", rec.Code)
		}
		opts := cur["options"].([]any)
		body := fmt.Sprintf(`{"option":%q}`, opts[0].(string))
		if rec, _ = env.do(t, "POST", "/sessions/"+id+"/answer", body); rec.Code != 200 {
			t.Fatalf("answer %d: %d %s", i, rec.Code, rec.Body.String())
		}
		rec, final = env.do(t, "POST", "/sessions/"+id+"/next", "")
		if rec.Code != 200 {
			t.Fatalf("next %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	score, ok := final["result"].(map[string]any)
	if !ok {
		t.Fatalf("final advance missing result: %v", final)
	}
	if int(score["total"].(float64)) != total {
		t.Fatalf("score total %v, want %d", score["total"], total)
	}
	record, ok := final["record"].(map[string]any)
	if !ok || record["user_id"] != "u-test" {
		t.Fatalf("record %v", final["record"])
	}

	env.sink.Flush()
	if len(env.store.results) != 1 || env.store.results[0].UserID != "u-test" {
		t.Fatalf("persisted results %+v", env.store.results)
	}

	// session is dropped after completion
	if rec, _ := env.do(t, "GET", "/sessions/"+id, ""); rec.Code != 404 {
		t.Fatalf("expected 404 after completion, got %d", rec.Code)
	}
}

func TestSessionErrorMapping(t *testing.T) {
	env := newSessionEnv(t)

	rec, view := env.do(t, "POST", "/sessions", `{"state":"California","test_number":"1"}`)
	if rec.Code != 200 {
		t.Fatalf("create: %d", rec.Code)
	}
	id := view["id"].(string)

	// advancing with nothing selected is a state conflict
	if rec, _ := env.do(t, "POST", "/sessions/"+id+"/next", ""); rec.Code != 409 {
		t.Fatalf("advance unanswered: %d, want 409", rec.Code)
	}
	// retreating from the first question likewise
	if rec, _ := env.do(t, "POST", "/sessions/"+id+"/prev", ""); rec.Code != 409 {
		t.Fatalf("retreat at start: %d, want 409", rec.Code)
	}
	// an option outside the question is malformed input
	if rec, _ := env.do(t, "POST", "/sessions/"+id+"/answer", `{"option":"not an option"}`); rec.Code != 400 {
		t.Fatalf("bad option: %d, want 400", rec.Code)
	}
	// unknown session
	if rec, _ := env.do(t, "POST", "/sessions/nope/next", ""); rec.Code != 404 {
		t.Fatalf("unknown session: %d, want 404", rec.Code)
	}
	// unknown test id
	if rec, _ := env.do(t, "POST", "/sessions", `{"state":"California","test_number":"99"}`); rec.Code != 404 {
		t.Fatalf("unknown test: %d, want 404", rec.Code)
	}
	// missing test number
	if rec, _ := env.do(t, "POST", "/sessions", `{"state":"California"}`); rec.Code != 400 {
		t.Fatalf("missing test number: %d, want 400", rec.Code)
	}
}

func TestQuizEndpointStripsAnswerKeys(t *testing.T) {
	qb, err := bank.Load()
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	r := chi.NewRouter()
	r.Get("/states/{state}/tests/{testID}", GetQuizHandler(qb))

	req := httptest.NewRequest("GET", "/states/California/tests/1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("get quiz: %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "correct_answer") || strings.Contains(body, "explanation") {
		t.Fatalf("answer keys leaked: %s", body)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if qs := out["questions"].([]any); len(qs) == 0 {
		t.Fatalf("no questions in %v", out)
	}
}

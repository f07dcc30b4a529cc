package quiz

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry hosts live sessions for thin clients driving the flow over HTTP.
// Each session is still single-caller; the registry lock only guards the map
// and serializes access per request.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session *Session
	state   string
	testID  string
	userID  string
}

// View is the client-facing snapshot of a hosted session. Answer keys and
// explanations are withheld until completion (parity with serving a quiz
// without its key).
type View struct {
	ID        string   `json:"id"`
	State     string   `json:"state"`
	TestID    string   `json:"test_id"`
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Selected  string   `json:"selected,omitempty"`
	Completed bool     `json:"completed"`
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*entry{}}
}

// Create starts a hosted session and returns its ID.
func (r *Registry) Create(state, testID, userID string, questions []Question) (string, View, error) {
	s, err := Start(questions)
	if err != nil {
		return "", View{}, err
	}
	id := uuid.NewString()
	e := &entry{session: s, state: state, testID: testID, userID: userID}
	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()
	return id, r.view(id, e), nil
}

// Select records an answer on the hosted session.
func (r *Registry) Select(id, option string) (View, error) {
	return r.with(id, func(e *entry) error { return e.session.Select(option) })
}

// Advance moves forward; on the final question it finalizes and returns the
// outcome along with the session's identity for result construction.
func (r *Registry) Advance(id string) (View, *Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return View{}, nil, ErrSessionNotFound
	}
	out, err := e.session.Advance()
	if err != nil {
		return View{}, nil, err
	}
	return r.view(id, e), out, nil
}

// Retreat moves back one question.
func (r *Registry) Retreat(id string) (View, error) {
	return r.with(id, func(e *entry) error { return e.session.Retreat() })
}

// Get returns the current snapshot.
func (r *Registry) Get(id string) (View, error) {
	return r.with(id, func(*entry) error { return nil })
}

// Identity returns the (state, testID, userID) triple a session was created
// with.
func (r *Registry) Identity(id string) (state, testID, userID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return "", "", "", ErrSessionNotFound
	}
	return e.state, e.testID, e.userID, nil
}

// Drop discards a session (screen abandoned or retake).
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) with(id string, fn func(*entry) error) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return View{}, ErrSessionNotFound
	}
	if err := fn(e); err != nil {
		return View{}, err
	}
	return r.view(id, e), nil
}

func (r *Registry) view(id string, e *entry) View {
	s := e.session
	q := s.Current()
	return View{
		ID:        id,
		State:     e.state,
		TestID:    e.testID,
		Index:     s.Index(),
		Total:     s.Len(),
		Question:  q.Prompt,
		Options:   q.Options,
		Selected:  s.Answer(s.Index()),
		Completed: s.Completed(),
	}
}

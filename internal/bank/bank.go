package bank

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/driveprep/driveprep/internal/quiz"
)

//go:embed data/*.json
var dataFS embed.FS

// FallbackState is served when a state has no question set of its own.
const FallbackState = "General"

type Test struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []quiz.Question `json:"questions"`
}

type StateSet struct {
	State        string          `json:"state"`
	Abbreviation string          `json:"abbreviation"`
	Description  string          `json:"description"`
	Tests        map[string]Test `json:"tests"`
}

// TestInfo is the listing view of one test (no questions).
type TestInfo struct {
	State       string `json:"state"`
	TestID      string `json:"test_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Questions   int    `json:"total_questions"`
}

// Bank holds the static question sets, keyed by lower-cased state name.
// Content is loaded and validated once at startup and never mutated.
type Bank struct {
	states map[string]StateSet
}

// Load parses the embedded question sets and checks structural
// well-formedness: every test non-empty, every question with at least two
// options and an answer key that is one of them.
func Load() (*Bank, error) {
	entries, err := dataFS.ReadDir("data")
	if err != nil {
		return nil, err
	}
	b := &Bank{states: map[string]StateSet{}}
	for _, e := range entries {
		raw, err := dataFS.ReadFile("data/" + e.Name())
		if err != nil {
			return nil, err
		}
		var ss StateSet
		if err := json.Unmarshal(raw, &ss); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		for id, t := range ss.Tests {
			if _, err := quiz.Start(t.Questions); err != nil {
				return nil, fmt.Errorf("%s test %s: %w", ss.State, id, err)
			}
		}
		b.states[strings.ToLower(ss.State)] = ss
	}
	if _, ok := b.states[strings.ToLower(FallbackState)]; !ok {
		return nil, fmt.Errorf("missing fallback question set %q", FallbackState)
	}
	return b, nil
}

// States lists the available state sets, fallback included, sorted by name.
func (b *Bank) States() []StateSet {
	out := make([]StateSet, 0, len(b.states))
	for _, ss := range b.states {
		// listing omits question bodies
		ss.Tests = nil
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}

// Tests lists the tests for a state (fallback set if the state is unknown).
func (b *Bank) Tests(state string) []TestInfo {
	ss, resolved := b.resolve(state)
	out := make([]TestInfo, 0, len(ss.Tests))
	for id, t := range ss.Tests {
		out = append(out, TestInfo{
			State:       resolved,
			TestID:      id,
			Title:       t.Title,
			Description: t.Description,
			Questions:   len(t.Questions),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestID < out[j].TestID })
	return out
}

// Get returns the questions for (state, testID). An unknown state falls back
// to the General set, mirroring the app's fallback tests; an unknown test ID
// is an error.
func (b *Bank) Get(state, testID string) ([]quiz.Question, TestInfo, error) {
	ss, resolved := b.resolve(state)
	t, ok := ss.Tests[testID]
	if !ok {
		return nil, TestInfo{}, fmt.Errorf("no test %q for state %q", testID, resolved)
	}
	info := TestInfo{
		State:       resolved,
		TestID:      testID,
		Title:       t.Title,
		Description: t.Description,
		Questions:   len(t.Questions),
	}
	return t.Questions, info, nil
}

func (b *Bank) resolve(state string) (StateSet, string) {
	if ss, ok := b.states[strings.ToLower(strings.TrimSpace(state))]; ok {
		return ss, ss.State
	}
	return b.states[strings.ToLower(FallbackState)], FallbackState
}

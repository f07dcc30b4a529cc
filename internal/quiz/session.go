package quiz

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidQuiz        = errors.New("invalid quiz")
	ErrInvalidAnswer      = errors.New("answer not among options")
	ErrNoAnswerSelected   = errors.New("no answer selected")
	ErrAtStart            = errors.New("already at first question")
	ErrSessionComplete    = errors.New("session already completed")
	ErrSessionNotComplete = errors.New("session not completed")
)

// Session tracks one attempt at a fixed, ordered question set: current
// position, one answer slot per question, and a completion flag. It is not
// safe for concurrent use; one caller drives it sequentially, matching a
// single test screen. Finalization freezes the answers.
type Session struct {
	questions []Question
	answers   []string // "" means unanswered; otherwise one of the question's options
	current   int
	completed bool
}

// Start validates the question set and returns a fresh session positioned at
// the first question with every slot unanswered.
func Start(questions []Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question set", ErrInvalidQuiz)
	}
	for i, q := range questions {
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d has %d options", ErrInvalidQuiz, i, len(q.Options))
		}
		if !contains(q.Options, q.CorrectAnswer) {
			return nil, fmt.Errorf("%w: question %d answer key not among options", ErrInvalidQuiz, i)
		}
	}
	return &Session{
		questions: questions,
		answers:   make([]string, len(questions)),
	}, nil
}

// Current returns the question at the cursor.
func (s *Session) Current() Question { return s.questions[s.current] }

// Index returns the zero-based cursor position.
func (s *Session) Index() int { return s.current }

// Len returns the number of questions in the set.
func (s *Session) Len() int { return len(s.questions) }

// Completed reports whether the session has been finalized.
func (s *Session) Completed() bool { return s.completed }

// Answer returns the recorded answer for question i ("" if unanswered).
func (s *Session) Answer(i int) string { return s.answers[i] }

// Answers returns a copy of all answer slots.
func (s *Session) Answers() []string {
	out := make([]string, len(s.answers))
	copy(out, s.answers)
	return out
}

// Select records option as the answer for the current question, overwriting
// any earlier choice. Re-selection is allowed until the session completes,
// including after navigating away and back.
func (s *Session) Select(option string) error {
	if s.completed {
		return ErrSessionComplete
	}
	if !contains(s.questions[s.current].Options, option) {
		return fmt.Errorf("%w: %q", ErrInvalidAnswer, option)
	}
	s.answers[s.current] = option
	return nil
}

// Advance moves the cursor forward. The current question must have a recorded
// answer; skipping is not allowed. Advancing past the last question finalizes
// the session and returns its outcome; otherwise the returned outcome is nil.
func (s *Session) Advance() (*Outcome, error) {
	if s.completed {
		return nil, ErrSessionComplete
	}
	if s.answers[s.current] == "" {
		return nil, ErrNoAnswerSelected
	}
	if s.current < len(s.questions)-1 {
		s.current++
		return nil, nil
	}
	s.completed = true
	sc, _ := s.Score()
	return &Outcome{Score: sc, Answers: s.Answers()}, nil
}

// Retreat moves the cursor back one question. Answers on both sides of the
// move persist.
func (s *Session) Retreat() error {
	if s.completed {
		return ErrSessionComplete
	}
	if s.current == 0 {
		return ErrAtStart
	}
	s.current--
	return nil
}

// Score counts slots matching the answer key. Only defined once the session
// is completed; until then the tally would be misleading mid-attempt.
func (s *Session) Score() (Score, error) {
	if !s.completed {
		return Score{}, ErrSessionNotComplete
	}
	correct := 0
	for i, q := range s.questions {
		if s.answers[i] == q.CorrectAnswer {
			correct++
		}
	}
	return Score{
		Correct:    correct,
		Total:      len(s.questions),
		Percentage: int(math.Round(100 * float64(correct) / float64(len(s.questions)))),
	}, nil
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}

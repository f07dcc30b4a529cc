package quiz

// Question is one multiple-choice item. Content is static: question sets are
// loaded once and never mutated for the lifetime of a session.
type Question struct {
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Score is the outcome of a completed session.
type Score struct {
	Correct    int `json:"score"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Outcome is returned by the finalizing Advance call.
type Outcome struct {
	Score   Score
	Answers []string // copy of the final answer slots; "" = never answered
}

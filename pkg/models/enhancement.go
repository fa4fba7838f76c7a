package models

import "time"

// Enhancement is an LLM-generated enrichment of a task description.
// It is immutable once appended; a task may accumulate several across retries.
type Enhancement struct {
	// EnhancedDescription is the rewritten, enriched task description.
	EnhancedDescription string `json:"enhanced_description"`
	// Reasoning explains what the enhancement added and why.
	Reasoning string `json:"reasoning,omitempty"`
	// CreatedAt is when the enhancement was generated.
	CreatedAt time.Time `json:"created_at"`
}

// TestType classifies a comprehension test question.
type TestType string

const (
	// TestTypeShortAnswer is a free-form short answer question.
	TestTypeShortAnswer TestType = "short_answer"
	// TestTypeMultipleChoice is a multiple choice question.
	TestTypeMultipleChoice TestType = "multiple_choice"
	// TestTypeTrueFalse is a true/false question.
	TestTypeTrueFalse TestType = "true_false"
)

// Valid returns true if the test type is a known value.
func (t TestType) Valid() bool {
	switch t {
	case TestTypeShortAnswer, TestTypeMultipleChoice, TestTypeTrueFalse:
		return true
	default:
		return false
	}
}

// ComprehensionTest is a generated question verifying a task description is
// clear enough to act on. The flow records the question; evaluation happens
// later, by a human or an external checker.
type ComprehensionTest struct {
	// Question is the generated question text.
	Question string `json:"question"`
	// TestType classifies the question format.
	TestType TestType `json:"test_type"`
	// Difficulty is a free-form difficulty label (e.g. "easy", "medium", "hard").
	Difficulty string `json:"difficulty,omitempty"`
	// AnswerReceived is the answer given during evaluation, if any.
	AnswerReceived string `json:"answer_received,omitempty"`
	// Passed records the evaluation outcome, nil until evaluated.
	Passed *bool `json:"passed,omitempty"`
	// CreatedAt is when the test was generated.
	CreatedAt time.Time `json:"created_at"`
}

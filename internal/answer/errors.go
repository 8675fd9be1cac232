package answer

import "errors"

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrUsageLimit is reported when the answer quota for the period is spent.
	ErrUsageLimit = errors.New("AI usage limit reached")

	// ErrEmptyAnswer is returned when the model produced no text.
	ErrEmptyAnswer = errors.New("model returned no answer")
)

package quiz

import "errors"

var (
	// ErrQuizNotFound: the referenced quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound: no attempt exists for the (user, quiz) pair.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrNoQuestions: the quiz has no questions (or no scorable ones),
	// so it can be neither assigned nor submitted.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrNoAnswers: submit called with an empty answers map.
	ErrNoAnswers = errors.New("no answers provided")
	// ErrNoAssignTarget: assign called without a video or chapter, or the
	// target does not resolve to a course.
	ErrNoAssignTarget = errors.New("no course resolves from the assignment target")
)

// IsInvalid reports whether err is a client-input/state error rather than a
// persistence failure, so the HTTP layer can answer 4xx instead of 500.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrNoQuestions) ||
		errors.Is(err, ErrNoAnswers) ||
		errors.Is(err, ErrNoAssignTarget)
}

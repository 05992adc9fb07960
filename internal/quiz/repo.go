package quiz

import (
	"context"

	"github.com/opencourse/lms-backend/internal/grading"
)

// AssignTarget names the scope a quiz is being attached to. Exactly one of
// VideoID/ChapterID should be set; the owning course is resolved from it.
type AssignTarget struct {
	VideoID   *int64
	ChapterID *int64
}

// Store is the persistence boundary for quiz definitions, the attempt ledger
// and the scope-assignment lifecycle.
type Store interface {
	// --- definitions ---
	CreateQuiz(ctx context.Context, q Quiz) (int64, error)
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
	UpdateQuiz(ctx context.Context, id int64, title string, durationMinutes, passingScore int) error
	DeleteQuiz(ctx context.Context, id int64) error
	ReplaceQuestions(ctx context.Context, quizID int64, questions []Question) error

	ListAll(ctx context.Context) ([]QuizSummary, error)
	ListByCourse(ctx context.Context, courseID int64) ([]QuizSummary, error)
	ListByChapter(ctx context.Context, chapterID int64) ([]Quiz, error)
	ListByVideo(ctx context.Context, videoID int64) ([]QuizSummary, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]QuizSummary, error)
	ListUnassigned(ctx context.Context) ([]QuizSummary, error)

	// CorrectAnswers returns one grading.Q per question that has at least one
	// correct option, plus the quiz passing threshold. Questions without a
	// correct option are not scorable and are excluded, as in the source data.
	CorrectAnswers(ctx context.Context, quizID int64) ([]grading.Q, int, error)

	// --- attempt ledger ---
	// SaveAttempt writes the attempt row and its answer rows in one
	// transaction and returns the generated attempt id.
	SaveAttempt(ctx context.Context, a Attempt, answers Submission) (int64, error)
	LatestAttempt(ctx context.Context, userID, quizID int64) (Attempt, error)
	HasAttempt(ctx context.Context, userID, quizID int64) (bool, error)
	GetResult(ctx context.Context, userID, quizID int64) (*Result, error)
	GetReview(ctx context.Context, userID, quizID int64) (*AttemptReview, error)
	// ResetAttempt deletes the latest attempt's answers then the attempt.
	// Returns ErrAttemptNotFound when there is nothing to reset.
	ResetAttempt(ctx context.Context, userID, quizID int64) error

	// --- scope assignment ---
	Assign(ctx context.Context, quizID int64, target AssignTarget) error
	Unassign(ctx context.Context, quizID int64) error
}

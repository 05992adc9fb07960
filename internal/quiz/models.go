package quiz

type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id,omitempty"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID                    int64    `json:"id"`
	QuizID                int64    `json:"quiz_id,omitempty"`
	QuestionText          string   `json:"question_text"`
	Points                int      `json:"points"`
	AllowsMultipleCorrect bool     `json:"allows_multiple_correct"`
	Options               []Option `json:"options,omitempty"`
}

type Quiz struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	PassingScore    int        `json:"passing_score"`
	QuizType        string     `json:"quiz_type,omitempty"`
	VideoID         *int64     `json:"video_id,omitempty"`
	ChapterID       *int64     `json:"chapter_id,omitempty"`
	CourseID        *int64     `json:"course_id,omitempty"`
	TeacherID       *int64     `json:"teacher_id,omitempty"`
	CreatedAt       int64      `json:"created_at,omitempty"`
	Questions       []Question `json:"questions,omitempty"`
}

// QuizSummary is the listing shape: scope titles and question count joined in,
// question bodies left out.
type QuizSummary struct {
	Quiz
	VideoTitle    string `json:"video_title,omitempty"`
	ChapterTitle  string `json:"chapter_title,omitempty"`
	TeacherName   string `json:"teacher_name,omitempty"`
	QuestionCount int    `json:"question_count"`
	IsAssigned    bool   `json:"is_assigned,omitempty"`
}

type Attempt struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	QuizID  int64  `json:"quiz_id"`
	Score   int    `json:"score"`
	Status  string `json:"status"` // completed|failed
	EndTime int64  `json:"end_time"`
}

// Submission maps question id to the selected option ids (one entry for
// single-choice, several for multi-correct questions).
type Submission map[int64][]int64

// SubmitResult is returned to the caller right after grading.
type SubmitResult struct {
	AttemptID int64      `json:"attempt_id"`
	Score     int        `json:"score"`
	Passed    bool       `json:"passed"`
	Status    string     `json:"status"`
	Answers   Submission `json:"answers"`
}

// Result is the persisted outcome of the latest attempt, with one selected
// option echoed per question.
type Result struct {
	AttemptID int64           `json:"attempt_id"`
	Score     int             `json:"score"`
	Passed    bool            `json:"passed"`
	Answers   map[int64]int64 `json:"answers"`
}

// QuestionReview pairs a question with its full option list and the learner's
// selection, for the post-attempt review screen.
type QuestionReview struct {
	ID             int64    `json:"id"`
	QuestionText   string   `json:"question_text"`
	Points         int      `json:"points"`
	Options        []Option `json:"options"`
	SelectedOption *int64   `json:"selected_answer,omitempty"`
}

type AttemptReview struct {
	AttemptID int64            `json:"attempt_id"`
	Score     int              `json:"score"`
	Passed    bool             `json:"passed"`
	Details   []QuestionReview `json:"details"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultPassingScore applies when a quiz has no explicit threshold.
const DefaultPassingScore = 60

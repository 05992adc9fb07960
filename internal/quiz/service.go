package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/opencourse/lms-backend/internal/grading"
	syncx "github.com/opencourse/lms-backend/internal/sync"
)

// Service runs the submission flow: score against the stored correct-answer
// sets, persist the attempt with its answers, report the outcome.
type Service struct {
	store  Store
	grader grading.Grader
	events *syncx.EventRepo // optional
}

func NewService(store Store, grader grading.Grader, events *syncx.EventRepo) *Service {
	if grader == nil {
		grader = grading.NewDefaultGrader()
	}
	return &Service{store: store, grader: grader, events: events}
}

// Submit grades answers for one quiz and records the attempt. The two writes
// (attempt row, answer rows) happen in one transaction inside the store.
func (s *Service) Submit(ctx context.Context, userID, quizID int64, answers Submission) (SubmitResult, error) {
	if len(answers) == 0 {
		return SubmitResult{}, ErrNoAnswers
	}

	questions, passingScore, err := s.store.CorrectAnswers(ctx, quizID)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(questions) == 0 {
		return SubmitResult{}, fmt.Errorf("quiz %d: %w", quizID, ErrNoQuestions)
	}

	maxScore := 0
	awarded := 0
	for _, q := range questions {
		maxScore += q.Points
		res, err := s.grader.Grade(ctx, q, answers[q.ID])
		if err != nil {
			return SubmitResult{}, err
		}
		awarded += res.AutoPoints
	}

	finalScore := int(math.Round(float64(awarded) / float64(maxScore) * 100))
	if passingScore <= 0 {
		passingScore = DefaultPassingScore
	}
	passed := finalScore >= passingScore
	status := StatusFailed
	if passed {
		status = StatusCompleted
	}

	attemptID, err := s.store.SaveAttempt(ctx, Attempt{
		UserID:  userID,
		QuizID:  quizID,
		Score:   finalScore,
		Status:  status,
		EndTime: time.Now().Unix(),
	}, answers)
	if err != nil {
		return SubmitResult{}, err
	}

	s.emit(ctx, "AttemptSubmitted", attemptID, map[string]any{
		"user_id": userID, "quiz_id": quizID, "score": finalScore, "status": status,
	})

	return SubmitResult{
		AttemptID: attemptID,
		Score:     finalScore,
		Passed:    passed,
		Status:    status,
		Answers:   answers,
	}, nil
}

// Result returns the latest persisted outcome, or nil when the user has not
// attempted the quiz.
func (s *Service) Result(ctx context.Context, userID, quizID int64) (*Result, error) {
	return s.store.GetResult(ctx, userID, quizID)
}

func (s *Service) Review(ctx context.Context, userID, quizID int64) (*AttemptReview, error) {
	return s.store.GetReview(ctx, userID, quizID)
}

// HasAttempted reports whether the user has any recorded attempt on the quiz.
func (s *Service) HasAttempted(ctx context.Context, userID, quizID int64) (bool, error) {
	return s.store.HasAttempt(ctx, userID, quizID)
}

// Reset drops the latest attempt so the user can retake the quiz. A missing
// attempt is not an error to the caller.
func (s *Service) Reset(ctx context.Context, userID, quizID int64) (bool, error) {
	err := s.store.ResetAttempt(ctx, userID, quizID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return false, nil
		}
		return false, err
	}
	s.emit(ctx, "AttemptReset", quizID, map[string]any{"user_id": userID, "quiz_id": quizID})
	return true, nil
}

func (s *Service) Assign(ctx context.Context, quizID int64, target AssignTarget) error {
	if err := s.store.Assign(ctx, quizID, target); err != nil {
		return err
	}
	s.emit(ctx, "QuizAssigned", quizID, map[string]any{
		"video_id": target.VideoID, "chapter_id": target.ChapterID,
	})
	return nil
}

func (s *Service) Unassign(ctx context.Context, quizID int64) error {
	if err := s.store.Unassign(ctx, quizID); err != nil {
		return err
	}
	s.emit(ctx, "QuizUnassigned", quizID, nil)
	return nil
}

func (s *Service) emit(ctx context.Context, typ string, key int64, data map[string]any) {
	if s.events == nil {
		return
	}
	buf, _ := json.Marshal(data)
	// best effort: a full event log must not fail the request
	_ = s.events.Append(ctx, syncx.Event{Type: typ, Key: strconv.FormatInt(key, 10), DataJSON: string(buf)})
}

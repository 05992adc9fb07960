package quiz_test

import (
	"context"
	"testing"

	"github.com/opencourse/lms-backend/internal/grading"
	"github.com/opencourse/lms-backend/internal/quiz"
)

func newQuiz(t *testing.T, st quiz.Store, passingScore int, questions []quiz.Question) quiz.Quiz {
	t.Helper()
	id, err := st.CreateQuiz(context.Background(), quiz.Quiz{
		Title:        "unit quiz",
		PassingScore: passingScore,
		Questions:    questions,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q, err := st.GetQuiz(context.Background(), id)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	return q
}

// one single-choice question with options (last one correct)
func singleQ(text string, points int) quiz.Question {
	return quiz.Question{
		QuestionText: text,
		Points:       points,
		Options: []quiz.Option{
			{OptionText: "a"},
			{OptionText: "b"},
			{OptionText: "c", IsCorrect: true},
		},
	}
}

func correctOption(q quiz.Question) int64 {
	for _, op := range q.Options {
		if op.IsCorrect {
			return op.ID
		}
	}
	return 0
}

func wrongOption(q quiz.Question) int64 {
	for _, op := range q.Options {
		if !op.IsCorrect {
			return op.ID
		}
	}
	return 0
}

func TestSubmitAllCorrectScoresHundred(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1), singleQ("q2", 1)})

	answers := quiz.Submission{}
	for _, qu := range q.Questions {
		answers[qu.ID] = []int64{correctOption(qu)}
	}
	res, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 100 || !res.Passed || res.Status != quiz.StatusCompleted {
		t.Fatalf("got score=%d passed=%v status=%q", res.Score, res.Passed, res.Status)
	}
}

func TestSubmitAllWrongScoresZero(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1), singleQ("q2", 1)})

	answers := quiz.Submission{}
	for _, qu := range q.Questions {
		answers[qu.ID] = []int64{wrongOption(qu)}
	}
	res, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 0 || res.Passed || res.Status != quiz.StatusFailed {
		t.Fatalf("got score=%d passed=%v status=%q", res.Score, res.Passed, res.Status)
	}
}

func TestSubmitRoundsScore(t *testing.T) {
	// 2 of 3 one-point questions correct: round(66.67) == 67
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1), singleQ("q2", 1), singleQ("q3", 1)})

	answers := quiz.Submission{
		q.Questions[0].ID: {correctOption(q.Questions[0])},
		q.Questions[1].ID: {correctOption(q.Questions[1])},
		q.Questions[2].ID: {wrongOption(q.Questions[2])},
	}
	res, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 67 {
		t.Fatalf("got score=%d, want 67", res.Score)
	}
}

func TestPassThresholdIsInclusive(t *testing.T) {
	// passing_score=70: 7/10 correct passes, 6/10 does not
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)

	var questions []quiz.Question
	for i := 0; i < 10; i++ {
		questions = append(questions, singleQ("q", 1))
	}
	q := newQuiz(t, st, 70, questions)

	submit := func(correct int) quiz.SubmitResult {
		answers := quiz.Submission{}
		for i, qu := range q.Questions {
			if i < correct {
				answers[qu.ID] = []int64{correctOption(qu)}
			} else {
				answers[qu.ID] = []int64{wrongOption(qu)}
			}
		}
		res, err := svc.Submit(context.Background(), 7, q.ID, answers)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		return res
	}

	if res := submit(7); res.Score != 70 || !res.Passed {
		t.Fatalf("score==threshold: got score=%d passed=%v, want 70/true", res.Score, res.Passed)
	}
	if res := submit(6); res.Score != 60 || res.Passed {
		t.Fatalf("score<threshold: got score=%d passed=%v, want 60/false", res.Score, res.Passed)
	}
}

func TestMissingAnswersScoreZeroForThoseQuestions(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1), singleQ("q2", 1)})

	// answer only the first question
	answers := quiz.Submission{q.Questions[0].ID: {correctOption(q.Questions[0])}}
	res, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 50 {
		t.Fatalf("got score=%d, want 50", res.Score)
	}
}

func TestSubmitEmptyAnswersRejected(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1)})

	if _, err := svc.Submit(context.Background(), 7, q.ID, quiz.Submission{}); err != quiz.ErrNoAnswers {
		t.Fatalf("got %v, want ErrNoAnswers", err)
	}
}

func TestSubmitQuizWithoutScorableQuestions(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	// question exists but no option is flagged correct
	q := newQuiz(t, st, 60, []quiz.Question{{
		QuestionText: "q1",
		Points:       1,
		Options:      []quiz.Option{{OptionText: "a"}, {OptionText: "b"}},
	}})

	answers := quiz.Submission{q.Questions[0].ID: {q.Questions[0].Options[0].ID}}
	_, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if !quiz.IsInvalid(err) {
		t.Fatalf("got %v, want an invalid-state error", err)
	}
}

func TestSubmitUnknownQuiz(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	_, err := svc.Submit(context.Background(), 7, 999, quiz.Submission{1: {2}})
	if err != quiz.ErrQuizNotFound {
		t.Fatalf("got %v, want ErrQuizNotFound", err)
	}
}

func TestDefaultPassingScoreApplies(t *testing.T) {
	// passing_score 0 falls back to 60
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 0, []quiz.Question{singleQ("q1", 1), singleQ("q2", 1)})

	answers := quiz.Submission{
		q.Questions[0].ID: {correctOption(q.Questions[0])},
		q.Questions[1].ID: {wrongOption(q.Questions[1])},
	}
	res, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 50 || res.Passed {
		t.Fatalf("got score=%d passed=%v, want 50/false under default threshold", res.Score, res.Passed)
	}
}

func TestResultRoundTrip(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1), singleQ("q2", 1)})

	answers := quiz.Submission{}
	for _, qu := range q.Questions {
		answers[qu.ID] = []int64{correctOption(qu)}
	}
	sub, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := svc.Result(context.Background(), 7, q.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res == nil {
		t.Fatal("result: got nil after a submission")
	}
	if res.Score != sub.Score || res.Passed != sub.Passed || res.AttemptID != sub.AttemptID {
		t.Fatalf("result mismatch: %+v vs %+v", res, sub)
	}
	for qid, ids := range answers {
		if res.Answers[qid] != ids[0] {
			t.Fatalf("answer for question %d: got %d, want %d", qid, res.Answers[qid], ids[0])
		}
	}
}

func TestResetThenResultIsNull(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1)})

	answers := quiz.Submission{q.Questions[0].ID: {correctOption(q.Questions[0])}}
	if _, err := svc.Submit(context.Background(), 7, q.ID, answers); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deleted, err := svc.Reset(context.Background(), 7, q.ID)
	if err != nil || !deleted {
		t.Fatalf("reset: deleted=%v err=%v", deleted, err)
	}
	res, err := svc.Result(context.Background(), 7, q.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res != nil {
		t.Fatalf("result after reset: got %+v, want nil", res)
	}

	// resetting again reports "nothing to do" without error
	deleted, err = svc.Reset(context.Background(), 7, q.ID)
	if err != nil || deleted {
		t.Fatalf("second reset: deleted=%v err=%v", deleted, err)
	}
}

func TestHasAttemptedFollowsLifecycle(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1)})

	attempted, err := svc.HasAttempted(context.Background(), 7, q.ID)
	if err != nil || attempted {
		t.Fatalf("before attempt: attempted=%v err=%v", attempted, err)
	}

	answers := quiz.Submission{q.Questions[0].ID: {correctOption(q.Questions[0])}}
	if _, err := svc.Submit(context.Background(), 7, q.ID, answers); err != nil {
		t.Fatalf("submit: %v", err)
	}
	attempted, err = svc.HasAttempted(context.Background(), 7, q.ID)
	if err != nil || !attempted {
		t.Fatalf("after attempt: attempted=%v err=%v", attempted, err)
	}

	if _, err := svc.Reset(context.Background(), 7, q.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	attempted, err = svc.HasAttempted(context.Background(), 7, q.ID)
	if err != nil || attempted {
		t.Fatalf("after reset: attempted=%v err=%v", attempted, err)
	}
}

func TestLatestAttemptWinsAfterRetake(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1)})

	wrong := quiz.Submission{q.Questions[0].ID: {wrongOption(q.Questions[0])}}
	right := quiz.Submission{q.Questions[0].ID: {correctOption(q.Questions[0])}}

	if _, err := svc.Submit(context.Background(), 7, q.ID, wrong); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), 7, q.ID, right); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	res, err := svc.Result(context.Background(), 7, q.ID)
	if err != nil || res == nil {
		t.Fatalf("result: res=%v err=%v", res, err)
	}
	if res.Score != 100 || !res.Passed {
		t.Fatalf("latest attempt: got score=%d passed=%v, want 100/true", res.Score, res.Passed)
	}
}

func TestSubmitIgnoresStrayAnswerRows(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1)})

	answers := quiz.Submission{
		q.Questions[0].ID: {correctOption(q.Questions[0])},
		9999:              {123456}, // not a question of this quiz
	}
	res, err := svc.Submit(context.Background(), 7, q.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 100 {
		t.Fatalf("got score=%d, want 100 (stray row contributes nothing)", res.Score)
	}

	stored, err := svc.Result(context.Background(), 7, q.ID)
	if err != nil || stored == nil {
		t.Fatalf("result: res=%v err=%v", stored, err)
	}
	if _, ok := stored.Answers[9999]; ok {
		t.Fatalf("stray answer persisted: %+v", stored.Answers)
	}
}

func TestListByVideoFiltersOnType(t *testing.T) {
	st := quiz.NewInMemoryStore()
	st.AddVideo(9, 3)

	create := func(title, quizType string) int64 {
		id, err := st.CreateQuiz(context.Background(), quiz.Quiz{
			Title: title, PassingScore: 60, QuizType: quizType,
			Questions: []quiz.Question{singleQ("q1", 1)},
		})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		return id
	}
	videoQuiz := create("for videos", "video")
	create("for chapters", "chapter")

	list, err := st.ListByVideo(context.Background(), 9)
	if err != nil {
		t.Fatalf("list by video: %v", err)
	}
	if len(list) != 1 || list[0].ID != videoQuiz {
		t.Fatalf("got %+v, want only the video-typed quiz", list)
	}
}

func TestAssignRequiresQuestions(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	st.AddChapter(5, 1)

	q := newQuiz(t, st, 60, nil) // no questions
	chapterID := int64(5)
	err := svc.Assign(context.Background(), q.ID, quiz.AssignTarget{ChapterID: &chapterID})
	if !quiz.IsInvalid(err) {
		t.Fatalf("got %v, want invalid-state error", err)
	}

	// quiz row untouched
	got, _ := st.GetQuiz(context.Background(), q.ID)
	if got.ChapterID != nil || got.CourseID != nil {
		t.Fatalf("assign mutated quiz: %+v", got)
	}
}

func TestAssignAndUnassignLifecycle(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	st.AddVideo(9, 3)

	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1)})
	videoID := int64(9)
	if err := svc.Assign(context.Background(), q.ID, quiz.AssignTarget{VideoID: &videoID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, _ := st.GetQuiz(context.Background(), q.ID)
	if got.VideoID == nil || *got.VideoID != 9 || got.CourseID == nil || *got.CourseID != 3 {
		t.Fatalf("after assign: %+v", got)
	}

	// now listed against its scope and no longer unassigned
	unassigned, _ := st.ListUnassigned(context.Background())
	for _, u := range unassigned {
		if u.ID == q.ID {
			t.Fatal("assigned quiz still listed as unassigned")
		}
	}

	if err := svc.Unassign(context.Background(), q.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	got, _ = st.GetQuiz(context.Background(), q.ID)
	if got.VideoID != nil || got.ChapterID != nil || got.CourseID != nil {
		t.Fatalf("after unassign: %+v", got)
	}
}

func TestAssignWithoutTarget(t *testing.T) {
	st := quiz.NewInMemoryStore()
	svc := quiz.NewService(st, grading.NewDefaultGrader(), nil)
	q := newQuiz(t, st, 60, []quiz.Question{singleQ("q1", 1)})

	err := svc.Assign(context.Background(), q.ID, quiz.AssignTarget{})
	if !quiz.IsInvalid(err) {
		t.Fatalf("got %v, want invalid-input error", err)
	}
}

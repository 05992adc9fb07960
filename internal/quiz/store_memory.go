package quiz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opencourse/lms-backend/internal/grading"
)

// memoryStore mirrors the SQL store for dev and handler tests. Course
// resolution for Assign is fed through the Courses/Chapters/Videos maps.
type memoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	quizzes  map[int64]Quiz
	attempts map[int64]Attempt
	answers  map[int64]Submission // attemptID -> submission

	videoCourse   map[int64]int64 // videoID -> courseID
	chapterCourse map[int64]int64 // chapterID -> courseID
}

func NewInMemoryStore() *memoryStore {
	return &memoryStore{
		quizzes:       map[int64]Quiz{},
		attempts:      map[int64]Attempt{},
		answers:       map[int64]Submission{},
		videoCourse:   map[int64]int64{},
		chapterCourse: map[int64]int64{},
	}
}

// AddVideo and AddChapter seed scope targets for assignment resolution.
func (m *memoryStore) AddVideo(videoID, courseID int64) { m.videoCourse[videoID] = courseID }

func (m *memoryStore) AddChapter(chapterID, courseID int64) { m.chapterCourse[chapterID] = courseID }

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) CreateQuiz(_ context.Context, q Quiz) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.id()
	q.CreatedAt = time.Now().Unix()
	for i := range q.Questions {
		q.Questions[i].ID = m.id()
		q.Questions[i].QuizID = q.ID
		if q.Questions[i].Points <= 0 {
			q.Questions[i].Points = 1
		}
		for j := range q.Questions[i].Options {
			q.Questions[i].Options[j].ID = m.id()
			q.Questions[i].Options[j].QuestionID = q.Questions[i].ID
		}
	}
	m.quizzes[q.ID] = q
	return q.ID, nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id int64) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return q, nil
}

func (m *memoryStore) UpdateQuiz(_ context.Context, id int64, title string, durationMinutes, passingScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return ErrQuizNotFound
	}
	q.Title = title
	q.DurationMinutes = durationMinutes
	q.PassingScore = passingScore
	m.quizzes[id] = q
	return nil
}

func (m *memoryStore) DeleteQuiz(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return ErrQuizNotFound
	}
	delete(m.quizzes, id)
	for aid, a := range m.attempts {
		if a.QuizID == id {
			delete(m.attempts, aid)
			delete(m.answers, aid)
		}
	}
	return nil
}

func (m *memoryStore) ReplaceQuestions(_ context.Context, quizID int64, questions []Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return ErrQuizNotFound
	}
	q.Questions = nil
	for _, qu := range questions {
		qu.ID = m.id()
		qu.QuizID = quizID
		if qu.Points <= 0 {
			qu.Points = 1
		}
		for j := range qu.Options {
			qu.Options[j].ID = m.id()
			qu.Options[j].QuestionID = qu.ID
		}
		q.Questions = append(q.Questions, qu)
	}
	m.quizzes[quizID] = q
	return nil
}

func (m *memoryStore) summaries(filter func(Quiz) bool) []QuizSummary {
	out := []QuizSummary{}
	for _, q := range m.quizzes {
		if !filter(q) {
			continue
		}
		out = append(out, QuizSummary{Quiz: Quiz{
			ID: q.ID, Title: q.Title, DurationMinutes: q.DurationMinutes,
			PassingScore: q.PassingScore, QuizType: q.QuizType,
			VideoID: q.VideoID, ChapterID: q.ChapterID, CourseID: q.CourseID,
			TeacherID: q.TeacherID, CreatedAt: q.CreatedAt,
		}, QuestionCount: len(q.Questions)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

func (m *memoryStore) ListAll(_ context.Context) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaries(func(Quiz) bool { return true }), nil
}

func (m *memoryStore) ListByCourse(_ context.Context, courseID int64) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaries(func(q Quiz) bool { return q.CourseID != nil && *q.CourseID == courseID }), nil
}

func (m *memoryStore) ListByChapter(_ context.Context, chapterID int64) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Quiz{}
	for _, q := range m.quizzes {
		if q.ChapterID == nil || *q.ChapterID != chapterID {
			continue
		}
		// strip answer flags from the learner-facing view
		cp := q
		cp.Questions = make([]Question, len(q.Questions))
		for i, qu := range q.Questions {
			cq := qu
			cq.Options = make([]Option, len(qu.Options))
			for j, op := range qu.Options {
				op.IsCorrect = false
				cq.Options[j] = op
			}
			cp.Questions[i] = cq
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) ListByVideo(_ context.Context, videoID int64) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.summaries(func(q Quiz) bool {
		return (q.VideoID == nil || *q.VideoID == videoID) &&
			q.QuizType == "video" && len(q.Questions) > 0
	})
	for i := range out {
		out[i].IsAssigned = out[i].VideoID != nil && *out[i].VideoID == videoID
	}
	return out, nil
}

func (m *memoryStore) ListByTeacher(_ context.Context, teacherID int64) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaries(func(q Quiz) bool { return q.TeacherID != nil && *q.TeacherID == teacherID }), nil
}

func (m *memoryStore) ListUnassigned(_ context.Context) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaries(func(q Quiz) bool {
		return q.VideoID == nil && q.ChapterID == nil && len(q.Questions) > 0
	}), nil
}

func (m *memoryStore) CorrectAnswers(_ context.Context, quizID int64) ([]grading.Q, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return nil, 0, ErrQuizNotFound
	}
	var out []grading.Q
	for _, qu := range q.Questions {
		gq := grading.Q{ID: qu.ID, Points: qu.Points, AllowsMultiple: qu.AllowsMultipleCorrect}
		if gq.Points <= 0 {
			gq.Points = 1
		}
		for _, op := range qu.Options {
			if op.IsCorrect {
				gq.CorrectOptionIDs = append(gq.CorrectOptionIDs, op.ID)
			}
		}
		if len(gq.CorrectOptionIDs) > 0 {
			out = append(out, gq)
		}
	}
	return out, q.PassingScore, nil
}

func (m *memoryStore) SaveAttempt(_ context.Context, a Attempt, answers Submission) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	if a.EndTime == 0 {
		a.EndTime = time.Now().Unix()
	}
	m.attempts[a.ID] = a

	// keep only answers naming a real option of a question on this quiz
	valid := map[int64]map[int64]struct{}{}
	if q, ok := m.quizzes[a.QuizID]; ok {
		for _, qu := range q.Questions {
			opts := map[int64]struct{}{}
			for _, op := range qu.Options {
				opts[op.ID] = struct{}{}
			}
			valid[qu.ID] = opts
		}
	}
	cp := Submission{}
	for questionID, optionIDs := range answers {
		opts, ok := valid[questionID]
		if !ok {
			continue
		}
		for _, optionID := range optionIDs {
			if _, ok := opts[optionID]; ok {
				cp[questionID] = append(cp[questionID], optionID)
			}
		}
	}
	m.answers[a.ID] = cp
	return a.ID, nil
}

func (m *memoryStore) latestLocked(userID, quizID int64) (Attempt, bool) {
	var best Attempt
	found := false
	for _, a := range m.attempts {
		if a.UserID != userID || a.QuizID != quizID {
			continue
		}
		if !found || a.EndTime > best.EndTime || (a.EndTime == best.EndTime && a.ID > best.ID) {
			best = a
			found = true
		}
	}
	return best, found
}

func (m *memoryStore) LatestAttempt(_ context.Context, userID, quizID int64) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.latestLocked(userID, quizID)
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memoryStore) HasAttempt(_ context.Context, userID, quizID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.latestLocked(userID, quizID)
	return ok, nil
}

func (m *memoryStore) GetResult(_ context.Context, userID, quizID int64) (*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.latestLocked(userID, quizID)
	if !ok {
		return nil, nil
	}
	res := &Result{AttemptID: a.ID, Score: a.Score, Passed: a.Status == StatusCompleted, Answers: map[int64]int64{}}
	for questionID, optionIDs := range m.answers[a.ID] {
		for _, optionID := range optionIDs {
			res.Answers[questionID] = optionID
		}
	}
	return res, nil
}

func (m *memoryStore) GetReview(_ context.Context, userID, quizID int64) (*AttemptReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.latestLocked(userID, quizID)
	if !ok {
		return nil, nil
	}
	q, ok := m.quizzes[quizID]
	if !ok {
		return nil, ErrQuizNotFound
	}
	review := &AttemptReview{AttemptID: a.ID, Score: a.Score, Passed: a.Status == StatusCompleted}
	sub := m.answers[a.ID]
	for _, qu := range q.Questions {
		qr := QuestionReview{ID: qu.ID, QuestionText: qu.QuestionText, Points: qu.Points, Options: qu.Options}
		if ids := sub[qu.ID]; len(ids) > 0 {
			v := ids[len(ids)-1]
			qr.SelectedOption = &v
		}
		review.Details = append(review.Details, qr)
	}
	return review, nil
}

func (m *memoryStore) ResetAttempt(_ context.Context, userID, quizID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.latestLocked(userID, quizID)
	if !ok {
		return ErrAttemptNotFound
	}
	delete(m.answers, a.ID)
	delete(m.attempts, a.ID)
	return nil
}

func (m *memoryStore) Assign(_ context.Context, quizID int64, target AssignTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if target.VideoID == nil && target.ChapterID == nil {
		return ErrNoAssignTarget
	}
	q, ok := m.quizzes[quizID]
	if !ok {
		return ErrQuizNotFound
	}
	if len(q.Questions) == 0 {
		return ErrNoQuestions
	}
	var courseID int64
	var found bool
	switch {
	case target.VideoID != nil:
		courseID, found = m.videoCourse[*target.VideoID]
	case target.ChapterID != nil:
		courseID, found = m.chapterCourse[*target.ChapterID]
	}
	if !found {
		return ErrNoAssignTarget
	}
	q.VideoID = target.VideoID
	q.ChapterID = target.ChapterID
	q.CourseID = &courseID
	m.quizzes[quizID] = q
	return nil
}

func (m *memoryStore) Unassign(_ context.Context, quizID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return ErrQuizNotFound
	}
	q.VideoID = nil
	q.ChapterID = nil
	q.CourseID = nil
	m.quizzes[quizID] = q
	return nil
}

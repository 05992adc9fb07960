package quiz

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/opencourse/lms-backend/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// --- definitions ---

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var quizID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO quizzes (title,duration_minutes,passing_score,quiz_type,teacher_id,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		q.Title, q.DurationMinutes, q.PassingScore, q.QuizType, q.TeacherID, time.Now().Unix(),
	).Scan(&quizID)
	if err != nil {
		return 0, err
	}
	if err := insertQuestions(ctx, tx, quizID, q.Questions); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return quizID, nil
}

func insertQuestions(ctx context.Context, tx *sql.Tx, quizID int64, questions []Question) error {
	for _, qu := range questions {
		points := qu.Points
		if points <= 0 {
			points = 1
		}
		var qid int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO quiz_questions (quiz_id,question_text,points,allows_multiple_correct)
			 VALUES ($1,$2,$3,$4) RETURNING id`,
			quizID, qu.QuestionText, points, qu.AllowsMultipleCorrect,
		).Scan(&qid)
		if err != nil {
			return err
		}
		for _, op := range qu.Options {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quiz_options (question_id,option_text,is_correct) VALUES ($1,$2,$3)`,
				qid, op.OptionText, op.IsCorrect,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	var q Quiz
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,duration_minutes,passing_score,quiz_type,video_id,chapter_id,course_id,teacher_id,created_at
		 FROM quizzes WHERE id=$1`, id,
	).Scan(&q.ID, &q.Title, &q.DurationMinutes, &q.PassingScore, &q.QuizType,
		&q.VideoID, &q.ChapterID, &q.CourseID, &q.TeacherID, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT qq.id, qq.question_text, qq.points, qq.allows_multiple_correct,
		        qo.id, qo.option_text, qo.is_correct
		 FROM quiz_questions qq
		 LEFT JOIN quiz_options qo ON qq.id = qo.question_id
		 WHERE qq.quiz_id=$1
		 ORDER BY qq.id, qo.id`, id)
	if err != nil {
		return Quiz{}, err
	}
	defer rows.Close()

	var cur *Question
	for rows.Next() {
		var (
			qid, points  int64
			text         string
			multi        bool
			optID        sql.NullInt64
			optText      sql.NullString
			optIsCorrect sql.NullBool
		)
		if err := rows.Scan(&qid, &text, &points, &multi, &optID, &optText, &optIsCorrect); err != nil {
			return Quiz{}, err
		}
		if cur == nil || cur.ID != qid {
			q.Questions = append(q.Questions, Question{
				ID: qid, QuizID: id, QuestionText: text,
				Points: int(points), AllowsMultipleCorrect: multi,
			})
			cur = &q.Questions[len(q.Questions)-1]
		}
		if optID.Valid {
			cur.Options = append(cur.Options, Option{
				ID:         optID.Int64,
				QuestionID: qid,
				OptionText: optText.String,
				IsCorrect:  optIsCorrect.Bool,
			})
		}
	}
	return q, rows.Err()
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, id int64, title string, durationMinutes, passingScore int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET title=$1, duration_minutes=$2, passing_score=$3 WHERE id=$4`,
		title, durationMinutes, passingScore, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuizNotFound
	}
	return nil
}

// DeleteQuiz removes the quiz with its questions, options, attempts and
// answers. Children go first to respect foreign keys.
func (s *SQLStore) DeleteQuiz(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM quiz_answers WHERE attempt_id IN (SELECT id FROM quiz_attempts WHERE quiz_id=$1)`,
		`DELETE FROM quiz_attempts WHERE quiz_id=$1`,
		`DELETE FROM quiz_options WHERE question_id IN (SELECT id FROM quiz_questions WHERE quiz_id=$1)`,
		`DELETE FROM quiz_questions WHERE quiz_id=$1`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuizNotFound
	}
	return tx.Commit()
}

// ReplaceQuestions swaps the full question set of a quiz: old options then
// old questions are deleted, the new set inserted, all in one transaction.
func (s *SQLStore) ReplaceQuestions(ctx context.Context, quizID int64, questions []Question) error {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuizNotFound
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM quiz_options WHERE question_id IN (SELECT id FROM quiz_questions WHERE quiz_id=$1)`,
		quizID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_questions WHERE quiz_id=$1`, quizID); err != nil {
		return err
	}
	if err := insertQuestions(ctx, tx, quizID, questions); err != nil {
		return err
	}
	return tx.Commit()
}

const summarySelect = `
SELECT q.id, q.title, q.duration_minutes, q.passing_score, q.quiz_type,
       q.video_id, q.chapter_id, q.course_id, q.teacher_id, q.created_at,
       COALESCE(v.title,''), COALESCE(c.title,''), COALESCE(t.full_name,''),
       (SELECT COUNT(*) FROM quiz_questions WHERE quiz_id = q.id)
FROM quizzes q
LEFT JOIN videos v ON q.video_id = v.id
LEFT JOIN chapters c ON q.chapter_id = c.id
LEFT JOIN users t ON q.teacher_id = t.id`

func (s *SQLStore) ListAll(ctx context.Context) ([]QuizSummary, error) {
	return s.listSummaries(ctx, summarySelect+` ORDER BY q.created_at DESC`)
}

func (s *SQLStore) ListByCourse(ctx context.Context, courseID int64) ([]QuizSummary, error) {
	return s.listSummaries(ctx, summarySelect+` WHERE q.course_id=$1 ORDER BY q.created_at DESC`, courseID)
}

// ListByVideo offers video-typed quizzes for one video: those already on it
// plus unattached ones a teacher could still pick.
func (s *SQLStore) ListByVideo(ctx context.Context, videoID int64) ([]QuizSummary, error) {
	out, err := s.listSummaries(ctx,
		summarySelect+` WHERE (q.video_id IS NULL OR q.video_id=$1)
		AND q.quiz_type='video'
		AND EXISTS (SELECT 1 FROM quiz_questions qq WHERE qq.quiz_id = q.id)
		ORDER BY q.created_at DESC`, videoID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsAssigned = out[i].VideoID != nil && *out[i].VideoID == videoID
	}
	return out, nil
}

func (s *SQLStore) ListByTeacher(ctx context.Context, teacherID int64) ([]QuizSummary, error) {
	return s.listSummaries(ctx, summarySelect+` WHERE q.teacher_id=$1 ORDER BY q.created_at DESC`, teacherID)
}

func (s *SQLStore) ListUnassigned(ctx context.Context) ([]QuizSummary, error) {
	return s.listSummaries(ctx,
		summarySelect+` WHERE q.video_id IS NULL AND q.chapter_id IS NULL
		AND EXISTS (SELECT 1 FROM quiz_questions qq WHERE qq.quiz_id = q.id)
		ORDER BY q.created_at DESC`)
}

func (s *SQLStore) listSummaries(ctx context.Context, query string, args ...any) ([]QuizSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []QuizSummary{}
	for rows.Next() {
		var qs QuizSummary
		if err := rows.Scan(&qs.ID, &qs.Title, &qs.DurationMinutes, &qs.PassingScore, &qs.QuizType,
			&qs.VideoID, &qs.ChapterID, &qs.CourseID, &qs.TeacherID, &qs.CreatedAt,
			&qs.VideoTitle, &qs.ChapterTitle, &qs.TeacherName, &qs.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, qs)
	}
	return out, rows.Err()
}

// ListByChapter returns full quizzes (questions and options, answer flags
// stripped) for the learner-facing chapter view.
func (s *SQLStore) ListByChapter(ctx context.Context, chapterID int64) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.title, q.duration_minutes, q.passing_score,
		        qq.id, qq.question_text, qo.id, qo.option_text
		 FROM quizzes q
		 LEFT JOIN quiz_questions qq ON q.id = qq.quiz_id
		 LEFT JOIN quiz_options qo ON qq.id = qo.question_id
		 WHERE q.chapter_id=$1
		 ORDER BY q.id, qq.id, qo.id`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Quiz{}
	var curQuiz *Quiz
	var curQ *Question
	for rows.Next() {
		var (
			quizID, duration, passing int64
			title                     string
			qID                       sql.NullInt64
			qText                     sql.NullString
			oID                       sql.NullInt64
			oText                     sql.NullString
		)
		if err := rows.Scan(&quizID, &title, &duration, &passing, &qID, &qText, &oID, &oText); err != nil {
			return nil, err
		}
		if curQuiz == nil || curQuiz.ID != quizID {
			out = append(out, Quiz{ID: quizID, Title: title, DurationMinutes: int(duration), PassingScore: int(passing)})
			curQuiz = &out[len(out)-1]
			curQ = nil
		}
		if qID.Valid && (curQ == nil || curQ.ID != qID.Int64) {
			curQuiz.Questions = append(curQuiz.Questions, Question{ID: qID.Int64, QuizID: quizID, QuestionText: qText.String})
			curQ = &curQuiz.Questions[len(curQuiz.Questions)-1]
		}
		if oID.Valid && curQ != nil {
			curQ.Options = append(curQ.Options, Option{ID: oID.Int64, QuestionID: curQ.ID, OptionText: oText.String})
		}
	}
	return out, rows.Err()
}

// CorrectAnswers keys the scoring run: only questions that have at least one
// option flagged correct are returned.
func (s *SQLStore) CorrectAnswers(ctx context.Context, quizID int64) ([]grading.Q, int, error) {
	var passing int
	if err := s.db.QueryRowContext(ctx,
		`SELECT passing_score FROM quizzes WHERE id=$1`, quizID).Scan(&passing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrQuizNotFound
		}
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT qq.id, qq.points, qq.allows_multiple_correct, qo.id
		 FROM quiz_questions qq
		 JOIN quiz_options qo ON qq.id = qo.question_id
		 WHERE qq.quiz_id=$1 AND qo.is_correct=$2
		 ORDER BY qq.id, qo.id`, quizID, true)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []grading.Q
	for rows.Next() {
		var (
			qid, optID int64
			points     int
			multi      bool
		)
		if err := rows.Scan(&qid, &points, &multi, &optID); err != nil {
			return nil, 0, err
		}
		if points <= 0 {
			points = 1
		}
		if len(out) == 0 || out[len(out)-1].ID != qid {
			out = append(out, grading.Q{ID: qid, Points: points, AllowsMultiple: multi})
		}
		last := &out[len(out)-1]
		last.CorrectOptionIDs = append(last.CorrectOptionIDs, optID)
	}
	return out, passing, rows.Err()
}

// --- attempt ledger ---

func (s *SQLStore) SaveAttempt(ctx context.Context, a Attempt, answers Submission) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	endTime := a.EndTime
	if endTime == 0 {
		endTime = time.Now().Unix()
	}
	var attemptID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO quiz_attempts (user_id,quiz_id,score,status,end_time)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		a.UserID, a.QuizID, a.Score, a.Status, endTime,
	).Scan(&attemptID)
	if err != nil {
		return 0, err
	}

	// rows naming an unknown question or option are dropped rather than
	// tripping a foreign key; scoring already awards them nothing
	for questionID, optionIDs := range answers {
		for _, optionID := range optionIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quiz_answers (attempt_id,question_id,selected_option_id)
				 SELECT $1,$2,$3
				 WHERE EXISTS (SELECT 1 FROM quiz_options WHERE id=$3 AND question_id=$2)`,
				attemptID, questionID, optionID,
			); err != nil {
				return 0, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return attemptID, nil
}

// LatestAttempt orders by end_time then id so that, on a timestamp collision
// between two concurrent submissions, the later insert wins.
func (s *SQLStore) LatestAttempt(ctx context.Context, userID, quizID int64) (Attempt, error) {
	var a Attempt
	err := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,quiz_id,score,status,end_time FROM quiz_attempts
		 WHERE user_id=$1 AND quiz_id=$2
		 ORDER BY end_time DESC, id DESC LIMIT 1`, userID, quizID,
	).Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.Status, &a.EndTime)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) HasAttempt(ctx context.Context, userID, quizID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE user_id=$1 AND quiz_id=$2)`,
		userID, quizID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) GetResult(ctx context.Context, userID, quizID int64) (*Result, error) {
	a, err := s.LatestAttempt(ctx, userID, quizID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, selected_option_id FROM quiz_answers WHERE attempt_id=$1 ORDER BY id`, a.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &Result{
		AttemptID: a.ID,
		Score:     a.Score,
		Passed:    a.Status == StatusCompleted,
		Answers:   map[int64]int64{},
	}
	for rows.Next() {
		var questionID, optionID int64
		if err := rows.Scan(&questionID, &optionID); err != nil {
			return nil, err
		}
		res.Answers[questionID] = optionID
	}
	return res, rows.Err()
}

func (s *SQLStore) GetReview(ctx context.Context, userID, quizID int64) (*AttemptReview, error) {
	a, err := s.LatestAttempt(ctx, userID, quizID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT qq.id, qq.question_text, qq.points,
		        qo.id, qo.option_text, qo.is_correct,
		        qans.selected_option_id
		 FROM quiz_questions qq
		 JOIN quiz_options qo ON qq.id = qo.question_id
		 LEFT JOIN quiz_answers qans ON qans.attempt_id=$1 AND qans.question_id=qq.id AND qans.selected_option_id=qo.id
		 WHERE qq.quiz_id=$2
		 ORDER BY qq.id, qo.id`, a.ID, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	review := &AttemptReview{AttemptID: a.ID, Score: a.Score, Passed: a.Status == StatusCompleted}
	var cur *QuestionReview
	for rows.Next() {
		var (
			qid      int64
			text     string
			points   int
			optID    int64
			optText  string
			correct  bool
			selected sql.NullInt64
		)
		if err := rows.Scan(&qid, &text, &points, &optID, &optText, &correct, &selected); err != nil {
			return nil, err
		}
		if cur == nil || cur.ID != qid {
			review.Details = append(review.Details, QuestionReview{ID: qid, QuestionText: text, Points: points})
			cur = &review.Details[len(review.Details)-1]
		}
		cur.Options = append(cur.Options, Option{ID: optID, QuestionID: qid, OptionText: optText, IsCorrect: correct})
		if selected.Valid {
			v := selected.Int64
			cur.SelectedOption = &v
		}
	}
	return review, rows.Err()
}

// ResetAttempt deletes answers before the attempt to satisfy the foreign key.
func (s *SQLStore) ResetAttempt(ctx context.Context, userID, quizID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var attemptID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM quiz_attempts WHERE user_id=$1 AND quiz_id=$2
		 ORDER BY end_time DESC, id DESC LIMIT 1`, userID, quizID,
	).Scan(&attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAttemptNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_answers WHERE attempt_id=$1`, attemptID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_attempts WHERE id=$1`, attemptID); err != nil {
		return err
	}
	return tx.Commit()
}

// --- scope assignment ---

// Assign attaches a quiz to a video or chapter and stamps the owning course.
// Fails before mutating anything when the quiz is missing, has no questions,
// or neither target resolves to a course.
func (s *SQLStore) Assign(ctx context.Context, quizID int64, target AssignTarget) error {
	if target.VideoID == nil && target.ChapterID == nil {
		return ErrNoAssignTarget
	}

	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuizNotFound
		}
		return err
	}
	var questionCount int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quiz_questions WHERE quiz_id=$1`, quizID).Scan(&questionCount); err != nil {
		return err
	}
	if questionCount == 0 {
		return ErrNoQuestions
	}

	var courseID int64
	var err error
	switch {
	case target.VideoID != nil:
		err = s.db.QueryRowContext(ctx, `SELECT course_id FROM videos WHERE id=$1`, *target.VideoID).Scan(&courseID)
	case target.ChapterID != nil:
		err = s.db.QueryRowContext(ctx, `SELECT course_id FROM chapters WHERE id=$1`, *target.ChapterID).Scan(&courseID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoAssignTarget
		}
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE quizzes SET video_id=$1, chapter_id=$2, course_id=$3 WHERE id=$4`,
		target.VideoID, target.ChapterID, courseID, quizID)
	return err
}

func (s *SQLStore) Unassign(ctx context.Context, quizID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET video_id=NULL, chapter_id=NULL, course_id=NULL WHERE id=$1`, quizID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuizNotFound
	}
	return nil
}

package http

import (
	"encoding/json"
	"net/http"

	authmw "github.com/opencourse/lms-backend/internal/auth/middleware"
	"github.com/opencourse/lms-backend/internal/quiz"
)

// POST /quizzes — quiz with nested questions/options in one request.
func CreateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad json")
			return
		}
		if q.Title == "" {
			writeMessage(w, http.StatusBadRequest, "title required")
			return
		}
		if q.TeacherID == nil {
			if tid, ok := subjectID(authmw.SubjectFromContext(r.Context())); ok {
				q.TeacherID = &tid
			}
		}
		id, err := store.CreateQuiz(r.Context(), q)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "quiz created successfully",
			"quizId":  id,
		})
	}
}

// GET /quizzes/{quizID}
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// PUT /quizzes/{quizID}  {"title":..., "duration_minutes":..., "passing_score":...}
func UpdateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		var req struct {
			Title           string `json:"title"`
			DurationMinutes int    `json:"duration_minutes"`
			PassingScore    int    `json:"passing_score"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := store.UpdateQuiz(r.Context(), id, req.Title, req.DurationMinutes, req.PassingScore); err != nil {
			writeStoreError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "quiz updated successfully")
	}
}

// DELETE /quizzes/{quizID}
func DeleteQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		if err := store.DeleteQuiz(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "quiz deleted successfully")
	}
}

// PUT /quizzes/{quizID}/questions  {"questions": [...]} — full replacement.
func ReplaceQuestionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		var req struct {
			Questions []quiz.Question `json:"questions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad json")
			return
		}
		if err := store.ReplaceQuestions(r.Context(), id, req.Questions); err != nil {
			writeStoreError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "questions updated successfully")
	}
}

// GET /quizzes
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListAll(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /courses/{courseID}/quizzes
func ListCourseQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "courseID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad course id")
			return
		}
		list, err := store.ListByCourse(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /chapters/{chapterID}/quizzes
func ListChapterQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "chapterID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad chapter id")
			return
		}
		list, err := store.ListByChapter(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /videos/{videoID}/quizzes
func ListVideoQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "videoID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad video id")
			return
		}
		list, err := store.ListByVideo(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /teachers/{teacherID}/quizzes
func ListTeacherQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "teacherID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad teacher id")
			return
		}
		list, err := store.ListByTeacher(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

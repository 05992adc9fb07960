package http

import (
	"encoding/json"
	"net/http"

	authmw "github.com/opencourse/lms-backend/internal/auth/middleware"
	"github.com/opencourse/lms-backend/internal/quiz"
)

// POST /quizzes/{quizID}/submit  {"answers": {"<questionID>": optionID | [optionID...]}}
func SubmitQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subjectID(authmw.SubjectFromContext(r.Context()))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthorized - please login")
			return
		}
		quizID, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}

		var req struct {
			Answers map[string]json.RawMessage `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad json")
			return
		}
		if len(req.Answers) == 0 {
			writeMessage(w, http.StatusBadRequest, "no answers provided")
			return
		}
		answers, err := decodeAnswers(req.Answers)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := svc.Submit(r.Context(), userID, quizID, answers)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /quizzes/{quizID}/result — latest attempt outcome, null when none.
func QuizResultHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subjectID(authmw.SubjectFromContext(r.Context()))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthorized - please login")
			return
		}
		quizID, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		res, err := svc.Result(r.Context(), userID, quizID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res) // res may be nil -> JSON null
	}
}

// GET /quizzes/{quizID}/review — latest attempt with per-question detail.
func QuizReviewHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subjectID(authmw.SubjectFromContext(r.Context()))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthorized - please login")
			return
		}
		quizID, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		review, err := svc.Review(r.Context(), userID, quizID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	}
}

// GET /quizzes/{quizID}/attempted — whether the user has any attempt recorded.
func AttemptStatusHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subjectID(authmw.SubjectFromContext(r.Context()))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthorized - please login")
			return
		}
		quizID, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		attempted, err := svc.HasAttempted(r.Context(), userID, quizID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"attempted": attempted})
	}
}

// POST /quizzes/{quizID}/reset — drop the latest attempt.
func ResetAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subjectID(authmw.SubjectFromContext(r.Context()))
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthorized - please login")
			return
		}
		quizID, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		deleted, err := svc.Reset(r.Context(), userID, quizID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if !deleted {
			writeMessage(w, http.StatusOK, "no attempt found")
			return
		}
		writeMessage(w, http.StatusOK, "quiz attempt reset successfully")
	}
}

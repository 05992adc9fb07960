package http

import (
	"encoding/json"
	"net/http"

	"github.com/opencourse/lms-backend/internal/quiz"
)

// POST /quizzes/{quizID}/assign  {"video_id": n} or {"chapter_id": n}
func AssignQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		var req struct {
			VideoID   *int64 `json:"video_id"`
			ChapterID *int64 `json:"chapter_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.VideoID == nil && req.ChapterID == nil {
			writeMessage(w, http.StatusBadRequest, "a video or chapter target is required")
			return
		}
		err = svc.Assign(r.Context(), quizID, quiz.AssignTarget{
			VideoID:   req.VideoID,
			ChapterID: req.ChapterID,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "quiz assigned successfully")
	}
}

// POST /quizzes/{quizID}/unassign
func UnassignQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, err := urlID(r, "quizID")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "bad quiz id")
			return
		}
		if err := svc.Unassign(r.Context(), quizID); err != nil {
			writeStoreError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "quiz unassigned successfully")
	}
}

// GET /quizzes/unassigned — quizzes with questions but no scope yet, for the
// admin assignment screen.
func ListUnassignedQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListUnassigned(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

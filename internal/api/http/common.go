package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opencourse/lms-backend/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeStoreError maps the domain error taxonomy onto HTTP statuses. Raw
// persistence errors stay server-side; the client sees a generic message.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrQuizNotFound), errors.Is(err, quiz.ErrAttemptNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case quiz.IsInvalid(err):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func urlID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// subjectID parses the authenticated subject into a numeric user id.
func subjectID(sub string) (int64, bool) {
	id, err := strconv.ParseInt(sub, 10, 64)
	return id, err == nil && id > 0
}

// decodeAnswers normalizes the wire shape {"qid": optID | [optID, ...]} where
// ids arrive as JSON numbers or numeric strings.
func decodeAnswers(raw map[string]json.RawMessage) (quiz.Submission, error) {
	out := quiz.Submission{}
	for k, v := range raw {
		qid, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, errors.New("question ids must be numeric")
		}
		ids, err := decodeOptionIDs(v)
		if err != nil {
			return nil, err
		}
		out[qid] = ids
	}
	return out, nil
}

func decodeOptionIDs(v json.RawMessage) ([]int64, error) {
	var single int64
	if err := json.Unmarshal(v, &single); err == nil {
		return []int64{single}, nil
	}
	var many []int64
	if err := json.Unmarshal(v, &many); err == nil {
		return many, nil
	}
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		id, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, errors.New("option ids must be numeric")
		}
		return []int64{id}, nil
	}
	var strs []string
	if err := json.Unmarshal(v, &strs); err == nil {
		out := make([]int64, 0, len(strs))
		for _, s := range strs {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errors.New("option ids must be numeric")
			}
			out = append(out, id)
		}
		return out, nil
	}
	return nil, errors.New("answers must map question id to option id(s)")
}

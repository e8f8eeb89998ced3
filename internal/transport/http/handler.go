// Package http exposes the attempt engine over REST plus a websocket feed for
// live leaderboards.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"trivia-attempt-service/internal/app"
	"trivia-attempt-service/internal/domain"
)

// Authenticator resolves the calling user from a request. An empty user ID
// means unauthenticated.
type Authenticator interface {
	UserID(r *http.Request) string
}

// HeaderAuth trusts an upstream gateway to put the user ID in a header.
type HeaderAuth struct {
	Header string
}

func (a HeaderAuth) UserID(r *http.Request) string {
	header := a.Header
	if header == "" {
		header = "X-User-ID"
	}
	return r.Header.Get(header)
}

type Handler struct {
	attempts     *app.AttemptService
	leaderboards *app.LeaderboardService
	auth         Authenticator
}

func NewHandler(attempts *app.AttemptService, leaderboards *app.LeaderboardService, auth Authenticator) *Handler {
	if auth == nil {
		auth = HeaderAuth{}
	}
	return &Handler{attempts: attempts, leaderboards: leaderboards, auth: auth}
}

// Routes mounts every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /attempts", h.startAttempt)
	mux.HandleFunc("PUT /attempts/{id}/answer", h.submitAnswer)
	mux.HandleFunc("POST /attempts/{id}/complete", h.completeAttempt)
	mux.HandleFunc("GET /quizzes/{id}/attempt-limit", h.attemptLimit)
	mux.HandleFunc("GET /leaderboard", h.leaderboard)
	mux.HandleFunc("GET /ws/leaderboard", h.watchLeaderboard)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

type startAttemptRequest struct {
	QuizID         string `json:"quizId"`
	IsPracticeMode bool   `json:"isPracticeMode"`
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	userID := h.auth.UserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req startAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "quizId is required")
		return
	}

	result, err := h.attempts.StartAttempt(r.Context(), req.QuizID, userID, req.IsPracticeMode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type submitAnswerRequest struct {
	QuestionID string  `json:"questionId"`
	AnswerID   *string `json:"answerId"`
	TimeSpent  int     `json:"timeSpent"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	userID := h.auth.UserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	attemptID := r.PathValue("id")

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "questionId is required")
		return
	}
	if req.TimeSpent < 0 {
		writeError(w, http.StatusBadRequest, "timeSpent cannot be negative")
		return
	}

	result, err := h.attempts.SubmitAnswer(r.Context(), attemptID, userID, req.QuestionID, req.AnswerID, req.TimeSpent)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) completeAttempt(w http.ResponseWriter, r *http.Request) {
	userID := h.auth.UserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	result, err := h.attempts.CompleteAttempt(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) attemptLimit(w http.ResponseWriter, r *http.Request) {
	userID := h.auth.UserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	practice := r.URL.Query().Get("practice") == "true"

	info, err := h.attempts.GetAttemptLimit(r.Context(), userID, r.PathValue("id"), practice, time.Now())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if info == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"limited": false})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	topicID, period, limit := leaderboardParams(r)

	var (
		snap *app.LeaderboardSnapshot
		err  error
	)
	if topicID == "" {
		snap, err = h.leaderboards.Global(r.Context(), period, limit)
	} else {
		snap, err = h.leaderboards.Topic(r.Context(), topicID, period, limit)
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func leaderboardParams(r *http.Request) (string, domain.LeaderboardPeriod, int) {
	q := r.URL.Query()
	period := domain.LeaderboardPeriod(q.Get("period"))
	switch period {
	case domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly:
	default:
		period = domain.PeriodAllTime
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	return q.Get("topicId"), period, limit
}

type errorResponse struct {
	Error   string                    `json:"error"`
	Code    string                    `json:"code,omitempty"`
	Limit   int                       `json:"limit,omitempty"`
	Period  domain.AttemptResetPeriod `json:"period,omitempty"`
	ResetAt *time.Time                `json:"resetAt,omitempty"`
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var limitErr *domain.AttemptLimitError
	if errors.As(err, &limitErr) {
		writeJSON(w, http.StatusForbidden, errorResponse{
			Error:   limitErr.Error(),
			Code:    "ATTEMPT_LIMIT_REACHED",
			Limit:   limitErr.Limit,
			Period:  limitErr.Period,
			ResetAt: limitErr.ResetAt,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrTopicNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotAttemptOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrQuizNotAvailable),
		errors.Is(err, domain.ErrAttemptCompleted),
		errors.Is(err, domain.ErrQuestionNotInAttempt),
		errors.Is(err, domain.ErrNoQuestionsAvailable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pokequest/internal/catch"
	"pokequest/internal/model"
	"pokequest/internal/service"
)

const userHeader = "X-User-ID"

const errBadBody = "invalid request body"

type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

type triggerResponse struct {
	Accepted bool           `json:"accepted"`
	State    catch.Snapshot `json:"state"`
}

type answerRequest struct {
	Choice string `json:"choice"`
}

type setStepsRequest struct {
	Steps *int `json:"steps"`
}

type addStepsRequest struct {
	Delta *int `json:"delta"`
}

type collectionResponse struct {
	UserID string            `json:"user_id"`
	Count  int               `json:"count"`
	Items  []model.OwnedItem `json:"items"`
}

// userID prefers the header; browsers opening the event stream can only
// pass it as a query parameter.
func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(userHeader)); id != "" {
		return service.NormalizeUserID(id)
	}
	return service.NormalizeUserID(r.URL.Query().Get("user_id"))
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) triggerCatch(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	snap, accepted, err := h.svc.Trigger(user)
	if err != nil {
		h.serviceError(w, "trigger", user, err)
		return
	}
	status := http.StatusAccepted
	if !accepted {
		status = http.StatusOK
	}
	writeJSON(w, status, triggerResponse{Accepted: accepted, State: snap})
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("answer decode error", zap.String("user_id", user), zap.Error(err))
		writeError(w, http.StatusBadRequest, errBadBody)
		return
	}
	if strings.TrimSpace(req.Choice) == "" {
		writeError(w, http.StatusBadRequest, "choice is required")
		return
	}

	snap, err := h.svc.SubmitAnswer(r.Context(), user, req.Choice)
	if err != nil {
		h.serviceError(w, "answer", user, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) catchState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CatchState(userID(r)))
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	ended := h.svc.EndSession(userID(r))
	writeJSON(w, http.StatusOK, map[string]bool{"ended": ended})
}

func (h *Handler) collection(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	c := h.svc.Collection(r.Context(), user)
	items := c.Items
	if items == nil {
		items = []model.OwnedItem{}
	}
	writeJSON(w, http.StatusOK, collectionResponse{UserID: user, Count: len(items), Items: items})
}

func (h *Handler) badges(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	badges, err := h.svc.Badges(r.Context(), user)
	if err != nil {
		h.serviceError(w, "badges", user, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": user, "badges": badges})
}

func (h *Handler) steps(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	challenge, err := h.svc.Steps(r.Context(), user)
	if err != nil {
		h.serviceError(w, "steps", user, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (h *Handler) setSteps(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	var req setStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Steps == nil {
		writeError(w, http.StatusBadRequest, errBadBody)
		return
	}
	challenge, err := h.svc.SetSteps(r.Context(), user, *req.Steps)
	if err != nil {
		h.serviceError(w, "setSteps", user, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (h *Handler) addSteps(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	var req addStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == nil {
		writeError(w, http.StatusBadRequest, errBadBody)
		return
	}
	challenge, err := h.svc.AddSteps(r.Context(), user, *req.Delta)
	if err != nil {
		h.serviceError(w, "addSteps", user, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (h *Handler) claimReward(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	result, err := h.svc.ClaimGoalReward(r.Context(), user)
	if err != nil {
		h.serviceError(w, "claimReward", user, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) dailyReport(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	day := h.svc.Now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.svc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		day = parsed
	}

	report, err := h.svc.DailyReport(r.Context(), user, day)
	if err != nil {
		h.serviceError(w, "dailyReport", user, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	entries, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		h.serviceError(w, "leaderboard", "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) serviceError(w http.ResponseWriter, op string, user string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidSteps):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotAwaitingAnswer),
		errors.Is(err, service.ErrGoalNotCompleted),
		errors.Is(err, service.ErrRewardAlreadyClaimed):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEmptyCatalog), errors.Is(err, service.ErrServiceClosed):
		status = http.StatusServiceUnavailable
	}

	fields := []zap.Field{zap.String("op", op), zap.Int("status", status), zap.Error(err)}
	if user != "" {
		fields = append(fields, zap.String("user_id", user))
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Info("request rejected", fields...)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

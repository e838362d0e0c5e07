package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pressstart/platform/internal/service"
)

// QuestHandler handles quest lifecycle endpoints.
type QuestHandler struct {
	questSvc *service.QuestService
}

// NewQuestHandler creates a new QuestHandler.
func NewQuestHandler(questSvc *service.QuestService) *QuestHandler {
	return &QuestHandler{questSvc: questSvc}
}

// Start handles POST /quests/{questID}/start.
func (h *QuestHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.questSvc.Start(r.Context(), userID, chi.URLParam(r, "questID"))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

type submitAnswerRequest struct {
	Answer string `json:"answer"`
}

// SubmitAnswer handles POST /quests/{questID}/submit.
func (h *QuestHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req submitAnswerRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	result, err := h.questSvc.SubmitAnswer(r.Context(), userID, chi.URLParam(r, "questID"), req.Answer)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

type submitCodeRequest struct {
	Code string `json:"code"`
}

// SubmitCode handles POST /quests/{questID}/submit-code.
func (h *QuestHandler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req submitCodeRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}
	if req.Code == "" {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "code is required",
		})
		return
	}

	result, err := h.questSvc.SubmitCode(r.Context(), userID, chi.URLParam(r, "questID"), req.Code)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// GetProgress handles GET /quests/{questID}/progress.
func (h *QuestHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	view, err := h.questSvc.GetProgress(r.Context(), userID, chi.URLParam(r, "questID"))
	if err != nil {
		RespondError(w, err)
		return
	}
	if view == nil {
		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"started": false,
		})
		return
	}

	RespondJSON(w, http.StatusOK, view)
}

// ListProgress handles GET /quests/progress. Completed quests are always
// listed; pass ?include_in_progress=true to include started-but-unfinished
// quests as well.
func (h *QuestHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	includeInProgress, _ := strconv.ParseBool(r.URL.Query().Get("include_in_progress"))
	views, err := h.questSvc.ListProgress(r.Context(), userID, includeInProgress)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, views)
}

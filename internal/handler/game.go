package handler

import (
	"net/http"
	"strconv"

	"github.com/pressstart/platform/internal/service"
)

// GameHandler handles the non-quest gamification endpoints.
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

type readPostRequest struct {
	PostSlug string `json:"post_slug"`
}

// ReadPost handles POST /game/read-post.
func (h *GameHandler) ReadPost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req readPostRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	result, err := h.gameSvc.ReadPost(r.Context(), userID, req.PostSlug)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// ClaimDailyReward handles POST /game/daily-reward.
func (h *GameHandler) ClaimDailyReward(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.gameSvc.ClaimDailyReward(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

type useItemRequest struct {
	ItemID     string  `json:"item_id"`
	TargetSlug *string `json:"target_slug,omitempty"`
}

// UseItem handles POST /game/use-item.
func (h *GameHandler) UseItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req useItemRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	result, err := h.gameSvc.UseItem(r.Context(), userID, req.ItemID, req.TargetSlug)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

type checkAccessRequest struct {
	PostSlug      string  `json:"post_slug"`
	RequiredLevel *int    `json:"required_level,omitempty"`
	RequiredItem  *string `json:"required_item,omitempty"`
}

// CheckAccess handles POST /game/check-access.
func (h *GameHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req checkAccessRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	decision, err := h.gameSvc.CheckAccess(r.Context(), userID, req.PostSlug, req.RequiredLevel, req.RequiredItem)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, decision)
}

// LevelProgress handles GET /game/level-progress.
func (h *GameHandler) LevelProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	progress, err := h.gameSvc.LevelProgress(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, progress)
}

// XPHistory handles GET /game/xp-history.
func (h *GameHandler) XPHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	grants, err := h.gameSvc.XPHistory(r.Context(), userID, limit)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, grants)
}

// Inventory handles GET /game/inventory.
func (h *GameHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	items, err := h.gameSvc.Inventory(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, items)
}

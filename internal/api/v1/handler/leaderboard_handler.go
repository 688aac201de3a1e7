package handler

import (
	"net/http"
	"strconv"

	"app/internal/service"
)

type LeaderboardHandler struct {
	gamification service.GamificationService
}

func NewLeaderboardHandler(gamification service.GamificationService) *LeaderboardHandler {
	return &LeaderboardHandler{gamification: gamification}
}

func (h *LeaderboardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/leaderboard", authMw(http.HandlerFunc(h.getLeaderboard)))
}

func (h *LeaderboardHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	board, err := h.gamification.Leaderboard(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to fetch leaderboard: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

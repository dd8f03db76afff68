package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/store"
)

type ProfileHandler struct {
	userStore *store.UserStore
	logger    *slog.Logger
}

func NewProfileHandler(us *store.UserStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{userStore: us, logger: logger}
}

type updateProfileRequest struct {
	Username string `json:"username"`
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(req.Username); n < 8 || n > 20 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": map[string]string{"username": "must be 8 to 20 characters"},
		})
		return
	}

	user, err := h.userStore.UpdateUsername(auth.UserID(r.Context()), req.Username)
	if err != nil {
		h.logger.Warn("update username", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

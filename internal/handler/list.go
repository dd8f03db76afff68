package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/form"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	ws "github.com/dukerupert/bywater/internal/websocket"
)

type ListHandler struct {
	listStore *store.ListStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewListHandler(ls *store.ListStore, hub *ws.Hub, logger *slog.Logger) *ListHandler {
	return &ListHandler{listStore: ls, hub: hub, logger: logger}
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	summaries, err := h.listStore.SummariesByOwner(userID)
	if err != nil {
		h.logger.Error("list summaries", "error", err)
		writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []model.ListSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	list, err := h.listStore.GetByIDAndOwner(auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("get list", "error", err, "list_id", id)
		writeError(w, err)
		return
	}
	if list == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "grocery list not found"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Save accepts the list editor's form submission and reconciles the desired
// state against the store in one transaction. Validation failures come back
// as a field-keyed error map with a 422.
func (h *ListHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}

	cmd, errs := form.ParseGroceryList(r.PostForm)
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.listStore.Upsert(*cmd, userID); err != nil {
		h.logger.Error("upsert list", "error", err)
		writeError(w, err)
		return
	}

	action := "created"
	var listID int64
	if cmd.ID != nil {
		action = "updated"
		listID = *cmd.ID
	}
	h.hub.BroadcastTo(userID, ws.NewMessage("grocery_list", action, listID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *ListHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.listStore.Duplicate(userID, id); err != nil {
		h.logger.Error("duplicate list", "error", err, "list_id", id)
		writeError(w, err)
		return
	}

	h.hub.BroadcastTo(userID, ws.NewMessage("grocery_list", "duplicated", id))
	writeJSON(w, http.StatusCreated, map[string]string{"status": "duplicated"})
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.listStore.Delete(userID, id); err != nil {
		h.logger.Error("delete list", "error", err, "list_id", id)
		writeError(w, err)
		return
	}

	h.hub.BroadcastTo(userID, ws.NewMessage("grocery_list", "deleted", id))
	w.WriteHeader(http.StatusNoContent)
}

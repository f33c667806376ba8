package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/ahochma/choreboard/internal/store"
	"github.com/ahochma/choreboard/internal/websocket"
)

type ChoreHandler struct {
	store  *store.ChoreStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChoreHandler(s *store.ChoreStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{store: s, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type choreRequest struct {
	Title    string  `json:"title"`
	Points   int     `json:"points"`
	Category *string `json:"category"`
	Active   *bool   `json:"active"`
}

func (r *choreRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if r.Points <= 0 {
		return "points must be positive"
	}
	return ""
}

// List returns active chores by default; ?all=1 includes deactivated ones.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var chores []model.Chore
	var err error
	if r.URL.Query().Get("all") == "1" {
		chores, err = h.store.List()
	} else {
		chores, err = h.store.ListActive()
	}
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list chores"})
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	chore, err := h.store.Create(req.Title, req.Points, req.Category)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create chore"})
		return
	}

	h.broadcast(websocket.NewMessage("chore", "created", chore.ID.String(), nil))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	chore, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

// Update changes the chore catalog entry. Historical completions keep their
// snapshots, so retitling or repricing never rewrites past scores.
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if req.Category == nil {
		req.Category = existing.Category
	}
	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	chore, err := h.store.Update(id, req.Title, req.Points, req.Category, active)
	if err != nil {
		h.logger.Error("update chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update chore"})
		return
	}

	h.broadcast(websocket.NewMessage("chore", "updated", chore.ID.String(), nil))
	writeJSON(w, http.StatusOK, chore)
}

// Delete deactivates the chore. Nothing is removed from the ledger.
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	if err := h.store.Deactivate(id); err != nil {
		h.logger.Error("deactivate chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate chore"})
		return
	}

	h.broadcast(websocket.NewMessage("chore", "deactivated", id.String(), nil))
	w.WriteHeader(http.StatusNoContent)
}

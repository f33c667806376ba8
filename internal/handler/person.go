package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/ahochma/choreboard/internal/store"
	"github.com/ahochma/choreboard/internal/websocket"
	"github.com/google/uuid"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type PersonHandler struct {
	store  *store.PersonStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewPersonHandler(s *store.PersonStore, hub *websocket.Hub, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{store: s, hub: hub, logger: logger}
}

func (h *PersonHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type personRequest struct {
	Name     string  `json:"name"`
	Avatar   *string `json:"avatar"`
	ColorHex *string `json:"color_hex"`
}

func (r *personRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "name is required"
	}
	if r.ColorHex != nil && !hexColorRegexp.MatchString(*r.ColorHex) {
		return "color_hex must be a hex color (e.g. #FF0000)"
	}
	return ""
}

func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.List()
	if err != nil {
		h.logger.Error("list people", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list people"})
		return
	}
	if people == nil {
		people = []model.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	person, err := h.store.Create(req.Name, req.Avatar, req.ColorHex)
	if err != nil {
		h.logger.Error("create person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create person"})
		return
	}

	h.broadcast(websocket.NewMessage("person", "created", person.ID.String(), nil))
	writeJSON(w, http.StatusCreated, person)
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	person, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get person"})
		return
	}
	if person == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "person not found"})
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get person"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "person not found"})
		return
	}

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if req.Avatar == nil {
		req.Avatar = existing.Avatar
	}
	if req.ColorHex == nil {
		req.ColorHex = existing.ColorHex
	}

	person, err := h.store.Update(id, req.Name, req.Avatar, req.ColorHex)
	if err != nil {
		h.logger.Error("update person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update person"})
		return
	}

	h.broadcast(websocket.NewMessage("person", "updated", person.ID.String(), nil))
	writeJSON(w, http.StatusOK, person)
}

func parseIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
